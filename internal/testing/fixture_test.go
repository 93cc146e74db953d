package testing

import (
	"path/filepath"
	"testing"

	"github.com/xtxerr/volimport/internal/geometry"
	"github.com/xtxerr/volimport/internal/imaging"
	"github.com/xtxerr/volimport/internal/mosaic"
	"github.com/xtxerr/volimport/internal/volume"
)

func TestWriteVolume(t *testing.T) {
	dir := t.TempDir()
	path := WriteVolume(t, dir, Default())

	v, err := volume.LoadXML(path)
	if err != nil {
		t.Fatalf("LoadXML: %v", err)
	}
	if v.Name != "RC1" {
		t.Errorf("Name = %q, want RC1", v.Name)
	}

	var numbers []int
	for s := range v.Sections(nil) {
		numbers = append(numbers, s.Number)
	}
	if len(numbers) != 2 || numbers[0] != 691 || numbers[1] != 692 {
		t.Fatalf("sections = %v", numbers)
	}

	for c := range v.Channels(nil) {
		if c.Scale == nil || c.Scale.X.UnitsPerPixel != 2.18 || c.Scale.Y.UnitsOfMeasure != ScaleUnits {
			t.Errorf("section %d scale = %+v", c.Section().Number, c.Scale)
		}
	}

	for f := range v.Filters(nil) {
		levels := f.TilePyramid.Levels
		if len(levels) != 2 {
			t.Fatalf("levels = %d, want 2", len(levels))
		}
		for _, l := range levels {
			h, w, err := imaging.Size(filepath.Join(l.FullPath(), TileName(1)))
			if err != nil {
				t.Fatalf("Size: %v", err)
			}
			if w != 64/l.Number() || h != 32/l.Number() {
				t.Errorf("level %d tile = %dx%d", l.Number(), w, h)
			}
		}
	}
}

func TestWriteVolume_Mosaic(t *testing.T) {
	dir := t.TempDir()
	vol := Default()
	path := WriteVolume(t, dir, vol)

	v, err := volume.LoadXML(path)
	if err != nil {
		t.Fatalf("LoadXML: %v", err)
	}

	for tr := range v.Transforms(volume.NewSectionSet(692)) {
		m, err := mosaic.Load(tr.FullPath())
		if err != nil {
			t.Fatalf("mosaic.Load: %v", err)
		}
		if len(m.Images) != 2 {
			t.Fatalf("images = %d, want 2", len(m.Images))
		}
		if got, want := m.FixedBoundingBox(), geometry.NewRect(10, 10, 42, 138); got != want {
			t.Errorf("FixedBoundingBox = %v, want %v", got, want)
		}
		if got, want := m.Images[1].Transform.MappedBoundingBox(), geometry.NewRect(0, 0, 32, 64); got != want {
			t.Errorf("MappedBoundingBox = %v, want %v", got, want)
		}
		if m.Images[0].TransformString != vol.Sections[1].GridTransform(0) {
			t.Errorf("transform = %q", m.Images[0].TransformString)
		}
	}
}

func TestWriteVolume_Variants(t *testing.T) {
	dir := t.TempDir()
	path := WriteVolume(t, dir, Volume{
		Name: "RC2",
		Sections: []Section{
			{Number: 1, Tiles: 1, Width: 8, Height: 8, BrokenMosaic: true},
			{Number: 2, Tiles: 1, Width: 8, Height: 8, NoMosaic: true},
		},
	})

	v, err := volume.LoadXML(path)
	if err != nil {
		t.Fatalf("LoadXML: %v", err)
	}

	var transforms []*volume.Transform
	for tr := range v.Transforms(nil) {
		transforms = append(transforms, tr)
	}
	if len(transforms) != 1 {
		t.Fatalf("transforms = %d, want 1", len(transforms))
	}
	if _, err := mosaic.Load(transforms[0].FullPath()); err == nil {
		t.Error("broken mosaic should fail to load")
	}

	for c := range v.Channels(nil) {
		if c.Scale != nil {
			t.Errorf("unexpected scale %+v", c.Scale)
		}
	}
}
