// Package testing builds on-disk volumes for tests: a VolumeData.xml,
// PNG tiles for every pyramid level and one Grid.mosaic per section.
//
// Tiles of a section are laid out in a single row. Tile i of a section
// with offset o covers x in [o+i*Width, o+(i+1)*Width) and y in
// [o, o+Height) of the mosaic space.
package testing

import (
	"encoding/xml"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/volume"
)

// Fixed names used by WriteVolume.
const (
	BlockPath     = "TEM"
	FilterPath    = "Leveled"
	PyramidPath   = "TilePyramid"
	TransformName = "Grid"
	MosaicFile    = "Grid.mosaic"
	TileExt       = ".png"
	ScaleUnits    = "nm"
)

// Volume describes a fixture volume.
type Volume struct {
	Name    string
	Channel string
	Filter  string

	// Scale is the X and Y units per pixel. Zero writes no Scale element.
	Scale float64

	Sections []Section
}

// Section describes one section of a fixture volume.
type Section struct {
	Number int

	// Tiles is the number of tiles, named 000.png, 001.png, ...
	Tiles int

	// Width and Height are the full resolution tile size in pixels.
	Width  int
	Height int

	// Levels are the downsample factors of the pyramid. Empty means [1].
	Levels []int

	// Offset moves every tile of the section in mosaic space.
	Offset float64

	// ExtraFiles are written into every level directory as valid images
	// next to the numbered tiles.
	ExtraFiles []string

	// BrokenMosaic writes an unparseable mosaic file.
	BrokenMosaic bool

	// NoMosaic omits the Transform element and the mosaic file.
	NoMosaic bool
}

// Default returns a small two section volume.
func Default() Volume {
	return Volume{
		Name:    "RC1",
		Channel: "TEM",
		Filter:  FilterPath,
		Scale:   2.18,
		Sections: []Section{
			{Number: 691, Tiles: 2, Width: 64, Height: 32, Levels: []int{1, 4}},
			{Number: 692, Tiles: 2, Width: 64, Height: 32, Levels: []int{1, 4}, Offset: 10},
		},
	}
}

// SectionPath returns the directory name of a section.
func SectionPath(number int) string {
	return fmt.Sprintf("%0*d", config.DefaultSectionDigits, number)
}

// LevelPath returns the directory name of a pyramid level.
func LevelPath(downsample int) string {
	return fmt.Sprintf("%03d", downsample)
}

// TileName returns the file name of tile i.
func TileName(i int) string {
	return fmt.Sprintf("%03d%s", i, TileExt)
}

// GridTransform returns the mosaic transform of tile i.
func (s Section) GridTransform(i int) string {
	x0 := s.Offset + float64(i*s.Width)
	y0 := s.Offset
	x1 := x0 + float64(s.Width)
	y1 := y0 + float64(s.Height)
	return fmt.Sprintf("GridTransform_double_2_2 vp 8 %g %g %g %g %g %g %g %g fp 7 0 1 1 0 0 %d %d",
		x0, y0, x1, y0, x0, y1, x1, y1, s.Width, s.Height)
}

func (s Section) levels() []int {
	if len(s.Levels) == 0 {
		return []int{1}
	}
	return s.Levels
}

// WriteVolume writes v below dir and returns the path of its VolumeData.xml.
// An existing fixture in dir is overwritten file by file, so calling it
// again with changed sections updates the volume in place.
func WriteVolume(t testing.TB, dir string, v Volume) string {
	t.Helper()

	if v.Channel == "" {
		v.Channel = "TEM"
	}
	if v.Filter == "" {
		v.Filter = FilterPath
	}

	block := &volume.Block{Name: BlockPath, Path: BlockPath}
	for _, s := range v.Sections {
		block.Sections = append(block.Sections, writeSection(t, dir, v, s))
	}

	doc := &volume.Volume{Name: v.Name, Blocks: []*volume.Block{block}}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal volume: %v", err)
	}

	path := filepath.Join(dir, config.DefaultVolumeFile)
	writeFile(t, path, append([]byte(xml.Header), data...))
	return path
}

func writeSection(t testing.TB, dir string, v Volume, s Section) *volume.Section {
	t.Helper()

	channelDir := filepath.Join(dir, BlockPath, SectionPath(s.Number), v.Channel)
	pyramid := &volume.TilePyramid{
		Path:           PyramidPath,
		ImageFormatExt: TileExt,
		NumberOfTiles:  s.Tiles,
	}

	for _, ds := range s.levels() {
		levelDir := filepath.Join(channelDir, FilterPath, PyramidPath, LevelPath(ds))
		mkdir(t, levelDir)

		w, h := max(s.Width/ds, 1), max(s.Height/ds, 1)
		for i := 0; i < s.Tiles; i++ {
			writePNG(t, filepath.Join(levelDir, TileName(i)), w, h)
		}
		for _, name := range s.ExtraFiles {
			writePNG(t, filepath.Join(levelDir, name), w, h)
		}
		pyramid.Levels = append(pyramid.Levels, &volume.Level{Downsample: float64(ds), Path: LevelPath(ds)})
	}

	ch := &volume.Channel{
		Name: v.Channel,
		Path: v.Channel,
		Filters: []*volume.Filter{
			{Name: v.Filter, Path: FilterPath, TilePyramid: pyramid},
		},
	}
	if v.Scale != 0 {
		ch.Scale = &volume.Scale{
			X: &volume.ScaleAxis{UnitsOfMeasure: ScaleUnits, UnitsPerPixel: v.Scale},
			Y: &volume.ScaleAxis{UnitsOfMeasure: ScaleUnits, UnitsPerPixel: v.Scale},
		}
	}

	if !s.NoMosaic {
		ch.Transforms = []*volume.Transform{{Name: TransformName, Path: MosaicFile}}
		writeFile(t, filepath.Join(channelDir, MosaicFile), []byte(mosaicText(s)))
	}

	return &volume.Section{
		Number:   s.Number,
		Path:     SectionPath(s.Number),
		Channels: []*volume.Channel{ch},
	}
}

func mosaicText(s Section) string {
	if s.BrokenMosaic {
		return "this is not a mosaic\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "number_of_images: %d\n", s.Tiles)
	b.WriteString("pixel_spacing: 1\n")
	b.WriteString("use_std_mask: 0\n")
	b.WriteString("format_version_number: 1\n")
	for i := 0; i < s.Tiles; i++ {
		fmt.Fprintf(&b, "image: %s %s\n", TileName(i), s.GridTransform(i))
	}
	return b.String()
}

func writePNG(t testing.TB, path string, w, h int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func writeFile(t testing.TB, path string, data []byte) {
	t.Helper()
	mkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}
