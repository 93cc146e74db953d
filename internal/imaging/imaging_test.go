package imaging

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/go/go.image/bmp"

	"github.com/xtxerr/volimport/internal/errors"
)

func writeImage(t *testing.T, path string, w, h int, encode func(*os.File, image.Image) error) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		file   string
		encode func(*os.File, image.Image) error
		format string
	}{
		{"png", "001.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) }, "png"},
		{"bmp", "002.bmp", func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }, "bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeImage(t, path, 32, 16, tt.encode)

			info, err := Probe(path)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if info.Width != 32 || info.Height != 16 {
				t.Errorf("size = %dx%d, want 32x16", info.Width, info.Height)
			}
			if info.Format != tt.format {
				t.Errorf("format = %q, want %q", info.Format, tt.format)
			}

			h, w, err := Size(path)
			if err != nil || h != 16 || w != 32 {
				t.Errorf("Size = (%d, %d, %v), want (16, 32, nil)", h, w, err)
			}
		})
	}
}

func TestProbeErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Probe(filepath.Join(dir, "missing.png")); !errors.Is(err, errors.ErrImageProbe) {
		t.Errorf("missing file: expected ErrImageProbe, got %v", err)
	}

	junk := filepath.Join(dir, "junk.png")
	os.WriteFile(junk, []byte("definitely not an image"), 0o644)
	if _, err := Probe(junk); !errors.Is(err, errors.ErrImageProbe) {
		t.Errorf("junk file: expected ErrImageProbe, got %v", err)
	}
}
