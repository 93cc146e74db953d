// Package imaging reads the pixel dimensions of tile images without
// decoding their pixel data.
package imaging

import (
	"bufio"
	"fmt"
	"image"
	"os"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/janelia-flyem/go/go.image/bmp"
	_ "github.com/janelia-flyem/go/go.image/tiff"

	"github.com/xtxerr/volimport/internal/errors"
)

// Info describes an image file.
type Info struct {
	Width  int
	Height int
	Format string
}

// Probe reads the image header of path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", errors.ErrImageProbe, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", errors.ErrImageProbe, path, err)
	}

	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Size returns (height, width) of the image at path.
func Size(path string) (height, width int, err error) {
	info, err := Probe(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Height, info.Width, nil
}
