// Package mosaic reads .mosaic files, which map every tile image of a
// section onto a common mosaic space through one transform per tile.
//
// A mosaic file is a small header followed by one line per image:
//
//	number_of_images: 2
//	pixel_spacing: 1
//	use_std_mask: 0
//	format_version_number: 1
//	image: 001.png GridTransform_double_2_2 vp 8 ... fp 7 ...
//
// Older files put the image line after a bare "image:" line; both forms
// are accepted.
package mosaic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/geometry"
)

// File is a parsed mosaic file.
type File struct {
	Path           string
	NumberOfImages int
	PixelSpacing   float64
	UseStdMask     bool
	FormatVersion  int

	// Images in file order. A name listed twice keeps its last transform.
	Images []Image
}

// Image is one tile of the mosaic.
type Image struct {
	Name string

	// TransformString is the transform exactly as written in the file.
	TransformString string
	Transform       *Transform
}

// Load reads and parses the mosaic file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidMosaic, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "mosaic %s", path)
	}
	m.Path = path
	return m, nil
}

// Parse reads a mosaic from r. Any malformed line or unsupported
// transform fails the whole file.
func Parse(r io.Reader) (*File, error) {
	m := &File{PixelSpacing: 1}
	index := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	pendingImage := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if pendingImage {
			pendingImage = false
			if err := m.addImage(line, index); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing ':'", errors.ErrInvalidMosaic, lineNo)
		}
		value = strings.TrimSpace(value)

		var err error
		switch strings.TrimSpace(key) {
		case "number_of_images":
			m.NumberOfImages, err = strconv.Atoi(value)
		case "pixel_spacing":
			m.PixelSpacing, err = strconv.ParseFloat(value, 64)
		case "use_std_mask":
			var n int
			n, err = strconv.Atoi(value)
			m.UseStdMask = n != 0
		case "format_version_number":
			m.FormatVersion, err = strconv.Atoi(value)
		case "image":
			if value == "" {
				pendingImage = true
				continue
			}
			if err := m.addImage(value, index); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		default:
			// Unknown header keys are ignored.
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errors.ErrInvalidMosaic, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidMosaic, err)
	}

	if len(m.Images) == 0 {
		return nil, fmt.Errorf("%w: no images", errors.ErrInvalidMosaic)
	}
	return m, nil
}

func (m *File) addImage(line string, index map[string]int) error {
	name, transform, ok := strings.Cut(line, " ")
	transform = strings.TrimSpace(transform)
	if !ok || transform == "" {
		return fmt.Errorf("%w: image %q has no transform", errors.ErrInvalidMosaic, line)
	}

	t, err := ParseTransform(transform)
	if err != nil {
		return errors.Wrapf(err, "image %s", name)
	}

	img := Image{Name: name, TransformString: transform, Transform: t}
	if i, dup := index[name]; dup {
		m.Images[i] = img
		return nil
	}
	index[name] = len(m.Images)
	m.Images = append(m.Images, img)
	return nil
}

// FixedBoundingBox returns the extent of the whole mosaic: the union of
// every image's fixed bounding box.
func (m *File) FixedBoundingBox() geometry.Rect {
	var bounds geometry.Rect
	for i, img := range m.Images {
		r := img.Transform.FixedBoundingBox()
		if i == 0 {
			bounds = r
			continue
		}
		bounds = bounds.Union(r)
	}
	return bounds
}
