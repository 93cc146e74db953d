package mosaic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/geometry"
)

// Transform types understood for bounds computation.
const (
	TypeGrid     = "GridTransform_double_2_2"
	TypeLegendre = "LegendrePolynomialTransform_double_2_2_1"
)

// Transform is a parsed ITK style transform string:
//
//	<type> vp <n> <n values> fp <m> <m values>
//
// Only the bounding boxes are derived from it; the transform itself is
// never evaluated.
type Transform struct {
	Type     string
	Variable []float64
	Fixed    []float64
}

// ParseTransform parses a transform string. Unknown transform types fail
// with ErrUnsupportedTransform.
func ParseTransform(s string) (*Transform, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty transform", errors.ErrInvalidMosaic)
	}

	t := &Transform{Type: fields[0]}
	switch t.Type {
	case TypeGrid, TypeLegendre:
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedTransform, t.Type)
	}

	rest := fields[1:]
	var err error
	if t.Variable, rest, err = parseParams(rest, "vp"); err != nil {
		return nil, err
	}
	if t.Fixed, rest, err = parseParams(rest, "fp"); err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing values after fixed parameters", errors.ErrInvalidMosaic)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// parseParams consumes "<tag> <n> <n values>" from fields.
func parseParams(fields []string, tag string) ([]float64, []string, error) {
	if len(fields) < 2 || fields[0] != tag {
		return nil, nil, fmt.Errorf("%w: expected %q section", errors.ErrInvalidMosaic, tag)
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return nil, nil, fmt.Errorf("%w: bad %s count %q", errors.ErrInvalidMosaic, tag, fields[1])
	}
	if len(fields) < 2+n {
		return nil, nil, fmt.Errorf("%w: %s declares %d values, found %d", errors.ErrInvalidMosaic, tag, n, len(fields)-2)
	}

	values := make([]float64, n)
	for i := range values {
		v, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s value %q", errors.ErrInvalidMosaic, tag, fields[2+i])
		}
		values[i] = v
	}
	return values, fields[2+n:], nil
}

func (t *Transform) validate() error {
	switch t.Type {
	case TypeGrid:
		// fp: 0 rows-1 cols-1 left bottom width height
		if len(t.Fixed) < 7 {
			return fmt.Errorf("%w: grid transform needs 7 fixed parameters, has %d", errors.ErrInvalidMosaic, len(t.Fixed))
		}
		rows, cols := t.Fixed[1], t.Fixed[2]
		if rows < 0 || cols < 0 || rows != float64(int(rows)) || cols != float64(int(cols)) {
			return fmt.Errorf("%w: grid dimensions %gx%g", errors.ErrInvalidMosaic, rows+1, cols+1)
		}
		points := (int(rows) + 1) * (int(cols) + 1)
		if len(t.Variable) != points*2 {
			return fmt.Errorf("%w: grid of %d points has %d values", errors.ErrInvalidMosaic, points, len(t.Variable))
		}
	case TypeLegendre:
		// vp: a0..a(n/2-1) b0..; fp: 0 1 uc vc
		if len(t.Variable) < 6 || len(t.Variable)%2 != 0 {
			return fmt.Errorf("%w: legendre transform has %d variable parameters", errors.ErrInvalidMosaic, len(t.Variable))
		}
		if len(t.Fixed) < 4 {
			return fmt.Errorf("%w: legendre transform needs 4 fixed parameters, has %d", errors.ErrInvalidMosaic, len(t.Fixed))
		}
	}

	if h, w := t.ImageSize(); h < 0 || w < 0 {
		return fmt.Errorf("%w: negative image size %gx%g", errors.ErrInvalidMosaic, w, h)
	}
	return nil
}

// ImageSize returns the (height, width) of the source image.
func (t *Transform) ImageSize() (height, width float64) {
	switch t.Type {
	case TypeGrid:
		return t.Fixed[6], t.Fixed[5]
	case TypeLegendre:
		return t.Fixed[3] * 2, t.Fixed[2] * 2
	}
	return 0, 0
}

// MappedBoundingBox returns the extent of the source image.
func (t *Transform) MappedBoundingBox() geometry.Rect {
	h, w := t.ImageSize()
	return geometry.NewRect(0, 0, h, w)
}

// FixedBoundingBox returns the extent of the image in the target space.
func (t *Transform) FixedBoundingBox() geometry.Rect {
	switch t.Type {
	case TypeGrid:
		points := make([]geometry.Point, 0, len(t.Variable)/2)
		for i := 0; i+1 < len(t.Variable); i += 2 {
			points = append(points, geometry.Point{X: t.Variable[i], Y: t.Variable[i+1]})
		}
		r, _ := geometry.BoundingRect(points)
		return r
	case TypeLegendre:
		half := len(t.Variable) / 2
		x, y := t.Variable[0], t.Variable[half]
		h, w := t.ImageSize()
		return geometry.RectFromPointAndArea(y, x, h, w)
	}
	return geometry.Rect{}
}
