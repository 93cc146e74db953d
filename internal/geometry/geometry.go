// Package geometry provides the rectangles and bounding boxes that describe
// the extent of coordinate spaces, tiles and transform control points.
//
// Coordinates follow the volume model convention: Y before X, and Z is the
// section number. A Box with nil Z extents is a 2D rectangle.
package geometry

import (
	"fmt"
	"math"

	"github.com/xtxerr/volimport/internal/errors"
)

// Point is a 2D point in (Y, X) order.
type Point struct {
	Y, X float64
}

// =============================================================================
// Rect
// =============================================================================

// Rect is an axis aligned 2D rectangle.
type Rect struct {
	MinY, MinX float64
	MaxY, MaxX float64
}

// NewRect returns a rectangle from (minY, minX, maxY, maxX).
func NewRect(minY, minX, maxY, maxX float64) Rect {
	return Rect{MinY: minY, MinX: minX, MaxY: maxY, MaxX: maxX}
}

// RectFromPointAndArea returns a rectangle with origin (y, x) and size (h, w).
func RectFromPointAndArea(y, x, h, w float64) Rect {
	return Rect{MinY: y, MinX: x, MaxY: y + h, MaxX: x + w}
}

// BoundingRect returns the smallest rectangle enclosing all points.
// It returns false when points is empty.
func BoundingRect(points []Point) (Rect, bool) {
	if len(points) == 0 {
		return Rect{}, false
	}

	r := Rect{
		MinY: math.Inf(1), MinX: math.Inf(1),
		MaxY: math.Inf(-1), MaxX: math.Inf(-1),
	}
	for _, p := range points {
		r.MinY = math.Min(r.MinY, p.Y)
		r.MinX = math.Min(r.MinX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
	}
	return r, true
}

// Width returns the X extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the Y extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Union returns the smallest rectangle enclosing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinY: math.Min(r.MinY, o.MinY),
		MinX: math.Min(r.MinX, o.MinX),
		MaxY: math.Max(r.MaxY, o.MaxY),
		MaxX: math.Max(r.MaxX, o.MaxX),
	}
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.MinY >= r.MinY && o.MinX >= r.MinX &&
		o.MaxY <= r.MaxY && o.MaxX <= r.MaxX
}

// Tuple returns (minY, minX, maxY, maxX).
func (r Rect) Tuple() []float64 {
	return []float64{r.MinY, r.MinX, r.MaxY, r.MaxX}
}

func (r Rect) String() string {
	return fmt.Sprintf("(y:%g, x:%g) (y:%g, x:%g)", r.MinY, r.MinX, r.MaxY, r.MaxX)
}

// =============================================================================
// Box
// =============================================================================

// Box is a bounding box as stored in the metastore. MinZ and MaxZ are nil
// for a 2D rectangle; both are set for a 3D box.
type Box struct {
	MinX, MinY float64
	MinZ       *float64
	MaxX, MaxY float64
	MaxZ       *float64
}

// Z returns a pointer to v, for Box Z extents.
func Z(v float64) *float64 {
	return &v
}

// NewBox returns a 3D box from (minZ, minY, minX, maxZ, maxY, maxX).
func NewBox(minZ, minY, minX, maxZ, maxY, maxX float64) Box {
	return Box{
		MinX: minX, MinY: minY, MinZ: Z(minZ),
		MaxX: maxX, MaxY: maxY, MaxZ: Z(maxZ),
	}
}

// NewBox2D returns a 2D box covering r.
func NewBox2D(r Rect) Box {
	return Box{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY}
}

// RectAtZ places r at Z level minZ. maxZ defaults to minZ when nil.
func RectAtZ(r Rect, minZ float64, maxZ *float64) Box {
	top := minZ
	if maxZ != nil {
		top = *maxZ
	}
	return NewBox(minZ, r.MinY, r.MinX, top, r.MaxY, r.MaxX)
}

// NDims returns 2 when either Z extent is missing, 3 otherwise.
func (b Box) NDims() int {
	if b.MinZ == nil || b.MaxZ == nil {
		return 2
	}
	return 3
}

// Rect drops the Z extents.
func (b Box) Rect() Rect {
	return Rect{MinY: b.MinY, MinX: b.MinX, MaxY: b.MaxY, MaxX: b.MaxX}
}

// Tuple returns (minY, minX, maxY, maxX) for 2D boxes and
// (minZ, minY, minX, maxZ, maxY, maxX) for 3D boxes.
func (b Box) Tuple() []float64 {
	if b.NDims() == 2 {
		return b.Rect().Tuple()
	}
	return []float64{*b.MinZ, b.MinY, b.MinX, *b.MaxZ, b.MaxY, b.MaxX}
}

// Equal reports whether both boxes have the same dimensionality and extents.
func (b Box) Equal(o Box) bool {
	if b.NDims() != o.NDims() {
		return false
	}
	if b.Rect() != o.Rect() {
		return false
	}
	if b.NDims() == 3 {
		return *b.MinZ == *o.MinZ && *b.MaxZ == *o.MaxZ
	}
	return true
}

// Union returns the smallest box enclosing b and o. Mixing a 2D and a 3D
// box fails with ErrDimensionMismatch.
func (b Box) Union(o Box) (Box, error) {
	if b.NDims() != o.NDims() {
		return Box{}, fmt.Errorf("union %dD with %dD: %w", b.NDims(), o.NDims(), errors.ErrDimensionMismatch)
	}

	u := NewBox2D(b.Rect().Union(o.Rect()))
	if b.NDims() == 3 {
		u.MinZ = Z(math.Min(*b.MinZ, *o.MinZ))
		u.MaxZ = Z(math.Max(*b.MaxZ, *o.MaxZ))
	}
	return u, nil
}

// Extend grows b to cover o and reports whether b changed.
func (b Box) Extend(o Box) (Box, bool, error) {
	u, err := b.Union(o)
	if err != nil {
		return b, false, err
	}
	return u, !u.Equal(b), nil
}

// Contains reports whether o lies entirely inside b.
func (b Box) Contains(o Box) bool {
	if b.NDims() != o.NDims() {
		return false
	}
	if !b.Rect().Contains(o.Rect()) {
		return false
	}
	if b.NDims() == 3 {
		return *o.MinZ >= *b.MinZ && *o.MaxZ <= *b.MaxZ
	}
	return true
}

func (b Box) String() string {
	if b.NDims() == 2 {
		return b.Rect().String()
	}
	return fmt.Sprintf("(z:%g, y:%g, x:%g) (z:%g, y:%g, x:%g)",
		*b.MinZ, b.MinY, b.MinX, *b.MaxZ, b.MaxY, b.MaxX)
}
