package geometry

import (
	"fmt"

	"github.com/xtxerr/volimport/internal/errors"
)

// BoundsKind tags the shape carried by a Bounds value.
type BoundsKind uint8

const (
	KindNone BoundsKind = iota
	KindBox
	KindRect
)

func (k BoundsKind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindRect:
		return "rect"
	default:
		return "none"
	}
}

// Bounds is the input form of an extent before it is stored. A box is
// stored as is; a rectangle needs a Z level to become a box.
type Bounds struct {
	kind BoundsKind
	box  Box
	rect Rect
}

// NoBounds returns an empty Bounds. Resolving it yields no box.
func NoBounds() Bounds {
	return Bounds{}
}

// BoxBounds wraps a stored box.
func BoxBounds(b Box) Bounds {
	return Bounds{kind: KindBox, box: b}
}

// RectBounds wraps a rectangle that is placed at a Z level on Resolve.
func RectBounds(r Rect) Bounds {
	return Bounds{kind: KindRect, rect: r}
}

// TupleBounds interprets a raw tuple: four values are a rectangle
// (minY, minX, maxY, maxX), six values a box
// (minZ, minY, minX, maxZ, maxY, maxX). Other lengths fail with
// ErrUnsupportedBounds.
func TupleBounds(v ...float64) (Bounds, error) {
	switch len(v) {
	case 4:
		return RectBounds(NewRect(v[0], v[1], v[2], v[3])), nil
	case 6:
		return BoxBounds(NewBox(v[0], v[1], v[2], v[3], v[4], v[5])), nil
	default:
		return Bounds{}, fmt.Errorf("tuple of %d values: %w", len(v), errors.ErrUnsupportedBounds)
	}
}

// Kind returns the tag.
func (b Bounds) Kind() BoundsKind {
	return b.kind
}

// IsZero reports whether b carries no shape.
func (b Bounds) IsZero() bool {
	return b.kind == KindNone
}

// Resolve converts b into a storable box. The boolean is false for empty
// bounds. A rectangle without a Z level fails with ErrMissingZLevel.
func (b Bounds) Resolve(z *float64) (Box, bool, error) {
	switch b.kind {
	case KindNone:
		return Box{}, false, nil
	case KindBox:
		return b.box, true, nil
	case KindRect:
		if z == nil {
			return Box{}, false, fmt.Errorf("rect %s: %w", b.rect, errors.ErrMissingZLevel)
		}
		return RectAtZ(b.rect, *z, nil), true, nil
	default:
		return Box{}, false, fmt.Errorf("kind %d: %w", b.kind, errors.ErrUnsupportedBounds)
	}
}
