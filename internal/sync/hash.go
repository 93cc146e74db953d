package sync

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"

	"github.com/xtxerr/volimport/internal/geometry"
	"github.com/xtxerr/volimport/internal/store"
)

// HashBuilder folds entity fields into a 64-bit FNV-1a content hash. Field
// order is significant; strings are NUL terminated and optional values
// carry a presence byte, so adjacent fields cannot run into each other.
//
//	NewHashBuilder().String(cs.Name).OptionalBox(cs.Bounds).Scale(cs.XScale).Build()
type HashBuilder struct {
	h   hash.Hash64
	buf [8]byte
}

// NewHashBuilder returns an empty builder.
func NewHashBuilder() *HashBuilder {
	return &HashBuilder{h: fnv.New64a()}
}

func (b *HashBuilder) putByte(v byte) *HashBuilder {
	b.buf[0] = v
	b.h.Write(b.buf[:1])
	return b
}

func (b *HashBuilder) putWord(v uint64) *HashBuilder {
	binary.LittleEndian.PutUint64(b.buf[:], v)
	b.h.Write(b.buf[:])
	return b
}

func (b *HashBuilder) present(ok bool) bool {
	if ok {
		b.putByte(1)
	} else {
		b.putByte(0)
	}
	return ok
}

func (b *HashBuilder) String(s string) *HashBuilder {
	b.h.Write([]byte(s))
	return b.putByte(0)
}

func (b *HashBuilder) Int(i int) *HashBuilder { return b.putWord(uint64(i)) }

func (b *HashBuilder) Bool(v bool) *HashBuilder {
	b.present(v)
	return b
}

// Float64 adds f by its bit pattern, with -0 folded into +0.
func (b *HashBuilder) Float64(f float64) *HashBuilder {
	if f == 0 {
		f = 0
	}
	return b.putWord(math.Float64bits(f))
}

func (b *HashBuilder) OptionalFloat64(f *float64) *HashBuilder {
	if b.present(f != nil) {
		b.Float64(*f)
	}
	return b
}

// OptionalBox adds both corners of box. A 2D box differs from a 3D box
// with the same rectangle.
func (b *HashBuilder) OptionalBox(box *geometry.Box) *HashBuilder {
	if b.present(box != nil) {
		b.Float64(box.MinX).Float64(box.MinY).OptionalFloat64(box.MinZ)
		b.Float64(box.MaxX).Float64(box.MaxY).OptionalFloat64(box.MaxZ)
	}
	return b
}

// Scale adds the value and units of an axis scale.
func (b *HashBuilder) Scale(sc *store.Scale) *HashBuilder {
	if b.present(sc != nil) {
		b.Float64(sc.Value).String(sc.Units)
	}
	return b
}

// Build returns the hash of everything added so far.
func (b *HashBuilder) Build() uint64 {
	return b.h.Sum64()
}

// HashString hashes a single string field.
func HashString(s string) uint64 {
	return NewHashBuilder().String(s).Build()
}

// HashBytes hashes raw content, such as a volume XML file.
func HashBytes(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}
