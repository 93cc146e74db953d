package sync

import (
	"github.com/xtxerr/volimport/internal/geometry"
	"github.com/xtxerr/volimport/internal/store"
)

// =============================================================================
// Dataset Adapter
// =============================================================================

// SyncableDataset wraps store.Dataset to implement Syncable.
type SyncableDataset struct {
	*store.Dataset
}

// WrapDataset wraps a dataset for syncing.
func WrapDataset(d *store.Dataset) *SyncableDataset {
	return &SyncableDataset{Dataset: d}
}

// SyncKey implements Syncable.
func (s *SyncableDataset) SyncKey() string {
	return s.Name
}

// SyncHash implements Syncable.
func (s *SyncableDataset) SyncHash() uint64 {
	return NewHashBuilder().
		String(s.Name).
		String(s.Path).
		Build()
}

// =============================================================================
// Channel and Filter Adapters
// =============================================================================

// SyncableChannel wraps store.Channel to implement Syncable.
type SyncableChannel struct {
	*store.Channel
}

// WrapChannel wraps a channel for syncing.
func WrapChannel(c *store.Channel) *SyncableChannel {
	return &SyncableChannel{Channel: c}
}

// SyncKey implements Syncable.
func (s *SyncableChannel) SyncKey() string {
	return s.Dataset + "/" + s.Name
}

// SyncHash implements Syncable. Channels carry no content besides their key.
func (s *SyncableChannel) SyncHash() uint64 {
	return HashString(s.SyncKey())
}

// SyncableFilter wraps store.Filter to implement Syncable.
type SyncableFilter struct {
	*store.Filter
}

// WrapFilter wraps a filter for syncing.
func WrapFilter(f *store.Filter) *SyncableFilter {
	return &SyncableFilter{Filter: f}
}

// SyncKey implements Syncable.
func (s *SyncableFilter) SyncKey() string {
	return s.Dataset + "/" + s.Channel + "/" + s.Name
}

// SyncHash implements Syncable.
func (s *SyncableFilter) SyncHash() uint64 {
	return HashString(s.SyncKey())
}

// =============================================================================
// Coordinate Space Adapter
// =============================================================================

// SyncableCoordSpace wraps store.CoordSpace to implement Syncable.
type SyncableCoordSpace struct {
	*store.CoordSpace
}

// WrapCoordSpace wraps a coordinate space for syncing.
func WrapCoordSpace(cs *store.CoordSpace) *SyncableCoordSpace {
	return &SyncableCoordSpace{CoordSpace: cs}
}

// SyncKey implements Syncable.
func (s *SyncableCoordSpace) SyncKey() string {
	return s.Dataset + "/" + s.Name
}

// SyncHash implements Syncable.
func (s *SyncableCoordSpace) SyncHash() uint64 {
	return NewHashBuilder().
		String(s.Dataset).
		String(s.Name).
		OptionalBox(s.Bounds).
		Scale(s.XScale).
		Scale(s.YScale).
		Scale(s.ZScale).
		Build()
}

// MergeExisting implements Mergeable.
//
// Bounds only grow: the result is the union of both boxes. A scale missing
// here is taken from existing. The bounding box row id is carried over.
func (s *SyncableCoordSpace) MergeExisting(existing *SyncableCoordSpace) error {
	bounds, err := unionBounds(s.Bounds, existing.Bounds)
	if err != nil {
		return err
	}

	s.Bounds = bounds
	if s.BoundsID == nil {
		s.BoundsID = existing.BoundsID
	}
	if s.XScale == nil {
		s.XScale = existing.XScale
	}
	if s.YScale == nil {
		s.YScale = existing.YScale
	}
	if s.ZScale == nil {
		s.ZScale = existing.ZScale
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = existing.CreatedAt
	}
	return nil
}

func unionBounds(a, b *geometry.Box) (*geometry.Box, error) {
	switch {
	case b == nil:
		return a, nil
	case a == nil:
		c := *b
		return &c, nil
	}
	u, err := a.Union(*b)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// =============================================================================
// Data2D Adapter
// =============================================================================

// SyncableData2D wraps store.Data2D to implement Syncable.
type SyncableData2D struct {
	*store.Data2D
}

// WrapData2D wraps a tile image for syncing.
func WrapData2D(d *store.Data2D) *SyncableData2D {
	return &SyncableData2D{Data2D: d}
}

// SyncKey implements Syncable.
func (s *SyncableData2D) SyncKey() string {
	return s.Dataset + "/" + s.RelativePath
}

// SyncHash implements Syncable.
func (s *SyncableData2D) SyncHash() uint64 {
	return NewHashBuilder().
		String(s.Dataset).
		String(s.RelativePath).
		String(s.Name).
		String(s.Image).
		String(s.Channel).
		String(s.Filter).
		Int(s.Level).
		String(s.CoordSpace).
		Int(s.Width).
		Int(s.Height).
		Build()
}

// =============================================================================
// Mapping Adapter
// =============================================================================

// SyncableMapping wraps store.Mapping2D to implement Syncable.
type SyncableMapping struct {
	*store.Mapping2D
}

// WrapMapping wraps a mapping for syncing.
func WrapMapping(m *store.Mapping2D) *SyncableMapping {
	return &SyncableMapping{Mapping2D: m}
}

// SyncKey implements Syncable.
func (s *SyncableMapping) SyncKey() string {
	return s.Dataset + "/" + s.SrcSpace + "->" + s.DestSpace
}

// SyncHash implements Syncable.
func (s *SyncableMapping) SyncHash() uint64 {
	return NewHashBuilder().
		String(s.SyncKey()).
		OptionalBox(s.SrcBounds).
		OptionalBox(s.DestBounds).
		String(s.Transform).
		Build()
}

// MergeExisting implements Mergeable. Boxes and transform are replaced;
// only the bounding box row ids are carried over.
func (s *SyncableMapping) MergeExisting(existing *SyncableMapping) error {
	if s.SrcBoundsID == nil {
		s.SrcBoundsID = existing.SrcBoundsID
	}
	if s.DestBoundsID == nil {
		s.DestBoundsID = existing.DestBoundsID
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = existing.CreatedAt
	}
	return nil
}

// =============================================================================
// Wrapping Helpers
// =============================================================================

func wrapAll[S any, T any](in []S, wrap func(S) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = wrap(v)
	}
	return out
}

func unwrapAll[T any, S any](in []T, unwrap func(T) S) []S {
	out := make([]S, len(in))
	for i, v := range in {
		out[i] = unwrap(v)
	}
	return out
}
