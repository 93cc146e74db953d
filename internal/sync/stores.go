package sync

import (
	"context"

	"github.com/xtxerr/volimport/internal/store"
)

// =============================================================================
// Store Adapters
// =============================================================================
//
// Each adapter implements SyncStore[T] over *store.Store. Every Bulk* call
// runs in its own store transaction.

// DatasetStore implements SyncStore for datasets.
type DatasetStore struct {
	store *store.Store
}

// NewDatasetStore creates a dataset sync store.
func NewDatasetStore(s *store.Store) *DatasetStore {
	return &DatasetStore{store: s}
}

// ListAll implements SyncStore. Only the dataset itself is returned.
func (s *DatasetStore) ListAll(ctx context.Context, dataset string) ([]*SyncableDataset, error) {
	rows, err := s.store.ListDatasets(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return wrapAll(rows, WrapDataset), nil
}

// BulkCreate implements SyncStore.
func (s *DatasetStore) BulkCreate(ctx context.Context, entities []*SyncableDataset) error {
	return s.store.BulkCreateDatasets(ctx, unwrapAll(entities, func(e *SyncableDataset) *store.Dataset { return e.Dataset }))
}

// BulkUpdate implements SyncStore.
func (s *DatasetStore) BulkUpdate(ctx context.Context, entities []*SyncableDataset) error {
	return s.store.BulkUpdateDatasets(ctx, unwrapAll(entities, func(e *SyncableDataset) *store.Dataset { return e.Dataset }))
}

// ChannelStore implements SyncStore for channels.
type ChannelStore struct {
	store *store.Store
}

// NewChannelStore creates a channel sync store.
func NewChannelStore(s *store.Store) *ChannelStore {
	return &ChannelStore{store: s}
}

// ListAll implements SyncStore.
func (s *ChannelStore) ListAll(ctx context.Context, dataset string) ([]*SyncableChannel, error) {
	rows, err := s.store.ListChannels(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return wrapAll(rows, WrapChannel), nil
}

// BulkCreate implements SyncStore.
func (s *ChannelStore) BulkCreate(ctx context.Context, entities []*SyncableChannel) error {
	return s.store.BulkCreateChannels(ctx, unwrapAll(entities, func(e *SyncableChannel) *store.Channel { return e.Channel }))
}

// BulkUpdate implements SyncStore. Channels have no mutable columns.
func (s *ChannelStore) BulkUpdate(ctx context.Context, entities []*SyncableChannel) error {
	return nil
}

// FilterStore implements SyncStore for filters.
type FilterStore struct {
	store *store.Store
}

// NewFilterStore creates a filter sync store.
func NewFilterStore(s *store.Store) *FilterStore {
	return &FilterStore{store: s}
}

// ListAll implements SyncStore.
func (s *FilterStore) ListAll(ctx context.Context, dataset string) ([]*SyncableFilter, error) {
	rows, err := s.store.ListFilters(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return wrapAll(rows, WrapFilter), nil
}

// BulkCreate implements SyncStore.
func (s *FilterStore) BulkCreate(ctx context.Context, entities []*SyncableFilter) error {
	return s.store.BulkCreateFilters(ctx, unwrapAll(entities, func(e *SyncableFilter) *store.Filter { return e.Filter }))
}

// BulkUpdate implements SyncStore. Filters have no mutable columns.
func (s *FilterStore) BulkUpdate(ctx context.Context, entities []*SyncableFilter) error {
	return nil
}

// CoordSpaceStore implements SyncStore for coordinate spaces.
type CoordSpaceStore struct {
	store *store.Store
}

// NewCoordSpaceStore creates a coordinate space sync store.
func NewCoordSpaceStore(s *store.Store) *CoordSpaceStore {
	return &CoordSpaceStore{store: s}
}

// ListAll implements SyncStore.
func (s *CoordSpaceStore) ListAll(ctx context.Context, dataset string) ([]*SyncableCoordSpace, error) {
	rows, err := s.store.ListCoordSpaces(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return wrapAll(rows, WrapCoordSpace), nil
}

// BulkCreate implements SyncStore.
func (s *CoordSpaceStore) BulkCreate(ctx context.Context, entities []*SyncableCoordSpace) error {
	return s.store.BulkCreateCoordSpaces(ctx, unwrapCoordSpaces(entities))
}

// BulkUpdate implements SyncStore.
func (s *CoordSpaceStore) BulkUpdate(ctx context.Context, entities []*SyncableCoordSpace) error {
	return s.store.BulkUpdateCoordSpaces(ctx, unwrapCoordSpaces(entities))
}

func unwrapCoordSpaces(entities []*SyncableCoordSpace) []*store.CoordSpace {
	return unwrapAll(entities, func(e *SyncableCoordSpace) *store.CoordSpace { return e.CoordSpace })
}

// Data2DStore implements SyncStore for tile images.
type Data2DStore struct {
	store *store.Store
}

// NewData2DStore creates a tile image sync store.
func NewData2DStore(s *store.Store) *Data2DStore {
	return &Data2DStore{store: s}
}

// ListAll implements SyncStore.
func (s *Data2DStore) ListAll(ctx context.Context, dataset string) ([]*SyncableData2D, error) {
	rows, err := s.store.ListData2D(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return wrapAll(rows, WrapData2D), nil
}

// BulkCreate implements SyncStore.
func (s *Data2DStore) BulkCreate(ctx context.Context, entities []*SyncableData2D) error {
	return s.store.BulkCreateData2D(ctx, unwrapAll(entities, func(e *SyncableData2D) *store.Data2D { return e.Data2D }))
}

// BulkUpdate implements SyncStore.
func (s *Data2DStore) BulkUpdate(ctx context.Context, entities []*SyncableData2D) error {
	return s.store.BulkUpdateData2D(ctx, unwrapAll(entities, func(e *SyncableData2D) *store.Data2D { return e.Data2D }))
}

// MappingStore implements SyncStore for mappings.
type MappingStore struct {
	store *store.Store
}

// NewMappingStore creates a mapping sync store.
func NewMappingStore(s *store.Store) *MappingStore {
	return &MappingStore{store: s}
}

// ListAll implements SyncStore.
func (s *MappingStore) ListAll(ctx context.Context, dataset string) ([]*SyncableMapping, error) {
	rows, err := s.store.ListMappings(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return wrapAll(rows, WrapMapping), nil
}

// BulkCreate implements SyncStore.
func (s *MappingStore) BulkCreate(ctx context.Context, entities []*SyncableMapping) error {
	return s.store.BulkCreateMappings(ctx, unwrapAll(entities, func(e *SyncableMapping) *store.Mapping2D { return e.Mapping2D }))
}

// BulkUpdate implements SyncStore.
func (s *MappingStore) BulkUpdate(ctx context.Context, entities []*SyncableMapping) error {
	return s.store.BulkUpdateMappings(ctx, unwrapAll(entities, func(e *SyncableMapping) *store.Mapping2D { return e.Mapping2D }))
}
