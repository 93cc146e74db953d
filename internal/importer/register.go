package importer

import (
	"context"

	"github.com/xtxerr/volimport/internal/sync"
)

// register adds the reconcilers of one run to engine.
func (im *Importer) register(engine *sync.Engine, r *run) {
	st := im.store
	batch := im.cfg.BatchSize

	datasets := sync.NewGenericReconciler(sync.GenericReconcilerConfig[*sync.SyncableDataset]{
		Name: SectionDatasets, Order: 5, EntityType: "dataset",
		Store: sync.NewDatasetStore(st), BatchSize: batch,
	})
	engine.RegisterReconciler(datasets.Bind(r.dataset, r.datasets()))

	channels := sync.NewGenericReconciler(sync.GenericReconcilerConfig[*sync.SyncableChannel]{
		Name: SectionChannels, Order: 10, EntityType: "channel",
		Store: sync.NewChannelStore(st), BatchSize: batch,
	})
	engine.Register(SectionChannels, 10, func(ctx context.Context, policy sync.Policy) (*sync.SectionResult, error) {
		desired, warnings := r.channels()
		res, err := channels.Reconcile(ctx, policy, r.dataset, desired)
		return withWarnings(res, warnings), err
	})

	filters := sync.NewGenericReconciler(sync.GenericReconcilerConfig[*sync.SyncableFilter]{
		Name: SectionFilters, Order: 11, EntityType: "filter",
		Store: sync.NewFilterStore(st), BatchSize: batch,
	})
	engine.Register(SectionFilters, 11, func(ctx context.Context, policy sync.Policy) (*sync.SectionResult, error) {
		return filters.Reconcile(ctx, policy, r.dataset, r.filters())
	})

	// Tile pyramid pass.
	tileSpaces := sync.NewGenericReconciler(sync.GenericReconcilerConfig[*sync.SyncableCoordSpace]{
		Name: SectionTileSpaces, Order: 20, EntityType: "coord_space",
		Store: sync.NewCoordSpaceStore(st), BatchSize: batch,
	})
	engine.Register(SectionTileSpaces, 20, func(ctx context.Context, policy sync.Policy) (*sync.SectionResult, error) {
		plan, err := r.tilePass(ctx)
		if err != nil {
			return nil, err
		}
		res, err := tileSpaces.Reconcile(ctx, policy, r.dataset, plan.spaces)
		return withWarnings(res, plan.warnings), err
	})

	images := sync.NewGenericReconciler(sync.GenericReconcilerConfig[*sync.SyncableData2D]{
		Name: SectionData2D, Order: 21, EntityType: "data2d",
		Store: sync.NewData2DStore(st), BatchSize: batch,
	})
	engine.Register(SectionData2D, 21, func(ctx context.Context, policy sync.Policy) (*sync.SectionResult, error) {
		plan, err := r.tilePass(ctx)
		if err != nil {
			return nil, err
		}
		return images.Reconcile(ctx, policy, r.dataset, plan.images)
	})

	// Mosaic pass. Tile spaces seen here are merged into the rows the
	// tile pass wrote.
	mosaicSpaces := sync.NewGenericReconciler(sync.GenericReconcilerConfig[*sync.SyncableCoordSpace]{
		Name: SectionMosaicSpaces, Order: 30, EntityType: "coord_space",
		Store: sync.NewCoordSpaceStore(st), BatchSize: batch,
	})
	engine.Register(SectionMosaicSpaces, 30, func(ctx context.Context, policy sync.Policy) (*sync.SectionResult, error) {
		plan, err := r.mosaicPass(ctx)
		if err != nil {
			return nil, err
		}
		res, err := mosaicSpaces.Reconcile(ctx, policy, r.dataset, plan.spaces)
		return withWarnings(res, plan.warnings), err
	})

	mappings := sync.NewGenericReconciler(sync.GenericReconcilerConfig[*sync.SyncableMapping]{
		Name: SectionMappings, Order: 31, EntityType: "mapping",
		Store: sync.NewMappingStore(st), BatchSize: batch,
	})
	engine.Register(SectionMappings, 31, func(ctx context.Context, policy sync.Policy) (*sync.SectionResult, error) {
		plan, err := r.mosaicPass(ctx)
		if err != nil {
			return nil, err
		}
		return mappings.Reconcile(ctx, policy, r.dataset, plan.mappings)
	})
}

// withWarnings prepends planning warnings to a section result.
func withWarnings(res *sync.SectionResult, warnings []string) *sync.SectionResult {
	if res == nil || len(warnings) == 0 {
		return res
	}
	res.Warnings = append(append([]string(nil), warnings...), res.Warnings...)
	return res
}
