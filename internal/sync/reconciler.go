package sync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/logging"
)

// GenericReconciler reconciles entities of type T through a SyncStore.
// One value serves every import; Bind attaches the desired entities of a
// single run.
type GenericReconciler[T Syncable] struct {
	name       string
	order      int
	entityType string
	store      SyncStore[T]
	batchSize  int
	log        *slog.Logger
}

// GenericReconcilerConfig configures NewGenericReconciler.
type GenericReconcilerConfig[T Syncable] struct {
	Name  string // dotted policy path, e.g. "coord_spaces.tiles"
	Order int

	// EntityType names T in warnings and log entries, e.g. "coord_space".
	EntityType string

	Store SyncStore[T]

	// BatchSize is the number of rows per transaction. Zero means
	// config.DefaultBatchSize.
	BatchSize int
}

// NewGenericReconciler returns a reconciler for cfg.
func NewGenericReconciler[T Syncable](cfg GenericReconcilerConfig[T]) *GenericReconciler[T] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	return &GenericReconciler[T]{
		name:       cfg.Name,
		order:      cfg.Order,
		entityType: cfg.EntityType,
		store:      cfg.Store,
		batchSize:  cfg.BatchSize,
		log:        logging.Component("sync"),
	}
}

func (r *GenericReconciler[T]) Name() string { return r.name }
func (r *GenericReconciler[T]) Order() int   { return r.order }

// Bind returns a Reconciler that reconciles desired within dataset.
func (r *GenericReconciler[T]) Bind(dataset string, desired []T) Reconciler {
	return &boundReconciler[T]{GenericReconciler: r, dataset: dataset, desired: desired}
}

type boundReconciler[T Syncable] struct {
	*GenericReconciler[T]
	dataset string
	desired []T
}

func (b *boundReconciler[T]) Reconcile(ctx context.Context, policy Policy) (*SectionResult, error) {
	return b.GenericReconciler.Reconcile(ctx, policy, b.dataset, b.desired)
}

// Reconcile performs reconciliation of desired entities against the rows
// stored for dataset.
//
// Desired entities sharing a key are folded into the last one. When T
// implements Mergeable the earlier entity is merged into the later one, and
// the stored row is merged into the desired entity before diffing. With a
// dry-run context nothing is written; Created and Updated then report what
// would have happened.
func (r *GenericReconciler[T]) Reconcile(
	ctx context.Context,
	policy Policy,
	dataset string,
	desired []T,
) (*SectionResult, error) {
	start := time.Now()
	result := &SectionResult{
		Section: r.name,
		Policy:  policy,
		DryRun:  IsDryRun(ctx),
	}

	if policy == PolicyIgnore {
		result.Skipped = len(desired)
		result.Total = len(desired)
		result.Duration = time.Since(start)
		r.log.Debug("reconciler skipped", "name", r.name, "policy", policy)
		return result, nil
	}

	desired = r.dedupe(desired, result)

	dbEntities, err := r.store.ListAll(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("list stored %s rows: %w", r.entityType, err)
	}

	desired = r.mergeStored(desired, dbEntities, result)

	plan := Diff(r.entityType, policy, desired, dbEntities)

	result.Total = plan.Total() + result.Duplicates
	result.Skipped += plan.Skipped
	result.Entries = plan.Entries

	r.log.Debug("diff calculated",
		"name", r.name,
		"dataset", dataset,
		"desired_count", len(desired),
		"stored", len(dbEntities),
		"creates", plan.Creates,
		"updates", plan.Updates,
		"skipped", plan.Skipped,
		"duplicates", result.Duplicates,
	)

	switch {
	case result.DryRun:
		result.Created = plan.Creates
		result.Updated = plan.Updates
	case plan.HasChanges():
		if err := r.execute(ctx, plan.Entries, desired, result); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// dedupe folds desired entities with equal keys into the last occurrence,
// keeping the position of the first.
func (r *GenericReconciler[T]) dedupe(desired []T, result *SectionResult) []T {
	index := make(map[string]int, len(desired))
	out := make([]T, 0, len(desired))

	for _, entity := range desired {
		key := entity.SyncKey()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, entity)
			continue
		}

		result.Duplicates++
		if m, ok := any(entity).(Mergeable[T]); ok {
			if err := m.MergeExisting(out[i]); err != nil {
				r.warn(result, key, "merge duplicate", err)
			}
		}
		out[i] = entity
	}

	return out
}

// mergeStored merges each stored row into its desired counterpart. Entities
// whose merge fails are dropped and left unchanged in the database.
func (r *GenericReconciler[T]) mergeStored(desired, db []T, result *SectionResult) []T {
	if len(db) == 0 || len(desired) == 0 {
		return desired
	}

	dbByKey := make(map[string]T, len(db))
	for _, entity := range db {
		dbByKey[entity.SyncKey()] = entity
	}

	out := desired[:0]
	for _, entity := range desired {
		key := entity.SyncKey()
		if stored, ok := dbByKey[key]; ok {
			if m, ok := any(entity).(Mergeable[T]); ok {
				if err := m.MergeExisting(stored); err != nil {
					r.warn(result, key, "merge stored", err)
					result.Skipped++
					continue
				}
			}
		}
		out = append(out, entity)
	}
	return out
}

func (r *GenericReconciler[T]) warn(result *SectionResult, key, op string, err error) {
	msg := fmt.Sprintf("%s %s: %s: %v", r.entityType, key, op, err)
	result.Warnings = append(result.Warnings, msg)
	r.log.Warn("merge failed", "name", r.name, "key", key, "op", op, "error", err)
}

// execute writes the creates, then the updates, of a plan.
func (r *GenericReconciler[T]) execute(
	ctx context.Context,
	entries []DiffEntry,
	desired []T,
	result *SectionResult,
) error {
	byKey := make(map[string]T, len(desired))
	for _, e := range desired {
		byKey[e.SyncKey()] = e
	}

	var creates, updates []T
	for _, entry := range entries {
		entity, ok := byKey[entry.Key]
		switch {
		case !ok:
		case entry.Action == ActionCreate:
			creates = append(creates, entity)
		case entry.Action == ActionUpdate:
			updates = append(updates, entity)
		}
	}

	var err error
	result.Created, err = r.inBatches(ctx, "create", creates, r.store.BulkCreate)
	if err != nil {
		return err
	}
	result.Updated, err = r.inBatches(ctx, "update", updates, r.store.BulkUpdate)
	return err
}

// inBatches calls write on consecutive batches of entities and returns how
// many entities the committed batches held.
func (r *GenericReconciler[T]) inBatches(
	ctx context.Context,
	op string,
	entities []T,
	write func(context.Context, []T) error,
) (int, error) {
	written := 0
	for batch := range slices.Chunk(entities, r.batchSize) {
		if err := write(ctx, batch); err != nil {
			return written, fmt.Errorf("%s %s batch at %d: %w", op, r.entityType, written, err)
		}
		written += len(batch)
		r.log.Debug("batch written", "name", r.name, "op", op, "rows", len(batch), "total", written)
	}
	return written, nil
}
