// Package sync reconciles the entities described by a volume with the rows
// already in the metastore.
//
// Each reconciler owns one entity type. It loads the stored rows of the
// dataset, folds them into the desired entities, diffs by key and content
// hash, and writes creates and updates in batches. A policy decides what
// happens to rows that already exist:
//
//	merge        create missing rows, rewrite changed ones (default)
//	create-only  create missing rows, never touch existing ones
//	ignore       write nothing
//
// Rows are never deleted, so importing a subset of sections leaves the rows
// of earlier imports alone. Reconcilers run in dependency order: datasets,
// channels, filters, coordinate spaces, images, mappings.
package sync

import (
	"context"
	"slices"
	"time"
)

// Policy decides how a reconciler treats rows that already exist.
type Policy string

const (
	PolicyMerge      Policy = "merge"
	PolicyCreateOnly Policy = "create-only"
	PolicyIgnore     Policy = "ignore"
)

// ValidPolicies lists every known policy.
var ValidPolicies = []Policy{PolicyMerge, PolicyCreateOnly, PolicyIgnore}

// IsValid reports whether p is one of ValidPolicies.
func (p Policy) IsValid() bool {
	return slices.Contains(ValidPolicies, p)
}

// Action is what a plan does with one entity.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Syncable is an entity the engine can reconcile.
//
// SyncKey is the natural key within the metastore, e.g. "RC1" for a
// dataset, "RC1/0691.TEM.Tile3" for a coordinate space or
// "RC1/0691.TEM.Tile3->0691.TEM.Grid" for a mapping. SyncHash covers the
// mutable content only; row ids and timestamps are left out.
type Syncable interface {
	SyncKey() string
	SyncHash() uint64
}

// Mergeable entities fold other state of the same key into themselves
// before the diff: the stored row, or an earlier desired entity when a key
// occurs twice in one pass. MergeExisting must carry over row ids so that
// updates happen in place.
type Mergeable[T any] interface {
	MergeExisting(existing T) error
}

// DiffEntry is the planned action for one desired entity.
type DiffEntry struct {
	Action     Action
	Key        string
	EntityType string
	Reason     string

	DesiredHash uint64
	StoredHash  uint64 // zero when no row is stored
}

// SectionResult reports one reconciler.
type SectionResult struct {
	Section string
	Policy  Policy
	DryRun  bool

	// Under a dry run Created and Updated count what would be written.
	Created int
	Updated int
	Skipped int

	// Duplicates counts desired entities folded into an earlier one with
	// the same key. Total includes them.
	Duplicates int
	Total      int

	Duration time.Duration
	Warnings []string
	Entries  []DiffEntry
}

// SyncResult reports one engine run.
type SyncResult struct {
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool

	// Sections by reconciler name.
	Sections map[string]*SectionResult

	TotalCreated int
	TotalUpdated int
	TotalSkipped int

	// Error is the error that stopped the run, if any.
	Error error
}

// Aggregate recomputes the totals from Sections.
func (r *SyncResult) Aggregate() {
	r.TotalCreated, r.TotalUpdated, r.TotalSkipped = 0, 0, 0
	for _, s := range r.Sections {
		r.TotalCreated += s.Created
		r.TotalUpdated += s.Updated
		r.TotalSkipped += s.Skipped
	}
}

// HasChanges reports whether anything was, or under a dry run would be,
// written.
func (r *SyncResult) HasChanges() bool {
	return r.TotalCreated > 0 || r.TotalUpdated > 0
}

// SyncStore is the persistence a reconciler of T needs.
type SyncStore[T Syncable] interface {
	// ListAll returns the stored entities of dataset.
	ListAll(ctx context.Context, dataset string) ([]T, error)

	// BulkCreate and BulkUpdate each write one batch in one transaction.
	BulkCreate(ctx context.Context, entities []T) error
	BulkUpdate(ctx context.Context, entities []T) error
}

// Reconciler is one step of an engine run. Name is a dotted path such as
// "coord_spaces.tiles" used for policy lookup; lower Order runs first.
type Reconciler interface {
	Name() string
	Order() int
	Reconcile(ctx context.Context, policy Policy) (*SectionResult, error)
}

type dryRunKey struct{}

// WithDryRun marks ctx so reconcilers compute plans without writing.
func WithDryRun(ctx context.Context) context.Context {
	return context.WithValue(ctx, dryRunKey{}, true)
}

// IsDryRun reports whether ctx was marked with WithDryRun.
func IsDryRun(ctx context.Context) bool {
	v, _ := ctx.Value(dryRunKey{}).(bool)
	return v
}
