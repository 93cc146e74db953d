package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xtxerr/volimport/internal/logging"
)

// =============================================================================
// Sync Engine
// =============================================================================

// Engine runs the reconcilers of one import in ascending order and routes
// each its policy by name.
//
// Each store batch commits on its own. A failing reconciler stops the
// sync; batches already committed stay and a re-run picks up from there.
type Engine struct {
	policies *PolicyRouter
	steps    []step
}

type step struct {
	name      string
	order     int
	reconcile ReconcileFunc
}

// ReconcileFunc reconciles one section under policy.
type ReconcileFunc func(ctx context.Context, policy Policy) (*SectionResult, error)

// EngineConfig holds engine configuration.
type EngineConfig struct {
	// DefaultPolicy applies to reconcilers without a matching entry in
	// Policies. Empty means merge.
	DefaultPolicy Policy

	// Policies by reconciler path. "coord_spaces" also covers
	// "coord_spaces.tiles" and "coord_spaces.mosaics".
	Policies map[string]Policy
}

// NewEngine creates an engine. cfg may be nil.
func NewEngine(cfg *EngineConfig) *Engine {
	if cfg == nil {
		cfg = &EngineConfig{}
	}

	return &Engine{
		policies: NewPolicyRouter(cfg.DefaultPolicy, cfg.Policies),
	}
}

// Register adds a reconciler. Registering a name twice replaces the
// earlier entry.
func (e *Engine) Register(name string, order int, fn ReconcileFunc) {
	s := step{name: name, order: order, reconcile: fn}
	for i := range e.steps {
		if e.steps[i].name == name {
			e.steps[i] = s
			e.reorder()
			return
		}
	}
	e.steps = append(e.steps, s)
	e.reorder()
}

// RegisterReconciler adds a Reconciler.
func (e *Engine) RegisterReconciler(r Reconciler) {
	e.Register(r.Name(), r.Order(), r.Reconcile)
}

func (e *Engine) reorder() {
	sort.SliceStable(e.steps, func(i, j int) bool {
		return e.steps[i].order < e.steps[j].order
	})
}

// =============================================================================
// Sync Execution
// =============================================================================

// Sync runs every reconciler in order. The result is never nil; after a
// failure it holds the sections that ran, including the failing one when
// it returned a partial result.
func (e *Engine) Sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{
		StartedAt: time.Now(),
		DryRun:    IsDryRun(ctx),
		Sections:  make(map[string]*SectionResult, len(e.steps)),
	}
	log := logging.WithContext(ctx).With("component", "sync")

	var err error
	for _, s := range e.steps {
		if err = ctx.Err(); err != nil {
			break
		}

		policy := e.policies.Get(s.name)
		log.Debug("reconciling", "section", s.name, "order", s.order, "policy", policy)

		var sec *SectionResult
		sec, err = s.reconcile(ctx, policy)
		if sec != nil {
			result.Sections[s.name] = sec
		}
		if err != nil {
			err = fmt.Errorf("reconciler %s: %w", s.name, err)
			break
		}

		log.Info("section reconciled",
			"section", s.name,
			"policy", policy,
			"created", sec.Created,
			"updated", sec.Updated,
			"skipped", sec.Skipped,
			"duplicates", sec.Duplicates,
			"warnings", len(sec.Warnings),
			"duration", sec.Duration,
		)
	}

	result.Error = err
	result.Duration = time.Since(result.StartedAt)
	result.Aggregate()

	log.Info("sync completed",
		"dry_run", result.DryRun,
		"sections", len(result.Sections),
		"created", result.TotalCreated,
		"updated", result.TotalUpdated,
		"skipped", result.TotalSkipped,
		"duration", result.Duration,
		"error", err,
	)
	return result, err
}

// =============================================================================
// Inspection
// =============================================================================

// ReconcilerInfo describes a registered reconciler.
type ReconcilerInfo struct {
	Name   string
	Order  int
	Policy Policy
}

// ListReconcilers returns the registered reconcilers in execution order
// with the policy each will run under.
func (e *Engine) ListReconcilers() []ReconcilerInfo {
	infos := make([]ReconcilerInfo, len(e.steps))
	for i, s := range e.steps {
		infos[i] = ReconcilerInfo{
			Name:   s.name,
			Order:  s.order,
			Policy: e.policies.Get(s.name),
		}
	}
	return infos
}

// GetDefaultPolicy returns the default policy.
func (e *Engine) GetDefaultPolicy() Policy {
	return e.policies.GetDefault()
}
