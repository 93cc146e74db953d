// Package importer walks a volume description and reconciles it into the
// metastore.
//
// An import runs seven reconcilers in order:
//
//	datasets             (5)
//	channels, filters    (10, 11)
//	coord_spaces.tiles   (20)  tile pyramid pass
//	data2d               (21)
//	coord_spaces.mosaics (30)  mosaic pass
//	mappings             (31)
//
// Each reconciler follows the policy routed to its name, so
// "coord_spaces: create-only" applies to both coordinate space passes.
// Re-running an import on unchanged input writes nothing.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/logging"
	"github.com/xtxerr/volimport/internal/stats"
	"github.com/xtxerr/volimport/internal/store"
	"github.com/xtxerr/volimport/internal/sync"
	"github.com/xtxerr/volimport/internal/validation"
	"github.com/xtxerr/volimport/internal/volume"
)

// Reconciler names, also used as policy section paths.
const (
	SectionDatasets     = "datasets"
	SectionChannels     = "channels"
	SectionFilters      = "filters"
	SectionTileSpaces   = "coord_spaces.tiles"
	SectionData2D       = "data2d"
	SectionMosaicSpaces = "coord_spaces.mosaics"
	SectionMappings     = "mappings"
)

// Config holds importer settings that do not change between runs.
type Config struct {
	BatchSize      int
	DefaultPolicy  sync.Policy
	Policies       map[string]sync.Policy
	SketchAccuracy float64
}

// DefaultConfig returns the default importer configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:      config.DefaultBatchSize,
		DefaultPolicy:  sync.PolicyMerge,
		SketchAccuracy: config.DefaultSketchAccuracy,
	}
}

// Options select what one import reads and how it writes.
type Options struct {
	// VolumePath is a volume XML file or a directory containing one.
	VolumePath string

	// Dataset overrides the dataset name. Defaults to the volume name.
	Dataset string

	// Sections restricts every pass to these section numbers. Empty
	// imports all sections.
	Sections []int

	// Policy replaces the configured default and all section policies.
	Policy sync.Policy

	DryRun  bool
	NoCache bool
}

// Result reports one import.
type Result struct {
	RunID      string
	Dataset    string
	VolumePath string
	DryRun     bool

	// VolumeUnchanged is set when the volume XML is identical to the one
	// of the last successful import.
	VolumeUnchanged bool

	Sync     *sync.SyncResult
	Warnings []string
	Timings  []stats.Summary
	Duration time.Duration
}

// Importer imports volumes into a store.
type Importer struct {
	store *store.Store
	cache *volume.Cache
	cfg   Config
	log   *slog.Logger

	// total accumulates the timings of every import run by this importer.
	total *stats.Timings
}

// New creates an importer. cache may be nil.
func New(st *store.Store, cache *volume.Cache, cfg Config) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	if cfg.DefaultPolicy == "" {
		cfg.DefaultPolicy = sync.PolicyMerge
	}
	return &Importer{
		store: st,
		cache: cache,
		cfg:   cfg,
		log:   logging.Component("importer"),
		total: stats.NewTimings(cfg.SketchAccuracy),
	}
}

// Timings summarizes the phase timings of all imports run so far.
func (im *Importer) Timings() []stats.Summary {
	return im.total.Summaries()
}

// Import reads the volume named by opts and reconciles it into the store.
//
// Unless DryRun is set, the run is recorded in import_runs, and on success
// the volume hash is saved in sync_state. A failing reconciler stops the
// import; batches committed before the failure stay and a re-run
// continues from there.
func (im *Importer) Import(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	xmlPath, err := ResolveVolumePath(opts.VolumePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read volume %s", xmlPath)
	}
	volumeHash := sync.HashBytes(data)

	v, err := im.loadVolume(xmlPath, opts.NoCache)
	if err != nil {
		return nil, err
	}

	dataset := opts.Dataset
	if dataset == "" {
		dataset = v.Name
	}
	if err := validation.ValidateDatasetName(dataset); err != nil {
		return nil, err
	}

	engine, err := im.newEngine(opts.Policy)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	ctx = logging.ContextWithDataset(ctx, dataset)
	if opts.DryRun {
		ctx = sync.WithDryRun(ctx)
	}
	log := logging.WithContext(ctx)

	result := &Result{
		RunID:      runID,
		Dataset:    dataset,
		VolumePath: xmlPath,
		DryRun:     opts.DryRun,
	}

	result.VolumeUnchanged, err = sync.VolumeHashUnchanged(ctx, im.store, volumeHash)
	if err != nil {
		return nil, err
	}

	sections := volume.NewSectionSet(opts.Sections...)
	if sections != nil {
		for _, n := range sections.Numbers() {
			if !hasSection(v, n) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("section %d: not in volume", n))
			}
		}
	}

	record := &store.ImportRun{
		ID:         runID,
		Dataset:    dataset,
		VolumePath: xmlPath,
		Sections:   validation.FormatSections(sections.Numbers()),
		Policy:     string(engine.GetDefaultPolicy()),
		DryRun:     opts.DryRun,
		StartedAt:  start,
	}
	if !opts.DryRun {
		if err := im.store.CreateImportRun(ctx, record); err != nil {
			return nil, err
		}
	}

	log.Info("import started",
		"volume", xmlPath,
		"sections", record.Sections,
		"policy", record.Policy,
		"dry_run", opts.DryRun,
		"volume_unchanged", result.VolumeUnchanged,
	)

	timings := stats.NewTimings(im.cfg.SketchAccuracy)
	r := newRun(runID, dataset, v, sections, timings)
	im.register(engine, r)

	syncResult, syncErr := engine.Sync(ctx)
	result.Sync = syncResult
	for _, info := range engine.ListReconcilers() {
		if sec, ok := syncResult.Sections[info.Name]; ok {
			result.Warnings = append(result.Warnings, sec.Warnings...)
		}
	}
	result.Timings = timings.Summaries()
	result.Duration = time.Since(start)
	im.total.Merge(timings)

	if !opts.DryRun {
		if err := im.finish(ctx, record, result, syncErr, volumeHash); err != nil {
			if syncErr == nil {
				return result, err
			}
			log.Error("record import run", "error", err)
		}
	}

	log.Info("import finished",
		"created", syncResult.TotalCreated,
		"updated", syncResult.TotalUpdated,
		"skipped", syncResult.TotalSkipped,
		"warnings", len(result.Warnings),
		"duration", result.Duration,
		"error", syncErr,
	)

	return result, syncErr
}

// finish records the outcome of a run. It still writes after the import
// context was cancelled.
func (im *Importer) finish(ctx context.Context, record *store.ImportRun, result *Result, syncErr error, volumeHash uint64) error {
	ctx = context.WithoutCancel(ctx)

	record.Created = result.Sync.TotalCreated
	record.Updated = result.Sync.TotalUpdated
	record.Skipped = result.Sync.TotalSkipped
	record.Warnings = len(result.Warnings)
	if syncErr != nil {
		record.Error = syncErr.Error()
	}

	if err := im.store.FinishImportRun(ctx, record); err != nil {
		return err
	}
	if syncErr != nil {
		return nil
	}
	return sync.SaveSyncState(ctx, im.store, record.ID, volumeHash)
}

func (im *Importer) newEngine(override sync.Policy) (*sync.Engine, error) {
	cfg := &sync.EngineConfig{
		DefaultPolicy: im.cfg.DefaultPolicy,
		Policies:      im.cfg.Policies,
	}
	if override != "" {
		if !override.IsValid() {
			return nil, fmt.Errorf("%w: %q", errors.ErrInvalidPolicy, override)
		}
		cfg.DefaultPolicy = override
		cfg.Policies = nil
	}
	return sync.NewEngine(cfg), nil
}

func (im *Importer) loadVolume(xmlPath string, noCache bool) (*volume.Volume, error) {
	if im.cache == nil || noCache {
		return volume.LoadXML(xmlPath)
	}
	return im.cache.Load(xmlPath)
}

// ResolveVolumePath returns the volume XML for path, which may name the
// file itself or its directory.
func ResolveVolumePath(path string) (string, error) {
	if path == "" {
		return "", errors.NewMissingField("volume path")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.NewNotFound(errors.ErrVolumeNotFound, abs)
	}
	if !info.IsDir() {
		return abs, nil
	}

	abs = filepath.Join(abs, config.DefaultVolumeFile)
	if _, err := os.Stat(abs); err != nil {
		return "", errors.NewNotFound(errors.ErrVolumeNotFound, abs)
	}
	return abs, nil
}

func hasSection(v *volume.Volume, n int) bool {
	for range v.Sections(volume.NewSectionSet(n)) {
		return true
	}
	return false
}
