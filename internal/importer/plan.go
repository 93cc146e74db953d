package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/geometry"
	"github.com/xtxerr/volimport/internal/imaging"
	"github.com/xtxerr/volimport/internal/logging"
	"github.com/xtxerr/volimport/internal/mosaic"
	"github.com/xtxerr/volimport/internal/stats"
	"github.com/xtxerr/volimport/internal/store"
	"github.com/xtxerr/volimport/internal/sync"
	"github.com/xtxerr/volimport/internal/validation"
	"github.com/xtxerr/volimport/internal/volume"
)

// run holds the state of one import. The desired entities of each pass
// are built on first use and shared by the reconcilers of that pass.
type run struct {
	id       string
	dataset  string
	vol      *volume.Volume
	sections volume.SectionSet
	timings  *stats.Timings
	log      *slog.Logger

	// Channels whose names cannot be used in coordinate space names.
	invalid map[*volume.Channel]string

	tiles   *tilePlan
	mosaics *mosaicPlan
}

type tilePlan struct {
	spaces   []*sync.SyncableCoordSpace
	images   []*sync.SyncableData2D
	warnings []string
}

type mosaicPlan struct {
	spaces   []*sync.SyncableCoordSpace
	mappings []*sync.SyncableMapping
	warnings []string
}

func newRun(id, dataset string, v *volume.Volume, sections volume.SectionSet, timings *stats.Timings) *run {
	r := &run{
		id:       id,
		dataset:  dataset,
		vol:      v,
		sections: sections,
		timings:  timings,
		log:      logging.Component("importer"),
		invalid:  make(map[*volume.Channel]string),
	}

	for c := range v.Channels(sections) {
		if err := validation.ValidateComponentName("channel", c.Name); err != nil {
			r.invalid[c] = err.Error()
		}
	}
	return r
}

// =============================================================================
// Dataset, Channels, Filters
// =============================================================================

func (r *run) datasets() []*sync.SyncableDataset {
	return []*sync.SyncableDataset{
		sync.WrapDataset(&store.Dataset{Name: r.dataset, Path: r.vol.Path}),
	}
}

func (r *run) channels() ([]*sync.SyncableChannel, []string) {
	var out []*sync.SyncableChannel
	var warnings []string
	seen := make(map[string]bool)

	for c := range r.vol.Channels(r.sections) {
		if msg, bad := r.invalid[c]; bad {
			warnings = append(warnings, fmt.Sprintf("section %d: %s", c.Section().Number, msg))
			continue
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, sync.WrapChannel(&store.Channel{Dataset: r.dataset, Name: c.Name}))
	}
	return out, warnings
}

func (r *run) filters() []*sync.SyncableFilter {
	var out []*sync.SyncableFilter
	seen := make(map[string]bool)

	for f := range r.vol.Filters(r.sections) {
		c := f.Channel()
		if _, bad := r.invalid[c]; bad {
			continue
		}
		key := c.Name + "/" + f.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sync.WrapFilter(&store.Filter{Dataset: r.dataset, Channel: c.Name, Name: f.Name}))
	}
	return out
}

// =============================================================================
// Tile Pyramids
// =============================================================================

func (r *run) tilePass(ctx context.Context) (*tilePlan, error) {
	if r.tiles != nil {
		return r.tiles, nil
	}

	plan := &tilePlan{}
	spaces := newSpaceSet()
	seen := make(map[string]bool)

	for f := range r.vol.Filters(r.sections) {
		c := f.Channel()
		if _, bad := r.invalid[c]; bad || f.TilePyramid == nil {
			continue
		}
		for _, l := range f.TilePyramid.Levels {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := r.planLevel(ctx, l, spaces, seen, plan); err != nil {
				return nil, err
			}
		}
	}

	var err error
	plan.spaces, err = spaces.list()
	if err != nil {
		return nil, err
	}

	r.tiles = plan
	return plan, nil
}

func (r *run) planLevel(ctx context.Context, l *volume.Level, spaces *spaceSet, seen map[string]bool, plan *tilePlan) error {
	defer r.timings.Time(stats.PhaseLevel)()

	p := l.Pyramid()
	f := p.Filter()
	c := f.Channel()
	section := c.Section().Number
	log := logging.WithContext(logging.ContextWithSection(ctx, section))

	ext := p.ImageFormatExt
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	files, err := filepath.Glob(filepath.Join(l.FullPath(), "*"+ext))
	if err != nil {
		return fmt.Errorf("glob level %s: %w", l.FullPath(), err)
	}
	slices.Sort(files)
	if len(files) == 0 {
		log.Debug("level has no tiles", "path", l.FullPath())
	}

	warn := func(format string, args ...any) {
		msg := fmt.Sprintf("section %d: ", section) + fmt.Sprintf(format, args...)
		plan.warnings = append(plan.warnings, msg)
		log.Warn(msg)
	}

	z := float64(section)
	xScale, yScale := channelScales(c)

	for _, file := range files {
		base := filepath.Base(file)
		rel := filepath.Join(l.RelativePath(), base)
		if seen[rel] {
			warn("%s: %v", rel, errors.ErrDuplicateTile)
			continue
		}
		seen[rel] = true

		csName, err := TileCoordSpace(c, base)
		var h, w int
		if err == nil {
			h, w, err = imaging.Size(file)
		}
		if err != nil {
			if !errors.IsSkippable(err) {
				return err
			}
			warn("%s: %v", rel, err)
			continue
		}

		ds := l.Downsample
		box, _, err := geometry.RectBounds(geometry.NewRect(0, 0, float64(h)*ds, float64(w)*ds)).Resolve(&z)
		if err != nil {
			return err
		}

		spaces.add(&store.CoordSpace{
			Dataset: r.dataset,
			Name:    csName,
			Bounds:  &box,
			XScale:  xScale,
			YScale:  yScale,
		})
		plan.images = append(plan.images, sync.WrapData2D(&store.Data2D{
			Dataset:      r.dataset,
			RelativePath: rel,
			Name:         base,
			Image:        file,
			Channel:      c.Name,
			Filter:       f.Name,
			Level:        l.Number(),
			CoordSpace:   csName,
			Width:        w,
			Height:       h,
		}))
	}

	return nil
}

// =============================================================================
// Mosaics
// =============================================================================

func (r *run) mosaicPass(ctx context.Context) (*mosaicPlan, error) {
	if r.mosaics != nil {
		return r.mosaics, nil
	}

	plan := &mosaicPlan{}
	spaces := newSpaceSet()
	mappings := make(map[string]int)

	for t := range r.vol.Transforms(r.sections) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if t.Ext() != config.DefaultMosaicExt {
			continue
		}
		if _, bad := r.invalid[t.Channel()]; bad {
			continue
		}
		if err := r.planMosaic(ctx, t, spaces, mappings, plan); err != nil {
			return nil, err
		}
	}

	var err error
	plan.spaces, err = spaces.list()
	if err != nil {
		return nil, err
	}

	r.mosaics = plan
	return plan, nil
}

func (r *run) planMosaic(ctx context.Context, t *volume.Transform, spaces *spaceSet, mappings map[string]int, plan *mosaicPlan) error {
	defer r.timings.Time(stats.PhaseMosaic)()

	c := t.Channel()
	section := c.Section().Number
	log := logging.WithContext(logging.ContextWithSection(ctx, section))

	warn := func(format string, args ...any) {
		msg := fmt.Sprintf("section %d: ", section) + fmt.Sprintf(format, args...)
		plan.warnings = append(plan.warnings, msg)
		log.Warn(msg)
	}

	if err := validation.ValidateComponentName("transform", t.Name); err != nil {
		warn("%v", err)
		return nil
	}

	m, err := mosaic.Load(t.FullPath())
	if err != nil {
		if !errors.IsSkippable(err) {
			return err
		}
		warn("skipping mosaic: %v", err)
		return nil
	}

	z := float64(section)
	xScale, yScale := channelScales(c)
	destName := CoordSpaceName(section, c.Name, t.Name)

	destBox, _, err := geometry.RectBounds(m.FixedBoundingBox()).Resolve(&z)
	if err != nil {
		return err
	}
	spaces.add(&store.CoordSpace{
		Dataset: r.dataset,
		Name:    destName,
		Bounds:  &destBox,
		XScale:  xScale,
		YScale:  yScale,
	})

	for _, img := range m.Images {
		n, err := TileNumber(img.Name)
		if err != nil {
			warn("%s: %v", t.Path, err)
			continue
		}
		srcName := CoordSpaceName(section, c.Name, TileSpaceName(n))

		srcBox, _, err := geometry.RectBounds(img.Transform.MappedBoundingBox()).Resolve(&z)
		if err != nil {
			return err
		}
		fixedBox, _, err := geometry.RectBounds(img.Transform.FixedBoundingBox()).Resolve(&z)
		if err != nil {
			return err
		}

		spaces.add(&store.CoordSpace{
			Dataset: r.dataset,
			Name:    srcName,
			Bounds:  &srcBox,
			XScale:  xScale,
			YScale:  yScale,
		})

		mapping := sync.WrapMapping(&store.Mapping2D{
			Dataset:    r.dataset,
			SrcSpace:   srcName,
			SrcBounds:  &srcBox,
			DestSpace:  destName,
			DestBounds: &fixedBox,
			Transform:  img.TransformString,
		})
		if i, dup := mappings[mapping.SyncKey()]; dup {
			plan.mappings[i] = mapping
			continue
		}
		mappings[mapping.SyncKey()] = len(plan.mappings)
		plan.mappings = append(plan.mappings, mapping)
	}

	log.Debug("mosaic planned", "transform", t.Name, "images", len(m.Images))
	return nil
}

// =============================================================================
// Coordinate space folding
// =============================================================================

// spaceSet folds coordinate spaces by name, unioning their bounds.
type spaceSet struct {
	order  []*sync.SyncableCoordSpace
	byName map[string]*sync.SyncableCoordSpace
	err    error
}

func newSpaceSet() *spaceSet {
	return &spaceSet{byName: make(map[string]*sync.SyncableCoordSpace)}
}

func (s *spaceSet) add(cs *store.CoordSpace) {
	next := sync.WrapCoordSpace(cs)
	prev, ok := s.byName[cs.Name]
	if !ok {
		s.byName[cs.Name] = next
		s.order = append(s.order, next)
		return
	}
	if err := prev.MergeExisting(next); err != nil && s.err == nil {
		s.err = fmt.Errorf("coord space %s: %w", cs.Name, err)
	}
}

func (s *spaceSet) list() ([]*sync.SyncableCoordSpace, error) {
	return s.order, s.err
}
