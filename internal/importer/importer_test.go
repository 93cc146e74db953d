package importer

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/geometry"
	"github.com/xtxerr/volimport/internal/stats"
	"github.com/xtxerr/volimport/internal/store"
	"github.com/xtxerr/volimport/internal/sync"
	fixture "github.com/xtxerr/volimport/internal/testing"
	"github.com/xtxerr/volimport/internal/volume"
)

// =============================================================================
// Helpers
// =============================================================================

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(store.Config{DSN: ":memory:", QueryTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func runImport(t *testing.T, im *Importer, opts Options) *Result {
	t.Helper()
	res, err := im.Import(context.Background(), opts)
	if err != nil {
		t.Fatalf("Import(%+v): %v", opts, err)
	}
	return res
}

func tableCounts(t *testing.T, st *store.Store) map[string]int64 {
	t.Helper()
	counts, err := st.TableCounts(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	return counts
}

func coordSpace(t *testing.T, st *store.Store, name string) *store.CoordSpace {
	t.Helper()
	cs, err := st.GetCoordSpace(context.Background(), "RC1", name)
	if err != nil {
		t.Fatal(err)
	}
	if cs == nil {
		t.Fatalf("coord space %s not found", name)
	}
	return cs
}

func mappingsByKey(t *testing.T, st *store.Store) map[string]*store.Mapping2D {
	t.Helper()
	rows, err := st.ListMappings(context.Background(), "RC1")
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]*store.Mapping2D, len(rows))
	for _, m := range rows {
		out[m.SrcSpace+"->"+m.DestSpace] = m
	}
	return out
}

// snapshot is the content of a dataset without timestamps or surrogate ids.
type snapshot struct {
	Datasets    []*store.Dataset
	Channels    []*store.Channel
	Filters     []*store.Filter
	CoordSpaces []*store.CoordSpace
	Data2D      []*store.Data2D
	Mappings    []*store.Mapping2D
}

func takeSnapshot(t *testing.T, st *store.Store) snapshot {
	t.Helper()
	ctx := context.Background()

	var s snapshot
	var err error
	if s.Datasets, err = st.ListDatasets(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if s.Channels, err = st.ListChannels(ctx, "RC1"); err != nil {
		t.Fatal(err)
	}
	if s.Filters, err = st.ListFilters(ctx, "RC1"); err != nil {
		t.Fatal(err)
	}
	if s.CoordSpaces, err = st.ListCoordSpaces(ctx, "RC1"); err != nil {
		t.Fatal(err)
	}
	if s.Data2D, err = st.ListData2D(ctx, "RC1"); err != nil {
		t.Fatal(err)
	}
	if s.Mappings, err = st.ListMappings(ctx, "RC1"); err != nil {
		t.Fatal(err)
	}
	return s
}

var snapshotOpts = cmp.Options{
	cmpopts.IgnoreFields(store.Dataset{}, "CreatedAt", "UpdatedAt"),
	cmpopts.IgnoreFields(store.Channel{}, "CreatedAt"),
	cmpopts.IgnoreFields(store.Filter{}, "CreatedAt"),
	cmpopts.IgnoreFields(store.CoordSpace{}, "BoundsID", "CreatedAt", "UpdatedAt"),
	cmpopts.IgnoreFields(store.Data2D{}, "CreatedAt", "UpdatedAt"),
	cmpopts.IgnoreFields(store.Mapping2D{}, "SrcBoundsID", "DestBoundsID", "CreatedAt", "UpdatedAt"),
}

// =============================================================================
// Import
// =============================================================================

func TestImport(t *testing.T) {
	st := setupTestStore(t)
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())
	im := New(st, nil, DefaultConfig())

	res := runImport(t, im, Options{VolumePath: xml})

	if res.Dataset != "RC1" || res.RunID == "" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}

	want := map[string]int64{
		"datasets":       1,
		"channels":       1,
		"filters":        1,
		"coord_spaces":   6,
		"data2d":         8,
		"mappings":       4,
		"bounding_boxes": 14,
		"import_runs":    1,
		"sync_state":     1,
	}
	if diff := cmp.Diff(want, tableCounts(t, st)); diff != "" {
		t.Errorf("table counts mismatch (-want +got):\n%s", diff)
	}

	tile := coordSpace(t, st, "0691.TEM.Tile1")
	if wantBox := geometry.NewBox(691, 0, 0, 691, 32, 64); !tile.Bounds.Equal(wantBox) {
		t.Errorf("tile bounds = %v, want %v", tile.Bounds, wantBox)
	}
	if tile.XScale == nil || tile.XScale.Value != 2.18 || tile.XScale.Units != "nm" || tile.ZScale != nil {
		t.Errorf("tile scales = %+v %+v %+v", tile.XScale, tile.YScale, tile.ZScale)
	}

	grid := coordSpace(t, st, "0692.TEM.Grid")
	if wantBox := geometry.NewBox(692, 10, 10, 692, 42, 138); !grid.Bounds.Equal(wantBox) {
		t.Errorf("mosaic bounds = %v, want %v", grid.Bounds, wantBox)
	}

	m := mappingsByKey(t, st)["0691.TEM.Tile1->0691.TEM.Grid"]
	if m == nil {
		t.Fatal("mapping Tile1 -> Grid not found")
	}
	if m.Transform != fixture.Default().Sections[0].GridTransform(1) {
		t.Errorf("transform = %q", m.Transform)
	}
	if wantBox := geometry.NewBox(691, 0, 64, 691, 32, 128); !m.DestBounds.Equal(wantBox) {
		t.Errorf("dest bounds = %v, want %v", m.DestBounds, wantBox)
	}

	images, err := st.ListData2D(context.Background(), "RC1")
	if err != nil {
		t.Fatal(err)
	}
	first := images[0]
	wantRel := filepath.Join("TEM", "0691", "TEM", "Leveled", "TilePyramid", "001", "000.png")
	if first.RelativePath != wantRel || first.Level != 1 || first.CoordSpace != "0691.TEM.Tile0" {
		t.Errorf("first image = %+v", first)
	}
	if first.Width != 64 || first.Height != 32 || first.Filter != "Leveled" || first.Channel != "TEM" {
		t.Errorf("first image = %+v", first)
	}
}

func TestImport_Idempotent(t *testing.T) {
	st := setupTestStore(t)
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())
	im := New(st, nil, DefaultConfig())

	first := runImport(t, im, Options{VolumePath: xml})
	if first.Sync.TotalCreated == 0 || first.VolumeUnchanged {
		t.Fatalf("first import = %+v", first.Sync)
	}
	before := tableCounts(t, st)

	second := runImport(t, im, Options{VolumePath: xml})
	if second.Sync.TotalCreated != 0 || second.Sync.TotalUpdated != 0 {
		t.Errorf("second import created %d, updated %d", second.Sync.TotalCreated, second.Sync.TotalUpdated)
	}
	if !second.VolumeUnchanged {
		t.Error("second import should see an unchanged volume")
	}

	after := tableCounts(t, st)
	before["import_runs"]++
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("rows added on re-import (-want +got):\n%s", diff)
	}
}

func TestImport_SectionSequence(t *testing.T) {
	st := setupTestStore(t)
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())
	im := New(st, nil, DefaultConfig())

	runImport(t, im, Options{VolumePath: xml, Sections: []int{691}})
	runImport(t, im, Options{VolumePath: xml, Sections: []int{692}})
	last := runImport(t, im, Options{VolumePath: xml, Sections: []int{691}})

	if last.Sync.TotalCreated != 0 || last.Sync.TotalUpdated != 0 {
		t.Errorf("third import created %d, updated %d", last.Sync.TotalCreated, last.Sync.TotalUpdated)
	}

	counts := tableCounts(t, st)
	if counts["datasets"] != 1 || counts["coord_spaces"] != 6 {
		t.Errorf("counts = %v", counts)
	}

	spaces, err := st.ListCoordSpaces(context.Background(), "RC1")
	if err != nil {
		t.Fatal(err)
	}
	var in691 []string
	for _, cs := range spaces {
		if strings.HasPrefix(cs.Name, "0691.") {
			in691 = append(in691, cs.Name)
		}
	}
	if want := []string{"0691.TEM.Grid", "0691.TEM.Tile0", "0691.TEM.Tile1"}; !slices.Equal(in691, want) {
		t.Errorf("section 691 spaces = %v, want %v", in691, want)
	}

	var union *geometry.Box
	for _, m := range mappingsByKey(t, st) {
		if m.DestSpace != "0691.TEM.Grid" {
			continue
		}
		if union == nil {
			b := *m.DestBounds
			union = &b
			continue
		}
		u, err := union.Union(*m.DestBounds)
		if err != nil {
			t.Fatal(err)
		}
		union = &u
	}
	if grid := coordSpace(t, st, "0691.TEM.Grid"); union == nil || !grid.Bounds.Equal(*union) {
		t.Errorf("mosaic bounds = %v, want union %v", grid.Bounds, union)
	}
}

func TestImport_DisjointThenUnion(t *testing.T) {
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())

	sequential := setupTestStore(t)
	im := New(sequential, nil, DefaultConfig())
	runImport(t, im, Options{VolumePath: xml, Sections: []int{691}})
	runImport(t, im, Options{VolumePath: xml, Sections: []int{692}})
	runImport(t, im, Options{VolumePath: xml})

	direct := setupTestStore(t)
	runImport(t, New(direct, nil, DefaultConfig()), Options{VolumePath: xml})

	if diff := cmp.Diff(takeSnapshot(t, direct), takeSnapshot(t, sequential), snapshotOpts); diff != "" {
		t.Errorf("row sets differ (-direct +sequential):\n%s", diff)
	}
}

func TestImport_BoundsEncloseReferences(t *testing.T) {
	st := setupTestStore(t)
	vol := fixture.Default()
	vol.Sections[1].Levels = []int{1, 2, 4}
	xml := fixture.WriteVolume(t, t.TempDir(), vol)
	runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xml})

	snap := takeSnapshot(t, st)
	spaces := make(map[string]*store.CoordSpace, len(snap.CoordSpaces))
	for _, cs := range snap.CoordSpaces {
		spaces[cs.Name] = cs
	}

	for _, m := range snap.Mappings {
		if src := spaces[m.SrcSpace]; src == nil || !src.Bounds.Contains(*m.SrcBounds) {
			t.Errorf("%s does not enclose mapping source %v", m.SrcSpace, m.SrcBounds)
		}
		if dest := spaces[m.DestSpace]; dest == nil || !dest.Bounds.Contains(*m.DestBounds) {
			t.Errorf("%s does not enclose mapping destination %v", m.DestSpace, m.DestBounds)
		}
	}

	for _, d := range snap.Data2D {
		cs := spaces[d.CoordSpace]
		if cs == nil {
			t.Errorf("%s: coord space %s missing", d.RelativePath, d.CoordSpace)
			continue
		}
		z := *cs.Bounds.MinZ
		ds := float64(d.Level)
		box := geometry.NewBox(z, 0, 0, z, float64(d.Height)*ds, float64(d.Width)*ds)
		if !cs.Bounds.Contains(box) {
			t.Errorf("%s does not enclose image %s %v", d.CoordSpace, d.RelativePath, box)
		}
	}
}

func TestImport_TransformChangeUpdatesInPlace(t *testing.T) {
	st := setupTestStore(t)
	dir := t.TempDir()
	vol := fixture.Default()
	xml := fixture.WriteVolume(t, dir, vol)
	im := New(st, nil, DefaultConfig())

	runImport(t, im, Options{VolumePath: xml})
	before := tableCounts(t, st)

	vol.Sections[0].Offset = 5
	fixture.WriteVolume(t, dir, vol)
	res := runImport(t, im, Options{VolumePath: xml})

	if got := res.Sync.Sections[SectionMappings]; got.Created != 0 || got.Updated != 2 {
		t.Errorf("mappings created %d, updated %d, want 0 and 2", got.Created, got.Updated)
	}
	if got := res.Sync.Sections[SectionMosaicSpaces]; got.Created != 0 || got.Updated != 1 {
		t.Errorf("mosaic spaces created %d, updated %d, want 0 and 1", got.Created, got.Updated)
	}

	after := tableCounts(t, st)
	for _, table := range []string{"mappings", "coord_spaces", "bounding_boxes"} {
		if after[table] != before[table] {
			t.Errorf("%s rows = %d, want %d", table, after[table], before[table])
		}
	}

	m := mappingsByKey(t, st)["0691.TEM.Tile0->0691.TEM.Grid"]
	if m.Transform != vol.Sections[0].GridTransform(0) {
		t.Errorf("transform = %q, want %q", m.Transform, vol.Sections[0].GridTransform(0))
	}
	if wantBox := geometry.NewBox(691, 5, 5, 691, 37, 69); !m.DestBounds.Equal(wantBox) {
		t.Errorf("dest bounds = %v, want %v", m.DestBounds, wantBox)
	}

	// Mosaic bounds only grow.
	grid := coordSpace(t, st, "0691.TEM.Grid")
	if wantBox := geometry.NewBox(691, 0, 0, 691, 37, 133); !grid.Bounds.Equal(wantBox) {
		t.Errorf("mosaic bounds = %v, want %v", grid.Bounds, wantBox)
	}
}

func TestImport_BrokenMosaicSkipped(t *testing.T) {
	st := setupTestStore(t)
	vol := fixture.Default()
	vol.Sections[1].BrokenMosaic = true
	xml := fixture.WriteVolume(t, t.TempDir(), vol)

	res := runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xml})

	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "section 692") {
		t.Errorf("warnings = %v", res.Warnings)
	}
	counts := tableCounts(t, st)
	if counts["mappings"] != 2 || counts["coord_spaces"] != 5 || counts["data2d"] != 8 {
		t.Errorf("counts = %v", counts)
	}

	runs, err := st.ListImportRuns(context.Background(), "RC1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Warnings != 1 || runs[0].Error != "" {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestImport_InvalidTileNamesSkipped(t *testing.T) {
	st := setupTestStore(t)
	vol := fixture.Default()
	vol.Sections[0].ExtraFiles = []string{"overview.png"}
	xml := fixture.WriteVolume(t, t.TempDir(), vol)

	res := runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xml})

	// One per level.
	if len(res.Warnings) != 2 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	for _, w := range res.Warnings {
		if !strings.Contains(w, "overview.png") {
			t.Errorf("warning %q does not name the file", w)
		}
	}
	if got := tableCounts(t, st)["data2d"]; got != 8 {
		t.Errorf("data2d rows = %d, want 8", got)
	}
}

func TestImport_DuplicateTilesSkipped(t *testing.T) {
	st := setupTestStore(t)
	vol := fixture.Default()
	vol.Sections = vol.Sections[:1]
	xmlPath := fixture.WriteVolume(t, t.TempDir(), vol)

	// Point the downsample 4 level at the directory of level 1.
	data, err := os.ReadFile(xmlPath)
	if err != nil {
		t.Fatal(err)
	}
	level4 := `Path="` + fixture.LevelPath(4) + `"`
	if !strings.Contains(string(data), level4) {
		t.Fatalf("fixture has no %s", level4)
	}
	data = []byte(strings.Replace(string(data), level4, `Path="`+fixture.LevelPath(1)+`"`, 1))
	if err := os.WriteFile(xmlPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	res := runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xmlPath})

	var dups int
	for _, w := range res.Warnings {
		if strings.Contains(w, errors.ErrDuplicateTile.Error()) {
			dups++
		}
	}
	if dups != 2 {
		t.Errorf("duplicate tile warnings = %d, want 2: %v", dups, res.Warnings)
	}

	rows, err := st.ListData2D(context.Background(), "RC1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("data2d rows = %d, want 2", len(rows))
	}
	for _, d := range rows {
		if d.Level != 1 {
			t.Errorf("%s imported at level %d, want the first level to win", d.RelativePath, d.Level)
		}
	}
	if got := tableCounts(t, st)["mappings"]; got != 2 {
		t.Errorf("mappings rows = %d, want 2", got)
	}
}

func TestImport_DryRun(t *testing.T) {
	st := setupTestStore(t)
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())

	res := runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xml, DryRun: true})

	if !res.DryRun || !res.Sync.DryRun {
		t.Error("result not marked as dry run")
	}
	if got := res.Sync.Sections[SectionData2D].Created; got != 8 {
		t.Errorf("data2d would-create = %d, want 8", got)
	}
	if got := res.Sync.Sections[SectionMappings].Created; got != 4 {
		t.Errorf("mappings would-create = %d, want 4", got)
	}

	for table, n := range tableCounts(t, st) {
		want := int64(0)
		if table == "sync_state" {
			want = 1
		}
		if n != want {
			t.Errorf("%s rows = %d, want %d", table, n, want)
		}
	}

	state, err := sync.LoadSyncState(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if state.RunCount != 0 {
		t.Errorf("run count = %d, want 0", state.RunCount)
	}
}

func TestImport_Policies(t *testing.T) {
	t.Run("create-only keeps existing rows", func(t *testing.T) {
		st := setupTestStore(t)
		dir := t.TempDir()
		vol := fixture.Default()
		xml := fixture.WriteVolume(t, dir, vol)
		im := New(st, nil, DefaultConfig())
		runImport(t, im, Options{VolumePath: xml})

		original := vol.Sections[0].GridTransform(0)
		vol.Sections[0].Offset = 5
		fixture.WriteVolume(t, dir, vol)

		res := runImport(t, im, Options{VolumePath: xml, Policy: sync.PolicyCreateOnly})
		if res.Sync.TotalUpdated != 0 {
			t.Errorf("updated = %d, want 0", res.Sync.TotalUpdated)
		}
		if m := mappingsByKey(t, st)["0691.TEM.Tile0->0691.TEM.Grid"]; m.Transform != original {
			t.Errorf("transform changed to %q", m.Transform)
		}
	})

	t.Run("ignored section", func(t *testing.T) {
		st := setupTestStore(t)
		xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())
		cfg := DefaultConfig()
		cfg.Policies = map[string]sync.Policy{SectionMappings: sync.PolicyIgnore}

		res := runImport(t, New(st, nil, cfg), Options{VolumePath: xml})
		if got := res.Sync.Sections[SectionMappings].Skipped; got != 4 {
			t.Errorf("mappings skipped = %d, want 4", got)
		}
		counts := tableCounts(t, st)
		if counts["mappings"] != 0 || counts["coord_spaces"] != 6 {
			t.Errorf("counts = %v", counts)
		}
	})

	t.Run("override clears section policies", func(t *testing.T) {
		st := setupTestStore(t)
		xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())
		cfg := DefaultConfig()
		cfg.Policies = map[string]sync.Policy{"coord_spaces": sync.PolicyIgnore}

		runImport(t, New(st, nil, cfg), Options{VolumePath: xml, Policy: sync.PolicyMerge})
		if got := tableCounts(t, st)["coord_spaces"]; got != 6 {
			t.Errorf("coord_spaces rows = %d, want 6", got)
		}
	})

	t.Run("invalid override", func(t *testing.T) {
		st := setupTestStore(t)
		xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())

		_, err := New(st, nil, DefaultConfig()).Import(context.Background(), Options{VolumePath: xml, Policy: "sometimes"})
		if !errors.Is(err, errors.ErrInvalidPolicy) {
			t.Errorf("error = %v, want ErrInvalidPolicy", err)
		}
	})
}

func TestImport_RunRecorded(t *testing.T) {
	st := setupTestStore(t)
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())
	ctx := context.Background()

	res := runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xml, Sections: []int{692, 691}})

	run, err := st.GetImportRun(ctx, res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run == nil {
		t.Fatal("import run not recorded")
	}
	if run.Sections != "691-692" || run.Policy != string(sync.PolicyMerge) || run.DryRun {
		t.Errorf("run = %+v", run)
	}
	if run.Created != res.Sync.TotalCreated || run.FinishedAt == nil {
		t.Errorf("run counters = %+v, result created %d", run, res.Sync.TotalCreated)
	}

	state, err := sync.LoadSyncState(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	if state.LastRunID != res.RunID || state.RunCount != 1 {
		t.Errorf("sync state = %+v", state)
	}
}

func TestImport_Options(t *testing.T) {
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())

	t.Run("dataset override", func(t *testing.T) {
		st := setupTestStore(t)
		runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xml, Dataset: "RC1.test"})

		d, err := st.GetDataset(context.Background(), "RC1.test")
		if err != nil || d == nil {
			t.Fatalf("dataset = %v, %v", d, err)
		}
		if d.Path != filepath.Dir(xml) {
			t.Errorf("path = %q, want %q", d.Path, filepath.Dir(xml))
		}
	})

	t.Run("invalid dataset name", func(t *testing.T) {
		st := setupTestStore(t)
		_, err := New(st, nil, DefaultConfig()).Import(context.Background(), Options{VolumePath: xml, Dataset: "a/b"})
		if !errors.IsValidation(err) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("directory path", func(t *testing.T) {
		st := setupTestStore(t)
		res := runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: filepath.Dir(xml)})
		if res.VolumePath != xml {
			t.Errorf("volume path = %q, want %q", res.VolumePath, xml)
		}
	})

	t.Run("unknown section", func(t *testing.T) {
		st := setupTestStore(t)
		res := runImport(t, New(st, nil, DefaultConfig()), Options{VolumePath: xml, Sections: []int{999}})
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "999") {
			t.Errorf("warnings = %v", res.Warnings)
		}
		if got := tableCounts(t, st)["coord_spaces"]; got != 0 {
			t.Errorf("coord_spaces rows = %d, want 0", got)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		st := setupTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(st, nil, DefaultConfig()).Import(ctx, Options{VolumePath: xml})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestImport_Cache(t *testing.T) {
	st := setupTestStore(t)
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())
	cache := volume.NewCache(t.TempDir())
	im := New(st, cache, DefaultConfig())

	runImport(t, im, Options{VolumePath: xml})
	if _, err := os.Stat(cache.Path(xml)); err != nil {
		t.Fatalf("cache file: %v", err)
	}

	res := runImport(t, im, Options{VolumePath: xml})
	if res.Sync.TotalCreated != 0 || res.Sync.TotalUpdated != 0 {
		t.Errorf("cached import created %d, updated %d", res.Sync.TotalCreated, res.Sync.TotalUpdated)
	}

	runImport(t, im, Options{VolumePath: xml, NoCache: true})
}

func TestImport_Timings(t *testing.T) {
	st := setupTestStore(t)
	xml := fixture.WriteVolume(t, t.TempDir(), fixture.Default())

	im := New(st, nil, DefaultConfig())
	res := runImport(t, im, Options{VolumePath: xml})

	counts := phaseCounts(res.Timings)
	// Two sections with two levels and one mosaic each.
	if counts["level"] != 4 || counts["mosaic"] != 2 {
		t.Errorf("timing counts = %v", counts)
	}

	runImport(t, im, Options{VolumePath: xml})
	if total := phaseCounts(im.Timings()); total["level"] != 8 || total["mosaic"] != 4 {
		t.Errorf("accumulated timing counts = %v", total)
	}
}

func phaseCounts(summaries []stats.Summary) map[string]int64 {
	counts := make(map[string]int64)
	for _, s := range summaries {
		counts[s.Phase] = s.Count
	}
	return counts
}

func TestResolveVolumePath(t *testing.T) {
	dir := t.TempDir()
	xml := fixture.WriteVolume(t, dir, fixture.Default())

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"file", xml, xml, nil},
		{"directory", dir, xml, nil},
		{"missing file", filepath.Join(dir, "nope.xml"), "", errors.ErrVolumeNotFound},
		{"directory without volume", t.TempDir(), "", errors.ErrVolumeNotFound},
		{"empty", "", "", errors.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveVolumePath(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ResolveVolumePath(%q) = %q, %v", tt.path, got, err)
			}
		})
	}
}
