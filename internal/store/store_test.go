package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/xtxerr/volimport/internal/geometry"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := Config{
		DSN:          ":memory:",
		QueryTimeout: 30 * time.Second,
	}
	store, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMigrateIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	counts, err := store.TableCounts(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if counts["sync_state"] != 1 {
		t.Errorf("sync_state rows = %d, want 1", counts["sync_state"])
	}
	if counts["datasets"] != 0 {
		t.Errorf("datasets rows = %d, want 0", counts["datasets"])
	}
}

func TestDatasetCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if d, err := store.GetDataset(ctx, "RC1"); err != nil || d != nil {
		t.Fatalf("GetDataset on empty store = %v, %v", d, err)
	}

	if err := store.BulkCreateDatasets(ctx, []*Dataset{{Name: "RC1", Path: "/data/rc1"}}); err != nil {
		t.Fatalf("BulkCreateDatasets: %v", err)
	}
	if err := store.BulkUpdateDatasets(ctx, []*Dataset{{Name: "RC1", Path: "/mnt/rc1"}}); err != nil {
		t.Fatalf("BulkUpdateDatasets: %v", err)
	}

	d, err := store.GetDataset(ctx, "RC1")
	if err != nil || d == nil {
		t.Fatalf("GetDataset = %v, %v", d, err)
	}
	if d.Path != "/mnt/rc1" {
		t.Errorf("Path = %q, want /mnt/rc1", d.Path)
	}

	if err := store.BulkCreateDatasets(ctx, []*Dataset{{Name: "RC1", Path: "/x"}}); err == nil {
		t.Error("duplicate dataset insert should fail")
	}
}

func TestChannelsAndFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.BulkCreateChannels(ctx, []*Channel{
		{Dataset: "RC1", Name: "TEM"},
		{Dataset: "RC2", Name: "TEM"},
	})
	if err != nil {
		t.Fatalf("BulkCreateChannels: %v", err)
	}
	err = store.BulkCreateFilters(ctx, []*Filter{
		{Dataset: "RC1", Channel: "TEM", Name: "Leveled"},
		{Dataset: "RC1", Channel: "TEM", Name: "Raw8"},
	})
	if err != nil {
		t.Fatalf("BulkCreateFilters: %v", err)
	}

	channels, err := store.ListChannels(ctx, "RC1")
	if err != nil || len(channels) != 1 {
		t.Fatalf("ListChannels = %d, %v", len(channels), err)
	}
	filters, err := store.ListFilters(ctx, "RC1")
	if err != nil || len(filters) != 2 {
		t.Fatalf("ListFilters = %d, %v", len(filters), err)
	}
}

func TestCoordSpaceBoundsUpdatedInPlace(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	box := geometry.NewBox(691, 0, 0, 691, 100, 200)
	cs := &CoordSpace{
		Dataset: "RC1",
		Name:    "0691.TEM.Tile1",
		Bounds:  &box,
		XScale:  &Scale{Value: 2.18, Units: "nm"},
		YScale:  &Scale{Value: 2.18, Units: "nm"},
	}
	if err := store.BulkCreateCoordSpaces(ctx, []*CoordSpace{cs}); err != nil {
		t.Fatalf("BulkCreateCoordSpaces: %v", err)
	}
	if cs.BoundsID == nil {
		t.Fatal("BoundsID not set after create")
	}

	grown := geometry.NewBox(691, -5, 0, 691, 100, 300)
	cs.Bounds = &grown
	if err := store.BulkUpdateCoordSpaces(ctx, []*CoordSpace{cs}); err != nil {
		t.Fatalf("BulkUpdateCoordSpaces: %v", err)
	}

	got, err := store.GetCoordSpace(ctx, "RC1", "0691.TEM.Tile1")
	if err != nil || got == nil {
		t.Fatalf("GetCoordSpace = %v, %v", got, err)
	}
	if !got.Bounds.Equal(grown) {
		t.Errorf("Bounds = %v, want %v", got.Bounds, grown)
	}
	if *got.BoundsID != *cs.BoundsID {
		t.Errorf("BoundsID changed from %d to %d", *cs.BoundsID, *got.BoundsID)
	}
	if diff := cmp.Diff(&Scale{Value: 2.18, Units: "nm"}, got.XScale); diff != "" {
		t.Errorf("XScale mismatch (-want +got):\n%s", diff)
	}
	if got.ZScale != nil {
		t.Errorf("ZScale = %v, want nil", got.ZScale)
	}

	n, err := store.Count(ctx, "bounding_boxes")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("bounding_boxes = %d, want 1", n)
	}
}

func TestCoordSpaceWithoutBounds(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.BulkCreateCoordSpaces(ctx, []*CoordSpace{{Dataset: "RC1", Name: "Volume"}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetCoordSpace(ctx, "RC1", "Volume")
	if err != nil || got == nil {
		t.Fatalf("GetCoordSpace = %v, %v", got, err)
	}
	if got.Bounds != nil || got.BoundsID != nil {
		t.Errorf("expected no bounds, got %v", got.Bounds)
	}
}

func TestData2D(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	item := &Data2D{
		Dataset:      "RC1",
		RelativePath: "TEM/0691/TEM/Leveled/TilePyramid/001/001.png",
		Name:         "001.png",
		Image:        "/data/TEM/0691/TEM/Leveled/TilePyramid/001/001.png",
		Channel:      "TEM",
		Filter:       "Leveled",
		Level:        1,
		CoordSpace:   "0691.TEM.Tile1",
		Width:        64,
		Height:       32,
	}
	if err := store.BulkCreateData2D(ctx, []*Data2D{item}); err != nil {
		t.Fatalf("BulkCreateData2D: %v", err)
	}

	item.Image = "/mnt/TEM/0691/TEM/Leveled/TilePyramid/001/001.png"
	item.Width = 128
	if err := store.BulkUpdateData2D(ctx, []*Data2D{item}); err != nil {
		t.Fatalf("BulkUpdateData2D: %v", err)
	}

	items, err := store.ListData2D(ctx, "RC1")
	if err != nil || len(items) != 1 {
		t.Fatalf("ListData2D = %d, %v", len(items), err)
	}
	if items[0].Image != item.Image || items[0].Width != 128 {
		t.Errorf("item not updated: %+v", items[0])
	}
}

func TestMappings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	src := geometry.NewBox(691, 0, 0, 691, 50, 100)
	dest := geometry.NewBox(691, 20, 10, 691, 70, 110)
	m := &Mapping2D{
		Dataset:    "RC1",
		SrcSpace:   "0691.TEM.Tile1",
		DestSpace:  "0691.TEM.Grid",
		SrcBounds:  &src,
		DestBounds: &dest,
		Transform:  "GridTransform_double_2_2 vp 0 fp 0",
	}
	if err := store.BulkCreateMappings(ctx, []*Mapping2D{m}); err != nil {
		t.Fatalf("BulkCreateMappings: %v", err)
	}

	moved := geometry.NewBox(691, 25, 15, 691, 75, 115)
	m.DestBounds = &moved
	m.Transform = "changed"
	if err := store.BulkUpdateMappings(ctx, []*Mapping2D{m}); err != nil {
		t.Fatalf("BulkUpdateMappings: %v", err)
	}

	got, err := store.ListMappings(ctx, "RC1")
	if err != nil || len(got) != 1 {
		t.Fatalf("ListMappings = %d, %v", len(got), err)
	}
	if got[0].Transform != "changed" {
		t.Errorf("Transform = %q", got[0].Transform)
	}
	if !got[0].DestBounds.Equal(moved) || !got[0].SrcBounds.Equal(src) {
		t.Errorf("bounds = %v / %v", got[0].SrcBounds, got[0].DestBounds)
	}

	n, _ := store.Count(ctx, "bounding_boxes")
	if n != 2 {
		t.Errorf("bounding_boxes = %d, want 2", n)
	}

	if err := store.BulkCreateMappings(ctx, []*Mapping2D{{
		Dataset: "RC1", SrcSpace: "0691.TEM.Tile1", DestSpace: "0691.TEM.Grid", Transform: "dup",
	}}); err == nil {
		t.Error("duplicate (src, dest) mapping should fail")
	}
}

func TestImportRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute)
	for i, id := range []string{"run-a", "run-b"} {
		r := &ImportRun{
			ID:         id,
			Dataset:    "RC1",
			VolumePath: "/data/VolumeData.xml",
			Sections:   "691",
			Policy:     "merge",
			StartedAt:  start.Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateImportRun(ctx, r); err != nil {
			t.Fatalf("CreateImportRun: %v", err)
		}
		r.Created = 10 * (i + 1)
		if err := store.FinishImportRun(ctx, r); err != nil {
			t.Fatalf("FinishImportRun: %v", err)
		}
	}

	runs, err := store.ListImportRuns(ctx, "RC1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "run-b" {
		t.Fatalf("latest run = %+v", runs)
	}
	if runs[0].Created != 20 || runs[0].FinishedAt == nil {
		t.Errorf("run not finished: %+v", runs[0])
	}

	if err := store.FinishImportRun(ctx, &ImportRun{ID: "missing"}); err == nil {
		t.Error("finishing an unknown run should fail")
	}
	if r, err := store.GetImportRun(ctx, "missing"); err != nil || r != nil {
		t.Errorf("GetImportRun(missing) = %v, %v", r, err)
	}
}

func TestCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.BulkCreateChannels(ctx, []*Channel{{Dataset: "RC1", Name: "TEM"}, {Dataset: "RC1", Name: "SEM"}})

	n, err := store.Count(ctx, "channels")
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}

	if _, err := store.EstimatedCount(ctx, "channels"); err != nil {
		t.Errorf("EstimatedCount: %v", err)
	}

	if _, err := store.Count(ctx, "channels; DROP TABLE datasets"); err == nil {
		t.Error("unknown table should be rejected")
	}
}

func TestBulkCreate_CancelledContext(t *testing.T) {
	store := setupTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.BulkCreateDatasets(ctx, []*Dataset{{Name: "RC1", Path: "/x"}})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}

	d, _ := store.GetDataset(context.Background(), "RC1")
	if d != nil {
		t.Error("cancelled transaction must not commit")
	}
}
