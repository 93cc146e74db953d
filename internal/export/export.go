package export

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/logging"
	"github.com/xtxerr/volimport/internal/store"
)

// Exported table names, also the file stems in the output directory.
const (
	TableDatasets    = "datasets"
	TableChannels    = "channels"
	TableFilters     = "filters"
	TableCoordSpaces = "coord_spaces"
	TableData2D      = "data2d"
	TableMappings    = "mappings"
	TableImportRuns  = "import_runs"
)

// FileInfo describes one written file.
type FileInfo struct {
	Table string
	Path  string
	Rows  int64
	Bytes int64
}

// Export writes every table of dataset to dir as <table>.parquet and
// returns the written files ordered by table name.
func Export(ctx context.Context, st *store.Store, dataset, dir string, opts Options) ([]FileInfo, error) {
	if dataset == "" {
		return nil, errors.NewMissingField("dataset")
	}
	d, err := st.GetDataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errors.NewNotFound(errors.ErrDatasetNotFound, dataset)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create export directory %s", dir)
	}

	log := logging.Component("export").With("dataset", dataset)

	tables := []struct {
		name  string
		write func(ctx context.Context, path string) (int64, error)
	}{
		{TableDatasets, func(ctx context.Context, path string) (int64, error) {
			return writeTable(path, opts, []*store.Dataset{d}, DatasetToRow)
		}},
		{TableChannels, func(ctx context.Context, path string) (int64, error) {
			items, err := st.ListChannels(ctx, dataset)
			if err != nil {
				return 0, err
			}
			return writeTable(path, opts, items, ChannelToRow)
		}},
		{TableFilters, func(ctx context.Context, path string) (int64, error) {
			items, err := st.ListFilters(ctx, dataset)
			if err != nil {
				return 0, err
			}
			return writeTable(path, opts, items, FilterToRow)
		}},
		{TableCoordSpaces, func(ctx context.Context, path string) (int64, error) {
			items, err := st.ListCoordSpaces(ctx, dataset)
			if err != nil {
				return 0, err
			}
			return writeTable(path, opts, items, CoordSpaceToRow)
		}},
		{TableData2D, func(ctx context.Context, path string) (int64, error) {
			items, err := st.ListData2D(ctx, dataset)
			if err != nil {
				return 0, err
			}
			return writeTable(path, opts, items, Data2DToRow)
		}},
		{TableMappings, func(ctx context.Context, path string) (int64, error) {
			items, err := st.ListMappings(ctx, dataset)
			if err != nil {
				return 0, err
			}
			return writeTable(path, opts, items, MappingToRow)
		}},
		{TableImportRuns, func(ctx context.Context, path string) (int64, error) {
			items, err := st.ListImportRuns(ctx, dataset, 0)
			if err != nil {
				return 0, err
			}
			return writeTable(path, opts, items, ImportRunToRow)
		}},
	}

	files := make([]FileInfo, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, t.name+".parquet")
			n, err := t.write(gctx, path)
			if err != nil {
				return errors.Wrapf(err, "export %s", t.name)
			}
			info, err := os.Stat(path)
			if err != nil {
				return errors.Wrapf(err, "stat %s", path)
			}
			files[i] = FileInfo{Table: t.name, Path: path, Rows: n, Bytes: info.Size()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Table < files[j].Table })
	for _, f := range files {
		log.Debug("table exported", "table", f.Table, "rows", f.Rows, "bytes", f.Bytes)
	}
	log.Info("dataset exported", "dir", dir, "tables", len(files), "compression", opts.Compression.String())
	return files, nil
}

// writeTable converts items and writes them as one file.
func writeTable[S any, T any](path string, opts Options, items []S, convert func(S) T) (int64, error) {
	w, err := NewWriter[T](path, opts)
	if err != nil {
		return 0, err
	}

	rows := make([]T, len(items))
	for i, item := range items {
		rows[i] = convert(item)
	}
	if err := w.Write(rows); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.RowCount(), nil
}
