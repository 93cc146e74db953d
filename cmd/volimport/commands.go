package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/export"
	"github.com/xtxerr/volimport/internal/importer"
	"github.com/xtxerr/volimport/internal/store"
	"github.com/xtxerr/volimport/internal/sync"
	"github.com/xtxerr/volimport/internal/volume"
)

// =============================================================================
// export
// =============================================================================

func newExportCmd(a *app) *cobra.Command {
	var dir, compression string

	cmd := &cobra.Command{
		Use:   "export <dataset>",
		Short: "Write the tables of a dataset as Parquet files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				a.cfg.Export.Dir = dir
			}
			if compression != "" {
				a.cfg.Export.Compression = compression
			}
			opts, err := a.cfg.ExportOptions()
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			files, err := export.Export(cmd.Context(), st, args[0], a.cfg.Export.Dir, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var total uint64
			for _, f := range files {
				fmt.Fprintf(out, "%-14s %10s rows %10s  %s\n", f.Table,
					humanize.Comma(f.Rows), humanize.Bytes(uint64(f.Bytes)), f.Path)
				total += uint64(f.Bytes)
			}
			fmt.Fprintf(out, "%d files, %s (%s)\n", len(files), humanize.Bytes(total), opts.Compression)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "output directory (overrides config)")
	cmd.Flags().StringVar(&compression, "compression", "", "zstd, snappy, lz4, gzip or none (overrides config)")
	return cmd
}

// =============================================================================
// stats
// =============================================================================

func newStatsCmd(a *app) *cobra.Command {
	var estimated bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show row counts of the metastore tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			counts, err := st.TableCounts(ctx, estimated)
			if err != nil {
				return err
			}
			state, err := sync.LoadSyncState(ctx, st)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, table := range store.Tables {
				fmt.Fprintf(out, "%-16s %12s\n", table, humanize.Comma(counts[table]))
			}
			if estimated {
				fmt.Fprintln(out, "(estimated from table statistics)")
			}

			fmt.Fprintf(out, "\nimports: %d", state.RunCount)
			if state.LastRunAt != nil {
				fmt.Fprintf(out, ", last %s (%s)", state.LastRunID, humanize.Time(*state.LastRunAt))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&estimated, "estimated", false, "read counts from table statistics instead of scanning")
	return cmd
}

// =============================================================================
// runs
// =============================================================================

func newRunsCmd(a *app) *cobra.Command {
	var dataset string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListImportRuns(cmd.Context(), dataset, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no import runs")
				return nil
			}
			fmt.Fprintf(out, "%-36s %-16s %-12s %-12s %8s %8s %8s %8s  %s\n",
				"RUN", "DATASET", "SECTIONS", "POLICY", "CREATED", "UPDATED", "SKIPPED", "WARN", "STARTED")
			for _, r := range runs {
				sections := r.Sections
				if sections == "" {
					sections = "all"
				}
				fmt.Fprintf(out, "%-36s %-16s %-12s %-12s %8d %8d %8d %8d  %s%s\n",
					r.ID, r.Dataset, sections, r.Policy,
					r.Created, r.Updated, r.Skipped, r.Warnings,
					humanize.Time(r.StartedAt), runStatus(r))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "only list runs of this dataset")
	cmd.Flags().IntVar(&limit, "limit", config.DefaultRunHistory, "maximum number of runs (0 lists all)")
	return cmd
}

func runStatus(r *store.ImportRun) string {
	switch {
	case r.Error != "":
		return "  failed: " + r.Error
	case r.FinishedAt == nil:
		return "  unfinished"
	default:
		return fmt.Sprintf("  took %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
}

// =============================================================================
// cache
// =============================================================================

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the parsed volume cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <volume...>",
		Short: "Remove the cache entries of volumes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := volume.NewCache(a.cfg.Cache.Dir)
			for _, arg := range args {
				xmlPath, err := importer.ResolveVolumePath(arg)
				if err != nil {
					return err
				}
				if err := cache.Clear(xmlPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cache.Path(xmlPath))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "warm <volume...>",
		Short: "Parse volumes and store their cache entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := volume.NewCache(a.cfg.Cache.Dir)
			for _, arg := range args {
				xmlPath, err := importer.ResolveVolumePath(arg)
				if err != nil {
					return err
				}
				v, err := volume.LoadXML(xmlPath)
				if err != nil {
					return err
				}
				if err := cache.Store(xmlPath, v); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cached %s (%s)\n", v.Name, cache.Path(xmlPath))
			}
			return nil
		},
	})

	return cmd
}
