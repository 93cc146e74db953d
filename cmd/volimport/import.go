package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xtxerr/volimport/internal/importer"
	"github.com/xtxerr/volimport/internal/stats"
	"github.com/xtxerr/volimport/internal/sync"
	"github.com/xtxerr/volimport/internal/validation"
)

type importFlags struct {
	dataset  string
	sections string
	policy   string
	dryRun   bool
	noCache  bool
}

func newImportCmd(a *app) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   "import [volume...]",
		Short: "Import volume XML files into the metastore",
		Long: `Imports each named volume XML file or directory. Without arguments the
volumes listed in the config file are imported.

Re-running an import on unchanged input writes nothing. Use --dry-run to
see what would be created or updated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args, f)
		},
	}

	cmd.Flags().StringVar(&f.dataset, "dataset", "", "dataset name (default: volume name)")
	cmd.Flags().StringVar(&f.sections, "sections", "", `section numbers to import, e.g. "691-695,700"`)
	cmd.Flags().StringVar(&f.policy, "policy", "", "policy for every reconciler: merge, create-only, ignore")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "compute changes without writing")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "parse the volume XML even when a cache exists")

	return cmd
}

func (a *app) runImport(cmd *cobra.Command, args []string, f importFlags) error {
	jobs, err := a.importJobs(args, f)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no volume given and none configured in %s", a.flags.configPath)
	}

	icfg, err := a.cfg.ImporterConfig()
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	im := importer.New(st, a.volumeCache(), icfg)
	out := cmd.OutOrStdout()
	for _, job := range jobs {
		res, err := im.Import(cmd.Context(), job)
		if res != nil {
			printResult(out, res)
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", job.VolumePath, err)
		}
	}

	if len(jobs) > 1 {
		fmt.Fprintf(out, "All %d imports\n", len(jobs))
		printTimings(out, im.Timings())
	}
	return nil
}

// importJobs builds the imports to run. Flags apply to every job.
func (a *app) importJobs(args []string, f importFlags) ([]importer.Options, error) {
	var jobs []importer.Options
	if len(args) == 0 {
		var err error
		if jobs, err = a.cfg.ImportJobs(); err != nil {
			return nil, err
		}
	} else {
		for _, path := range args {
			jobs = append(jobs, importer.Options{VolumePath: path})
		}
	}

	sections, err := validation.ParseSections(f.sections)
	if err != nil {
		return nil, err
	}
	var policy sync.Policy
	if f.policy != "" {
		if policy, err = sync.ParsePolicy(f.policy); err != nil {
			return nil, err
		}
	}
	if f.dataset != "" {
		if err := validation.ValidateDatasetName(f.dataset); err != nil {
			return nil, err
		}
	}

	for i := range jobs {
		if f.dataset != "" {
			jobs[i].Dataset = f.dataset
		}
		if sections != nil {
			jobs[i].Sections = sections
		}
		if policy != "" {
			jobs[i].Policy = policy
		}
		jobs[i].DryRun = f.dryRun
		jobs[i].NoCache = f.noCache
	}
	return jobs, nil
}

// printResult writes the run report of one import.
func printResult(w io.Writer, res *importer.Result) {
	mode := ""
	if res.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Imported %s into %s%s\n", res.VolumePath, res.Dataset, mode)
	fmt.Fprintf(w, "  run:      %s\n", res.RunID)
	fmt.Fprintf(w, "  duration: %s\n", res.Duration.Round(time.Millisecond))
	if res.VolumeUnchanged {
		fmt.Fprintln(w, "  volume unchanged since last import")
	}

	if res.Sync != nil {
		names := make([]string, 0, len(res.Sync.Sections))
		for name := range res.Sync.Sections {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "  %-22s %-12s %10s %10s %10s\n", "SECTION", "POLICY", "CREATED", "UPDATED", "SKIPPED")
		for _, name := range names {
			sec := res.Sync.Sections[name]
			fmt.Fprintf(w, "  %-22s %-12s %10s %10s %10s\n", name, sec.Policy,
				humanize.Comma(int64(sec.Created)),
				humanize.Comma(int64(sec.Updated)),
				humanize.Comma(int64(sec.Skipped)))
		}
		fmt.Fprintf(w, "  %-22s %-12s %10s %10s %10s\n", "total", "",
			humanize.Comma(int64(res.Sync.TotalCreated)),
			humanize.Comma(int64(res.Sync.TotalUpdated)),
			humanize.Comma(int64(res.Sync.TotalSkipped)))
	}

	printTimings(w, res.Timings)

	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "  %d warnings:\n", len(res.Warnings))
		for _, warning := range res.Warnings {
			fmt.Fprintf(w, "    %s\n", warning)
		}
	}
}

func printTimings(w io.Writer, summaries []stats.Summary) {
	for _, s := range summaries {
		fmt.Fprintf(w, "  timing %-8s n=%d avg=%s p50=%s p90=%s p99=%s max=%s\n",
			s.Phase, s.Count, s.Avg, s.P50, s.P90, s.P99, s.Max)
	}
}
