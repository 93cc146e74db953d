// volimport imports microscopy volume descriptions into a DuckDB metastore.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/loader"
	"github.com/xtxerr/volimport/internal/logging"
	"github.com/xtxerr/volimport/internal/store"
	"github.com/xtxerr/volimport/internal/volume"
)

// Version is set at build time via ldflags
var Version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	logFile    string
}

// app holds the state built by the root command before a subcommand runs.
type app struct {
	flags  globalFlags
	cfg    *loader.Config
	logOut io.Closer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps err to the process exit status: 2 for bad input or
// configuration, 3 for a missing volume or dataset, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.IsValidation(err):
		return 2
	case errors.IsNotFound(err):
		return 3
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "volimport",
		Short:         "Import microscopy volumes into a DuckDB metastore",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logOut != nil {
				a.logOut.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "volimport.yaml", "config file path")
	pf.StringVar(&a.flags.dbPath, "db", "", "metastore database path (overrides config)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format: text or json (overrides config)")
	pf.StringVar(&a.flags.logFile, "log-file", "", "rotating log file (overrides config)")

	root.AddCommand(
		newImportCmd(a),
		newExportCmd(a),
		newStatsCmd(a),
		newRunsCmd(a),
		newCacheCmd(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and starts logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loader.Load(a.flags.configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = loader.DefaultConfig()
	default:
		return err
	}

	if a.flags.dbPath != "" {
		cfg.Metastore.Path = a.flags.dbPath
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.logFormat != "" {
		cfg.Logging.Format = a.flags.logFormat
	}
	if a.flags.logFile != "" {
		cfg.Logging.File = a.flags.logFile
	}

	if err := loader.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	a.logOut = logging.InitFile(cfg.LogFileConfig(), logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format == "json")
	logging.Component("main").Debug("configuration loaded",
		"version", Version,
		"config", a.flags.configPath,
		"metastore", cfg.Metastore.Path,
	)
	return nil
}

// openStore opens the configured metastore.
func (a *app) openStore() (*store.Store, error) {
	st, err := store.New(a.cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open metastore %s: %w", a.cfg.Metastore.Path, err)
	}
	return st, nil
}

// volumeCache returns the configured cache, or nil when it is disabled.
func (a *app) volumeCache() *volume.Cache {
	if !a.cfg.Cache.Enabled {
		return nil
	}
	return volume.NewCache(a.cfg.Cache.Dir)
}
