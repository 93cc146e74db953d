// Package logging provides structured logging for volimport.
//
// It wraps log/slog with one process-wide logger. Output goes to stdout or
// to a size-rotated file, as text or JSON. Component loggers tag every
// entry with the emitting package; context helpers add the import run,
// dataset and section being worked on.
//
//	closer := logging.InitFile(logging.FileConfig{Path: "import.log"}, slog.LevelDebug, true)
//	defer closer.Close()
//
//	log := logging.Component("importer")
//	log.Info("pass completed", "pass", "tiles", "created", 120)
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

// Logger is the global logger instance. It is set up lazily with text
// output at info level if no Init function ran first.
var Logger *slog.Logger

// Init logs to stdout.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stdout, level, jsonFormat)
}

// InitWriter logs to w. Debug level adds source locations.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// FileConfig configures a rotating log file.
type FileConfig struct {
	// Path of the active log file. Empty keeps logging on stdout.
	Path string

	// MaxSizeMB is the size in megabytes at which the file is rotated.
	MaxSizeMB int

	// MaxAgeDays is how long rotated files are retained.
	MaxAgeDays int
}

// InitFile logs to the rotating file of cfg and returns its closer. With
// an empty path it logs to stdout and returns a no-op closer.
func InitFile(cfg FileConfig, level slog.Level, jsonFormat bool) io.Closer {
	if cfg.Path == "" {
		Init(level, jsonFormat)
		return io.NopCloser(nil)
	}

	f := &lumberjack.Logger{
		Filename: cfg.Path,
		MaxSize:  cfg.MaxSizeMB,
		MaxAge:   cfg.MaxAgeDays,
	}
	InitWriter(f, level, jsonFormat)
	return f
}

// ParseLevel maps a config string to a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func global() *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger
}

// Component returns a logger whose entries carry component=name.
func Component(name string) *slog.Logger {
	return global().With("component", name)
}

// =============================================================================
// Context
// =============================================================================

type contextKey int

const (
	contextKeyRunID contextKey = iota
	contextKeyDataset
	contextKeySection
)

// WithContext returns the global logger tagged with the run id, dataset
// and section stored in ctx, where present.
func WithContext(ctx context.Context) *slog.Logger {
	var attrs []any
	if v, ok := ctx.Value(contextKeyRunID).(string); ok {
		attrs = append(attrs, "run_id", v)
	}
	if v, ok := ctx.Value(contextKeyDataset).(string); ok {
		attrs = append(attrs, "dataset", v)
	}
	if v, ok := ctx.Value(contextKeySection).(int); ok {
		attrs = append(attrs, "section", v)
	}

	l := global()
	if len(attrs) > 0 {
		l = l.With(attrs...)
	}
	return l
}

// ContextWithRunID stores an import run id for WithContext.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKeyRunID, runID)
}

// ContextWithDataset stores a dataset name for WithContext.
func ContextWithDataset(ctx context.Context, dataset string) context.Context {
	return context.WithValue(ctx, contextKeyDataset, dataset)
}

// ContextWithSection stores a section number for WithContext.
func ContextWithSection(ctx context.Context, section int) context.Context {
	return context.WithValue(ctx, contextKeySection, section)
}
