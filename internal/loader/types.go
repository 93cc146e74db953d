// Package loader - Configuration Types
//
// Defines the YAML configuration structure for volimport.
//
//	metastore:  DuckDB database the importer writes to
//	cache:      parsed volume cache
//	logging:    level, format, rotating file
//	sync:       default and per-section policies
//	import:     batch size
//	volumes:    volumes imported by `volimport import` without arguments
//	export:     Parquet export defaults
//	stats:      timing sketch accuracy
//	include:    additional files contributing volumes

package loader

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/xtxerr/volimport/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for volimport.
type Config struct {
	Metastore MetastoreConfig `yaml:"metastore"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Sync configures policies of the reconcilers.
	Sync *SyncConfig `yaml:"sync"`

	Import ImportConfig `yaml:"import"`

	// Volumes lists the volumes to import when none is named on the
	// command line.
	Volumes []*VolumeConfig `yaml:"volumes"`

	Export ExportConfig `yaml:"export"`
	Stats  StatsConfig  `yaml:"stats"`

	// Include lists additional config files whose volumes are appended.
	// Supports glob patterns. Relative to this file's directory.
	Include []string `yaml:"include"`
}

// =============================================================================
// Sections
// =============================================================================

// MetastoreConfig configures the DuckDB metastore.
type MetastoreConfig struct {
	// Path is the database file. ":memory:" opens a private database.
	// Default: "volumes.db"
	Path string `yaml:"path"`

	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// Default: 2
	MaxIdleConns int `yaml:"max_idle_conns"`

	// Default: 5m
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`

	// QueryTimeout bounds store calls made without a caller context.
	// Default: 30s
	QueryTimeout Duration `yaml:"query_timeout"`
}

// CacheConfig configures the parsed volume cache.
type CacheConfig struct {
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Dir holds cache files. Empty writes each cache next to its volume XML.
	Dir string `yaml:"dir"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "text" or "json".
	// Default: "text"
	Format string `yaml:"format"`

	// File enables a rotating log file instead of stdout.
	File string `yaml:"file"`

	// MaxSize is the rotation size, e.g. "100MB".
	// Default: "100MB"
	MaxSize ByteSize `yaml:"max_size"`

	// MaxAgeDays is how long rotated files are kept.
	// Default: 28
	MaxAgeDays int `yaml:"max_age_days"`
}

// SyncConfig holds reconciler policies.
type SyncConfig struct {
	// Default policy for reconcilers without an explicit policy.
	Default string `yaml:"default"`

	// Policies per reconciler path, e.g. "coord_spaces: create-only".
	Policies map[string]string `yaml:"policies"`
}

// ImportConfig configures the importer.
type ImportConfig struct {
	// BatchSize is the number of rows per bulk create or update.
	// Default: 1000
	BatchSize int `yaml:"batch_size"`
}

// VolumeConfig names one volume to import.
type VolumeConfig struct {
	// XML is the volume XML file or its directory.
	XML string `yaml:"xml"`

	// Dataset overrides the dataset name.
	Dataset string `yaml:"dataset"`

	// Sections restricts the import, e.g. "691-695,700".
	Sections string `yaml:"sections"`

	// Policy overrides the sync configuration for this volume.
	Policy string `yaml:"policy"`
}

// ExportConfig configures `volimport export`.
type ExportConfig struct {
	// Dir is the output directory.
	// Default: "export"
	Dir string `yaml:"dir"`

	// Compression is one of zstd, snappy, lz4, gzip, none.
	// Default: "zstd"
	Compression string `yaml:"compression"`
}

// StatsConfig configures the run report.
type StatsConfig struct {
	// Accuracy is the relative accuracy of timing quantiles.
	// Default: 0.01
	Accuracy float64 `yaml:"accuracy"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	maxSize, _ := humanize.ParseBytes(config.DefaultLogMaxSize)

	return &Config{
		Metastore: MetastoreConfig{
			Path:            config.DefaultMetastorePath,
			MaxOpenConns:    config.DefaultMaxOpenConns,
			MaxIdleConns:    config.DefaultMaxIdleConns,
			ConnMaxLifetime: Duration(config.DefaultConnMaxLifetime),
			QueryTimeout:    Duration(config.DefaultQueryTimeout),
		},
		Cache: CacheConfig{
			Enabled: config.DefaultCacheEnabled,
		},
		Logging: LoggingConfig{
			Level:      config.DefaultLogLevel,
			Format:     "text",
			MaxSize:    ByteSize(maxSize),
			MaxAgeDays: config.DefaultLogMaxAgeDays,
		},
		Sync: &SyncConfig{
			Default: "merge",
		},
		Import: ImportConfig{
			BatchSize: config.DefaultBatchSize,
		},
		Export: ExportConfig{
			Dir:         "export",
			Compression: config.DefaultExportCompression,
		},
		Stats: StatsConfig{
			Accuracy: config.DefaultSketchAccuracy,
		},
	}
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ByteSize is a size in bytes that can be unmarshaled from YAML.
// Accepts "100MB", "1 GiB", "500k" or plain bytes.
type ByteSize uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		var i uint64
		if err := unmarshal(&i); err != nil {
			return err
		}
		*b = ByteSize(i)
		return nil
	}
	if s == "" {
		*b = 0
		return nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("parse byte size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

// Bytes returns the size in bytes.
func (b ByteSize) Bytes() uint64 {
	return uint64(b)
}

// Megabytes returns the size rounded up to whole megabytes.
func (b ByteSize) Megabytes() int {
	const mb = 1000 * 1000
	return int((uint64(b) + mb - 1) / mb)
}

func (b ByteSize) String() string {
	return humanize.Bytes(uint64(b))
}
