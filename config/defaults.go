// Package config provides configuration defaults and utilities
// for the volimport application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via volimport.yaml or command line flags.
package config

import "time"

// =============================================================================
// Metastore Defaults
// =============================================================================

const (
	// DefaultMetastorePath is the DuckDB database file imports are written to.
	// Override via config: metastore.path
	DefaultMetastorePath = "volumes.db"

	// DefaultMaxOpenConns limits open connections to the metastore.
	// DuckDB serializes writers, so a small pool is enough.
	// Override via config: metastore.max_open_conns
	DefaultMaxOpenConns = 4

	// DefaultMaxIdleConns is the idle connection pool size.
	// Override via config: metastore.max_idle_conns
	DefaultMaxIdleConns = 2

	// DefaultConnMaxLifetime is the maximum lifetime of a pooled connection.
	// Override via config: metastore.conn_max_lifetime
	DefaultConnMaxLifetime = 5 * time.Minute

	// DefaultQueryTimeout bounds opening the metastore and applying its schema.
	// Override via config: metastore.query_timeout
	DefaultQueryTimeout = 30 * time.Second
)

// =============================================================================
// Import Defaults
// =============================================================================

const (
	// DefaultBatchSize is the number of rows per bulk create/update batch.
	// Large pyramids produce tens of thousands of Data2D rows per level.
	// Override via config: import.batch_size
	DefaultBatchSize = 1000

	// DefaultVolumeFile is the file name looked up when a directory is given
	// instead of a volume XML path, and when following *_Link elements.
	DefaultVolumeFile = "VolumeData.xml"

	// DefaultMosaicExt is the transform file extension imported as mosaics.
	DefaultMosaicExt = ".mosaic"

	// DefaultSectionDigits is the zero padding of section numbers in
	// coordinate space names ("0691.TEM.Grid").
	DefaultSectionDigits = 4
)

// =============================================================================
// Cache Defaults
// =============================================================================

const (
	// DefaultCacheFile is the name of the parsed volume cache file written
	// next to the volume XML when cache.dir is empty.
	// Override via config: cache.dir
	DefaultCacheFile = "vol_model.cache"

	// DefaultCacheEnabled controls whether the parsed volume tree is cached.
	// Override via config: cache.enabled
	DefaultCacheEnabled = true
)

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is the minimum level written.
	// Override via config: logging.level
	DefaultLogLevel = "info"

	// DefaultLogMaxSize is the size at which the log file is rotated.
	// Only used when logging.file is set.
	// Override via config: logging.max_size
	DefaultLogMaxSize = "100MB"

	// DefaultLogMaxAgeDays is how long rotated log files are kept.
	// Override via config: logging.max_age_days
	DefaultLogMaxAgeDays = 28
)

// =============================================================================
// Stats and Export Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the relative accuracy of timing quantiles
	// reported at the end of an import.
	// Override via config: stats.accuracy
	DefaultSketchAccuracy = 0.01

	// DefaultExportCompression is the Parquet codec used by `volimport export`.
	// Override via config: export.compression
	DefaultExportCompression = "zstd"

	// DefaultRunHistory is how many import runs `volimport runs` lists.
	DefaultRunHistory = 20
)
