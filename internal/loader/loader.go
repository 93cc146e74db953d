// Package loader handles configuration file loading, validation, and
// conversion into the settings of the store, importer and exporter.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Processing include directives
//   - Converting between YAML and internal representations

package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/export"
	"github.com/xtxerr/volimport/internal/logging"
	"github.com/xtxerr/volimport/internal/store"
	"github.com/xtxerr/volimport/internal/sync"
	"github.com/xtxerr/volimport/internal/validation"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	if err := processIncludes(cfg, baseDir); err != nil {
		return nil, err
	}
	resolveVolumePaths(cfg.Volumes, baseDir)

	return cfg, nil
}

// Parse parses YAML configuration on top of the defaults. Environment
// variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// processIncludes loads and merges included configuration files.
func processIncludes(cfg *Config, baseDir string) error {
	for _, pattern := range cfg.Include {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			if err := loadInclude(cfg, match); err != nil {
				return fmt.Errorf("load include %q: %w", match, err)
			}
		}
	}

	return nil
}

// loadInclude appends the volumes of one include file. Volume paths are
// relative to the include file.
func loadInclude(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial struct {
		Volumes []*VolumeConfig `yaml:"volumes"`
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &partial); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	resolveVolumePaths(partial.Volumes, filepath.Dir(path))
	cfg.Volumes = append(cfg.Volumes, partial.Volumes...)
	return nil
}

func resolveVolumePaths(volumes []*VolumeConfig, baseDir string) {
	for _, v := range volumes {
		if v != nil && v.XML != "" && !filepath.IsAbs(v.XML) {
			v.XML = filepath.Join(baseDir, v.XML)
		}
	}
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if cfg.Metastore.Path == "" {
		errs.AddField("metastore.path", "cannot be empty")
	}
	if cfg.Metastore.MaxOpenConns < 0 {
		errs.AddField("metastore.max_open_conns", "cannot be negative")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs.AddField("logging.level", "must be one of debug, info, warn, error")
	}
	switch cfg.Logging.Format {
	case "", "text", "json":
	default:
		errs.AddField("logging.format", "must be text or json")
	}

	if cfg.Sync != nil {
		if _, err := sync.ParsePolicy(cfg.Sync.Default); err != nil {
			errs.Add(fmt.Errorf("sync.default: %w", err))
		}
		for path, p := range cfg.Sync.Policies {
			if _, err := sync.ParsePolicy(p); err != nil {
				errs.Add(fmt.Errorf("sync.policies.%s: %w", path, err))
			}
		}
	}

	if cfg.Import.BatchSize < 0 {
		errs.AddField("import.batch_size", "cannot be negative")
	}

	for i, v := range cfg.Volumes {
		field := fmt.Sprintf("volumes[%d]", i)
		if v == nil || v.XML == "" {
			errs.AddMissing(field + ".xml")
			continue
		}
		if v.Dataset != "" {
			if err := validation.ValidateDatasetName(v.Dataset); err != nil {
				errs.Add(fmt.Errorf("%s.dataset: %w", field, err))
			}
		}
		if _, err := validation.ParseSections(v.Sections); err != nil {
			errs.Add(fmt.Errorf("%s.sections: %w", field, err))
		}
		if v.Policy != "" {
			if _, err := sync.ParsePolicy(v.Policy); err != nil {
				errs.Add(fmt.Errorf("%s.policy: %w", field, err))
			}
		}
	}

	if _, err := export.ParseCompressionType(cfg.Export.Compression); err != nil {
		errs.Add(fmt.Errorf("export.compression: %w", err))
	}

	if cfg.Stats.Accuracy <= 0 || cfg.Stats.Accuracy >= 1 {
		errs.AddField("stats.accuracy", "must be between 0 and 1")
	}

	return errs.Err()
}

// =============================================================================
// Conversion
// =============================================================================

// StoreConfig converts the metastore section.
func (c *Config) StoreConfig() store.Config {
	cfg := store.DefaultConfig()
	cfg.DSN = c.Metastore.Path
	if c.Metastore.MaxOpenConns > 0 {
		cfg.MaxOpenConns = c.Metastore.MaxOpenConns
	}
	if c.Metastore.MaxIdleConns > 0 {
		cfg.MaxIdleConns = c.Metastore.MaxIdleConns
	}
	if c.Metastore.ConnMaxLifetime > 0 {
		cfg.ConnMaxLifetime = c.Metastore.ConnMaxLifetime.Duration()
	}
	if c.Metastore.QueryTimeout > 0 {
		cfg.QueryTimeout = c.Metastore.QueryTimeout.Duration()
	}
	return cfg
}

// LogFileConfig converts the logging section.
func (c *Config) LogFileConfig() logging.FileConfig {
	return logging.FileConfig{
		Path:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSize.Megabytes(),
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}

// ExportOptions converts the export section.
func (c *Config) ExportOptions() (export.Options, error) {
	opts := export.DefaultOptions()
	ct, err := export.ParseCompressionType(c.Export.Compression)
	if err != nil {
		return opts, err
	}
	opts.Compression = ct
	return opts, nil
}
