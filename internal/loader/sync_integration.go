// Package loader - Sync Integration
//
// Connects the YAML configuration to the importer and its sync engine.

package loader

import (
	"fmt"

	"github.com/xtxerr/volimport/internal/importer"
	"github.com/xtxerr/volimport/internal/sync"
	"github.com/xtxerr/volimport/internal/validation"
)

// =============================================================================
// Importer Configuration
// =============================================================================

// ImporterConfig converts the sync, import and stats sections.
func (c *Config) ImporterConfig() (importer.Config, error) {
	cfg := importer.DefaultConfig()
	if c.Import.BatchSize > 0 {
		cfg.BatchSize = c.Import.BatchSize
	}
	if c.Stats.Accuracy > 0 {
		cfg.SketchAccuracy = c.Stats.Accuracy
	}

	if c.Sync == nil {
		return cfg, nil
	}

	def, err := sync.ParsePolicy(c.Sync.Default)
	if err != nil {
		return cfg, fmt.Errorf("sync.default: %w", err)
	}
	cfg.DefaultPolicy = def

	if len(c.Sync.Policies) > 0 {
		cfg.Policies = make(map[string]sync.Policy, len(c.Sync.Policies))
		for path, s := range c.Sync.Policies {
			p, err := sync.ParsePolicy(s)
			if err != nil {
				return cfg, fmt.Errorf("sync.policies.%s: %w", path, err)
			}
			cfg.Policies[path] = p
		}
	}

	return cfg, nil
}

// =============================================================================
// Import Jobs
// =============================================================================

// ImportJobs converts the configured volumes into importer options.
func (c *Config) ImportJobs() ([]importer.Options, error) {
	jobs := make([]importer.Options, 0, len(c.Volumes))
	for i, v := range c.Volumes {
		if v == nil {
			continue
		}
		opts, err := v.Options()
		if err != nil {
			return nil, fmt.Errorf("volumes[%d]: %w", i, err)
		}
		jobs = append(jobs, opts)
	}
	return jobs, nil
}

// Options converts one volume entry.
func (v *VolumeConfig) Options() (importer.Options, error) {
	sections, err := validation.ParseSections(v.Sections)
	if err != nil {
		return importer.Options{}, err
	}

	opts := importer.Options{
		VolumePath: v.XML,
		Dataset:    v.Dataset,
		Sections:   sections,
	}
	if v.Policy != "" {
		p, err := sync.ParsePolicy(v.Policy)
		if err != nil {
			return importer.Options{}, err
		}
		opts.Policy = p
	}
	return opts, nil
}
