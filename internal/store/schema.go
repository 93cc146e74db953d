package store

import (
	"context"
	"fmt"

	"github.com/xtxerr/volimport/internal/logging"
)

// Tables lists every table owned by the store, in creation order.
var Tables = []string{
	"datasets",
	"channels",
	"filters",
	"bounding_boxes",
	"coord_spaces",
	"data2d",
	"mappings",
	"import_runs",
	"sync_state",
}

// =============================================================================
// Schema Migration
// =============================================================================

// Migrate creates all tables, sequences and indices.
//
// This is idempotent - safe to run multiple times.
//
// Foreign keys are not declared: DuckDB rejects updates of rows that are
// referenced by a foreign key, and re-import updates rows in place.
func (s *Store) Migrate(ctx context.Context) error {
	log := logging.Component("store")

	migrations := []struct {
		name string
		sql  string
	}{
		{
			name: "datasets",
			sql: `CREATE TABLE IF NOT EXISTS datasets (
				name VARCHAR PRIMARY KEY,
				path VARCHAR NOT NULL,
				created_at TIMESTAMP DEFAULT now(),
				updated_at TIMESTAMP DEFAULT now()
			)`,
		},
		{
			name: "channels",
			sql: `CREATE TABLE IF NOT EXISTS channels (
				dataset VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				created_at TIMESTAMP DEFAULT now(),
				PRIMARY KEY (dataset, name)
			)`,
		},
		{
			name: "filters",
			sql: `CREATE TABLE IF NOT EXISTS filters (
				dataset VARCHAR NOT NULL,
				channel VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				created_at TIMESTAMP DEFAULT now(),
				PRIMARY KEY (dataset, channel, name)
			)`,
		},

		// Bounding boxes have a surrogate id; each row is owned by exactly
		// one referrer column and updated in place.
		{
			name: "bounding_box_seq",
			sql:  `CREATE SEQUENCE IF NOT EXISTS bounding_box_seq START 1`,
		},
		{
			name: "bounding_boxes",
			sql: `CREATE TABLE IF NOT EXISTS bounding_boxes (
				id BIGINT PRIMARY KEY DEFAULT nextval('bounding_box_seq'),
				min_x DOUBLE NOT NULL,
				min_y DOUBLE NOT NULL,
				min_z DOUBLE,
				max_x DOUBLE NOT NULL,
				max_y DOUBLE NOT NULL,
				max_z DOUBLE
			)`,
		},
		{
			name: "coord_spaces",
			sql: `CREATE TABLE IF NOT EXISTS coord_spaces (
				dataset VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				bounds_id BIGINT,
				x_scale DOUBLE,
				x_units VARCHAR,
				y_scale DOUBLE,
				y_units VARCHAR,
				z_scale DOUBLE,
				z_units VARCHAR,
				created_at TIMESTAMP DEFAULT now(),
				updated_at TIMESTAMP DEFAULT now(),
				PRIMARY KEY (dataset, name)
			)`,
		},
		{
			name: "data2d",
			sql: `CREATE TABLE IF NOT EXISTS data2d (
				dataset VARCHAR NOT NULL,
				relative_path VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				image VARCHAR NOT NULL,
				channel VARCHAR NOT NULL,
				filter VARCHAR NOT NULL,
				level INTEGER NOT NULL,
				coord_space VARCHAR NOT NULL,
				width INTEGER NOT NULL,
				height INTEGER NOT NULL,
				created_at TIMESTAMP DEFAULT now(),
				updated_at TIMESTAMP DEFAULT now(),
				PRIMARY KEY (dataset, relative_path)
			)`,
		},
		{
			name: "mappings",
			sql: `CREATE TABLE IF NOT EXISTS mappings (
				dataset VARCHAR NOT NULL,
				src_space VARCHAR NOT NULL,
				dest_space VARCHAR NOT NULL,
				src_bounds_id BIGINT,
				dest_bounds_id BIGINT,
				transform VARCHAR NOT NULL,
				created_at TIMESTAMP DEFAULT now(),
				updated_at TIMESTAMP DEFAULT now(),
				PRIMARY KEY (dataset, src_space, dest_space)
			)`,
		},
		{
			name: "import_runs",
			sql: `CREATE TABLE IF NOT EXISTS import_runs (
				id VARCHAR PRIMARY KEY,
				dataset VARCHAR NOT NULL,
				volume_path VARCHAR NOT NULL,
				sections VARCHAR,
				policy VARCHAR,
				dry_run BOOLEAN DEFAULT false,
				created INTEGER DEFAULT 0,
				updated INTEGER DEFAULT 0,
				skipped INTEGER DEFAULT 0,
				warnings INTEGER DEFAULT 0,
				error VARCHAR,
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP
			)`,
		},

		// Sync state (singleton)
		{
			name: "sync_state",
			sql: `CREATE TABLE IF NOT EXISTS sync_state (
				id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
				last_run_id VARCHAR,
				last_run_at TIMESTAMP,
				last_volume_hash UBIGINT,
				run_count INTEGER DEFAULT 0
			)`,
		},
		{
			name: "sync_state.init",
			sql:  `INSERT INTO sync_state (id) VALUES (1) ON CONFLICT DO NOTHING`,
		},

		// Indexed columns are never updated; DuckDB rewrites such updates
		// as delete+insert.
		{
			name: "idx_import_runs_dataset",
			sql:  `CREATE INDEX IF NOT EXISTS idx_import_runs_dataset ON import_runs(dataset, started_at)`,
		},
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		log.Debug("migration applied", "name", m.name)
	}

	log.Debug("schema migration completed", "migrations", len(migrations))
	return nil
}
