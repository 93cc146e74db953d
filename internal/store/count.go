package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/xtxerr/volimport/internal/errors"
)

// Count returns the exact number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	if !slices.Contains(Tables, table) {
		return 0, errors.NewInvalidValue("table", table, "unknown table")
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// EstimatedCount returns the row count DuckDB keeps in its table
// statistics. It avoids a scan and may lag behind uncommitted or
// recently deleted rows.
func (s *Store) EstimatedCount(ctx context.Context, table string) (int64, error) {
	if !slices.Contains(Tables, table) {
		return 0, errors.NewInvalidValue("table", table, "unknown table")
	}

	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT estimated_size FROM duckdb_tables()
		WHERE table_name = ? AND schema_name = current_schema()
	`, table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("estimate %s: %w", table, err)
	}
	return n, nil
}

// TableCounts returns the row count of every store table.
func (s *Store) TableCounts(ctx context.Context, estimated bool) (map[string]int64, error) {
	count := s.Count
	if estimated {
		count = s.EstimatedCount
	}

	out := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		n, err := count(ctx, table)
		if err != nil {
			return nil, err
		}
		out[table] = n
	}
	return out, nil
}
