package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// =============================================================================
// Dataset Types
// =============================================================================

// Dataset is a collection of data and coordinate spaces from one
// experiment. Its name is the natural key.
type Dataset struct {
	Name      string
	Path      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// CRUD Operations
// =============================================================================

// GetDataset retrieves a dataset by name. It returns nil if absent.
func (s *Store) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	d := &Dataset{}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, path, created_at, updated_at
		FROM datasets WHERE name = ?
	`, name).Scan(&d.Name, &d.Path, &d.CreatedAt, &d.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	return d, nil
}

// ListDatasets returns datasets ordered by name. A non-empty name
// restricts the result to that dataset.
func (s *Store) ListDatasets(ctx context.Context, name string) ([]*Dataset, error) {
	query := `SELECT name, path, created_at, updated_at FROM datasets`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d := &Dataset{}
		if err := rows.Scan(&d.Name, &d.Path, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// BulkCreateDatasets inserts datasets in one transaction.
func (s *Store) BulkCreateDatasets(ctx context.Context, datasets []*Dataset) error {
	now := time.Now()
	return runBulk(ctx, s, datasets, bulkOp[*Dataset]{
		query: `INSERT INTO datasets (name, path, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		args: func(_ *sql.Tx, d *Dataset) ([]any, error) {
			d.CreatedAt, d.UpdatedAt = now, now
			return []any{d.Name, d.Path, now, now}, nil
		},
		key: datasetKey,
	})
}

// BulkUpdateDatasets rewrites the path of existing datasets.
func (s *Store) BulkUpdateDatasets(ctx context.Context, datasets []*Dataset) error {
	now := time.Now()
	return runBulk(ctx, s, datasets, bulkOp[*Dataset]{
		query: `UPDATE datasets SET path = ?, updated_at = ? WHERE name = ?`,
		args: func(_ *sql.Tx, d *Dataset) ([]any, error) {
			d.UpdatedAt = now
			return []any{d.Path, now, d.Name}, nil
		},
		key: datasetKey,
	})
}

func datasetKey(d *Dataset) string { return "dataset " + d.Name }
