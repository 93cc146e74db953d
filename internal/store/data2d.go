package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Data2D is one tile image at one pyramid level. RelativePath is the
// natural key within a dataset.
type Data2D struct {
	Dataset      string
	RelativePath string
	Name         string

	// Image is the absolute path of the file.
	Image string

	Channel    string
	Filter     string
	Level      int
	CoordSpace string
	Width      int
	Height     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListData2D returns all tile images of a dataset.
func (s *Store) ListData2D(ctx context.Context, dataset string) ([]*Data2D, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dataset, relative_path, name, image, channel, filter, level,
		       coord_space, width, height, created_at, updated_at
		FROM data2d WHERE dataset = ?
		ORDER BY relative_path
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query data2d: %w", err)
	}
	defer rows.Close()

	var out []*Data2D
	for rows.Next() {
		d := &Data2D{}
		if err := rows.Scan(
			&d.Dataset, &d.RelativePath, &d.Name, &d.Image, &d.Channel, &d.Filter, &d.Level,
			&d.CoordSpace, &d.Width, &d.Height, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan data2d: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// BulkCreateData2D inserts tile images in one transaction.
func (s *Store) BulkCreateData2D(ctx context.Context, items []*Data2D) error {
	now := time.Now()
	return runBulk(ctx, s, items, bulkOp[*Data2D]{
		query: `
			INSERT INTO data2d (dataset, relative_path, name, image, channel, filter, level,
			                    coord_space, width, height, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args: func(_ *sql.Tx, d *Data2D) ([]any, error) {
			d.CreatedAt, d.UpdatedAt = now, now
			return []any{d.Dataset, d.RelativePath, d.Name, d.Image, d.Channel, d.Filter, d.Level,
				d.CoordSpace, d.Width, d.Height, now, now}, nil
		},
		key: data2dKey,
	})
}

// BulkUpdateData2D rewrites every column but the key of existing images.
func (s *Store) BulkUpdateData2D(ctx context.Context, items []*Data2D) error {
	now := time.Now()
	return runBulk(ctx, s, items, bulkOp[*Data2D]{
		query: `
			UPDATE data2d
			SET name = ?, image = ?, channel = ?, filter = ?, level = ?,
			    coord_space = ?, width = ?, height = ?, updated_at = ?
			WHERE dataset = ? AND relative_path = ?`,
		args: func(_ *sql.Tx, d *Data2D) ([]any, error) {
			d.UpdatedAt = now
			return []any{d.Name, d.Image, d.Channel, d.Filter, d.Level,
				d.CoordSpace, d.Width, d.Height, now,
				d.Dataset, d.RelativePath}, nil
		},
		key: data2dKey,
	})
}

func data2dKey(d *Data2D) string { return "data2d " + d.Dataset + "/" + d.RelativePath }
