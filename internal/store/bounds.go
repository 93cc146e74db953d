package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xtxerr/volimport/internal/geometry"
)

// =============================================================================
// Bounding Box Rows
// =============================================================================

// insertBox stores b and returns its id.
func insertBox(ctx context.Context, tx *sql.Tx, b geometry.Box) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO bounding_boxes (min_x, min_y, min_z, max_x, max_y, max_z)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, b.MinX, b.MinY, nullFloat(b.MinZ), b.MaxX, b.MaxY, nullFloat(b.MaxZ)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert bounding box: %w", err)
	}
	return id, nil
}

// updateBox overwrites the box with the given id.
func updateBox(ctx context.Context, tx *sql.Tx, id int64, b geometry.Box) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bounding_boxes
		SET min_x = ?, min_y = ?, min_z = ?, max_x = ?, max_y = ?, max_z = ?
		WHERE id = ?
	`, b.MinX, b.MinY, nullFloat(b.MinZ), b.MaxX, b.MaxY, nullFloat(b.MaxZ), id)
	if err != nil {
		return fmt.Errorf("update bounding box %d: %w", id, err)
	}
	return nil
}

// saveBox writes box into the row owned by id, inserting a row when the
// owner has none yet. A nil box leaves the owner's row untouched.
func saveBox(ctx context.Context, tx *sql.Tx, id *int64, box *geometry.Box) (*int64, error) {
	if box == nil {
		return id, nil
	}
	if id != nil {
		if err := updateBox(ctx, tx, *id, *box); err != nil {
			return nil, err
		}
		return id, nil
	}

	newID, err := insertBox(ctx, tx, *box)
	if err != nil {
		return nil, err
	}
	return &newID, nil
}

// =============================================================================
// Scan Helpers
// =============================================================================

// boxColumns scans the columns of a LEFT JOINed bounding_boxes row.
type boxColumns struct {
	id               sql.NullInt64
	minX, minY, minZ sql.NullFloat64
	maxX, maxY, maxZ sql.NullFloat64
}

func (c *boxColumns) dest() []any {
	return []any{&c.id, &c.minX, &c.minY, &c.minZ, &c.maxX, &c.maxY, &c.maxZ}
}

func (c *boxColumns) box() (*int64, *geometry.Box) {
	if !c.id.Valid {
		return nil, nil
	}

	id := c.id.Int64
	b := &geometry.Box{
		MinX: c.minX.Float64,
		MinY: c.minY.Float64,
		MaxX: c.maxX.Float64,
		MaxY: c.maxY.Float64,
	}
	if c.minZ.Valid {
		b.MinZ = geometry.Z(c.minZ.Float64)
	}
	if c.maxZ.Valid {
		b.MaxZ = geometry.Z(c.maxZ.Float64)
	}
	return &id, b
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
