package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xtxerr/volimport/internal/geometry"
)

// =============================================================================
// Coordinate Space Types
// =============================================================================

// Scale is the physical size of one pixel along an axis.
type Scale struct {
	Value float64
	Units string
}

// CoordSpace is a named coordinate system: a tile, a section mosaic or a
// volume. Its name is unique within a dataset.
type CoordSpace struct {
	Dataset string
	Name    string

	// BoundsID is the bounding box row owned by this space.
	BoundsID *int64
	Bounds   *geometry.Box

	XScale *Scale
	YScale *Scale
	ZScale *Scale

	CreatedAt time.Time
	UpdatedAt time.Time
}

const coordSpaceColumns = `
	cs.dataset, cs.name,
	cs.x_scale, cs.x_units, cs.y_scale, cs.y_units, cs.z_scale, cs.z_units,
	cs.created_at, cs.updated_at,
	b.id, b.min_x, b.min_y, b.min_z, b.max_x, b.max_y, b.max_z
`

// =============================================================================
// CRUD Operations
// =============================================================================

// GetCoordSpace retrieves a coordinate space. It returns nil if absent.
func (s *Store) GetCoordSpace(ctx context.Context, dataset, name string) (*CoordSpace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+coordSpaceColumns+`
		FROM coord_spaces cs
		LEFT JOIN bounding_boxes b ON b.id = cs.bounds_id
		WHERE cs.dataset = ? AND cs.name = ?
	`, dataset, name)
	if err != nil {
		return nil, fmt.Errorf("query coord space: %w", err)
	}
	defer rows.Close()

	spaces, err := scanCoordSpaces(rows)
	if err != nil {
		return nil, err
	}
	if len(spaces) == 0 {
		return nil, nil
	}
	return spaces[0], nil
}

// ListCoordSpaces returns all coordinate spaces of a dataset.
func (s *Store) ListCoordSpaces(ctx context.Context, dataset string) ([]*CoordSpace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+coordSpaceColumns+`
		FROM coord_spaces cs
		LEFT JOIN bounding_boxes b ON b.id = cs.bounds_id
		WHERE cs.dataset = ?
		ORDER BY cs.name
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query coord spaces: %w", err)
	}
	defer rows.Close()

	return scanCoordSpaces(rows)
}

func scanCoordSpaces(rows *sql.Rows) ([]*CoordSpace, error) {
	var spaces []*CoordSpace
	for rows.Next() {
		cs := &CoordSpace{}
		var xs, ys, zs sql.NullFloat64
		var xu, yu, zu sql.NullString
		var box boxColumns

		dest := []any{
			&cs.Dataset, &cs.Name,
			&xs, &xu, &ys, &yu, &zs, &zu,
			&cs.CreatedAt, &cs.UpdatedAt,
		}
		if err := rows.Scan(append(dest, box.dest()...)...); err != nil {
			return nil, fmt.Errorf("scan coord space: %w", err)
		}

		cs.XScale = scanScale(xs, xu)
		cs.YScale = scanScale(ys, yu)
		cs.ZScale = scanScale(zs, zu)
		cs.BoundsID, cs.Bounds = box.box()

		spaces = append(spaces, cs)
	}
	return spaces, rows.Err()
}

func scanScale(v sql.NullFloat64, u sql.NullString) *Scale {
	if !v.Valid {
		return nil
	}
	return &Scale{Value: v.Float64, Units: u.String}
}

// scaleArgs returns the x, y and z scale columns as value/units pairs.
func (cs *CoordSpace) scaleArgs() []any {
	args := make([]any, 0, 6)
	for _, sc := range []*Scale{cs.XScale, cs.YScale, cs.ZScale} {
		if sc == nil {
			args = append(args, nil, nil)
			continue
		}
		args = append(args, sc.Value, nullString(sc.Units))
	}
	return args
}

// BulkCreateCoordSpaces inserts coordinate spaces and their bounding boxes
// in one transaction. BoundsID is set on return.
func (s *Store) BulkCreateCoordSpaces(ctx context.Context, spaces []*CoordSpace) error {
	now := time.Now()
	return runBulk(ctx, s, spaces, bulkOp[*CoordSpace]{
		query: `
			INSERT INTO coord_spaces (dataset, name, bounds_id,
			                          x_scale, x_units, y_scale, y_units, z_scale, z_units,
			                          created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args: func(tx *sql.Tx, cs *CoordSpace) ([]any, error) {
			boundsID, err := saveBox(ctx, tx, nil, cs.Bounds)
			if err != nil {
				return nil, err
			}
			cs.BoundsID = boundsID
			cs.CreatedAt, cs.UpdatedAt = now, now
			return append([]any{cs.Dataset, cs.Name, nullInt64(boundsID)},
				append(cs.scaleArgs(), now, now)...), nil
		},
		key: coordSpaceKey,
	})
}

// BulkUpdateCoordSpaces rewrites scales and bounds of existing coordinate
// spaces. A space that already owns a bounding box row has it updated in
// place.
func (s *Store) BulkUpdateCoordSpaces(ctx context.Context, spaces []*CoordSpace) error {
	now := time.Now()
	return runBulk(ctx, s, spaces, bulkOp[*CoordSpace]{
		query: `
			UPDATE coord_spaces
			SET bounds_id = ?,
			    x_scale = ?, x_units = ?, y_scale = ?, y_units = ?, z_scale = ?, z_units = ?,
			    updated_at = ?
			WHERE dataset = ? AND name = ?`,
		args: func(tx *sql.Tx, cs *CoordSpace) ([]any, error) {
			boundsID, err := saveBox(ctx, tx, cs.BoundsID, cs.Bounds)
			if err != nil {
				return nil, err
			}
			cs.BoundsID = boundsID
			cs.UpdatedAt = now
			args := append([]any{nullInt64(boundsID)}, cs.scaleArgs()...)
			return append(args, now, cs.Dataset, cs.Name), nil
		},
		key: coordSpaceKey,
	})
}

func coordSpaceKey(cs *CoordSpace) string { return "coord space " + cs.Dataset + "/" + cs.Name }
