package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xtxerr/volimport/internal/geometry"
)

// Mapping2D is a directed transform from one coordinate space into
// another. At most one mapping exists per (SrcSpace, DestSpace) pair.
type Mapping2D struct {
	Dataset   string
	SrcSpace  string
	DestSpace string

	SrcBoundsID  *int64
	SrcBounds    *geometry.Box
	DestBoundsID *int64
	DestBounds   *geometry.Box

	// Transform is stored verbatim and never interpreted here.
	Transform string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListMappings returns all mappings of a dataset.
func (s *Store) ListMappings(ctx context.Context, dataset string) ([]*Mapping2D, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.dataset, m.src_space, m.dest_space, m.transform, m.created_at, m.updated_at,
		       sb.id, sb.min_x, sb.min_y, sb.min_z, sb.max_x, sb.max_y, sb.max_z,
		       db.id, db.min_x, db.min_y, db.min_z, db.max_x, db.max_y, db.max_z
		FROM mappings m
		LEFT JOIN bounding_boxes sb ON sb.id = m.src_bounds_id
		LEFT JOIN bounding_boxes db ON db.id = m.dest_bounds_id
		WHERE m.dataset = ?
		ORDER BY m.dest_space, m.src_space
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var out []*Mapping2D
	for rows.Next() {
		m := &Mapping2D{}
		var src, dest boxColumns

		dst := []any{&m.Dataset, &m.SrcSpace, &m.DestSpace, &m.Transform, &m.CreatedAt, &m.UpdatedAt}
		dst = append(dst, src.dest()...)
		dst = append(dst, dest.dest()...)
		if err := rows.Scan(dst...); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}

		m.SrcBoundsID, m.SrcBounds = src.box()
		m.DestBoundsID, m.DestBounds = dest.box()
		out = append(out, m)
	}
	return out, rows.Err()
}

// BulkCreateMappings inserts mappings and their bounding boxes in one
// transaction.
func (s *Store) BulkCreateMappings(ctx context.Context, mappings []*Mapping2D) error {
	now := time.Now()
	return runBulk(ctx, s, mappings, bulkOp[*Mapping2D]{
		query: `
			INSERT INTO mappings (dataset, src_space, dest_space, src_bounds_id, dest_bounds_id,
			                      transform, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		args: func(tx *sql.Tx, m *Mapping2D) ([]any, error) {
			if err := saveMappingBoxes(ctx, tx, m); err != nil {
				return nil, err
			}
			m.CreatedAt, m.UpdatedAt = now, now
			return []any{m.Dataset, m.SrcSpace, m.DestSpace,
				nullInt64(m.SrcBoundsID), nullInt64(m.DestBoundsID),
				m.Transform, now, now}, nil
		},
		key: mappingKey,
	})
}

// BulkUpdateMappings replaces the transform and both bounding boxes of
// existing mappings. Owned box rows are updated in place.
func (s *Store) BulkUpdateMappings(ctx context.Context, mappings []*Mapping2D) error {
	now := time.Now()
	return runBulk(ctx, s, mappings, bulkOp[*Mapping2D]{
		query: `
			UPDATE mappings
			SET src_bounds_id = ?, dest_bounds_id = ?, transform = ?, updated_at = ?
			WHERE dataset = ? AND src_space = ? AND dest_space = ?`,
		args: func(tx *sql.Tx, m *Mapping2D) ([]any, error) {
			if err := saveMappingBoxes(ctx, tx, m); err != nil {
				return nil, err
			}
			m.UpdatedAt = now
			return []any{nullInt64(m.SrcBoundsID), nullInt64(m.DestBoundsID), m.Transform, now,
				m.Dataset, m.SrcSpace, m.DestSpace}, nil
		},
		key: mappingKey,
	})
}

// saveMappingBoxes writes both boxes of m and records their row ids on m.
func saveMappingBoxes(ctx context.Context, tx *sql.Tx, m *Mapping2D) error {
	srcID, err := saveBox(ctx, tx, m.SrcBoundsID, m.SrcBounds)
	if err != nil {
		return fmt.Errorf("src: %w", err)
	}
	destID, err := saveBox(ctx, tx, m.DestBoundsID, m.DestBounds)
	if err != nil {
		return fmt.Errorf("dest: %w", err)
	}
	m.SrcBoundsID, m.DestBoundsID = srcID, destID
	return nil
}

func mappingKey(m *Mapping2D) string {
	return "mapping " + m.Dataset + "/" + m.SrcSpace + "->" + m.DestSpace
}
