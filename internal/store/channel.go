package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// =============================================================================
// Channel and Filter Types
// =============================================================================

// Channel is an imaging modality within a dataset.
type Channel struct {
	Dataset   string
	Name      string
	CreatedAt time.Time
}

// Filter is a version of a channel with different intensity mapping.
type Filter struct {
	Dataset   string
	Channel   string
	Name      string
	CreatedAt time.Time
}

// =============================================================================
// Channel Operations
// =============================================================================

// ListChannels returns all channels of a dataset.
func (s *Store) ListChannels(ctx context.Context, dataset string) ([]*Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dataset, name, created_at
		FROM channels WHERE dataset = ? ORDER BY name
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		c := &Channel{}
		if err := rows.Scan(&c.Dataset, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// BulkCreateChannels inserts channels in one transaction.
func (s *Store) BulkCreateChannels(ctx context.Context, channels []*Channel) error {
	now := time.Now()
	return runBulk(ctx, s, channels, bulkOp[*Channel]{
		query: `INSERT INTO channels (dataset, name, created_at) VALUES (?, ?, ?)`,
		args: func(_ *sql.Tx, c *Channel) ([]any, error) {
			c.CreatedAt = now
			return []any{c.Dataset, c.Name, now}, nil
		},
		key: func(c *Channel) string { return "channel " + c.Dataset + "/" + c.Name },
	})
}

// =============================================================================
// Filter Operations
// =============================================================================

// ListFilters returns all filters of a dataset.
func (s *Store) ListFilters(ctx context.Context, dataset string) ([]*Filter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dataset, channel, name, created_at
		FROM filters WHERE dataset = ? ORDER BY channel, name
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer rows.Close()

	var filters []*Filter
	for rows.Next() {
		f := &Filter{}
		if err := rows.Scan(&f.Dataset, &f.Channel, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// BulkCreateFilters inserts filters in one transaction.
func (s *Store) BulkCreateFilters(ctx context.Context, filters []*Filter) error {
	now := time.Now()
	return runBulk(ctx, s, filters, bulkOp[*Filter]{
		query: `INSERT INTO filters (dataset, channel, name, created_at) VALUES (?, ?, ?, ?)`,
		args: func(_ *sql.Tx, f *Filter) ([]any, error) {
			f.CreatedAt = now
			return []any{f.Dataset, f.Channel, f.Name, now}, nil
		},
		key: func(f *Filter) string { return "filter " + f.Dataset + "/" + f.Channel + "/" + f.Name },
	})
}
