package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xtxerr/volimport/internal/errors"
)

// ImportRun records one invocation of the importer.
type ImportRun struct {
	ID         string
	Dataset    string
	VolumePath string
	Sections   string
	Policy     string
	DryRun     bool

	Created  int
	Updated  int
	Skipped  int
	Warnings int
	Error    string

	StartedAt  time.Time
	FinishedAt *time.Time
}

// CreateImportRun inserts a run at its start.
func (s *Store) CreateImportRun(ctx context.Context, r *ImportRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, dataset, volume_path, sections, policy, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Dataset, r.VolumePath, nullString(r.Sections), nullString(r.Policy), r.DryRun, r.StartedAt)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

// FinishImportRun stores the counters and outcome of a run.
func (s *Store) FinishImportRun(ctx context.Context, r *ImportRun) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_runs
		SET created = ?, updated = ?, skipped = ?, warnings = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, r.Created, r.Updated, r.Skipped, r.Warnings, nullString(r.Error), now, r.ID)
	if err != nil {
		return fmt.Errorf("update import run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFound(errors.ErrNotFound, "import run "+r.ID)
	}

	r.FinishedAt = &now
	return nil
}

// GetImportRun retrieves a run by id. It returns nil if absent.
func (s *Store) GetImportRun(ctx context.Context, id string) (*ImportRun, error) {
	rows, err := s.db.QueryContext(ctx, importRunSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query import run: %w", err)
	}
	defer rows.Close()

	runs, err := scanImportRuns(rows)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// ListImportRuns returns the most recent runs first. An empty dataset
// lists runs of every dataset; limit <= 0 means no limit.
func (s *Store) ListImportRuns(ctx context.Context, dataset string, limit int) ([]*ImportRun, error) {
	query := importRunSelect
	var args []any
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	return scanImportRuns(rows)
}

const importRunSelect = `
	SELECT id, dataset, volume_path, sections, policy, dry_run,
	       created, updated, skipped, warnings, error, started_at, finished_at
	FROM import_runs`

func scanImportRuns(rows *sql.Rows) ([]*ImportRun, error) {
	var runs []*ImportRun
	for rows.Next() {
		r := &ImportRun{}
		var sections, policy, errText sql.NullString
		var finished sql.NullTime

		if err := rows.Scan(
			&r.ID, &r.Dataset, &r.VolumePath, &sections, &policy, &r.DryRun,
			&r.Created, &r.Updated, &r.Skipped, &r.Warnings, &errText, &r.StartedAt, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}

		r.Sections = sections.String
		r.Policy = policy.String
		r.Error = errText.String
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
