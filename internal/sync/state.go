package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// Sync State Persistence
// =============================================================================

// SyncState holds the persistent state of the sync engine. It lives in the
// singleton sync_state row created by store.Migrate.
type SyncState struct {
	LastRunID      string
	LastRunAt      *time.Time
	LastVolumeHash uint64
	RunCount       int
}

// Querier is the subset of *sql.DB and *store.Store used for sync state.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// LoadSyncState loads the current sync state from the database.
func LoadSyncState(ctx context.Context, db Querier) (*SyncState, error) {
	state := &SyncState{}
	var runID sql.NullString
	var runAt sql.NullTime
	var volumeHash sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT last_run_id, last_run_at, CAST(last_volume_hash AS VARCHAR), run_count
		FROM sync_state WHERE id = 1
	`).Scan(&runID, &runAt, &volumeHash, &state.RunCount)

	if err == sql.ErrNoRows {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	state.LastRunID = runID.String
	if runAt.Valid {
		t := runAt.Time
		state.LastRunAt = &t
	}
	if volumeHash.Valid {
		h, err := strconv.ParseUint(volumeHash.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load sync state: volume hash: %w", err)
		}
		state.LastVolumeHash = h
	}

	return state, nil
}

// SaveSyncState records a completed import run.
func SaveSyncState(ctx context.Context, db Querier, runID string, volumeHash uint64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_state
		SET last_run_id = ?,
		    last_run_at = now(),
		    last_volume_hash = CAST(? AS UBIGINT),
		    run_count = run_count + 1
		WHERE id = 1
	`, runID, strconv.FormatUint(volumeHash, 10))

	if err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}

	return nil
}

// VolumeHashUnchanged returns true if volumeHash matches the last run.
func VolumeHashUnchanged(ctx context.Context, db Querier, volumeHash uint64) (bool, error) {
	state, err := LoadSyncState(ctx, db)
	if err != nil {
		return false, err
	}

	return state.RunCount > 0 && state.LastVolumeHash == volumeHash, nil
}
