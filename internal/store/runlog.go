package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/cuartodemilla/fuel-etl/internal/db"
)

// Run statuses recorded in etl_run_log.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// RunEntry represents a row in etl_run_log.
type RunEntry struct {
	ID          int64          `json:"id"`
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Stations    int            `json:"stations"`
	Prices      int            `json:"prices"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunResult holds the outcome of a pipeline run, passed to Complete().
type RunResult struct {
	Stations int            `json:"stations"`
	Prices   int            `json:"prices"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunLog provides read/write access to the etl_run_log table. It writes
// outside the load transaction so failed runs are still recorded.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a new RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a run and returns its row ID.
func (r *RunLog) Start(ctx context.Context, runID string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO etl_run_log (run_id, status, started_at)
		 VALUES ($1, 'running', now()) RETURNING id`,
		runID,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "runlog: start run %s", runID)
	}
	return id, nil
}

// Complete marks a run as successfully completed.
func (r *RunLog) Complete(ctx context.Context, id int64, result *RunResult) error {
	var metaJSON []byte
	var stations, prices int
	if result != nil {
		stations, prices = result.Stations, result.Prices
		if result.Metadata != nil {
			var err error
			metaJSON, err = json.Marshal(result.Metadata)
			if err != nil {
				return eris.Wrap(err, "runlog: marshal metadata")
			}
		}
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE etl_run_log
		 SET status = 'complete', completed_at = now(), stations = $1, prices = $2, metadata = $3
		 WHERE id = $4`,
		stations, prices, metaJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %d", id)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (r *RunLog) Fail(ctx context.Context, id int64, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE etl_run_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %d", id)
	}
	return nil
}

// LastSuccess returns the started_at time of the most recent complete run,
// or nil if there has been none.
func (r *RunLog) LastSuccess(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT started_at FROM etl_run_log
		 WHERE status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "runlog: last success")
	}
	return &t, nil
}

// List returns up to limit entries, most recent first.
func (r *RunLog) List(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, run_id, status, started_at, completed_at, stations, prices, error, metadata
		 FROM etl_run_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var completedAt *time.Time
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.Status, &e.StartedAt, &completedAt, &e.Stations, &e.Prices, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
