package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// OpenJob inserts a running job_runs row and returns its id.
func (s *Store) OpenJob(ctx context.Context, component, sourceID string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO job_runs (id, component, source_id, started_at, status, detail)
		VALUES ($1, $2, $3, $4, $5, '{}')`,
		id, component, sourceID, time.Now().UTC(), types.JobRunning)
	if err != nil {
		return "", fmt.Errorf("open job run: %w", err)
	}
	return id, nil
}

// CloseJob finishes a job row exactly once. detail may be nil; errText is
// empty for successful jobs.
func (s *Store) CloseJob(ctx context.Context, jobID string, status types.JobStatus, detail map[string]any, errText string) error {
	if detail == nil {
		detail = map[string]any{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_runs
		SET finished_at = $2, status = $3, detail = $4, error = $5
		WHERE id = $1 AND status = $6`,
		jobID, time.Now().UTC(), status, detail, errText, types.JobRunning)
	if err != nil {
		return fmt.Errorf("close job run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("close job run %s: %w", jobID, ErrNotFound)
	}
	return nil
}

// ListJobRuns returns recent job runs, newest first. component filters when
// non-empty.
func (s *Store) ListJobRuns(ctx context.Context, component string, limit int) ([]types.JobRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, component, source_id, started_at, finished_at, status, detail, error
		FROM job_runs
		WHERE ($1 = '' OR component = $1)
		ORDER BY started_at DESC
		LIMIT $2`,
		component, limit)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	var out []types.JobRun
	for rows.Next() {
		var jr types.JobRun
		var finished *time.Time
		if err := rows.Scan(&jr.ID, &jr.Component, &jr.SourceID, &jr.StartedAt,
			&finished, &jr.Status, &jr.Detail, &jr.Error); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		if finished != nil {
			jr.FinishedAt = *finished
		}
		out = append(out, jr)
	}
	return out, rows.Err()
}
