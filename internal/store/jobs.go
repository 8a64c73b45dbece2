// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// ErrJobConflict is returned when a fresh RUNNING job already exists for
// the same (target, type). The existing job is returned alongside it.
var ErrJobConflict = errors.New("job already running")

// CreateJob inserts a new RUNNING job at progress 0. If a RUNNING job for
// the same target and type exists and is not stale, the existing job is
// returned with ErrJobConflict instead of starting a duplicate.
func (s *Store) CreateJob(ctx context.Context, jobType, targetID string) (types.Job, error) {
	if existing, err := s.runningJob(ctx, jobType, targetID); err == nil {
		if time.Since(existing.UpdatedAt) < s.staleAfter {
			return existing, ErrJobConflict
		}
		// Stale RUNNING job: ignore it and start fresh.
	} else if !errors.Is(err, sql.ErrNoRows) {
		return types.Job{}, err
	}

	now := time.Now().UTC()
	job := types.Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		TargetID:  targetID,
		Status:    types.JobRunning,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_jobs (id, type, target_id, status, progress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.TargetID, string(job.Status), job.Progress,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return types.Job{}, fmt.Errorf("creating job: %w", err)
	}
	return job, nil
}

// Job fetches one job by ID.
func (s *Store) Job(ctx context.Context, id string) (types.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, target_id, status, progress, result, error, created_at, updated_at
		 FROM generation_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Job{}, fmt.Errorf("fetching job %s: %w", id, err)
	}
	return job, nil
}

// UpdateProgress advances a RUNNING job's progress. Progress only moves
// forward; updates against smaller values or terminal rows are no-ops.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generation_jobs SET progress = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND progress < ?`,
		progress, formatTime(time.Now()), id, string(types.JobRunning), progress,
	)
	if err != nil {
		return fmt.Errorf("updating job %s progress: %w", id, err)
	}
	return nil
}

// CompleteJob transitions a RUNNING job to a terminal status with a
// result or error payload. A job already terminal stays as it is, so
// re-delivered completions are idempotent.
func (s *Store) CompleteJob(ctx context.Context, id string, status types.JobStatus, payload string) error {
	if !status.Terminal() {
		return fmt.Errorf("completing job %s: %s is not a terminal status", id, status)
	}

	resultJSON, errorJSON := sql.NullString{}, sql.NullString{}
	if status == types.JobSucceeded {
		resultJSON = sql.NullString{String: payload, Valid: payload != ""}
	} else {
		errorJSON = sql.NullString{String: payload, Valid: payload != ""}
	}

	var res sql.Result
	var err error
	if status == types.JobSucceeded {
		res, err = s.db.ExecContext(ctx,
			`UPDATE generation_jobs SET status = ?, progress = 100, result = ?, error = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			string(status), resultJSON, errorJSON, formatTime(time.Now()),
			id, string(types.JobRunning),
		)
	} else {
		// Failure keeps the last reported progress.
		res, err = s.db.ExecContext(ctx,
			`UPDATE generation_jobs SET status = ?, result = ?, error = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			string(status), resultJSON, errorJSON, formatTime(time.Now()),
			id, string(types.JobRunning),
		)
	}
	if err != nil {
		return fmt.Errorf("completing job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already terminal or unknown. Terminal is fine; unknown is not.
		if _, err := s.Job(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Stale reports whether a RUNNING job has gone without a progress update
// for longer than the staleness window.
func (s *Store) Stale(job types.Job) bool {
	return job.Status == types.JobRunning && time.Since(job.UpdatedAt) >= s.staleAfter
}

func (s *Store) runningJob(ctx context.Context, jobType, targetID string) (types.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, target_id, status, progress, result, error, created_at, updated_at
		 FROM generation_jobs
		 WHERE target_id = ? AND type = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		targetID, jobType, string(types.JobRunning))
	return scanJob(row)
}

func scanJob(row rowScanner) (types.Job, error) {
	var job types.Job
	var status string
	var result, errJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&job.ID, &job.Type, &job.TargetID, &status, &job.Progress,
		&result, &errJSON, &createdAt, &updatedAt)
	if err != nil {
		return types.Job{}, err
	}
	job.Status = types.JobStatus(status)
	job.Result = result.String
	job.Error = errJSON.String
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	return job, nil
}
