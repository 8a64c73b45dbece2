// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/store"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// JobGenerateResearch runs the research pipeline for a goal.
const JobGenerateResearch = "generate-research"

// Handler executes one job. The returned payload is stored as the job
// result JSON on success.
type Handler func(ctx context.Context, job types.Job) (any, error)

// Dispatcher runs jobs by type with at-least-once semantics: delivering
// a job whose row is already terminal is a no-op.
type Dispatcher struct {
	Store    *store.Store
	Log      *zap.Logger
	handlers map[string]Handler
}

// NewDispatcher builds a dispatcher with the research pipeline handler
// pre-registered.
func NewDispatcher(st *store.Store, pipeline *Pipeline, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{Store: st, Log: log, handlers: map[string]Handler{}}
	d.Register(JobGenerateResearch, func(ctx context.Context, job types.Job) (any, error) {
		return pipeline.Run(ctx, job.ID, job.TargetID)
	})
	return d
}

// Register installs a handler for a job type, replacing any previous one.
func (d *Dispatcher) Register(jobType string, h Handler) {
	d.handlers[jobType] = h
}

// Dispatch loads a job and runs its handler, recording the terminal
// outcome. Re-delivery of a finished job returns nil without running
// anything.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) error {
	job, err := d.Store.Job(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		d.Log.Info("job already finished", zap.String("job_id", jobID), zap.String("status", string(job.Status)))
		return nil
	}

	handler, ok := d.handlers[job.Type]
	if !ok {
		err := fmt.Errorf("no handler for job type %q", job.Type)
		d.fail(ctx, job.ID, err)
		return err
	}

	d.Log.Info("job started", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.String("target_id", job.TargetID))

	result, err := handler(ctx, job)
	if err != nil {
		d.Log.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
		d.fail(ctx, job.ID, err)
		return err
	}

	payload := ""
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			payload = string(b)
		}
	}
	if err := d.Store.CompleteJob(ctx, job.ID, types.JobSucceeded, payload); err != nil {
		return fmt.Errorf("recording job success: %w", err)
	}
	d.Log.Info("job succeeded", zap.String("job_id", job.ID))
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, jobID string, cause error) {
	payload, _ := json.Marshal(map[string]string{"message": cause.Error()})
	if err := d.Store.CompleteJob(ctx, jobID, types.JobFailed, string(payload)); err != nil {
		d.Log.Error("recording job failure failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// Start creates a job for the target and dispatches it synchronously. If
// a fresh RUNNING job already exists its row is returned with
// store.ErrJobConflict and nothing runs.
func (d *Dispatcher) Start(ctx context.Context, jobType, targetID string) (types.Job, error) {
	job, err := d.Store.CreateJob(ctx, jobType, targetID)
	if err != nil {
		return job, err
	}
	if err := d.Dispatch(ctx, job.ID); err != nil {
		return job, err
	}
	return d.Store.Job(ctx, job.ID)
}
