// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job is a background work item tracked in the store. Progress only moves
// forward; a job reaches exactly one terminal status.
type Job struct {
	// ID is a generated UUID.
	ID string `json:"id" yaml:"id"`

	// Type names the work kind (e.g. "generate-research", "build-claim-cards").
	Type string `json:"type" yaml:"type"`

	// TargetID is the entity the job operates on (a goal or note ID).
	TargetID string `json:"target_id" yaml:"target_id"`

	Status   JobStatus `json:"status" yaml:"status"`
	Progress int       `json:"progress" yaml:"progress"`

	// Result is a JSON document describing the outcome, set on success.
	Result string `json:"result,omitempty" yaml:"result,omitempty"`

	// Error is a JSON document describing the failure, set on failure.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
