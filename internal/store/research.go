// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// SaveResearch upserts a research record keyed by (goal, dedup key),
// so re-running a goal's pipeline replaces rows instead of duplicating.
func (s *Store) SaveResearch(ctx context.Context, r types.ResearchRecord) error {
	researchJSON, err := json.Marshal(r.Research)
	if err != nil {
		return fmt.Errorf("encoding research: %w", err)
	}

	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_records (goal_id, dedup_key, blended, research, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(goal_id, dedup_key) DO UPDATE SET
			blended=excluded.blended, research=excluded.research,
			updated_at=excluded.updated_at`,
		r.GoalID, r.DedupKey, r.Blended, string(researchJSON),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving research record %s/%s: %w", r.GoalID, r.DedupKey, err)
	}
	return nil
}

// ResearchForGoal returns a goal's research records, best blended score first.
func (s *Store) ResearchForGoal(ctx context.Context, goalID string) ([]types.ResearchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT goal_id, dedup_key, blended, research, created_at, updated_at
		 FROM research_records WHERE goal_id = ?
		 ORDER BY blended DESC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("fetching research for goal %s: %w", goalID, err)
	}
	defer rows.Close()

	var records []types.ResearchRecord
	for rows.Next() {
		var r types.ResearchRecord
		var researchJSON, createdAt, updatedAt string
		if err := rows.Scan(&r.GoalID, &r.DedupKey, &r.Blended, &researchJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning research row: %w", err)
		}
		if err := json.Unmarshal([]byte(researchJSON), &r.Research); err != nil {
			return nil, fmt.Errorf("decoding research %s/%s: %w", r.GoalID, r.DedupKey, err)
		}
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// EnqueueEmbed records a research record as pending embedding work.
func (s *Store) EnqueueEmbed(ctx context.Context, goalID, dedupKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO embed_queue (goal_id, dedup_key, enqueued_at) VALUES (?, ?, ?)`,
		goalID, dedupKey, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("enqueueing embed for %s/%s: %w", goalID, dedupKey, err)
	}
	return nil
}

// PendingEmbeds returns the queued (goalID, dedupKey) pairs in enqueue order.
func (s *Store) PendingEmbeds(ctx context.Context) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT goal_id, dedup_key FROM embed_queue ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetching embed queue: %w", err)
	}
	defer rows.Close()

	var pending [][2]string
	for rows.Next() {
		var goalID, dedupKey string
		if err := rows.Scan(&goalID, &dedupKey); err != nil {
			return nil, fmt.Errorf("scanning embed queue row: %w", err)
		}
		pending = append(pending, [2]string{goalID, dedupKey})
	}
	return pending, rows.Err()
}
