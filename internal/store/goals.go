// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// SaveGoal upserts a goal by ID.
func (s *Store) SaveGoal(ctx context.Context, g types.Goal) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (id, title, description, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, description=excluded.description`,
		g.ID, g.Title, g.Description, formatTime(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving goal %s: %w", g.ID, err)
	}
	return nil
}

// Goal fetches one goal by ID.
func (s *Store) Goal(ctx context.Context, id string) (types.Goal, error) {
	var g types.Goal
	var description sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, created_at FROM goals WHERE id = ?`, id,
	).Scan(&g.ID, &g.Title, &description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Goal{}, fmt.Errorf("fetching goal %s: %w", id, err)
	}
	g.Description = description.String
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

// SaveNote upserts a note by ID.
func (s *Store) SaveNote(ctx context.Context, n types.Note) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, goal_id, title, body, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			goal_id=excluded.goal_id, title=excluded.title, body=excluded.body`,
		n.ID, n.GoalID, n.Title, n.Body, formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving note %s: %w", n.ID, err)
	}
	return nil
}

// Note fetches one note by ID.
func (s *Store) Note(ctx context.Context, id string) (types.Note, error) {
	var n types.Note
	var goalID, title sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, goal_id, title, body, created_at FROM notes WHERE id = ?`, id,
	).Scan(&n.ID, &goalID, &title, &n.Body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Note{}, fmt.Errorf("fetching note %s: %w", id, err)
	}
	n.GoalID = goalID.String
	n.Title = title.String
	n.CreatedAt = parseTime(createdAt)
	return n, nil
}

// NotesForGoal returns the notes linked to a goal, oldest first.
func (s *Store) NotesForGoal(ctx context.Context, goalID string) ([]types.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, goal_id, title, body, created_at FROM notes
		 WHERE goal_id = ? ORDER BY created_at ASC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("fetching notes for goal %s: %w", goalID, err)
	}
	defer rows.Close()

	var notes []types.Note
	for rows.Next() {
		var n types.Note
		var gID, title sql.NullString
		var createdAt string
		if err := rows.Scan(&n.ID, &gID, &title, &n.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		n.GoalID = gID.String
		n.Title = title.String
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
