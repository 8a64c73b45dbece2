// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists goals, notes, claim cards, research records,
// and background jobs in a single SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store manages the claim-engine SQLite database.
type Store struct {
	db         *sql.DB
	staleAfter time.Duration
}

const defaultStaleAfter = 15 * time.Minute

// NewStore opens or creates the database at cfg.Path, creating parent
// directories and the schema as needed.
func NewStore(cfg types.StoreConfig, staleAfter time.Duration) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	s := &Store{db: db, staleAfter: staleAfter}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS goals (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			goal_id TEXT REFERENCES goals(id),
			title TEXT,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_goal_id ON notes(goal_id)`,
		`CREATE TABLE IF NOT EXISTS claim_cards (
			id TEXT PRIMARY KEY,
			claim TEXT NOT NULL,
			scope TEXT,
			verdict TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			evidence TEXT NOT NULL,
			queries TEXT NOT NULL,
			provenance TEXT NOT NULL,
			notes TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS note_claims (
			note_id TEXT NOT NULL,
			claim_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (note_id, claim_id)
		)`,
		`CREATE TABLE IF NOT EXISTS research_records (
			goal_id TEXT NOT NULL,
			dedup_key TEXT NOT NULL,
			blended REAL NOT NULL,
			research TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (goal_id, dedup_key)
		)`,
		`CREATE TABLE IF NOT EXISTS embed_queue (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			goal_id TEXT NOT NULL,
			dedup_key TEXT NOT NULL,
			enqueued_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS generation_jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			result TEXT,
			error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_target ON generation_jobs(target_id, type)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// timestamps are stored as RFC3339 strings for portability.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
