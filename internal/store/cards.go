// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// SaveCard upserts a claim card by its stable ID. A non-empty noteID also
// records an idempotent note link.
func (s *Store) SaveCard(ctx context.Context, card types.ClaimCard, noteID string) error {
	scopeJSON := ""
	if card.Scope != (types.ClaimScope{}) {
		b, err := json.Marshal(card.Scope)
		if err != nil {
			return fmt.Errorf("encoding scope: %w", err)
		}
		scopeJSON = string(b)
	}
	evidenceJSON, err := json.Marshal(card.Evidence)
	if err != nil {
		return fmt.Errorf("encoding evidence: %w", err)
	}
	queriesJSON, err := json.Marshal(card.Queries)
	if err != nil {
		return fmt.Errorf("encoding queries: %w", err)
	}
	provenanceJSON, err := json.Marshal(card.Provenance)
	if err != nil {
		return fmt.Errorf("encoding provenance: %w", err)
	}

	// Confidence is stored as an integer percentage.
	confidenceInt := int(math.Round(card.Confidence * 100))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO claim_cards
			(id, claim, scope, verdict, confidence, evidence, queries, provenance, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.Claim, nullIfEmpty(scopeJSON), string(card.Verdict), confidenceInt,
		string(evidenceJSON), string(queriesJSON), string(provenanceJSON),
		nullIfEmpty(card.Notes), formatTime(card.CreatedAt), formatTime(card.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving claim card %s: %w", card.ID, err)
	}

	if noteID != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_claims (note_id, claim_id, created_at)
			 VALUES (?, ?, ?)`,
			noteID, card.ID, formatTime(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("linking claim card %s to note %s: %w", card.ID, noteID, err)
		}
	}

	return tx.Commit()
}

// Card fetches one claim card by ID.
func (s *Store) Card(ctx context.Context, id string) (types.ClaimCard, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, claim, scope, verdict, confidence, evidence, queries, provenance, notes, created_at, updated_at
		 FROM claim_cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ClaimCard{}, fmt.Errorf("claim card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.ClaimCard{}, fmt.Errorf("fetching claim card %s: %w", id, err)
	}
	return card, nil
}

// CardsForNote returns the claim cards linked to a note, newest first.
func (s *Store) CardsForNote(ctx context.Context, noteID string) ([]types.ClaimCard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cc.id, cc.claim, cc.scope, cc.verdict, cc.confidence, cc.evidence,
			cc.queries, cc.provenance, cc.notes, cc.created_at, cc.updated_at
		 FROM claim_cards cc
		 INNER JOIN note_claims nc ON cc.id = nc.claim_id
		 WHERE nc.note_id = ?
		 ORDER BY cc.created_at DESC`, noteID)
	if err != nil {
		return nil, fmt.Errorf("fetching claim cards for note %s: %w", noteID, err)
	}
	defer rows.Close()

	var cards []types.ClaimCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim card row: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// DeleteCard removes a claim card and its note links.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_claims WHERE claim_id = ?`, id); err != nil {
		return fmt.Errorf("deleting claim card links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_cards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting claim card %s: %w", id, err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (types.ClaimCard, error) {
	var card types.ClaimCard
	var scope, notes sql.NullString
	var verdict string
	var confidence int
	var evidence, queries, provenance string
	var createdAt, updatedAt string

	err := row.Scan(&card.ID, &card.Claim, &scope, &verdict, &confidence,
		&evidence, &queries, &provenance, &notes, &createdAt, &updatedAt)
	if err != nil {
		return types.ClaimCard{}, err
	}

	if scope.Valid && scope.String != "" {
		if err := json.Unmarshal([]byte(scope.String), &card.Scope); err != nil {
			return types.ClaimCard{}, fmt.Errorf("decoding scope: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(evidence), &card.Evidence); err != nil {
		return types.ClaimCard{}, fmt.Errorf("decoding evidence: %w", err)
	}
	if err := json.Unmarshal([]byte(queries), &card.Queries); err != nil {
		return types.ClaimCard{}, fmt.Errorf("decoding queries: %w", err)
	}
	if err := json.Unmarshal([]byte(provenance), &card.Provenance); err != nil {
		return types.ClaimCard{}, fmt.Errorf("decoding provenance: %w", err)
	}

	card.Verdict = types.ClaimVerdict(verdict)
	card.Confidence = float64(confidence) / 100
	card.Notes = notes.String
	card.CreatedAt = parseTime(createdAt)
	card.UpdatedAt = parseTime(updatedAt)
	return card, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
