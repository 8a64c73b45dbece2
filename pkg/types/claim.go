// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EvidencePolarity classifies how one piece of evidence relates to a claim.
type EvidencePolarity string

const (
	PolaritySupports    EvidencePolarity = "supports"
	PolarityContradicts EvidencePolarity = "contradicts"
	PolarityMixed       EvidencePolarity = "mixed"
	PolarityIrrelevant  EvidencePolarity = "irrelevant"
)

// ClaimVerdict is the aggregate judgment over all evidence for a claim.
type ClaimVerdict string

const (
	VerdictSupported    ClaimVerdict = "supported"
	VerdictContradicted ClaimVerdict = "contradicted"
	VerdictMixed        ClaimVerdict = "mixed"
	VerdictInsufficient ClaimVerdict = "insufficient"
)

// EvidenceLocator points at where in a paper a piece of evidence was found.
type EvidenceLocator struct {
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
	Page    string `json:"page,omitempty" yaml:"page,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
}

// EvidenceItem is one judged paper attached to a claim card. The full
// enriched metadata is embedded so the card stays self-contained even when
// the source record is gone.
type EvidenceItem struct {
	PaperDetails `yaml:",inline"`

	// Snippet is a short excerpt of the abstract used as display context.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Polarity is the judged relationship between this paper and the claim.
	Polarity EvidencePolarity `json:"polarity" yaml:"polarity"`

	// Rationale explains the polarity in one or two sentences.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`

	// Score is the judged relevance in [0, 1].
	Score float64 `json:"score" yaml:"score"`

	// Locator narrows the evidence to a section, page, or full-text URL
	// when one is known.
	Locator *EvidenceLocator `json:"locator,omitempty" yaml:"locator,omitempty"`
}

// ClaimScope narrows the conditions under which a claim is asserted to
// hold, in PICO style plus timeframe and setting. All fields are optional;
// a scoped claim gets a different card ID than the bare claim text.
type ClaimScope struct {
	Population   string `json:"population,omitempty" yaml:"population,omitempty"`
	Intervention string `json:"intervention,omitempty" yaml:"intervention,omitempty"`
	Comparator   string `json:"comparator,omitempty" yaml:"comparator,omitempty"`
	Outcome      string `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Timeframe    string `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	Setting      string `json:"setting,omitempty" yaml:"setting,omitempty"`
}

// Provenance records how a claim card was produced.
type Provenance struct {
	// GeneratedBy names the producing component and version
	// (e.g. "claim-engine:claim-cards@1").
	GeneratedBy string `json:"generated_by" yaml:"generated_by"`

	// Model is the judge model identifier, or "heuristic" when no model ran.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Sources lists the provider names that contributed evidence.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// ClaimCard is a verified claim with its evidence and verdict. The ID is
// stable for a given claim text and scope, so rebuilding a card replaces
// the previous version rather than multiplying rows.
type ClaimCard struct {
	ID         string         `json:"id" yaml:"id"`
	Claim      string         `json:"claim" yaml:"claim"`
	Scope      ClaimScope     `json:"scope,omitempty" yaml:"scope,omitempty"`
	Verdict    ClaimVerdict   `json:"verdict" yaml:"verdict"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Evidence   []EvidenceItem `json:"evidence" yaml:"evidence"`
	Queries    []string       `json:"queries,omitempty" yaml:"queries,omitempty"`
	Provenance Provenance     `json:"provenance" yaml:"provenance"`
	Notes      string         `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" yaml:"updated_at"`
}
