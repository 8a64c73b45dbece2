// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Goal is a user research goal the pipeline gathers literature for.
type Goal struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Note is a free-text note linked to a goal; notes feed query planning and
// can have claim cards attached.
type Note struct {
	ID        string    `json:"id" yaml:"id"`
	GoalID    string    `json:"goal_id,omitempty" yaml:"goal_id,omitempty"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	Body      string    `json:"body" yaml:"body"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ResearchPlan is the planner's query strategy for one goal. Each provider
// gets its own phrasing because the APIs reward different query shapes.
type ResearchPlan struct {
	// GoalType is a coarse label for the goal (e.g. "skill", "career",
	// "wellbeing") that steers extraction prompts.
	GoalType string `json:"goal_type" yaml:"goal_type"`

	// Keywords are the core query terms shared across providers.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// SemanticScholarQueries are natural-language queries for Semantic Scholar.
	SemanticScholarQueries []string `json:"semantic_scholar_queries" yaml:"semantic_scholar_queries"`

	// CrossrefQueries are bibliographic queries for Crossref.
	CrossrefQueries []string `json:"crossref_queries" yaml:"crossref_queries"`

	// PubMedQueries are term queries for PubMed.
	PubMedQueries []string `json:"pubmed_queries" yaml:"pubmed_queries"`

	// Inclusion and Exclusion are topical guardrails for extraction.
	Inclusion []string `json:"inclusion,omitempty" yaml:"inclusion,omitempty"`
	Exclusion []string `json:"exclusion,omitempty" yaml:"exclusion,omitempty"`
}

// ExtractedResearch is the structured output of the extraction stage for
// one paper, gated before persistence.
type ExtractedResearch struct {
	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	DOI      string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// KeyFindings are the paper's findings relevant to the goal.
	KeyFindings []string `json:"key_findings" yaml:"key_findings"`

	// Techniques are actionable methods or interventions the paper reports.
	Techniques []string `json:"techniques,omitempty" yaml:"techniques,omitempty"`

	// EvidenceLevel is a coarse quality label (e.g. "meta-analysis", "rct",
	// "observational", "review").
	EvidenceLevel string `json:"evidence_level,omitempty" yaml:"evidence_level,omitempty"`

	// RelevanceScore is the extractor's goal-relevance estimate in [0, 1].
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// ExtractionConfidence is the extractor's self-reported confidence in [0, 1].
	ExtractionConfidence float64 `json:"extraction_confidence" yaml:"extraction_confidence"`

	// ExtractedBy names the model or heuristic that produced this record.
	ExtractedBy string `json:"extracted_by,omitempty" yaml:"extracted_by,omitempty"`

	// RejectReason is set when the extractor declines the paper; used as
	// feedback for the single repair attempt.
	RejectReason string `json:"reject_reason,omitempty" yaml:"reject_reason,omitempty"`
}

// ResearchRecord is a persisted, ranked extraction result for a goal.
// DedupKey is the normalized DOI when present, else the title fingerprint,
// so re-runs upsert instead of duplicating.
type ResearchRecord struct {
	GoalID    string            `json:"goal_id" yaml:"goal_id"`
	DedupKey  string            `json:"dedup_key" yaml:"dedup_key"`
	Blended   float64           `json:"blended" yaml:"blended"`
	Research  ExtractedResearch `json:"research" yaml:"research"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at"`
}
