// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the claim-engine pipeline:
// paper candidates and enriched details, claim cards with judged evidence,
// research plans and persisted records, and background job rows.
package types

// PaperCandidate is a lightweight search hit returned by a source adapter.
// Candidates are deduplicated and scored before any enrichment happens, so
// every field except Title and Source may be empty.
type PaperCandidate struct {
	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, 0 when the source did not report one.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// DOI is the raw DOI string as returned by the source; it is normalized
	// only at dedup and persistence boundaries.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the landing page or full-text link reported by the source.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Abstract is the abstract text when the source returns one inline.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Source identifies the adapter that produced this candidate
	// (e.g. "crossref", "pubmed", "openalex").
	Source string `json:"source" yaml:"source"`

	// Journal is the container title (journal or venue name).
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// PublicationType is the source-reported work type (e.g. "journal-article",
	// "book-chapter"). Used to drop book-like material.
	PublicationType string `json:"publication_type,omitempty" yaml:"publication_type,omitempty"`

	// ProviderID is a source-internal identifier needed for secondary fetches:
	// a PMID for pubmed, a paper ID for semantic_scholar, an arXiv ID for arxiv.
	ProviderID string `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`
}

// AbstractUnavailable is the sentinel stored when no source could supply an
// abstract for a paper.
const AbstractUnavailable = "Abstract not available"

// PaperDetails is the enriched form of a candidate after the metadata
// cascade has run. Fields are filled from the highest-priority source that
// had them and never overwritten by later, lower-priority sources.
type PaperDetails struct {
	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	DOI      string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// OAURL is an open-access full-text link resolved through Unpaywall.
	OAURL string `json:"oa_url,omitempty" yaml:"oa_url,omitempty"`

	// OAStatus is the Unpaywall access classification (gold, green, bronze,
	// hybrid, closed) when known.
	OAStatus string `json:"oa_status,omitempty" yaml:"oa_status,omitempty"`

	// Source is the adapter the starting candidate came from.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}
