package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "claim-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retry attempts per request (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AIConfig holds shared settings for stages that call a chat-completion API.
type AIConfig struct {
	// BaseURL is the OpenAI-compatible endpoint (e.g. "https://api.deepseek.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model identifier (e.g. "deepseek-chat").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key. Empty disables the stage's model
	// calls; heuristic fallbacks run instead.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SourcesConfig holds settings for the federated search stage.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// Enabled lists the provider names to query. Empty means all registered
	// providers whose credentials are satisfied.
	Enabled []string `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// PerQueryLimit is the maximum results requested per query (default 50).
	PerQueryLimit int `json:"per_query_limit" yaml:"per_query_limit"`

	// OpenAlexAPIKey enables the OpenAlex provider.
	OpenAlexAPIKey string `json:"openalex_api_key,omitempty" yaml:"openalex_api_key,omitempty"`

	// SemanticScholarAPIKey raises Semantic Scholar rate limits; the provider
	// runs without one.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// ContactEmail is sent to APIs that ask for one (Crossref, Unpaywall,
	// OpenAlex polite pool).
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
}

// EnrichConfig holds settings for the detail-enrichment stage.
type EnrichConfig struct {
	HTTPConfig `yaml:",inline"`

	// MinAbstractLength is the shortest abstract kept by the quality filter
	// (default 200).
	MinAbstractLength int `json:"min_abstract_length" yaml:"min_abstract_length"`

	// SkipAbstractCheck disables the short-abstract filter.
	SkipAbstractCheck bool `json:"skip_abstract_check" yaml:"skip_abstract_check"`

	// TitleDenyTerms overrides the built-in list of out-of-domain terms
	// that exclude a candidate by title match.
	TitleDenyTerms []string `json:"title_deny_terms,omitempty" yaml:"title_deny_terms,omitempty"`

	// UnpaywallEmail enables open-access resolution through Unpaywall.
	UnpaywallEmail string `json:"unpaywall_email,omitempty" yaml:"unpaywall_email,omitempty"`
}

// VerdictThresholds tunes verdict aggregation. The defaults encode the
// shipped behavior; they are configuration, not law.
type VerdictThresholds struct {
	// SupportRatio is the share of relevant evidence that must support the
	// claim for a "supported" verdict (default 0.7).
	SupportRatio float64 `json:"support_ratio" yaml:"support_ratio"`

	// ContradictRatio is the share of relevant evidence that must contradict
	// the claim for a "contradicted" verdict (default 0.7).
	ContradictRatio float64 `json:"contradict_ratio" yaml:"contradict_ratio"`

	// MinEvidenceSum is the combined support+contradict share below which
	// evidence counts as insufficient (default 0.3).
	MinEvidenceSum float64 `json:"min_evidence_sum" yaml:"min_evidence_sum"`
}

// ClaimsConfig holds settings for claim extraction, judgment, and card building.
type ClaimsConfig struct {
	AIConfig `yaml:",inline"`

	// Sources lists providers searched for evidence
	// (default crossref, pubmed, semantic_scholar).
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// PerSourceLimit is the candidate cap per provider (default 10).
	PerSourceLimit int `json:"per_source_limit" yaml:"per_source_limit"`

	// TopK is the number of judged evidence items kept per claim (default 6).
	TopK int `json:"top_k" yaml:"top_k"`

	// UseLLMJudge switches evidence judgment from the overlap heuristic to
	// the model backend.
	UseLLMJudge bool `json:"use_llm_judge" yaml:"use_llm_judge"`

	Verdict VerdictThresholds `json:"verdict" yaml:"verdict"`
}

// ResearchConfig holds settings for the research pipeline.
type ResearchConfig struct {
	AIConfig `yaml:",inline"`

	// EnrichConcurrency bounds concurrent enrichment calls (default 10).
	EnrichConcurrency int `json:"enrich_concurrency" yaml:"enrich_concurrency"`

	// MaxEnrichCandidates caps candidates entering enrichment (default 300).
	MaxEnrichCandidates int `json:"max_enrich_candidates" yaml:"max_enrich_candidates"`

	// MaxExtractCandidates caps candidates entering extraction (default 30).
	MaxExtractCandidates int `json:"max_extract_candidates" yaml:"max_extract_candidates"`

	// ExtractBatchSize is the number of papers extracted per batch (default 6).
	ExtractBatchSize int `json:"extract_batch_size" yaml:"extract_batch_size"`

	// MinRelevance and MinConfidence gate extraction output (defaults 0.6, 0.5).
	MinRelevance  float64 `json:"min_relevance" yaml:"min_relevance"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`

	// MinBlended gates persistence on 0.7*relevance + 0.3*confidence (default 0.45).
	MinBlended float64 `json:"min_blended" yaml:"min_blended"`

	// MaxPersist caps persisted records per run (default 50).
	MaxPersist int `json:"max_persist" yaml:"max_persist"`

	// BadTitleTerms drops search candidates whose title matches any term.
	// Empty uses the built-in off-domain denylist.
	BadTitleTerms []string `json:"bad_title_terms,omitempty" yaml:"bad_title_terms,omitempty"`

	// RequiredTitleTerms keeps only candidates whose title matches at least
	// one term. Empty disables the requirement.
	RequiredTitleTerms []string `json:"required_title_terms,omitempty" yaml:"required_title_terms,omitempty"`

	// JobStaleAfter is how long a RUNNING job may go without a progress
	// update before a fresh run may replace it (default 15m).
	JobStaleAfter time.Duration `json:"job_stale_after" yaml:"job_stale_after"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Sources  SourcesConfig  `json:"sources" yaml:"sources"`
	Enrich   EnrichConfig   `json:"enrich" yaml:"enrich"`
	Claims   ClaimsConfig   `json:"claims" yaml:"claims"`
	Research ResearchConfig `json:"research" yaml:"research"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}
