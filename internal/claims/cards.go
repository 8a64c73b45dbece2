// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claims

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/enrich"
	"github.com/pdiddy/claim-engine/internal/resolve"
	"github.com/pdiddy/claim-engine/internal/sources"
	"github.com/pdiddy/claim-engine/pkg/types"
)

const (
	generatedBy           = "claim-engine:claim-cards@1"
	defaultPerSourceLimit = 10
	defaultTopK           = 6
	snippetLimit          = 220
)

func defaultSources() []string {
	return []string{"crossref", "pubmed", "semantic_scholar"}
}

// StableClaimID derives a deterministic card ID from the claim text and
// scope, so the same claim always maps to the same card.
func StableClaimID(claim string, scope types.ClaimScope) string {
	normalized := strings.ToLower(strings.TrimSpace(claim))
	scopeStr := ""
	if scope != (types.ClaimScope{}) {
		b, err := json.Marshal(scope)
		if err == nil {
			scopeStr = string(b)
		}
	}
	sum := sha256.Sum256([]byte(normalized + scopeStr))
	return "claim_" + hex.EncodeToString(sum[:])[:16]
}

// bestSnippet returns a display excerpt of the abstract, truncated
// with an ellipsis past the limit.
func bestSnippet(p types.PaperDetails) string {
	a := strings.TrimSpace(p.Abstract)
	if a == "" || a == types.AbstractUnavailable {
		return ""
	}
	if len(a) > snippetLimit {
		return a[:snippetLimit] + "…"
	}
	return a
}

// PaperEnricher upgrades a search candidate to full paper details.
// *enrich.Enricher is the production implementation.
type PaperEnricher interface {
	Enrich(ctx context.Context, c types.PaperCandidate) types.PaperDetails
}

var _ PaperEnricher = (*enrich.Enricher)(nil)

// Builder turns claims into claim cards by searching the literature,
// enriching the best candidates, and judging each one against the claim.
type Builder struct {
	Federated *sources.Federated
	Enricher  PaperEnricher
	Judge     Judge
	Extractor *Extractor
	Cfg       types.ClaimsConfig

	// EnrichCfg supplies the quality-filter settings (title denylist,
	// abstract threshold) applied to candidates before judgment.
	EnrichCfg types.EnrichConfig

	Log *zap.Logger

	// model stamped into provenance when an LLM judge is active.
	Model string
}

func (b *Builder) perSourceLimit() int {
	if b.Cfg.PerSourceLimit > 0 {
		return b.Cfg.PerSourceLimit
	}
	return defaultPerSourceLimit
}

func (b *Builder) topK() int {
	if b.Cfg.TopK > 0 {
		return b.Cfg.TopK
	}
	return defaultTopK
}

func (b *Builder) sourceNames() []string {
	if len(b.Cfg.Sources) > 0 {
		return b.Cfg.Sources
	}
	return defaultSources()
}

// BuildFromClaims builds one card per claim. Provider failures surface
// as federation warnings, not errors; a claim with zero evidence still
// yields a card with an insufficient verdict.
func (b *Builder) BuildFromClaims(ctx context.Context, claimTexts []string) ([]types.ClaimCard, error) {
	cards := make([]types.ClaimCard, 0, len(claimTexts))
	for _, claim := range claimTexts {
		card, err := b.buildCard(ctx, claim, types.ClaimScope{})
		if err != nil {
			return cards, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// BuildFromText extracts claims from free text first, then builds cards.
func (b *Builder) BuildFromText(ctx context.Context, text string) ([]types.ClaimCard, error) {
	if b.Extractor == nil {
		return nil, fmt.Errorf("no claim extractor configured")
	}
	claimTexts, err := b.Extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}
	return b.BuildFromClaims(ctx, claimTexts)
}

// Refresh rebuilds the evidence for an existing card, keeping its
// identity, creation time, and notes.
func (b *Builder) Refresh(ctx context.Context, card types.ClaimCard) (types.ClaimCard, error) {
	refreshed, err := b.buildCard(ctx, card.Claim, card.Scope)
	if err != nil {
		return types.ClaimCard{}, err
	}
	refreshed.ID = card.ID
	refreshed.CreatedAt = card.CreatedAt
	refreshed.Notes = card.Notes
	return refreshed, nil
}

func (b *Builder) buildCard(ctx context.Context, claim string, scope types.ClaimScope) (types.ClaimCard, error) {
	names := b.sourceNames()
	queries := make(map[string][]string, len(names))
	for _, name := range names {
		queries[name] = []string{claim}
	}

	candidates, err := b.Federated.Search(ctx, queries, b.perSourceLimit())
	if err != nil {
		return types.ClaimCard{}, fmt.Errorf("searching evidence for claim: %w", err)
	}
	deduped := resolve.Dedupe(candidates)
	filterCfg := b.EnrichCfg
	// Abstracts are backfilled during enrichment, so length-checking them
	// here would drop candidates that are still recoverable.
	filterCfg.SkipAbstractCheck = true
	deduped = enrich.ApplyQualityFilters(deduped, filterCfg, b.Log)
	if k := b.topK(); len(deduped) > k {
		deduped = deduped[:k]
	}

	evidence := make([]types.EvidenceItem, 0, len(deduped))
	for _, c := range deduped {
		details := b.Enricher.Enrich(ctx, c)
		jm := b.Judge.Judge(ctx, claim, details)
		item := types.EvidenceItem{
			PaperDetails: details,
			Snippet:      bestSnippet(details),
			Polarity:     jm.Polarity,
			Rationale:    jm.Rationale,
			Score:        jm.Score,
		}
		if details.OAURL != "" {
			item.Locator = &types.EvidenceLocator{URL: details.OAURL}
		}
		evidence = append(evidence, item)
	}

	verdict, confidence := AggregateVerdict(evidence, b.Cfg.Verdict)

	now := time.Now().UTC()
	card := types.ClaimCard{
		ID:         StableClaimID(claim, scope),
		Claim:      claim,
		Scope:      scope,
		Verdict:    verdict,
		Confidence: confidence,
		Evidence:   evidence,
		Queries:    []string{claim},
		Provenance: types.Provenance{
			GeneratedBy: generatedBy,
			Sources:     names,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b.Model != "" {
		card.Provenance.Model = b.Model
	}

	if b.Log != nil {
		b.Log.Info("built claim card",
			zap.String("id", card.ID),
			zap.String("verdict", string(card.Verdict)),
			zap.Int("evidence", len(card.Evidence)))
	}
	return card, nil
}
