// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/enrich"
	"github.com/pdiddy/claim-engine/internal/parallel"
	"github.com/pdiddy/claim-engine/internal/resolve"
	"github.com/pdiddy/claim-engine/internal/sources"
	"github.com/pdiddy/claim-engine/internal/store"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// Stage progress checkpoints reported on the job row.
const (
	progressLoad    = 5
	progressPlan    = 15
	progressSearch  = 40
	progressEnrich  = 55
	progressExtract = 85
	progressPersist = 100
)

const (
	defaultEnrichConcurrency    = 10
	defaultMaxEnrichCandidates  = 300
	defaultMaxExtractCandidates = 30
	defaultExtractBatchSize     = 6
	defaultMinRelevance         = 0.6
	defaultMinConfidence        = 0.5
	defaultMinBlended           = 0.45
	defaultMaxPersist           = 50
	defaultPerQueryLimit        = 50

	// minEnrichedAbstract is the abstract length required after the
	// enrichment stage; shorter abstracts rarely survive extraction.
	minEnrichedAbstract = 150
)

// defaultBadTitleTerms drops obviously off-domain material before
// enrichment spends requests on it.
var defaultBadTitleTerms = []string{
	"forensic", "witness", "court", "police", "legal",
	"child", "abuse", "occupational therapy",
	"pre-admission", "intake interview", "diagnostic interview",
	"clinical interview", "patient interview",
}

// PaperEnricher is the enrichment surface the pipeline needs;
// *enrich.Enricher is the production implementation.
type PaperEnricher interface {
	Enrich(ctx context.Context, c types.PaperCandidate) types.PaperDetails
	BackfillAbstract(ctx context.Context, c *types.PaperCandidate) bool
}

var _ PaperEnricher = (*enrich.Enricher)(nil)

// Result summarizes one pipeline run.
type Result struct {
	Persisted  int `json:"persisted"`
	Candidates int `json:"candidates"`
	Extracted  int `json:"extracted"`
}

// Pipeline runs the research stages for one goal, reporting progress on
// a job row as each stage completes.
type Pipeline struct {
	Store     *store.Store
	Federated *sources.Federated
	Enricher  PaperEnricher
	Planner   *Planner
	Extractor *Extractor
	Cfg       types.ResearchConfig
	Log       *zap.Logger

	// PerQueryLimit caps results requested per query (default 50); recall
	// is kept high here and filtered later.
	PerQueryLimit int
}

func (p *Pipeline) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *Pipeline) enrichConcurrency() int {
	if p.Cfg.EnrichConcurrency > 0 {
		return p.Cfg.EnrichConcurrency
	}
	return defaultEnrichConcurrency
}

func (p *Pipeline) maxEnrich() int {
	if p.Cfg.MaxEnrichCandidates > 0 {
		return p.Cfg.MaxEnrichCandidates
	}
	return defaultMaxEnrichCandidates
}

func (p *Pipeline) maxExtract() int {
	if p.Cfg.MaxExtractCandidates > 0 {
		return p.Cfg.MaxExtractCandidates
	}
	return defaultMaxExtractCandidates
}

func (p *Pipeline) batchSize() int {
	if p.Cfg.ExtractBatchSize > 0 {
		return p.Cfg.ExtractBatchSize
	}
	return defaultExtractBatchSize
}

func (p *Pipeline) minRelevance() float64 {
	if p.Cfg.MinRelevance > 0 {
		return p.Cfg.MinRelevance
	}
	return defaultMinRelevance
}

func (p *Pipeline) minConfidence() float64 {
	if p.Cfg.MinConfidence > 0 {
		return p.Cfg.MinConfidence
	}
	return defaultMinConfidence
}

func (p *Pipeline) minBlended() float64 {
	if p.Cfg.MinBlended > 0 {
		return p.Cfg.MinBlended
	}
	return defaultMinBlended
}

func (p *Pipeline) maxPersist() int {
	if p.Cfg.MaxPersist > 0 {
		return p.Cfg.MaxPersist
	}
	return defaultMaxPersist
}

// Run executes the pipeline for a goal, updating jobID's progress as
// stages complete. Zero persisted records is a successful run.
func (p *Pipeline) Run(ctx context.Context, jobID, goalID string) (Result, error) {
	log := p.log().With(zap.String("job_id", jobID), zap.String("goal_id", goalID))

	// Stage 1: load goal + notes.
	goal, err := p.Store.Goal(ctx, goalID)
	if err != nil {
		return Result{}, fmt.Errorf("loading goal: %w", err)
	}
	notes, err := p.Store.NotesForGoal(ctx, goalID)
	if err != nil {
		return Result{}, fmt.Errorf("loading notes: %w", err)
	}
	p.progress(ctx, jobID, progressLoad)

	// Stage 2: plan queries.
	plan := p.Planner.Plan(ctx, goal, notes)
	log.Info("query plan ready",
		zap.String("goal_type", plan.GoalType),
		zap.Int("semantic_scholar", len(plan.SemanticScholarQueries)),
		zap.Int("crossref", len(plan.CrossrefQueries)),
		zap.Int("pubmed", len(plan.PubMedQueries)))
	p.progress(ctx, jobID, progressPlan)

	// Stage 3: federated search + title and book filters.
	candidates, err := p.search(ctx, plan)
	if err != nil {
		return Result{}, err
	}
	log.Info("search complete", zap.Int("candidates", len(candidates)))
	p.progress(ctx, jobID, progressSearch)

	// Stage 4: abstract enrichment.
	candidates = p.enrich(ctx, candidates)
	log.Info("enrichment complete", zap.Int("candidates", len(candidates)))
	p.progress(ctx, jobID, progressEnrich)

	// Stage 5: structured extraction with gates and one repair attempt.
	extracted := p.extract(ctx, goal, plan, candidates, log)
	log.Info("extraction complete", zap.Int("passed", len(extracted)))
	p.progress(ctx, jobID, progressExtract)

	// Stage 6: rank and persist.
	persisted := p.persist(ctx, goalID, extracted, log)
	p.progress(ctx, jobID, progressPersist)

	return Result{
		Persisted:  persisted,
		Candidates: len(candidates),
		Extracted:  len(extracted),
	}, nil
}

func (p *Pipeline) progress(ctx context.Context, jobID string, value int) {
	if jobID == "" {
		return
	}
	if err := p.Store.UpdateProgress(ctx, jobID, value); err != nil {
		p.log().Warn("progress update failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (p *Pipeline) search(ctx context.Context, plan types.ResearchPlan) ([]types.PaperCandidate, error) {
	queries := map[string][]string{}
	if len(plan.CrossrefQueries) > 0 {
		queries["crossref"] = plan.CrossrefQueries
	}
	if len(plan.PubMedQueries) > 0 {
		queries["pubmed"] = plan.PubMedQueries
	}
	if len(plan.SemanticScholarQueries) > 0 {
		queries["semantic_scholar"] = plan.SemanticScholarQueries
	}
	if len(queries) == 0 && len(plan.Keywords) > 0 {
		q := strings.Join(plan.Keywords, " ")
		queries = map[string][]string{
			"crossref": {q}, "pubmed": {q}, "semantic_scholar": {q},
		}
	}

	limit := p.PerQueryLimit
	if limit <= 0 {
		limit = defaultPerQueryLimit
	}
	candidates, err := p.Federated.Search(ctx, queries, limit)
	if err != nil {
		return nil, fmt.Errorf("searching sources: %w", err)
	}

	deduped := resolve.Dedupe(candidates)
	filtered := p.filterTitles(deduped)
	// Abstract length is not enforced yet; enrichment runs first.
	return enrich.FilterBooks(filtered), nil
}

func (p *Pipeline) filterTitles(candidates []types.PaperCandidate) []types.PaperCandidate {
	bad := termPattern(p.badTitleTerms())
	required := termPattern(p.Cfg.RequiredTitleTerms)

	out := candidates[:0:0]
	for _, c := range candidates {
		if bad != nil && bad.MatchString(c.Title) {
			continue
		}
		if required != nil && !required.MatchString(c.Title) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *Pipeline) badTitleTerms() []string {
	if len(p.Cfg.BadTitleTerms) > 0 {
		return p.Cfg.BadTitleTerms
	}
	return defaultBadTitleTerms
}

func termPattern(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)`)
}

// enrich backfills missing abstracts for the head of the candidate list
// and keeps the ones with usable abstracts, plus the untouched tail.
func (p *Pipeline) enrich(ctx context.Context, candidates []types.PaperCandidate) []types.PaperCandidate {
	n := p.maxEnrich()
	if n > len(candidates) {
		n = len(candidates)
	}
	head := candidates[:n]

	enriched, err := parallel.MapLimit(ctx, head, p.enrichConcurrency(),
		func(ctx context.Context, c types.PaperCandidate) (types.PaperCandidate, error) {
			if c.Abstract == "" && c.DOI != "" {
				p.Enricher.BackfillAbstract(ctx, &c)
			}
			return c, nil
		})
	if err != nil {
		// Workers never return errors; this is context cancellation.
		p.log().Warn("enrichment interrupted", zap.Error(err))
	}

	kept := enriched[:0:0]
	for _, c := range enriched {
		if len(c.Abstract) >= minEnrichedAbstract {
			kept = append(kept, c)
		}
	}
	return append(kept, candidates[n:]...)
}

type gatedResult struct {
	research types.ExtractedResearch
	blended  float64
}

// extract runs bounded-concurrency extraction over the top candidates,
// gating each result and repairing a failed extraction once.
func (p *Pipeline) extract(ctx context.Context, goal types.Goal, plan types.ResearchPlan, candidates []types.PaperCandidate, log *zap.Logger) []types.ExtractedResearch {
	if p.Extractor == nil || p.Extractor.Backend == nil {
		log.Warn("no extraction backend; skipping extraction stage")
		return nil
	}

	n := p.maxExtract()
	if n > len(candidates) {
		n = len(candidates)
	}
	top := candidates[:n]

	results, _ := parallel.MapLimit(ctx, top, p.batchSize(),
		func(ctx context.Context, c types.PaperCandidate) (*types.ExtractedResearch, error) {
			r, ok := p.extractOne(ctx, goal, plan, c, log)
			if !ok {
				return nil, nil
			}
			return &r, nil
		})

	var passed []types.ExtractedResearch
	for _, r := range results {
		if r != nil {
			passed = append(passed, *r)
		}
	}
	return passed
}

func (p *Pipeline) extractOne(ctx context.Context, goal types.Goal, plan types.ResearchPlan, c types.PaperCandidate, log *zap.Logger) (types.ExtractedResearch, bool) {
	paper := p.Enricher.Enrich(ctx, c)

	extracted, err := p.Extractor.Extract(ctx, goal, plan.GoalType, paper)
	if err != nil {
		log.Warn("extraction failed", zap.String("title", c.Title), zap.Error(err))
		return types.ExtractedResearch{}, false
	}

	if p.passesGates(extracted) {
		return extracted, true
	}

	// One repair attempt with the rejection as feedback.
	feedback := extracted.RejectReason
	if feedback == "" {
		feedback = fmt.Sprintf(
			"relevance %.2f or confidence %.2f below thresholds, or no key findings",
			extracted.RelevanceScore, extracted.ExtractionConfidence)
	}
	repaired, err := p.Extractor.Repair(ctx, extracted, paper.Abstract, feedback)
	if err != nil {
		log.Warn("repair failed", zap.String("title", c.Title), zap.Error(err))
		return types.ExtractedResearch{}, false
	}
	fillPaperFields(&repaired, paper)
	if p.passesGates(repaired) {
		return repaired, true
	}
	return types.ExtractedResearch{}, false
}

func (p *Pipeline) passesGates(r types.ExtractedResearch) bool {
	return r.RelevanceScore >= p.minRelevance() &&
		r.ExtractionConfidence >= p.minConfidence() &&
		len(r.KeyFindings) > 0
}

// persist ranks by blended score, keeps the top slice above the
// threshold, and upserts each with an embed-queue entry. Per-item
// failures are logged and skipped.
func (p *Pipeline) persist(ctx context.Context, goalID string, extracted []types.ExtractedResearch, log *zap.Logger) int {
	ranked := make([]gatedResult, 0, len(extracted))
	for _, r := range extracted {
		blended := 0.7*r.RelevanceScore + 0.3*r.ExtractionConfidence
		if blended < p.minBlended() {
			continue
		}
		ranked = append(ranked, gatedResult{research: r, blended: blended})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].blended > ranked[j].blended
	})
	if keep := p.maxPersist(); len(ranked) > keep {
		ranked = ranked[:keep]
	}

	persisted := 0
	now := time.Now().UTC()
	for _, r := range ranked {
		key := researchDedupKey(r.research)
		record := types.ResearchRecord{
			GoalID:    goalID,
			DedupKey:  key,
			Blended:   r.blended,
			Research:  r.research,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := p.Store.SaveResearch(ctx, record); err != nil {
			log.Warn("persist failed", zap.String("dedup_key", key), zap.Error(err))
			continue
		}
		if err := p.Store.EnqueueEmbed(ctx, goalID, key); err != nil {
			log.Warn("embed enqueue failed", zap.String("dedup_key", key), zap.Error(err))
		}
		persisted++
	}
	return persisted
}

func researchDedupKey(r types.ExtractedResearch) string {
	return resolve.DedupKey(types.PaperCandidate{Title: r.Title, DOI: r.DOI})
}
