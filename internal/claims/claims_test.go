// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/claim-engine/internal/sources"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// --- mocks ---

type mockBackend struct {
	response string
	err      error
	calls    int
}

func (m *mockBackend) Complete(_ context.Context, _, _ string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type stubProvider struct {
	name       string
	candidates []types.PaperCandidate
	err        error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(_ context.Context, _ string, _ int) ([]types.PaperCandidate, error) {
	return p.candidates, p.err
}

type passthroughEnricher struct{}

func (passthroughEnricher) Enrich(_ context.Context, c types.PaperCandidate) types.PaperDetails {
	return types.PaperDetails{
		Title:    c.Title,
		Authors:  c.Authors,
		Year:     c.Year,
		DOI:      c.DOI,
		URL:      c.URL,
		Journal:  c.Journal,
		Abstract: c.Abstract,
		Source:   c.Source,
	}
}

// oaEnricher is a passthrough that also resolves an open-access link.
type oaEnricher struct{}

func (oaEnricher) Enrich(ctx context.Context, c types.PaperCandidate) types.PaperDetails {
	d := passthroughEnricher{}.Enrich(ctx, c)
	d.OAURL = "https://oa.example/paper.pdf"
	d.OAStatus = "green"
	return d
}

// --- stable IDs ---

func TestStableClaimID_Deterministic(t *testing.T) {
	a := StableClaimID("Coffee improves alertness", types.ClaimScope{})
	b := StableClaimID("  coffee improves alertness  ", types.ClaimScope{})
	if a != b {
		t.Errorf("IDs differ for equivalent claims: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "claim_") {
		t.Errorf("ID missing prefix: %q", a)
	}
	if len(a) != len("claim_")+16 {
		t.Errorf("ID length = %d, want %d", len(a), len("claim_")+16)
	}
}

func TestStableClaimID_ScopeChangesID(t *testing.T) {
	plain := StableClaimID("Coffee improves alertness", types.ClaimScope{})
	scoped := StableClaimID("Coffee improves alertness", types.ClaimScope{Population: "adults"})
	if plain == scoped {
		t.Error("scoped and unscoped claims produced the same ID")
	}
}

func TestStableClaimID_AllScopeFieldsDistinguish(t *testing.T) {
	claim := "Coffee improves alertness"
	variants := []types.ClaimScope{
		{},
		{Population: "adults"},
		{Intervention: "caffeine"},
		{Comparator: "placebo"},
		{Outcome: "reaction time"},
		{Timeframe: "2010-2020"},
		{Setting: "workplace"},
	}
	seen := make(map[string]types.ClaimScope, len(variants))
	for _, scope := range variants {
		id := StableClaimID(claim, scope)
		if prev, ok := seen[id]; ok {
			t.Errorf("scopes %+v and %+v collide on %q", prev, scope, id)
		}
		seen[id] = scope
	}
}

func TestStableClaimID_DistinctClaims(t *testing.T) {
	a := StableClaimID("Coffee improves alertness", types.ClaimScope{})
	b := StableClaimID("Tea improves alertness", types.ClaimScope{})
	if a == b {
		t.Error("different claims produced the same ID")
	}
}

// --- snippets ---

func TestBestSnippet(t *testing.T) {
	long := strings.Repeat("a", 300)
	tests := []struct {
		name     string
		abstract string
		want     string
	}{
		{"empty", "", ""},
		{"sentinel", types.AbstractUnavailable, ""},
		{"short", "Short abstract.", "Short abstract."},
		{"truncated", long, strings.Repeat("a", 220) + "…"},
		{"whitespace trimmed", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bestSnippet(types.PaperDetails{Abstract: tt.abstract})
			if got != tt.want {
				t.Errorf("bestSnippet(%q) = %q, want %q", tt.abstract, got, tt.want)
			}
		})
	}
}

// --- heuristic judge ---

func TestHeuristicJudge_Overlap(t *testing.T) {
	paper := types.PaperDetails{
		Title:    "Caffeine and cognitive performance",
		Abstract: "Caffeine intake improves alertness in adults.",
	}
	jm := HeuristicJudge{}.Judge(context.Background(), "caffeine improves alertness", paper)

	if jm.Polarity != types.PolarityMixed {
		t.Errorf("polarity = %q, want mixed", jm.Polarity)
	}
	// 3 tokens, all present; denominator floors at 6.
	if want := 3.0 / 6.0; jm.Score != want {
		t.Errorf("score = %v, want %v", jm.Score, want)
	}
}

func TestHeuristicJudge_NoOverlap(t *testing.T) {
	paper := types.PaperDetails{Title: "Soil drainage in wetlands"}
	jm := HeuristicJudge{}.Judge(context.Background(), "quantum entanglement violates locality", paper)
	if jm.Score != 0 {
		t.Errorf("score = %v, want 0", jm.Score)
	}
}

func TestHeuristicJudge_LongClaimDenominator(t *testing.T) {
	paper := types.PaperDetails{Title: "one two three four five six seven eight"}
	claim := "one two three four five six seven eight"
	jm := HeuristicJudge{}.Judge(context.Background(), claim, paper)
	if jm.Score != 1 {
		t.Errorf("score = %v, want 1 for full overlap", jm.Score)
	}
}

// --- LLM judge ---

func TestLLMJudge_ParsesResponse(t *testing.T) {
	backend := &mockBackend{response: `{"polarity": "supports", "rationale": "Direct evidence.", "score": 0.85}`}
	j := &LLMJudge{Backend: backend}

	jm := j.Judge(context.Background(), "claim", types.PaperDetails{Title: "Paper"})
	if jm.Polarity != types.PolaritySupports {
		t.Errorf("polarity = %q, want supports", jm.Polarity)
	}
	if jm.Score != 0.85 {
		t.Errorf("score = %v, want 0.85", jm.Score)
	}
	if jm.Rationale != "Direct evidence." {
		t.Errorf("rationale = %q", jm.Rationale)
	}
}

func TestLLMJudge_StripsFence(t *testing.T) {
	backend := &mockBackend{response: "```json\n{\"polarity\": \"contradicts\", \"rationale\": \"r\", \"score\": 0.5}\n```"}
	j := &LLMJudge{Backend: backend}

	jm := j.Judge(context.Background(), "claim", types.PaperDetails{})
	if jm.Polarity != types.PolarityContradicts {
		t.Errorf("polarity = %q, want contradicts", jm.Polarity)
	}
}

func TestLLMJudge_DegradesOnError(t *testing.T) {
	j := &LLMJudge{Backend: &mockBackend{err: errors.New("backend down")}}

	jm := j.Judge(context.Background(), "claim", types.PaperDetails{})
	if jm.Polarity != types.PolarityIrrelevant {
		t.Errorf("polarity = %q, want irrelevant", jm.Polarity)
	}
	if jm.Score != 0 {
		t.Errorf("score = %v, want 0", jm.Score)
	}
	if jm.Rationale != "Error during evaluation" {
		t.Errorf("rationale = %q", jm.Rationale)
	}
}

func TestLLMJudge_DegradesOnBadJSON(t *testing.T) {
	j := &LLMJudge{Backend: &mockBackend{response: "not json"}}
	jm := j.Judge(context.Background(), "claim", types.PaperDetails{})
	if jm.Polarity != types.PolarityIrrelevant || jm.Score != 0 {
		t.Errorf("judgment = %+v, want degraded", jm)
	}
}

func TestLLMJudge_RejectsUnknownPolarity(t *testing.T) {
	j := &LLMJudge{Backend: &mockBackend{response: `{"polarity": "maybe", "rationale": "r", "score": 0.4}`}}
	jm := j.Judge(context.Background(), "claim", types.PaperDetails{})
	if jm.Polarity != types.PolarityIrrelevant {
		t.Errorf("polarity = %q, want irrelevant for unknown polarity", jm.Polarity)
	}
}

func TestLLMJudge_ClampsScore(t *testing.T) {
	j := &LLMJudge{Backend: &mockBackend{response: `{"polarity": "supports", "rationale": "r", "score": 1.7}`}}
	jm := j.Judge(context.Background(), "claim", types.PaperDetails{})
	if jm.Score != 1 {
		t.Errorf("score = %v, want clamped to 1", jm.Score)
	}
}

// --- verdict aggregation ---

func evidenceOf(items ...types.EvidenceItem) []types.EvidenceItem { return items }

func ev(p types.EvidencePolarity, score float64) types.EvidenceItem {
	return types.EvidenceItem{Polarity: p, Score: score}
}

func TestAggregateVerdict_Empty(t *testing.T) {
	verdict, conf := AggregateVerdict(nil, types.VerdictThresholds{})
	if verdict != types.VerdictInsufficient || conf != 0 {
		t.Errorf("got %q/%v, want insufficient/0", verdict, conf)
	}
}

func TestAggregateVerdict_AllIrrelevant(t *testing.T) {
	verdict, conf := AggregateVerdict(evidenceOf(
		ev(types.PolarityIrrelevant, 0.05),
		ev(types.PolarityIrrelevant, 0.05),
	), types.VerdictThresholds{})
	if verdict != types.VerdictInsufficient {
		t.Errorf("verdict = %q, want insufficient", verdict)
	}
	// Average score is below the floor, so the floor wins.
	if conf != 0.1 {
		t.Errorf("confidence = %v, want 0.1 floor", conf)
	}
}

func TestAggregateVerdict_Supported(t *testing.T) {
	verdict, _ := AggregateVerdict(evidenceOf(
		ev(types.PolaritySupports, 0.8),
		ev(types.PolaritySupports, 0.9),
		ev(types.PolaritySupports, 0.7),
		ev(types.PolaritySupports, 0.8),
		ev(types.PolarityContradicts, 0.6),
	), types.VerdictThresholds{})
	if verdict != types.VerdictSupported {
		t.Errorf("verdict = %q, want supported", verdict)
	}
}

func TestAggregateVerdict_Contradicted(t *testing.T) {
	verdict, _ := AggregateVerdict(evidenceOf(
		ev(types.PolarityContradicts, 0.8),
		ev(types.PolarityContradicts, 0.9),
		ev(types.PolarityContradicts, 0.7),
		ev(types.PolarityContradicts, 0.8),
		ev(types.PolaritySupports, 0.6),
	), types.VerdictThresholds{})
	if verdict != types.VerdictContradicted {
		t.Errorf("verdict = %q, want contradicted", verdict)
	}
}

func TestAggregateVerdict_MixedEvidenceIsInsufficient(t *testing.T) {
	// All mixed: relevant but neither side clears its ratio, and the
	// combined support+contradict ratio is below the evidence floor.
	verdict, _ := AggregateVerdict(evidenceOf(
		ev(types.PolarityMixed, 0.5),
		ev(types.PolarityMixed, 0.6),
	), types.VerdictThresholds{})
	if verdict != types.VerdictInsufficient {
		t.Errorf("verdict = %q, want insufficient", verdict)
	}
}

func TestAggregateVerdict_Mixed(t *testing.T) {
	verdict, _ := AggregateVerdict(evidenceOf(
		ev(types.PolaritySupports, 0.7),
		ev(types.PolaritySupports, 0.7),
		ev(types.PolarityContradicts, 0.7),
		ev(types.PolarityContradicts, 0.7),
	), types.VerdictThresholds{})
	if verdict != types.VerdictMixed {
		t.Errorf("verdict = %q, want mixed", verdict)
	}
}

func TestAggregateVerdict_ConfidenceCapped(t *testing.T) {
	items := make([]types.EvidenceItem, 10)
	for i := range items {
		items[i] = ev(types.PolaritySupports, 1.0)
	}
	_, conf := AggregateVerdict(items, types.VerdictThresholds{})
	if conf != 0.95 {
		t.Errorf("confidence = %v, want capped at 0.95", conf)
	}
}

func TestAggregateVerdict_ConfidenceFormula(t *testing.T) {
	// 2 relevant items, avg 0.5: 0.5*0.7 + (2/5)*0.3 = 0.47.
	_, conf := AggregateVerdict(evidenceOf(
		ev(types.PolaritySupports, 0.5),
		ev(types.PolaritySupports, 0.5),
	), types.VerdictThresholds{})
	want := 0.5*0.7 + (2.0/5.0)*0.3
	if diff := conf - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want %v", conf, want)
	}
}

func TestAggregateVerdict_CustomThresholds(t *testing.T) {
	th := types.VerdictThresholds{SupportRatio: 0.5, ContradictRatio: 0.9, MinEvidenceSum: 0.1}
	verdict, _ := AggregateVerdict(evidenceOf(
		ev(types.PolaritySupports, 0.6),
		ev(types.PolaritySupports, 0.6),
		ev(types.PolarityContradicts, 0.6),
	), th)
	if verdict != types.VerdictSupported {
		t.Errorf("verdict = %q, want supported with lowered threshold", verdict)
	}
}

// --- extraction ---

func TestExtract_EmptyText(t *testing.T) {
	e := &Extractor{}
	if _, err := e.Extract(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestExtract_HeuristicFallback(t *testing.T) {
	e := &Extractor{}
	text := "Coffee improves alertness in adults. Short one. Tea also contains caffeine compounds!"
	claims, err := e.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{
		"Coffee improves alertness in adults",
		"Tea also contains caffeine compounds",
	}
	if len(claims) != len(want) {
		t.Fatalf("got %d claims %v, want %d", len(claims), claims, len(want))
	}
	for i := range want {
		if claims[i] != want[i] {
			t.Errorf("claims[%d] = %q, want %q", i, claims[i], want[i])
		}
	}
}

func TestExtract_LLM(t *testing.T) {
	backend := &mockBackend{response: `{"claims": ["CBT reduces anxiety in adults", "cbt reduces anxiety in adults", "Exercise improves mood in adults"]}`}
	e := &Extractor{Backend: backend}

	claims, err := e.Extract(context.Background(), "some text about therapy")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("got %d claims %v, want 2 after case-insensitive dedup", len(claims), claims)
	}
	if claims[0] != "CBT reduces anxiety in adults" {
		t.Errorf("claims[0] = %q, first occurrence should win", claims[0])
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
}

func TestExtract_LLMError(t *testing.T) {
	e := &Extractor{Backend: &mockBackend{err: errors.New("down")}}
	if _, err := e.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected error when backend fails")
	}
}

// --- builder ---

func testBuilder(providers ...sources.Provider) *Builder {
	return &Builder{
		Federated: sources.NewFederated(providers, nil),
		Enricher:  passthroughEnricher{},
		Judge:     HeuristicJudge{},
		Cfg: types.ClaimsConfig{
			Sources: []string{"stub"},
		},
	}
}

func TestBuildFromClaims(t *testing.T) {
	provider := &stubProvider{
		name: "stub",
		candidates: []types.PaperCandidate{
			{Title: "Caffeine improves alertness in adults", DOI: "10.1/a", Abstract: "Caffeine intake improves alertness.", Source: "stub"},
			{Title: "Unrelated wetlands paper", DOI: "10.1/b", Source: "stub"},
		},
	}
	b := testBuilder(provider)

	claim := "Caffeine improves alertness"
	cards, err := b.BuildFromClaims(context.Background(), []string{claim})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("got %d cards, want 1", len(cards))
	}

	card := cards[0]
	if card.ID != StableClaimID(claim, types.ClaimScope{}) {
		t.Errorf("card ID = %q, not stable ID", card.ID)
	}
	if len(card.Evidence) != 2 {
		t.Fatalf("evidence = %d items, want 2", len(card.Evidence))
	}
	if card.Evidence[0].Polarity != types.PolarityMixed {
		t.Errorf("heuristic evidence polarity = %q, want mixed", card.Evidence[0].Polarity)
	}
	if card.Provenance.GeneratedBy != "claim-engine:claim-cards@1" {
		t.Errorf("generatedBy = %q", card.Provenance.GeneratedBy)
	}
	if card.Provenance.Model != "" {
		t.Errorf("model = %q, want empty without LLM judge", card.Provenance.Model)
	}
	if len(card.Queries) != 1 || card.Queries[0] != claim {
		t.Errorf("queries = %v, want [claim]", card.Queries)
	}
	if card.CreatedAt.IsZero() || card.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestBuildFromClaims_EvidenceCarriesPaperMetadata(t *testing.T) {
	provider := &stubProvider{
		name: "stub",
		candidates: []types.PaperCandidate{{
			Title:    "Caffeine improves alertness in adults",
			Authors:  []string{"A. Author", "B. Author"},
			Year:     2019,
			DOI:      "10.1/a",
			Journal:  "Journal of Applied Cognition",
			Abstract: "Caffeine intake improves alertness in adult samples.",
			Source:   "stub",
		}},
	}
	b := testBuilder(provider)

	cards, err := b.BuildFromClaims(context.Background(), []string{"Caffeine improves alertness"})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	ev := cards[0].Evidence[0]
	if ev.Journal != "Journal of Applied Cognition" {
		t.Errorf("journal = %q", ev.Journal)
	}
	if len(ev.Authors) != 2 || ev.Year != 2019 || ev.DOI != "10.1/a" {
		t.Errorf("paper metadata not carried: %+v", ev.PaperDetails)
	}
	if ev.Abstract == "" {
		t.Error("abstract not carried on evidence")
	}
	if ev.Locator != nil {
		t.Errorf("locator = %+v, want none without an OA link", ev.Locator)
	}
}

func TestBuildFromClaims_LocatorFromOpenAccessLink(t *testing.T) {
	b := testBuilder(&stubProvider{name: "stub", candidates: []types.PaperCandidate{
		{Title: "Caffeine improves alertness in adults", DOI: "10.1/a", Source: "stub"},
	}})
	b.Enricher = oaEnricher{}

	cards, err := b.BuildFromClaims(context.Background(), []string{"Caffeine improves alertness"})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	ev := cards[0].Evidence[0]
	if ev.Locator == nil || ev.Locator.URL != "https://oa.example/paper.pdf" {
		t.Errorf("locator = %+v, want the resolved OA link", ev.Locator)
	}
}

func TestBuildFromClaims_QualityFiltersCandidates(t *testing.T) {
	provider := &stubProvider{
		name: "stub",
		candidates: []types.PaperCandidate{
			{Title: "Caffeine improves alertness in adults", DOI: "10.1/a", Source: "stub"},
			{Title: "Forensic interview techniques", DOI: "10.1/b", Source: "stub"},
			{Title: "The caffeine handbook", DOI: "10.1/c", PublicationType: "book", Source: "stub"},
		},
	}
	b := testBuilder(provider)

	cards, err := b.BuildFromClaims(context.Background(), []string{"Caffeine improves alertness"})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	if len(cards[0].Evidence) != 1 || cards[0].Evidence[0].Title != "Caffeine improves alertness in adults" {
		t.Fatalf("evidence = %+v, want only the journal article", cards[0].Evidence)
	}

	// Configured deny terms replace the built-in list.
	b.EnrichCfg.TitleDenyTerms = []string{"caffeine"}
	cards, err = b.BuildFromClaims(context.Background(), []string{"Caffeine improves alertness"})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	if len(cards[0].Evidence) != 1 || cards[0].Evidence[0].Title != "Forensic interview techniques" {
		t.Fatalf("evidence = %+v, want only the non-matching title", cards[0].Evidence)
	}
}

func TestBuildFromClaims_TopK(t *testing.T) {
	var candidates []types.PaperCandidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, types.PaperCandidate{
			Title:  fmt.Sprintf("Paper number %d", i),
			DOI:    fmt.Sprintf("10.1/p%d", i),
			Source: "stub",
		})
	}
	b := testBuilder(&stubProvider{name: "stub", candidates: candidates})
	b.Cfg.TopK = 3

	cards, err := b.BuildFromClaims(context.Background(), []string{"some claim text"})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	if len(cards[0].Evidence) != 3 {
		t.Errorf("evidence = %d items, want topK 3", len(cards[0].Evidence))
	}
}

func TestBuildFromClaims_NoEvidence(t *testing.T) {
	b := testBuilder(&stubProvider{name: "stub"})

	cards, err := b.BuildFromClaims(context.Background(), []string{"an unfindable claim"})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	card := cards[0]
	if card.Verdict != types.VerdictInsufficient {
		t.Errorf("verdict = %q, want insufficient", card.Verdict)
	}
	if card.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", card.Confidence)
	}
}

func TestBuildFromClaims_ProviderFailureIsNotFatal(t *testing.T) {
	b := testBuilder(&stubProvider{name: "stub", err: errors.New("upstream 500")})

	cards, err := b.BuildFromClaims(context.Background(), []string{"a claim"})
	if err != nil {
		t.Fatalf("BuildFromClaims: %v", err)
	}
	if cards[0].Verdict != types.VerdictInsufficient {
		t.Errorf("verdict = %q, want insufficient when the only provider fails", cards[0].Verdict)
	}
}

func TestBuildFromText_NoExtractor(t *testing.T) {
	b := testBuilder(&stubProvider{name: "stub"})
	if _, err := b.BuildFromText(context.Background(), "text"); err == nil {
		t.Fatal("expected error without extractor")
	}
}

func TestBuildFromText(t *testing.T) {
	b := testBuilder(&stubProvider{name: "stub"})
	b.Extractor = &Extractor{}

	cards, err := b.BuildFromText(context.Background(), "Coffee improves alertness in adults. Tea contains caffeine as well.")
	if err != nil {
		t.Fatalf("BuildFromText: %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("got %d cards, want 2", len(cards))
	}
}

func TestRefresh_PreservesIdentity(t *testing.T) {
	b := testBuilder(&stubProvider{name: "stub", candidates: []types.PaperCandidate{
		{Title: "Fresh evidence paper", DOI: "10.1/fresh", Source: "stub"},
	}})

	created := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	original := types.ClaimCard{
		ID:        "claim_0123456789abcdef",
		Claim:     "Coffee improves alertness",
		Notes:     "flagged for review",
		CreatedAt: created,
	}

	refreshed, err := b.Refresh(context.Background(), original)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.ID != original.ID {
		t.Errorf("ID changed: %q", refreshed.ID)
	}
	if !refreshed.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v", refreshed.CreatedAt)
	}
	if refreshed.Notes != original.Notes {
		t.Errorf("Notes changed: %q", refreshed.Notes)
	}
	if len(refreshed.Evidence) != 1 {
		t.Errorf("evidence = %d items, want rebuilt evidence", len(refreshed.Evidence))
	}
	if refreshed.UpdatedAt.Equal(original.UpdatedAt) {
		t.Error("UpdatedAt not refreshed")
	}
}
