// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claims

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/pdiddy/claim-engine/internal/llm"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// Judgment is one evidence evaluation against a claim.
type Judgment struct {
	Polarity  types.EvidencePolarity `json:"polarity"`
	Rationale string                 `json:"rationale"`
	Score     float64                `json:"score"`
}

// Judge evaluates how a paper relates to a claim.
type Judge interface {
	Judge(ctx context.Context, claim string, paper types.PaperDetails) Judgment
}

// HeuristicJudge scores token overlap between the claim and the paper's
// title+abstract. The polarity is a conservative "mixed" since overlap
// says nothing about direction.
type HeuristicJudge struct{}

// Judge implements the overlap heuristic: score is
// min(1, hits / max(6, tokens)) over the claim's tokens.
func (HeuristicJudge) Judge(_ context.Context, claim string, paper types.PaperDetails) Judgment {
	text := strings.ToLower(paper.Title + " " + paper.Abstract)
	tokens := tokenize(claim)

	hits := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			hits++
		}
	}
	denom := len(tokens)
	if denom < 6 {
		denom = 6
	}
	score := float64(hits) / float64(denom)
	if score > 1 {
		score = 1
	}

	return Judgment{
		Polarity:  types.PolarityMixed,
		Rationale: "Auto-mapped from abstract/title match",
		Score:     score,
	}
}

// tokenize lowercases and splits on non-word runes, dropping empties.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		isWord := r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		return !isWord
	})
}

var judgePromptTmpl = template.Must(template.New("judge").Parse(`Evaluate whether this research paper supports, contradicts, or is irrelevant to the claim.

Claim: "{{.Claim}}"

Paper:
Title: {{.Title}}
Authors: {{.Authors}}
Abstract: {{.Abstract}}

Respond with a JSON object:
- polarity: supports/contradicts/mixed/irrelevant
- rationale: why (1-2 sentences)
- score: confidence 0-1`))

const judgeSystem = "You evaluate research evidence against claims. Respond only with JSON."

// LLMJudge delegates the evaluation to a model backend. A failed call
// degrades the paper to irrelevant with score 0 instead of failing the
// claim.
type LLMJudge struct {
	Backend llm.Backend
}

// Judge implements model-backed evaluation.
func (j *LLMJudge) Judge(ctx context.Context, claim string, paper types.PaperDetails) Judgment {
	abstract := paper.Abstract
	if abstract == "" {
		abstract = "No abstract available"
	}

	var prompt strings.Builder
	err := judgePromptTmpl.Execute(&prompt, struct {
		Claim, Title, Authors, Abstract string
	}{
		Claim:    claim,
		Title:    paper.Title,
		Authors:  strings.Join(paper.Authors, ", "),
		Abstract: abstract,
	})
	if err != nil {
		return failedJudgment()
	}

	out, err := j.Backend.Complete(ctx, judgeSystem, prompt.String())
	if err != nil {
		return failedJudgment()
	}

	var jm Judgment
	if err := json.Unmarshal([]byte(llm.StripFence(out)), &jm); err != nil {
		return failedJudgment()
	}
	if !validPolarity(jm.Polarity) {
		return failedJudgment()
	}
	if jm.Score < 0 {
		jm.Score = 0
	}
	if jm.Score > 1 {
		jm.Score = 1
	}
	return jm
}

func failedJudgment() Judgment {
	return Judgment{
		Polarity:  types.PolarityIrrelevant,
		Rationale: "Error during evaluation",
		Score:     0,
	}
}

func validPolarity(p types.EvidencePolarity) bool {
	switch p {
	case types.PolaritySupports, types.PolarityContradicts, types.PolarityMixed, types.PolarityIrrelevant:
		return true
	}
	return false
}
