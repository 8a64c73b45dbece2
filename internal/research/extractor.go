// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/claim-engine/internal/llm"
	"github.com/pdiddy/claim-engine/pkg/types"
)

var extractPromptTmpl = template.Must(template.New("extract").Parse(`Extract research information from this paper.

Goal: {{.GoalTitle}}
Goal Description: {{.GoalDescription}}
Goal Type: {{.GoalType}}

Paper:
Title: {{.Title}}
Authors: {{.Authors}}
Year: {{.Year}}
Journal: {{.Journal}}
DOI: {{.DOI}}
Abstract: {{.Abstract}}

Extract:
1. Key findings (3-5) that are DIRECTLY relevant to the goal
2. Specific techniques or interventions mentioned
3. Evidence level (meta-analysis > RCT > cohort > case-study > review)
4. Relevance score (0-1) based on how well it addresses the goal

IMPORTANT:
- Only extract findings EXPLICITLY stated in the abstract
- Do not infer or extrapolate beyond what is written
- Be strict about relevance: off-goal papers get low scores
- Rate your extraction confidence honestly
- If the paper does not fit, set reject_reason

Respond with a JSON object with fields: title, authors, year, journal,
doi, url, abstract, key_findings, techniques, evidence_level,
relevance_score, extraction_confidence, reject_reason.`))

var repairPromptTmpl = template.Must(template.New("repair").Parse(`Repair this research extraction based on feedback.

Original Extraction:
{{.Extracted}}

Abstract:
{{.Abstract}}

Feedback:
{{.Feedback}}

Instructions:
- Remove or rewrite any unsupported claims
- Ensure every finding is directly supported by the abstract
- Be more conservative in claims
- Lower confidence if uncertain
- Keep only well-supported findings

Respond with the same JSON object shape as the original extraction.`))

const extractSystem = "You extract structured research data from papers. Respond only with JSON."

// ErrNoBackend is returned when extraction is requested without a model.
var ErrNoBackend = errors.New("no extraction backend configured")

// Extractor turns enriched papers into structured research records.
type Extractor struct {
	Backend llm.Backend

	// Model is stamped into ExtractedBy; defaults to llm.DefaultModel.
	Model string
}

func (e *Extractor) extractedBy(repaired bool) string {
	model := e.Model
	if model == "" {
		model = llm.DefaultModel
	}
	if repaired {
		return "claim-engine:" + model + ":v1-repaired"
	}
	return "claim-engine:" + model + ":v1"
}

// Extract runs structured extraction for one paper against a goal.
func (e *Extractor) Extract(ctx context.Context, goal types.Goal, goalType string, paper types.PaperDetails) (types.ExtractedResearch, error) {
	if e.Backend == nil {
		return types.ExtractedResearch{}, ErrNoBackend
	}

	var prompt strings.Builder
	err := extractPromptTmpl.Execute(&prompt, struct {
		GoalTitle, GoalDescription, GoalType   string
		Title, Authors, Journal, DOI, Abstract string
		Year                                   int
	}{
		GoalTitle:       goal.Title,
		GoalDescription: goal.Description,
		GoalType:        goalType,
		Title:           paper.Title,
		Authors:         orUnknown(strings.Join(paper.Authors, ", ")),
		Journal:         orUnknown(paper.Journal),
		DOI:             orNone(paper.DOI),
		Abstract:        paper.Abstract,
		Year:            paper.Year,
	})
	if err != nil {
		return types.ExtractedResearch{}, fmt.Errorf("rendering extract prompt: %w", err)
	}

	extracted, err := e.complete(ctx, prompt.String())
	if err != nil {
		return types.ExtractedResearch{}, err
	}

	extracted.ExtractedBy = e.extractedBy(false)
	fillPaperFields(&extracted, paper)
	return extracted, nil
}

// Repair re-runs extraction with feedback about what was wrong. Used once
// per paper when the first extraction fails the gates.
func (e *Extractor) Repair(ctx context.Context, extracted types.ExtractedResearch, abstract, feedback string) (types.ExtractedResearch, error) {
	if e.Backend == nil {
		return types.ExtractedResearch{}, ErrNoBackend
	}

	originalJSON, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return types.ExtractedResearch{}, fmt.Errorf("encoding extraction for repair: %w", err)
	}

	var prompt strings.Builder
	err = repairPromptTmpl.Execute(&prompt, struct {
		Extracted, Abstract, Feedback string
	}{string(originalJSON), abstract, feedback})
	if err != nil {
		return types.ExtractedResearch{}, fmt.Errorf("rendering repair prompt: %w", err)
	}

	repaired, err := e.complete(ctx, prompt.String())
	if err != nil {
		return types.ExtractedResearch{}, err
	}

	repaired.ExtractedBy = e.extractedBy(true)
	return repaired, nil
}

func (e *Extractor) complete(ctx context.Context, prompt string) (types.ExtractedResearch, error) {
	out, err := e.Backend.Complete(ctx, extractSystem, prompt)
	if err != nil {
		return types.ExtractedResearch{}, fmt.Errorf("extracting research: %w", err)
	}

	var extracted types.ExtractedResearch
	if err := json.Unmarshal([]byte(llm.StripFence(out)), &extracted); err != nil {
		return types.ExtractedResearch{}, fmt.Errorf("parsing extraction response: %w", err)
	}
	return extracted, nil
}

// fillPaperFields backfills paper metadata the model left out.
func fillPaperFields(r *types.ExtractedResearch, paper types.PaperDetails) {
	if r.Title == "" {
		r.Title = paper.Title
	}
	if len(r.Authors) == 0 {
		r.Authors = paper.Authors
	}
	if r.Year == 0 {
		r.Year = paper.Year
	}
	if r.Journal == "" {
		r.Journal = paper.Journal
	}
	if r.DOI == "" {
		r.DOI = paper.DOI
	}
	if r.URL == "" {
		r.URL = paper.URL
	}
	if r.Abstract == "" {
		r.Abstract = paper.Abstract
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
