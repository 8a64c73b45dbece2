// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs the goal research pipeline: plan queries, search
// the federated sources, enrich and extract candidates, and persist the
// ranked results, reporting progress on a job row.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/pdiddy/claim-engine/internal/llm"
	"github.com/pdiddy/claim-engine/pkg/types"
)

var planPromptTmpl = template.Must(template.New("plan").Parse(`Plan a research query strategy for this goal.

Goal: {{.Title}}
Description: {{.Description}}
Notes:{{range .Notes}}
- {{.}}{{end}}

Generate MULTIPLE diverse queries to maximize recall from different databases.

QUERY STRATEGY:
1. Semantic Scholar queries: mix broad and specific phrasings, use synonyms
2. Crossref queries: natural language, include context
3. PubMed queries: term queries, MeSH-friendly where biomedical overlap exists

DOMAIN MAPPING:
- For workplace topics use "occupational psychology" or
  "industrial-organizational psychology"
- NEVER use "occupational therapy" (that's rehabilitation medicine)

Also produce:
- goal_type: a coarse classification of the goal
- keywords: 5-8 core search terms
- inclusion: criteria for papers to keep
- exclusion: criteria for papers to filter out

Respond with a JSON object with fields: goal_type, keywords,
semantic_scholar_queries, crossref_queries, pubmed_queries, inclusion,
exclusion.`))

const planSystem = "You plan literature search strategies. Respond only with JSON."

// poisonPattern marks the query term that reliably drags results into the
// wrong literature.
var poisonPattern = regexp.MustCompile(`(?i)\boccupational therapy\b`)

const poisonReplacement = "occupational psychology"

// Planner produces a query plan for a goal. Without a backend the
// keyword-derived fallback plan is used.
type Planner struct {
	Backend llm.Backend
}

// Plan returns the search strategy for a goal. Planner failures and empty
// plans fall back to the keyword-derived default rather than failing the
// pipeline; the plan is always sanitized.
func (p *Planner) Plan(ctx context.Context, goal types.Goal, notes []types.Note) types.ResearchPlan {
	if p == nil || p.Backend == nil {
		return SanitizePlan(fallbackPlan(goal))
	}

	plan, err := p.planLLM(ctx, goal, notes)
	if err != nil || len(plan.Keywords) == 0 {
		return SanitizePlan(fallbackPlan(goal))
	}
	return SanitizePlan(plan)
}

func (p *Planner) planLLM(ctx context.Context, goal types.Goal, notes []types.Note) (types.ResearchPlan, error) {
	noteBodies := make([]string, len(notes))
	for i, n := range notes {
		noteBodies[i] = n.Body
	}

	var prompt strings.Builder
	err := planPromptTmpl.Execute(&prompt, struct {
		Title, Description string
		Notes              []string
	}{goal.Title, goal.Description, noteBodies})
	if err != nil {
		return types.ResearchPlan{}, fmt.Errorf("rendering plan prompt: %w", err)
	}

	out, err := p.Backend.Complete(ctx, planSystem, prompt.String())
	if err != nil {
		return types.ResearchPlan{}, fmt.Errorf("planning queries: %w", err)
	}

	var plan types.ResearchPlan
	if err := json.Unmarshal([]byte(llm.StripFence(out)), &plan); err != nil {
		return types.ResearchPlan{}, fmt.Errorf("parsing plan response: %w", err)
	}
	return plan, nil
}

// SanitizePlan replaces the poison term throughout the plan's query
// strings. Exclusion criteria are left alone: excluding the poison term
// is desirable.
func SanitizePlan(plan types.ResearchPlan) types.ResearchPlan {
	fix := func(s string) string {
		return poisonPattern.ReplaceAllString(s, poisonReplacement)
	}
	fixAll := func(ss []string) []string {
		out := make([]string, len(ss))
		for i, s := range ss {
			out[i] = fix(s)
		}
		return out
	}

	plan.GoalType = fix(plan.GoalType)
	plan.Keywords = fixAll(plan.Keywords)
	plan.SemanticScholarQueries = fixAll(plan.SemanticScholarQueries)
	plan.CrossrefQueries = fixAll(plan.CrossrefQueries)
	plan.PubMedQueries = fixAll(plan.PubMedQueries)
	plan.Inclusion = fixAll(plan.Inclusion)
	return plan
}

// fallbackPlan derives a workable query pack from the goal title alone.
func fallbackPlan(goal types.Goal) types.ResearchPlan {
	keywords := planKeywords(goal.Title)
	base := strings.Join(keywords, " ")
	if base == "" {
		base = goal.Title
	}

	expand := func(suffixes ...string) []string {
		queries := []string{base}
		for _, suffix := range suffixes {
			queries = append(queries, base+" "+suffix)
		}
		return queries
	}

	return types.ResearchPlan{
		GoalType: "general",
		Keywords: keywords,
		SemanticScholarQueries: expand(
			"intervention", "training", "skills", "strategies", "effectiveness",
		),
		CrossrefQueries: expand(
			"intervention", "training", "program evaluation",
		),
		PubMedQueries: expand(
			"intervention", "randomized controlled trial",
		),
	}
}

var planTokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// planKeywords keeps the informative words of a goal title.
func planKeywords(title string) []string {
	var keywords []string
	for _, tok := range planTokenPattern.FindAllString(strings.ToLower(title), -1) {
		if len(tok) <= 3 {
			continue
		}
		keywords = append(keywords, tok)
	}
	if len(keywords) > 8 {
		keywords = keywords[:8]
	}
	return keywords
}
