// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package claims extracts verifiable claims from text, gathers and judges
// evidence for them, and assembles claim cards.
package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/claim-engine/internal/llm"
)

var extractPromptTmpl = template.Must(template.New("extract").Parse(`Extract all factual claims from the following text. Make each claim:
1. Atomic (one testable statement)
2. Specific (include population, intervention, outcome where applicable)
3. Falsifiable (can be proven true or false)
4. Complete (doesn't require context from other claims)

Text:
{{.Text}}

Example transformations:
- "CBT helps anxiety" -> "CBT reduces anxiety symptom severity in adults with generalized anxiety disorder"
- "Exercise improves mood" -> "Regular aerobic exercise improves mood in adults with major depressive disorder"

Respond with a JSON object: {"claims": ["...", "..."]}`))

const extractSystem = "You extract atomic, testable claims from text. Respond only with JSON."

// Extractor turns free text into a list of atomic claims. With a model
// backend the extraction is prompt-driven; without one a sentence
// heuristic runs instead.
type Extractor struct {
	Backend llm.Backend
}

type extractResponse struct {
	Claims []string `json:"claims"`
}

// Extract returns the claims found in text, deduplicated
// case-insensitively with input order preserved. Empty text is an error.
func (e *Extractor) Extract(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is empty: nothing to extract claims from")
	}

	var raw []string
	if e.Backend != nil {
		var err error
		raw, err = e.extractLLM(ctx, text)
		if err != nil {
			return nil, err
		}
	} else {
		raw = splitSentences(text)
	}

	return dedupeClaims(raw), nil
}

func (e *Extractor) extractLLM(ctx context.Context, text string) ([]string, error) {
	var prompt strings.Builder
	if err := extractPromptTmpl.Execute(&prompt, struct{ Text string }{Text: text}); err != nil {
		return nil, fmt.Errorf("rendering extract prompt: %w", err)
	}

	out, err := e.Backend.Complete(ctx, extractSystem, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}

	var resp extractResponse
	if err := json.Unmarshal([]byte(llm.StripFence(out)), &resp); err != nil {
		return nil, fmt.Errorf("parsing claims response: %w", err)
	}
	return resp.Claims, nil
}

// splitSentences is the heuristic fallback: declarative sentences of a
// reasonable length become claims.
func splitSentences(text string) []string {
	var claims []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		s = strings.TrimSpace(s)
		if len(strings.Fields(s)) < 4 {
			continue
		}
		claims = append(claims, s)
	}
	return claims
}

// dedupeClaims removes duplicates ignoring case and extra whitespace,
// keeping the first occurrence.
func dedupeClaims(claims []string) []string {
	seen := make(map[string]struct{}, len(claims))
	var out []string
	for _, c := range claims {
		c = strings.Join(strings.Fields(c), " ")
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
