// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"testing"

	"github.com/pdiddy/claim-engine/pkg/types"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "No tags here.", "No tags here."},
		{"jats", "<jats:p>Sleep improves <jats:italic>memory</jats:italic>.</jats:p>", "Sleep improves memory ."},
		{"entities", "A &amp; B &lt;tag&gt; &quot;q&quot; &#39;s&#39;", `A & B <tag> "q" 's'`},
		{"whitespace", "  a \n\t b  ", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.in); got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterBooks(t *testing.T) {
	candidates := []types.PaperCandidate{
		{Title: "Article", PublicationType: "journal-article"},
		{Title: "Chapter", PublicationType: "book-chapter"},
		{Title: "Monograph", PublicationType: "monograph"},
		{Title: "No type"},
	}
	got := FilterBooks(candidates)
	if len(got) != 2 {
		t.Fatalf("got %d, want 2: %+v", len(got), got)
	}
	if got[0].Title != "Article" || got[1].Title != "No type" {
		t.Errorf("kept %+v", got)
	}
}

func TestFilterDeniedTitles(t *testing.T) {
	candidates := []types.PaperCandidate{
		{Title: "Memory consolidation during sleep"},
		{Title: "Forensic interview techniques"},
		{Title: "Child witness testimony in court"},
		{Title: "Motivational interviewing outcomes"},
	}
	got := FilterDeniedTitles(candidates, nil)
	if len(got) != 2 {
		t.Fatalf("got %d, want 2: %+v", len(got), got)
	}
	for _, c := range got {
		if TitleDenied(c.Title, nil) {
			t.Errorf("denied title kept: %q", c.Title)
		}
	}
}

func TestFilterDeniedTitles_CustomTerms(t *testing.T) {
	candidates := []types.PaperCandidate{
		{Title: "Volcanic ash dispersion models"},
		{Title: "Forensic interview techniques"},
		{Title: "Memory consolidation during sleep"},
	}
	// Custom terms replace the built-in list, so "forensic" passes here.
	got := FilterDeniedTitles(candidates, []string{"volcanic"})
	if len(got) != 2 {
		t.Fatalf("got %d, want 2: %+v", len(got), got)
	}
	if got[0].Title != "Forensic interview techniques" {
		t.Errorf("kept %+v", got)
	}
	if TitleDenied("Volcanic ash dispersion models", []string{"volcanic"}) != true {
		t.Error("custom term did not match")
	}
}

func TestFilterShortAbstracts(t *testing.T) {
	long := make([]byte, 250)
	for i := range long {
		long[i] = 'a'
	}
	candidates := []types.PaperCandidate{
		{Title: "Long", Abstract: string(long)},
		{Title: "Short", Abstract: "tiny"},
		{Title: "Missing"},
	}
	got := FilterShortAbstracts(candidates, 200)
	if len(got) != 1 || got[0].Title != "Long" {
		t.Fatalf("got %+v", got)
	}
}

func TestApplyQualityFilters_SkipAbstractCheck(t *testing.T) {
	candidates := []types.PaperCandidate{
		{Title: "Kept despite no abstract", PublicationType: "journal-article"},
		{Title: "Dropped book", PublicationType: "book"},
	}

	got := ApplyQualityFilters(candidates, types.EnrichConfig{SkipAbstractCheck: true}, nil)
	if len(got) != 1 || got[0].Title != "Kept despite no abstract" {
		t.Fatalf("got %+v", got)
	}

	// With the check on, the abstract-less candidate is dropped too.
	got = ApplyQualityFilters(candidates, types.EnrichConfig{}, nil)
	if len(got) != 0 {
		t.Fatalf("got %+v, want none", got)
	}
}

func TestApplyQualityFilters_DenyTermsFromConfig(t *testing.T) {
	candidates := []types.PaperCandidate{
		{Title: "Volcanic ash dispersion models", PublicationType: "journal-article"},
		{Title: "Sleep and memory consolidation", PublicationType: "journal-article"},
	}
	cfg := types.EnrichConfig{SkipAbstractCheck: true, TitleDenyTerms: []string{"volcanic"}}
	got := ApplyQualityFilters(candidates, cfg, nil)
	if len(got) != 1 || got[0].Title != "Sleep and memory consolidation" {
		t.Fatalf("got %+v", got)
	}
}
