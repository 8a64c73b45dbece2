// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// bookTypes are publication types dropped by the quality filter. Values
// follow the Crossref type vocabulary.
var bookTypes = map[string]struct{}{
	"book-chapter":    {},
	"book-section":    {},
	"book-part":       {},
	"reference-entry": {},
	"book":            {},
	"monograph":       {},
	"edited-book":     {},
	"reference-book":  {},
}

// defaultTitleDenyTerms exclude forensic, child, and legal material that
// pollutes interview and memory research queries. Overridable per run via
// EnrichConfig.TitleDenyTerms.
var defaultTitleDenyTerms = []string{
	"child", "forensic", "witness", "court", "legal", "police",
	"criminal", "abuse", "victim", "testimony",
	"investigative interview", "law enforcement",
}

// titleDenyPattern compiles the deny terms into a word-boundary matcher,
// falling back to the built-in list when terms is empty.
func titleDenyPattern(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		terms = defaultTitleDenyTerms
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

var (
	markupTagPattern   = regexp.MustCompile(`</?[^>]+>`)
	markupSpacePattern = regexp.MustCompile(`\s+`)
)

// StripMarkup removes JATS/XML tags (common in Crossref abstracts) and
// decodes the handful of entities they carry. A conservative tag strip,
// not an XML parser.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	out := markupTagPattern.ReplaceAllString(s, " ")
	out = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(out)
	return strings.TrimSpace(markupSpacePattern.ReplaceAllString(out, " "))
}

// IsBookType reports whether a publication type is book-like. Candidates
// without a type pass (benefit of the doubt for sources that omit it).
func IsBookType(publicationType string) bool {
	_, ok := bookTypes[publicationType]
	return ok
}

// TitleDenied reports whether a title matches the deny terms (the built-in
// list when terms is empty).
func TitleDenied(title string, terms []string) bool {
	return titleDenyPattern(terms).MatchString(title)
}

// FilterBooks drops candidates with book-like publication types.
func FilterBooks(candidates []types.PaperCandidate) []types.PaperCandidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if IsBookType(c.PublicationType) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterDeniedTitles drops candidates whose titles hit the deny terms.
func FilterDeniedTitles(candidates []types.PaperCandidate, terms []string) []types.PaperCandidate {
	pattern := titleDenyPattern(terms)
	out := candidates[:0:0]
	for _, c := range candidates {
		if pattern.MatchString(c.Title) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterShortAbstracts drops candidates whose abstracts are missing or
// shorter than minLength.
func FilterShortAbstracts(candidates []types.PaperCandidate, minLength int) []types.PaperCandidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if len(c.Abstract) < minLength {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ApplyQualityFilters runs the filter pipeline: book types, denied titles,
// and (unless disabled) short abstracts.
func ApplyQualityFilters(candidates []types.PaperCandidate, cfg types.EnrichConfig, log *zap.Logger) []types.PaperCandidate {
	minAbstract := cfg.MinAbstractLength
	if minAbstract <= 0 {
		minAbstract = 200
	}

	filtered := FilterBooks(candidates)
	filtered = FilterDeniedTitles(filtered, cfg.TitleDenyTerms)
	if !cfg.SkipAbstractCheck {
		filtered = FilterShortAbstracts(filtered, minAbstract)
	}

	if log != nil {
		log.Info("quality filter",
			zap.Int("in", len(candidates)),
			zap.Int("out", len(filtered)))
	}
	return filtered
}
