// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve deduplicates, scores, and selects paper candidates
// gathered from multiple sources.
package resolve

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// ErrNoMatch is returned when no candidate scores at or above the
// acceptance floor.
var ErrNoMatch = errors.New("no candidate matched")

// minAcceptScore is the floor below which the best candidate is rejected.
const minAcceptScore = 35.0

var doiPrefixPattern = regexp.MustCompile(`^https?://(dx\.)?doi\.org/`)

// NormalizeDOI lowercases a DOI and strips resolver URL prefixes and the
// "doi:" scheme so equivalent notations compare equal.
func NormalizeDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	d = doiPrefixPattern.ReplaceAllString(d, "")
	d = strings.TrimPrefix(d, "doi:")
	// Trim again: "doi: 10.x/y" leaves a leading space after the prefix strip.
	return strings.TrimSpace(d)
}

// fingerprintStopwords are short common words dropped from title fingerprints.
var fingerprintStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
	"into": {}, "over": {}, "under": {}, "after": {}, "before": {},
}

var (
	dashPattern    = regexp.MustCompile("[‐‑‒–—―-]+")
	nonWordPattern = regexp.MustCompile(`[^a-z0-9\s]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// FingerprintTokens returns the sorted significant tokens of a title:
// lowercased, dash variants treated as separators, punctuation stripped,
// tokens of length <= 2 and stopwords dropped. Token order in the input
// does not affect the output.
func FingerprintTokens(title string) []string {
	t := strings.ToLower(title)
	t = dashPattern.ReplaceAllString(t, " ")
	t = nonWordPattern.ReplaceAllString(t, "")
	t = spacePattern.ReplaceAllString(t, " ")

	var tokens []string
	for _, tok := range strings.Fields(t) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := fingerprintStopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// TitleFingerprint returns an order-invariant fingerprint string for a
// title, used as a dedup key when no DOI is available.
func TitleFingerprint(title string) string {
	return strings.Join(FingerprintTokens(title), " ")
}

// DedupKey returns the dedup key for a candidate: the normalized DOI when
// present, else the title fingerprint. Empty when neither exists.
func DedupKey(c types.PaperCandidate) string {
	if d := NormalizeDOI(c.DOI); d != "" {
		return "doi:" + d
	}
	if fp := TitleFingerprint(c.Title); fp != "" {
		return "title:" + fp
	}
	return ""
}

// Dedupe removes duplicate candidates, keeping the first occurrence of
// each key so earlier (higher-priority) sources win. Candidates with
// neither a DOI nor a usable title are dropped.
func Dedupe(candidates []types.PaperCandidate) []types.PaperCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]types.PaperCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := DedupKey(c)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// sourceTrust ranks providers by metadata reliability.
var sourceTrust = map[string]float64{
	"openalex":         4,
	"semantic_scholar": 3,
	"crossref":         2,
	"europepmc":        1,
	"arxiv":            0,
	"datacite":         -1,
	"pubmed":           -1,
}

// Score rates how well a candidate matches a target title and year.
// Title token overlap dominates; year proximity, metadata completeness,
// and source trust adjust the result.
func Score(c types.PaperCandidate, targetTitle string, targetYear int) float64 {
	targetTokens := FingerprintTokens(targetTitle)
	candTokens := FingerprintTokens(c.Title)

	candSet := make(map[string]struct{}, len(candTokens))
	for _, tok := range candTokens {
		candSet[tok] = struct{}{}
	}
	// Overlap is set-based: a word repeated in the target title counts once.
	targetSet := make(map[string]struct{}, len(targetTokens))
	for _, tok := range targetTokens {
		targetSet[tok] = struct{}{}
	}
	hits := 0
	for tok := range targetSet {
		if _, ok := candSet[tok]; ok {
			hits++
		}
	}
	denom := len(targetSet)
	if denom < 1 {
		denom = 1
	}
	score := float64(hits) / float64(denom) * 70

	if targetYear > 0 && c.Year > 0 {
		diff := targetYear - c.Year
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff == 0:
			score += 15
		case diff <= 1:
			score += 8
		case diff <= 3:
			score += 2
		default:
			score -= 5
		}
	}

	if NormalizeDOI(c.DOI) != "" {
		score += 8
	}
	if strings.TrimSpace(c.Abstract) != "" {
		score += 5
	}
	if len(c.Authors) > 0 {
		score += 2
	}

	score += sourceTrust[c.Source]
	return score
}

// PickBest scores every candidate against the target and returns the
// highest scorer, or ErrNoMatch when the best score falls below the
// acceptance floor.
func PickBest(candidates []types.PaperCandidate, targetTitle string, targetYear int) (types.PaperCandidate, float64, error) {
	var (
		best      types.PaperCandidate
		bestScore = -1.0
	)
	for _, c := range candidates {
		if s := Score(c, targetTitle, targetYear); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < minAcceptScore {
		return types.PaperCandidate{}, bestScore, ErrNoMatch
	}
	return best, bestScore, nil
}
