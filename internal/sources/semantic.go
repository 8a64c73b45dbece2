// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API base. Declared as a
// var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

// SemanticScholar queries the Semantic Scholar Graph API. An API key
// raises rate limits but is not required.
type SemanticScholar struct {
	Client *http.Client
	Cfg    types.SourcesConfig
}

// Name returns the provider identifier.
func (p *SemanticScholar) Name() string { return "semantic_scholar" }

// Search queries Semantic Scholar and returns candidates in API relevance order.
func (p *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {"title,abstract,year,authors,externalIds,journal,url,paperId"},
	}

	var sr semanticSearchResponse
	if err := getJSON(ctx, p.Client, p.Cfg, semanticAPIBase+"/paper/search?"+params.Encode(), p.header(), &sr); err != nil {
		return nil, fmt.Errorf("semantic scholar search: %w", err)
	}

	var results []types.PaperCandidate
	for _, paper := range sr.Data {
		results = append(results, paper.candidate())
	}
	return results, nil
}

func (p *SemanticScholar) header() http.Header {
	if p.Cfg.SemanticScholarAPIKey == "" {
		return nil
	}
	return http.Header{"X-Api-Key": {p.Cfg.SemanticScholarAPIKey}}
}

// FetchSemanticScholarPaper fetches one paper by DOI. Used by enrichment.
func FetchSemanticScholarPaper(ctx context.Context, client *http.Client, cfg types.SourcesConfig, doi string) (types.PaperCandidate, error) {
	params := url.Values{
		"fields": {"title,abstract,year,authors,journal,url"},
	}
	u := semanticAPIBase + "/paper/DOI:" + url.PathEscape(doi) + "?" + params.Encode()

	var header http.Header
	if cfg.SemanticScholarAPIKey != "" {
		header = http.Header{"X-Api-Key": {cfg.SemanticScholarAPIKey}}
	}

	var paper semanticPaper
	if err := getJSON(ctx, client, cfg, u, header, &paper); err != nil {
		return types.PaperCandidate{}, fmt.Errorf("semantic scholar paper %s: %w", doi, err)
	}
	c := paper.candidate()
	if c.DOI == "" {
		c.DOI = doi
	}
	return c, nil
}

// Semantic Scholar Graph API JSON structures.
type semanticSearchResponse struct {
	Data []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string `json:"paperId"`
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	Year        int    `json:"year"`
	URL         string `json:"url"`
	ExternalIDs struct {
		DOI string `json:"DOI"`
	} `json:"externalIds"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Journal struct {
		Name string `json:"name"`
	} `json:"journal"`
}

func (s semanticPaper) candidate() types.PaperCandidate {
	c := types.PaperCandidate{
		Title:      orUntitled(s.Title),
		DOI:        s.ExternalIDs.DOI,
		URL:        s.URL,
		Year:       s.Year,
		Abstract:   s.Abstract,
		Journal:    s.Journal.Name,
		Source:     "semantic_scholar",
		ProviderID: s.PaperID,
	}
	if c.URL == "" && c.DOI != "" {
		c.URL = "https://doi.org/" + c.DOI
	}
	for _, a := range s.Authors {
		if a.Name != "" {
			c.Authors = append(c.Authors, a.Name)
		}
	}
	return c
}
