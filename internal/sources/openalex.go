// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// openAlexAPIBase is the OpenAlex API base. Declared as a var so tests can
// substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org"

// OpenAlex queries the OpenAlex Works API. The provider requires an API
// key; DefaultProviders skips it when none is configured.
type OpenAlex struct {
	Client *http.Client
	Cfg    types.SourcesConfig
}

// Name returns the provider identifier.
func (p *OpenAlex) Name() string { return "openalex" }

// Search queries OpenAlex and returns candidates in API relevance order.
func (p *OpenAlex) Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	params := url.Values{
		"search":   {query},
		"per-page": {fmt.Sprintf("%d", limit)},
	}
	if p.Cfg.ContactEmail != "" {
		params.Set("mailto", p.Cfg.ContactEmail)
	}

	var oar openAlexResponse
	if err := getJSON(ctx, p.Client, p.Cfg, openAlexAPIBase+"/works?"+params.Encode(), p.header(), &oar); err != nil {
		return nil, fmt.Errorf("openalex search: %w", err)
	}

	var results []types.PaperCandidate
	for _, work := range oar.Results {
		results = append(results, work.candidate())
	}
	return results, nil
}

func (p *OpenAlex) header() http.Header {
	if p.Cfg.OpenAlexAPIKey == "" {
		return nil
	}
	return http.Header{"Authorization": {"Bearer " + p.Cfg.OpenAlexAPIKey}}
}

// FetchOpenAlexWorkByDOI fetches one work through the works/doi: lookup.
// Used by enrichment and by abstract backfill in the research pipeline.
func FetchOpenAlexWorkByDOI(ctx context.Context, client *http.Client, cfg types.SourcesConfig, doi string) (types.PaperCandidate, error) {
	u := openAlexAPIBase + "/works/doi:" + url.PathEscape(doi)
	if cfg.ContactEmail != "" {
		u += "?mailto=" + url.QueryEscape(cfg.ContactEmail)
	}

	var header http.Header
	if cfg.OpenAlexAPIKey != "" {
		header = http.Header{"Authorization": {"Bearer " + cfg.OpenAlexAPIKey}}
	}

	var work openAlexWork
	if err := getJSON(ctx, client, cfg, u, header, &work); err != nil {
		return types.PaperCandidate{}, fmt.Errorf("openalex work %s: %w", doi, err)
	}
	return work.candidate(), nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationYear       int              `json:"publication_year"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	Authorships           []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation struct {
		Source struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	HostVenue struct {
		DisplayName string `json:"display_name"`
	} `json:"host_venue"`
	TypeCrossref string `json:"type_crossref"`
}

func (w openAlexWork) candidate() types.PaperCandidate {
	c := types.PaperCandidate{
		Title:           orUntitled(w.Title),
		DOI:             strings.TrimPrefix(w.DOI, "https://doi.org/"),
		Year:            w.PublicationYear,
		Abstract:        reconstructAbstract(w.AbstractInvertedIndex),
		Source:          "openalex",
		PublicationType: w.TypeCrossref,
	}
	if w.DOI != "" {
		c.URL = w.DOI
	} else {
		c.URL = w.ID
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			c.Authors = append(c.Authors, a.Author.DisplayName)
		}
	}
	c.Journal = w.PrimaryLocation.Source.DisplayName
	if c.Journal == "" {
		c.Journal = w.HostVenue.DisplayName
	}
	return c
}
