// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// Crossref queries the Crossref REST API.
type Crossref struct {
	Client *http.Client
	Cfg    types.SourcesConfig
}

// Name returns the provider identifier.
func (p *Crossref) Name() string { return "crossref" }

// Search queries Crossref and returns candidates in API relevance order.
func (p *Crossref) Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	params := url.Values{
		"query":  {query},
		"rows":   {fmt.Sprintf("%d", limit)},
		"select": {"DOI,title,author,published,container-title,abstract,URL,type"},
	}
	if p.Cfg.ContactEmail != "" {
		params.Set("mailto", p.Cfg.ContactEmail)
	}

	var cr crossrefResponse
	if err := getJSON(ctx, p.Client, p.Cfg, crossrefAPIBase+"?"+params.Encode(), nil, &cr); err != nil {
		return nil, fmt.Errorf("crossref search: %w", err)
	}

	var results []types.PaperCandidate
	for _, item := range cr.Message.Items {
		c := types.PaperCandidate{
			Title:           firstString(item.Title, "Untitled"),
			DOI:             item.DOI,
			URL:             item.URL,
			Source:          "crossref",
			Abstract:        item.Abstract,
			Journal:         firstString(item.ContainerTitle, ""),
			PublicationType: item.Type,
		}
		if c.URL == "" && item.DOI != "" {
			c.URL = "https://doi.org/" + item.DOI
		}
		c.Year = item.Published.year()
		for _, a := range item.Author {
			if name := a.displayName(); name != "" {
				c.Authors = append(c.Authors, name)
			}
		}
		results = append(results, c)
	}
	return results, nil
}

// Crossref API JSON structures. Shared with the enrichment works-by-DOI
// lookup in internal/enrich.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []CrossrefWork `json:"items"`
}

// CrossrefWorkResponse wraps a single work returned by /works/{doi}.
type CrossrefWorkResponse struct {
	Message CrossrefWork `json:"message"`
}

// CrossrefWork is one work record from the Crossref API.
type CrossrefWork struct {
	DOI            string          `json:"DOI"`
	Title          []string        `json:"title"`
	Author         []crossrefName  `json:"author"`
	Published      crossrefDate    `json:"published"`
	ContainerTitle []string        `json:"container-title"`
	Abstract       string          `json:"abstract"`
	URL            string          `json:"URL"`
	Type           string          `json:"type"`
}

type crossrefName struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

func (n crossrefName) displayName() string {
	switch {
	case n.Given != "" && n.Family != "":
		return n.Given + " " + n.Family
	case n.Family != "":
		return n.Family
	default:
		return n.Given
	}
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return d.DateParts[0][0]
	}
	return 0
}

// Candidate converts a work into a candidate. Used by enrichment.
func (w CrossrefWork) Candidate() types.PaperCandidate {
	c := types.PaperCandidate{
		Title:           firstString(w.Title, ""),
		DOI:             w.DOI,
		URL:             w.URL,
		Abstract:        w.Abstract,
		Journal:         firstString(w.ContainerTitle, ""),
		PublicationType: w.Type,
		Year:            w.Published.year(),
		Source:          "crossref",
	}
	for _, a := range w.Author {
		if name := a.displayName(); name != "" {
			c.Authors = append(c.Authors, name)
		}
	}
	return c
}

// FetchCrossrefWork fetches a single work by DOI from /works/{doi}.
func FetchCrossrefWork(ctx context.Context, client *http.Client, cfg types.SourcesConfig, doi string) (CrossrefWork, error) {
	u := crossrefAPIBase + "/" + url.PathEscape(doi)
	var wr CrossrefWorkResponse
	if err := getJSON(ctx, client, cfg, u, nil, &wr); err != nil {
		return CrossrefWork{}, fmt.Errorf("crossref work %s: %w", doi, err)
	}
	return wr.Message, nil
}

func firstString(vals []string, fallback string) string {
	if len(vals) > 0 && vals[0] != "" {
		return vals[0]
	}
	return fallback
}
