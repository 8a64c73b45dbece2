// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// europePMCAPIBase is the Europe PMC REST search endpoint. Declared as a
// var so tests can substitute an httptest server.
var europePMCAPIBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

// EuropePMC queries the Europe PMC REST API for biomedical and
// life-science literature.
type EuropePMC struct {
	Client *http.Client
	Cfg    types.SourcesConfig
}

// Name returns the provider identifier.
func (p *EuropePMC) Name() string { return "europepmc" }

// Search queries Europe PMC and returns candidates in API relevance order.
func (p *EuropePMC) Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	params := url.Values{
		"query":    {query},
		"pageSize": {fmt.Sprintf("%d", limit)},
		"format":   {"json"},
	}

	var er europePMCResponse
	if err := getJSON(ctx, p.Client, p.Cfg, europePMCAPIBase+"?"+params.Encode(), nil, &er); err != nil {
		return nil, fmt.Errorf("europe pmc search: %w", err)
	}

	var results []types.PaperCandidate
	for _, paper := range er.ResultList.Result {
		c := types.PaperCandidate{
			Title:    orUntitled(paper.Title),
			DOI:      paper.DOI,
			Abstract: paper.AbstractText,
			Journal:  paper.JournalTitle,
			Source:   "europepmc",
		}
		switch {
		case paper.DOI != "":
			c.URL = "https://doi.org/" + paper.DOI
		case paper.PMID != "":
			c.URL = "https://europepmc.org/article/MED/" + paper.PMID
		}
		if y, err := strconv.Atoi(paper.PubYear); err == nil {
			c.Year = y
		}
		if paper.AuthorString != "" {
			c.Authors = strings.Split(paper.AuthorString, ", ")
		}
		results = append(results, c)
	}
	return results, nil
}

// Europe PMC REST API JSON structures.
type europePMCResponse struct {
	ResultList struct {
		Result []europePMCPaper `json:"result"`
	} `json:"resultList"`
}

type europePMCPaper struct {
	Title        string `json:"title"`
	DOI          string `json:"doi"`
	PMID         string `json:"pmid"`
	PubYear      string `json:"pubYear"`
	AuthorString string `json:"authorString"`
	AbstractText string `json:"abstractText"`
	JournalTitle string `json:"journalTitle"`
}
