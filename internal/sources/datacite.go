// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// dataCiteAPIBase is the DataCite DOI search endpoint. Declared as a var
// so tests can substitute an httptest server.
var dataCiteAPIBase = "https://api.datacite.org/dois"

// DataCite queries the DataCite API for datasets, software, and other
// registered research outputs.
type DataCite struct {
	Client *http.Client
	Cfg    types.SourcesConfig
}

// Name returns the provider identifier.
func (p *DataCite) Name() string { return "datacite" }

// Search queries DataCite and returns candidates in API relevance order.
func (p *DataCite) Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	params := url.Values{
		"query":      {query},
		"page[size]": {fmt.Sprintf("%d", limit)},
	}

	var dr dataCiteResponse
	if err := getJSON(ctx, p.Client, p.Cfg, dataCiteAPIBase+"?"+params.Encode(), nil, &dr); err != nil {
		return nil, fmt.Errorf("datacite search: %w", err)
	}

	var results []types.PaperCandidate
	for _, item := range dr.Data {
		attrs := item.Attributes
		c := types.PaperCandidate{
			DOI:    attrs.DOI,
			URL:    attrs.URL,
			Year:   attrs.PublicationYear,
			Source: "datacite",
		}
		if len(attrs.Titles) > 0 {
			c.Title = attrs.Titles[0].Title
		}
		if c.Title == "" {
			c.Title = "Untitled"
		}
		if c.URL == "" && attrs.DOI != "" {
			c.URL = "https://doi.org/" + attrs.DOI
		}
		for _, cr := range attrs.Creators {
			name := cr.Name
			if name == "" {
				name = strings.TrimSpace(cr.GivenName + " " + cr.FamilyName)
			}
			if name != "" {
				c.Authors = append(c.Authors, name)
			}
		}
		for _, d := range attrs.Descriptions {
			if d.DescriptionType == "Abstract" {
				c.Abstract = d.Description
				break
			}
		}
		c.Journal = attrs.Container.Title
		if c.Journal == "" {
			c.Journal = attrs.Publisher
		}
		results = append(results, c)
	}
	return results, nil
}

// DataCite API JSON structures.
type dataCiteResponse struct {
	Data []struct {
		Attributes dataCiteAttributes `json:"attributes"`
	} `json:"data"`
}

type dataCiteAttributes struct {
	DOI             string `json:"doi"`
	URL             string `json:"url"`
	PublicationYear int    `json:"publicationYear"`
	Publisher       string `json:"publisher"`
	Titles          []struct {
		Title string `json:"title"`
	} `json:"titles"`
	Creators []struct {
		Name       string `json:"name"`
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
	} `json:"creators"`
	Descriptions []struct {
		Description     string `json:"description"`
		DescriptionType string `json:"descriptionType"`
	} `json:"descriptions"`
	Container struct {
		Title string `json:"title"`
	} `json:"container"`
}
