// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// arxivAPIBase is the arXiv Atom query endpoint. Declared as a var so
// tests can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API.
type Arxiv struct {
	Client *http.Client
	Cfg    types.SourcesConfig
}

// Name returns the provider identifier.
func (p *Arxiv) Name() string { return "arxiv" }

// Search queries arXiv and returns candidates in feed order.
func (p *Arxiv) Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	params := url.Values{
		"search_query": {"all:" + query},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", limit)},
	}

	body, err := get(ctx, p.Client, p.Cfg, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv search: %w", err)
	}
	defer body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arxiv response: %w", err)
	}

	var results []types.PaperCandidate
	for _, entry := range feed.Entries {
		c := types.PaperCandidate{
			Title:      orUntitled(collapseSpace(entry.Title)),
			DOI:        strings.TrimSpace(entry.DOI),
			URL:        strings.TrimSpace(entry.ID),
			Abstract:   collapseSpace(entry.Summary),
			Source:     "arxiv",
			Journal:    "arXiv (preprint)",
			ProviderID: extractArxivID(entry.ID),
		}
		if len(entry.Published) >= 4 {
			if y, err := strconv.Atoi(entry.Published[:4]); err == nil {
				c.Year = y
			}
		}
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				c.Authors = append(c.Authors, name)
			}
		}
		results = append(results, c)
	}
	return results, nil
}

// arXiv Atom feed XML structures. The arxiv:doi element lives in the
// http://arxiv.org/schemas/atom namespace.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	DOI       string        `xml:"doi"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
