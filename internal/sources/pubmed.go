// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// pubmedAPIBase is the NCBI E-utilities base. Declared as a var so tests
// can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMed queries the NCBI E-utilities API: esearch for PMIDs, then
// esummary for metadata. Abstracts are not returned by summaries; the
// enrichment stage fetches them through efetch.
type PubMed struct {
	Client *http.Client
	Cfg    types.SourcesConfig
}

// Name returns the provider identifier.
func (p *PubMed) Name() string { return "pubmed" }

// Search queries PubMed and returns candidates in PMID list order.
func (p *PubMed) Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	searchParams := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {fmt.Sprintf("%d", limit)},
		"retmode": {"json"},
	}

	var sr pubmedSearchResponse
	if err := getJSON(ctx, p.Client, p.Cfg, pubmedAPIBase+"/esearch.fcgi?"+searchParams.Encode(), nil, &sr); err != nil {
		return nil, fmt.Errorf("pubmed search: %w", err)
	}
	if len(sr.ESearchResult.IDList) == 0 {
		return nil, nil
	}

	summaryParams := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(sr.ESearchResult.IDList, ",")},
		"retmode": {"json"},
	}

	var sum pubmedSummaryResponse
	if err := getJSON(ctx, p.Client, p.Cfg, pubmedAPIBase+"/esummary.fcgi?"+summaryParams.Encode(), nil, &sum); err != nil {
		return nil, fmt.Errorf("pubmed summary: %w", err)
	}

	var results []types.PaperCandidate
	for _, pmid := range sr.ESearchResult.IDList {
		raw, ok := sum.Result[pmid]
		if !ok {
			continue
		}
		var doc pubmedSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}

		c := types.PaperCandidate{
			Title:      orUntitled(doc.Title),
			URL:        "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
			Source:     "pubmed",
			ProviderID: pmid,
		}
		c.DOI = doiFromElocationID(doc.ElocationID)
		if parts := strings.Fields(doc.PubDate); len(parts) > 0 {
			if y, err := strconv.Atoi(parts[0]); err == nil {
				c.Year = y
			}
		}
		for _, a := range doc.Authors {
			if a.Name != "" {
				c.Authors = append(c.Authors, a.Name)
			}
		}
		c.Journal = doc.FullJournalName
		if c.Journal == "" {
			c.Journal = doc.Source
		}
		results = append(results, c)
	}
	return results, nil
}

// doiFromElocationID extracts a DOI from an elocationid field such as
// "doi: 10.1234/abc pii: S0001".
func doiFromElocationID(eloc string) string {
	for _, tok := range strings.Fields(eloc) {
		if strings.HasPrefix(tok, "doi:") {
			if d := strings.TrimPrefix(tok, "doi:"); d != "" {
				return d
			}
		}
	}
	// Some records format as "doi: 10.x" with a space after the colon.
	if i := strings.Index(eloc, "doi:"); i >= 0 {
		rest := strings.TrimSpace(eloc[i+len("doi:"):])
		if f := strings.Fields(rest); len(f) > 0 && strings.HasPrefix(f[0], "10.") {
			return f[0]
		}
	}
	return ""
}

var (
	pubmedDOIPattern      = regexp.MustCompile(`(?i)<ArticleId[^>]*IdType="doi"[^>]*>([\s\S]*?)</ArticleId>`)
	pubmedAbstractPattern = regexp.MustCompile(`(?is)<AbstractText[^>]*>([\s\S]*?)</AbstractText>`)
	tagPattern            = regexp.MustCompile(`<[^>]+>`)
	wsPattern             = regexp.MustCompile(`\s+`)
)

// FetchPubMedRecord fetches a full PubMed record through efetch and
// extracts the DOI and abstract. Multiple AbstractText blocks (structured
// abstracts) are joined with newlines.
func FetchPubMedRecord(ctx context.Context, client *http.Client, cfg types.SourcesConfig, pmid string) (doi, abstract string, err error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"retmode": {"xml"},
	}
	body, err := get(ctx, client, cfg, pubmedAPIBase+"/efetch.fcgi?"+params.Encode(), nil)
	if err != nil {
		return "", "", fmt.Errorf("pubmed efetch %s: %w", pmid, err)
	}
	defer body.Close()

	xmlBytes, err := io.ReadAll(body)
	if err != nil {
		return "", "", fmt.Errorf("reading efetch response: %w", err)
	}
	xml := string(xmlBytes)

	if m := pubmedDOIPattern.FindStringSubmatch(xml); m != nil {
		doi = strings.TrimSpace(m[1])
	}

	var blocks []string
	for _, m := range pubmedAbstractPattern.FindAllStringSubmatch(xml, -1) {
		text := tagPattern.ReplaceAllString(m[1], " ")
		text = strings.TrimSpace(wsPattern.ReplaceAllString(text, " "))
		if text != "" {
			blocks = append(blocks, text)
		}
	}
	return doi, strings.Join(blocks, "\n"), nil
}

// PubMed E-utilities JSON structures.
type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// The esummary result object maps PMIDs to documents but also carries a
// "uids" array, so values decode lazily.
type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedSummary struct {
	Title           string         `json:"title"`
	ElocationID     string         `json:"elocationid"`
	PubDate         string         `json:"pubdate"`
	Authors         []pubmedAuthor `json:"authors"`
	FullJournalName string         `json:"fulljournalname"`
	Source          string         `json:"source"`
}

type pubmedAuthor struct {
	Name string `json:"name"`
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}
