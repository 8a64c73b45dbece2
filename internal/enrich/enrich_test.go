// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/claim-engine/pkg/types"
)

func newTestEnricher(cfg types.EnrichConfig) *Enricher {
	e := NewEnricher(http.DefaultClient, cfg, types.SourcesConfig{}, nil)
	// No network by default; individual tests install the hooks they need.
	fail := errors.New("not wired in this test")
	e.crossrefFetch = func(context.Context, string) (types.PaperCandidate, error) {
		return types.PaperCandidate{}, fail
	}
	e.pubmedFetch = func(context.Context, string) (string, string, error) { return "", "", fail }
	e.semanticFetch = func(context.Context, string) (types.PaperCandidate, error) {
		return types.PaperCandidate{}, fail
	}
	e.openalexFetch = func(context.Context, string) (types.PaperCandidate, error) {
		return types.PaperCandidate{}, fail
	}
	return e
}

func TestEnrich_CrossrefFillsOnlyMissing(t *testing.T) {
	e := newTestEnricher(types.EnrichConfig{})
	e.crossrefFetch = func(_ context.Context, doi string) (types.PaperCandidate, error) {
		if doi != "10.1/x" {
			t.Errorf("doi = %q", doi)
		}
		return types.PaperCandidate{
			Title:    "Crossref Title",
			Abstract: "<jats:p>The full abstract text.</jats:p>",
			Year:     2018,
			Journal:  "Nature",
			Authors:  []string{"C. Ref"},
		}, nil
	}

	d := e.Enrich(context.Background(), types.PaperCandidate{
		Title:  "Original Title",
		DOI:    "10.1/x",
		Year:   2019,
		Source: "crossref",
	})

	// Existing fields survive; missing ones are filled.
	if d.Title != "Original Title" {
		t.Errorf("title overwritten: %q", d.Title)
	}
	if d.Year != 2019 {
		t.Errorf("year overwritten: %d", d.Year)
	}
	if d.Abstract != "The full abstract text." {
		t.Errorf("abstract = %q", d.Abstract)
	}
	if d.Journal != "Nature" || len(d.Authors) != 1 {
		t.Errorf("details = %+v", d)
	}
	if d.DOI != "10.1/x" {
		t.Errorf("doi = %q", d.DOI)
	}
}

func TestEnrich_PubMedSecondaryFetch(t *testing.T) {
	e := newTestEnricher(types.EnrichConfig{})
	e.pubmedFetch = func(_ context.Context, pmid string) (string, string, error) {
		if pmid != "12345" {
			t.Errorf("pmid = %q", pmid)
		}
		return "10.2/pm", "Fetched abstract.", nil
	}

	d := e.Enrich(context.Background(), types.PaperCandidate{
		Title:      "PubMed Paper",
		Source:     "pubmed",
		ProviderID: "12345",
	})
	if d.DOI != "10.2/pm" || d.Abstract != "Fetched abstract." {
		t.Errorf("details = %+v", d)
	}
}

func TestEnrich_PubMedPMIDFromURL(t *testing.T) {
	e := newTestEnricher(types.EnrichConfig{})
	var gotPMID string
	e.pubmedFetch = func(_ context.Context, pmid string) (string, string, error) {
		gotPMID = pmid
		return "", "Abs.", nil
	}

	e.Enrich(context.Background(), types.PaperCandidate{
		Title:  "PubMed Paper",
		Source: "pubmed",
		URL:    "https://pubmed.ncbi.nlm.nih.gov/67890/",
	})
	if gotPMID != "67890" {
		t.Errorf("pmid = %q", gotPMID)
	}
}

func TestEnrich_SemanticScholarSecondaryFetch(t *testing.T) {
	e := newTestEnricher(types.EnrichConfig{})
	e.crossrefFetch = func(context.Context, string) (types.PaperCandidate, error) {
		return types.PaperCandidate{}, errors.New("crossref down")
	}
	e.semanticFetch = func(_ context.Context, doi string) (types.PaperCandidate, error) {
		return types.PaperCandidate{Abstract: "S2 abstract.", Year: 2015}, nil
	}

	d := e.Enrich(context.Background(), types.PaperCandidate{
		Title:  "S2 Paper",
		DOI:    "10.3/s2",
		Source: "semantic_scholar",
	})
	if d.Abstract != "S2 abstract." || d.Year != 2015 {
		t.Errorf("details = %+v", d)
	}
}

func TestEnrich_SentinelWhenNothingFound(t *testing.T) {
	e := newTestEnricher(types.EnrichConfig{})
	d := e.Enrich(context.Background(), types.PaperCandidate{Title: "Bare", Source: "arxiv"})
	if d.Abstract != types.AbstractUnavailable {
		t.Errorf("abstract = %q, want sentinel", d.Abstract)
	}
}

func TestEnrich_DOIContentNegotiationFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.citationstyles.csl+json" {
			t.Errorf("Accept = %q", got)
		}
		fmt.Fprint(w, `{"title":"CSL Title","abstract":"CSL abstract.","container-title":"JEP",
			"issued":{"date-parts":[[2012]]},
			"author":[{"given":"Ann","family":"Csl"}]}`)
	}))
	defer ts.Close()

	old := doiOrgBase
	doiOrgBase = ts.URL + "/"
	defer func() { doiOrgBase = old }()

	e := newTestEnricher(types.EnrichConfig{})
	e.Client = ts.Client()
	e.crossrefFetch = func(context.Context, string) (types.PaperCandidate, error) {
		return types.PaperCandidate{}, errors.New("crossref down")
	}

	d := e.Enrich(context.Background(), types.PaperCandidate{
		Title:  "Some Paper",
		DOI:    "10.4/csl",
		Source: "crossref",
	})
	if d.Abstract != "CSL abstract." || d.Year != 2012 || d.Journal != "JEP" {
		t.Errorf("details = %+v", d)
	}
	if len(d.Authors) != 1 || d.Authors[0] != "Ann Csl" {
		t.Errorf("authors = %v", d.Authors)
	}
}

func TestEnrich_UnpaywallAdditive(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "oa@example.org" {
			t.Errorf("email = %q", got)
		}
		fmt.Fprint(w, `{"oa_status":"gold","best_oa_location":{"url":"https://x/landing","url_for_pdf":"https://x/pdf"}}`)
	}))
	defer ts.Close()

	old := unpaywallAPIBase
	unpaywallAPIBase = ts.URL + "/"
	defer func() { unpaywallAPIBase = old }()

	e := newTestEnricher(types.EnrichConfig{UnpaywallEmail: "oa@example.org"})
	e.Client = ts.Client()
	e.crossrefFetch = func(_ context.Context, _ string) (types.PaperCandidate, error) {
		return types.PaperCandidate{Abstract: "Long enough abstract."}, nil
	}

	d := e.Enrich(context.Background(), types.PaperCandidate{
		Title: "OA Paper", DOI: "10.5/oa", Source: "crossref",
	})
	if d.OAURL != "https://x/pdf" || d.OAStatus != "gold" {
		t.Errorf("oa = %q/%q", d.OAURL, d.OAStatus)
	}
}

func TestEnrich_UnpaywallFailureIsNotFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	old := unpaywallAPIBase
	unpaywallAPIBase = ts.URL + "/"
	defer func() { unpaywallAPIBase = old }()

	e := newTestEnricher(types.EnrichConfig{UnpaywallEmail: "oa@example.org"})
	e.Client = ts.Client()
	e.crossrefFetch = func(_ context.Context, _ string) (types.PaperCandidate, error) {
		return types.PaperCandidate{Abstract: "Fine abstract."}, nil
	}

	d := e.Enrich(context.Background(), types.PaperCandidate{
		Title: "Closed Paper", DOI: "10.6/closed", Source: "crossref",
	})
	if d.Abstract != "Fine abstract." || d.OAURL != "" {
		t.Errorf("details = %+v", d)
	}
}

func TestBackfillAbstract(t *testing.T) {
	e := newTestEnricher(types.EnrichConfig{})
	e.SourcesCfg.OpenAlexAPIKey = "key"
	e.openalexFetch = func(_ context.Context, doi string) (types.PaperCandidate, error) {
		return types.PaperCandidate{Abstract: "Backfilled.", Year: 2020, Journal: "Venue"}, nil
	}

	c := types.PaperCandidate{Title: "T", DOI: "10.7/bf"}
	if !e.BackfillAbstract(context.Background(), &c) {
		t.Fatal("backfill reported failure")
	}
	if c.Abstract != "Backfilled." || c.Year != 2020 || c.Journal != "Venue" {
		t.Errorf("candidate = %+v", c)
	}

	// No DOI means no lookup.
	noDOI := types.PaperCandidate{Title: "X"}
	if e.BackfillAbstract(context.Background(), &noDOI) {
		t.Error("backfill succeeded without a DOI")
	}
}

func TestPmidFromURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://pubmed.ncbi.nlm.nih.gov/12345/", "12345"},
		{"https://pubmed.ncbi.nlm.nih.gov/12345", "12345"},
		{"https://doi.org/10.1/x", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := pmidFromURL(tt.in); got != tt.want {
			t.Errorf("pmidFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
