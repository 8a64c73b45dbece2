// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich fills in paper metadata through a cascade of secondary
// lookups and applies quality filters to candidate lists.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/httputil"
	"github.com/pdiddy/claim-engine/internal/resolve"
	"github.com/pdiddy/claim-engine/internal/sources"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// Base URLs for secondary lookups. Declared as vars so tests can
// substitute httptest servers.
var (
	unpaywallAPIBase = "https://api.unpaywall.org/v2/"
	doiOrgBase       = "https://doi.org/"
)

// Enricher runs the metadata cascade. Every lookup is best-effort: a
// failing step logs and falls through to the next, so Enrich always
// returns usable details.
type Enricher struct {
	Client     *http.Client
	Cfg        types.EnrichConfig
	SourcesCfg types.SourcesConfig
	Log        *zap.Logger

	// Lookup hooks default to the sources package fetchers. Tests
	// substitute fakes here.
	crossrefFetch func(ctx context.Context, doi string) (types.PaperCandidate, error)
	pubmedFetch   func(ctx context.Context, pmid string) (doi, abstract string, err error)
	semanticFetch func(ctx context.Context, doi string) (types.PaperCandidate, error)
	openalexFetch func(ctx context.Context, doi string) (types.PaperCandidate, error)
}

// NewEnricher builds an enricher. A nil logger disables logging.
func NewEnricher(client *http.Client, cfg types.EnrichConfig, srcCfg types.SourcesConfig, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = http.DefaultClient
	}
	e := &Enricher{Client: client, Cfg: cfg, SourcesCfg: srcCfg, Log: log}
	e.crossrefFetch = func(ctx context.Context, doi string) (types.PaperCandidate, error) {
		work, err := sources.FetchCrossrefWork(ctx, e.Client, e.SourcesCfg, doi)
		if err != nil {
			return types.PaperCandidate{}, err
		}
		return work.Candidate(), nil
	}
	e.pubmedFetch = func(ctx context.Context, pmid string) (string, string, error) {
		return sources.FetchPubMedRecord(ctx, e.Client, e.SourcesCfg, pmid)
	}
	e.semanticFetch = func(ctx context.Context, doi string) (types.PaperCandidate, error) {
		return sources.FetchSemanticScholarPaper(ctx, e.Client, e.SourcesCfg, doi)
	}
	e.openalexFetch = func(ctx context.Context, doi string) (types.PaperCandidate, error) {
		return sources.FetchOpenAlexWorkByDOI(ctx, e.Client, e.SourcesCfg, doi)
	}
	return e
}

// Enrich fills missing fields of a candidate through the lookup cascade:
// Crossref works-by-DOI, then the candidate's own provider (PubMed efetch,
// Semantic Scholar by DOI), then OpenAlex, then DOI content negotiation.
// Later steps never overwrite fields an earlier step filled. Open-access
// resolution through Unpaywall is additive and runs last.
func (e *Enricher) Enrich(ctx context.Context, c types.PaperCandidate) types.PaperDetails {
	d := types.PaperDetails{
		Title:    c.Title,
		Authors:  c.Authors,
		Year:     c.Year,
		DOI:      c.DOI,
		URL:      c.URL,
		Journal:  c.Journal,
		Abstract: c.Abstract,
		Source:   c.Source,
	}

	if c.DOI != "" {
		if work, err := e.crossrefFetch(ctx, c.DOI); err == nil {
			fillFromCandidate(&d, work)
		} else {
			e.Log.Debug("crossref lookup failed", zap.String("doi", c.DOI), zap.Error(err))
		}
	}

	if d.Abstract == "" || d.DOI == "" {
		e.providerLookup(ctx, c, &d)
	}

	if d.Abstract == "" && d.DOI != "" && e.SourcesCfg.OpenAlexAPIKey != "" {
		if work, err := e.openalexFetch(ctx, resolve.NormalizeDOI(d.DOI)); err == nil {
			fillFromCandidate(&d, work)
		} else {
			e.Log.Debug("openalex lookup failed", zap.String("doi", d.DOI), zap.Error(err))
		}
	}

	if d.Abstract == "" && d.DOI != "" {
		if meta, err := e.fetchDOIMetadata(ctx, d.DOI); err == nil {
			fillFromCandidate(&d, meta)
		} else {
			e.Log.Debug("doi content negotiation failed", zap.String("doi", d.DOI), zap.Error(err))
		}
	}

	if d.DOI != "" && e.Cfg.UnpaywallEmail != "" {
		if oaURL, oaStatus, err := e.fetchOpenAccess(ctx, d.DOI); err == nil {
			d.OAURL = oaURL
			d.OAStatus = oaStatus
		} else {
			e.Log.Debug("unpaywall lookup failed", zap.String("doi", d.DOI), zap.Error(err))
		}
	}

	d.Abstract = StripMarkup(d.Abstract)
	if d.Abstract == "" {
		d.Abstract = types.AbstractUnavailable
	}
	d.DOI = resolve.NormalizeDOI(d.DOI)
	return d
}

// BackfillAbstract fills a candidate's missing abstract from OpenAlex's
// works-by-DOI lookup. Reports whether the candidate now has an abstract.
// Used by the research pipeline before the short-abstract cut.
func (e *Enricher) BackfillAbstract(ctx context.Context, c *types.PaperCandidate) bool {
	if c.Abstract != "" {
		return true
	}
	if c.DOI == "" || e.SourcesCfg.OpenAlexAPIKey == "" {
		return false
	}
	work, err := e.openalexFetch(ctx, resolve.NormalizeDOI(c.DOI))
	if err != nil {
		e.Log.Debug("abstract backfill failed", zap.String("doi", c.DOI), zap.Error(err))
		return false
	}
	c.Abstract = work.Abstract
	if c.Year == 0 {
		c.Year = work.Year
	}
	if c.Journal == "" {
		c.Journal = work.Journal
	}
	if len(c.Authors) == 0 {
		c.Authors = work.Authors
	}
	return c.Abstract != ""
}

// providerLookup runs the secondary fetch specific to the candidate's own
// provider.
func (e *Enricher) providerLookup(ctx context.Context, c types.PaperCandidate, d *types.PaperDetails) {
	switch c.Source {
	case "pubmed":
		pmid := c.ProviderID
		if pmid == "" {
			pmid = pmidFromURL(c.URL)
		}
		if pmid == "" {
			return
		}
		doi, abstract, err := e.pubmedFetch(ctx, pmid)
		if err != nil {
			e.Log.Debug("pubmed efetch failed", zap.String("pmid", pmid), zap.Error(err))
			return
		}
		if d.DOI == "" {
			d.DOI = doi
		}
		if d.Abstract == "" {
			d.Abstract = abstract
		}
	case "semantic_scholar":
		if c.DOI == "" {
			return
		}
		paper, err := e.semanticFetch(ctx, c.DOI)
		if err != nil {
			e.Log.Debug("semantic scholar lookup failed", zap.String("doi", c.DOI), zap.Error(err))
			return
		}
		fillFromCandidate(d, paper)
	}
}

// fillFromCandidate copies fields from src into d only where d is empty.
func fillFromCandidate(d *types.PaperDetails, src types.PaperCandidate) {
	if d.Title == "" || d.Title == "Untitled" {
		if src.Title != "" && src.Title != "Untitled" {
			d.Title = src.Title
		}
	}
	if len(d.Authors) == 0 {
		d.Authors = src.Authors
	}
	if d.Year == 0 {
		d.Year = src.Year
	}
	if d.DOI == "" {
		d.DOI = src.DOI
	}
	if d.URL == "" {
		d.URL = src.URL
	}
	if d.Journal == "" {
		d.Journal = src.Journal
	}
	if d.Abstract == "" {
		d.Abstract = src.Abstract
	}
}

// fetchDOIMetadata resolves a DOI through content negotiation, asking
// doi.org for CSL JSON.
func (e *Enricher) fetchDOIMetadata(ctx context.Context, doi string) (types.PaperCandidate, error) {
	norm := resolve.NormalizeDOI(doi)
	if norm == "" {
		return types.PaperCandidate{}, fmt.Errorf("empty doi")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doiOrgBase+norm, nil)
	if err != nil {
		return types.PaperCandidate{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.citationstyles.csl+json")
	if e.SourcesCfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.SourcesCfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, e.Client, req, e.Cfg.MaxRetries)
	if err != nil {
		return types.PaperCandidate{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.PaperCandidate{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var csl cslItem
	if err := json.NewDecoder(resp.Body).Decode(&csl); err != nil {
		return types.PaperCandidate{}, fmt.Errorf("parsing CSL response: %w", err)
	}
	return csl.candidate(norm), nil
}

// fetchOpenAccess resolves an open-access link through Unpaywall. A 404
// means the DOI is unknown to Unpaywall and is not an error worth logging.
func (e *Enricher) fetchOpenAccess(ctx context.Context, doi string) (oaURL, oaStatus string, err error) {
	norm := resolve.NormalizeDOI(doi)
	if norm == "" {
		return "", "", fmt.Errorf("empty doi")
	}

	u := unpaywallAPIBase + norm + "?email=" + url.QueryEscape(e.Cfg.UnpaywallEmail)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, e.Client, req, e.Cfg.MaxRetries)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var up unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		return "", "", fmt.Errorf("parsing Unpaywall response: %w", err)
	}
	oaURL = up.BestOALocation.URLForPDF
	if oaURL == "" {
		oaURL = up.BestOALocation.URL
	}
	return oaURL, up.OAStatus, nil
}

// pmidFromURL extracts a PMID from a pubmed.ncbi.nlm.nih.gov URL.
func pmidFromURL(u string) string {
	const marker = "pubmed.ncbi.nlm.nih.gov/"
	i := strings.Index(u, marker)
	if i < 0 {
		return ""
	}
	rest := strings.TrimSuffix(u[i+len(marker):], "/")
	for _, r := range rest {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return rest
}

// CSL JSON structures returned by DOI content negotiation.
type cslItem struct {
	Title          string `json:"title"`
	TitleShort     string `json:"title-short"`
	URL            string `json:"URL"`
	Abstract       string `json:"abstract"`
	ContainerTitle string `json:"container-title"`
	Publisher      string `json:"publisher"`
	Issued         struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"issued"`
	Author []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
}

func (c cslItem) candidate(doi string) types.PaperCandidate {
	out := types.PaperCandidate{
		Title:    c.Title,
		DOI:      doi,
		URL:      c.URL,
		Abstract: c.Abstract,
		Journal:  c.ContainerTitle,
	}
	if out.Title == "" {
		out.Title = c.TitleShort
	}
	if out.URL == "" {
		out.URL = doiOrgBase + doi
	}
	if out.Journal == "" {
		out.Journal = c.Publisher
	}
	if len(c.Issued.DateParts) > 0 && len(c.Issued.DateParts[0]) > 0 {
		out.Year = c.Issued.DateParts[0][0]
	}
	for _, a := range c.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			out.Authors = append(out.Authors, name)
		}
	}
	return out
}

type unpaywallResponse struct {
	OAStatus       string `json:"oa_status"`
	BestOALocation struct {
		URL       string `json:"url"`
		URLForPDF string `json:"url_for_pdf"`
	} `json:"best_oa_location"`
}
