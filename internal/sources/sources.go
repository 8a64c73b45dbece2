// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources queries academic search APIs and returns unified paper
// candidates. Each provider implements the Provider interface; Federated
// fans queries out across providers while pacing calls within each one.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// Provider searches a single academic API.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error)
}

// providerInterval is the minimum spacing between successive queries to the
// same provider. Providers not listed use defaultInterval.
var providerInterval = map[string]time.Duration{
	"crossref":         500 * time.Millisecond,
	"pubmed":           1 * time.Second,
	"semantic_scholar": 1 * time.Second,
}

const defaultInterval = 250 * time.Millisecond

// Federated fans queries out to registered providers. Providers run
// concurrently with each other; queries within one provider run
// sequentially behind a rate limiter.
type Federated struct {
	providers []Provider
	limiters  map[string]*rate.Limiter
	log       *zap.Logger

	mu       sync.Mutex
	warnings []string
}

// NewFederated builds a federator over the given providers. A nil logger
// disables logging.
func NewFederated(providers []Provider, log *zap.Logger) *Federated {
	if log == nil {
		log = zap.NewNop()
	}
	limiters := make(map[string]*rate.Limiter, len(providers))
	for _, p := range providers {
		iv := providerInterval[p.Name()]
		if iv <= 0 {
			iv = defaultInterval
		}
		limiters[p.Name()] = rate.NewLimiter(rate.Every(iv), 1)
	}
	return &Federated{providers: providers, limiters: limiters, log: log}
}

// Providers returns the registered providers in registration order.
func (f *Federated) Providers() []Provider { return f.providers }

// Search runs every query against its provider and returns the combined
// candidates. A provider failure contributes an empty list and a recorded
// warning; it never fails the federation. Results are grouped by provider
// in registration order so candidate priority is deterministic.
func (f *Federated) Search(ctx context.Context, queries map[string][]string, limit int) ([]types.PaperCandidate, error) {
	byProvider := make([][]types.PaperCandidate, len(f.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range f.providers {
		qs := queries[p.Name()]
		if len(qs) == 0 {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			var out []types.PaperCandidate
			for _, q := range qs {
				if err := f.limiters[p.Name()].Wait(gctx); err != nil {
					return err
				}
				results, err := p.Search(gctx, q, limit)
				if err != nil {
					f.warn(p.Name(), q, err)
					continue
				}
				out = append(out, results...)
			}
			byProvider[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []types.PaperCandidate
	for _, results := range byProvider {
		all = append(all, results...)
	}
	return all, nil
}

// SearchAll runs a single query against every provider. Convenience form
// used by title resolution and claim-card evidence search.
func (f *Federated) SearchAll(ctx context.Context, query string, limit int) ([]types.PaperCandidate, error) {
	queries := make(map[string][]string, len(f.providers))
	for _, p := range f.providers {
		queries[p.Name()] = []string{query}
	}
	return f.Search(ctx, queries, limit)
}

// Warnings returns provider failure messages recorded since the last call,
// sorted for determinism, and clears the list.
func (f *Federated) Warnings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.warnings
	f.warnings = nil
	sort.Strings(out)
	return out
}

func (f *Federated) warn(provider, query string, err error) {
	f.log.Warn("provider query failed",
		zap.String("provider", provider),
		zap.String("query", query),
		zap.Error(err))
	f.mu.Lock()
	f.warnings = append(f.warnings, fmt.Sprintf("%s: %v", provider, err))
	f.mu.Unlock()
}

// DefaultProviders builds the adapters allowed by cfg. OpenAlex is skipped
// without an API key; every other provider runs unauthenticated.
func DefaultProviders(cfg types.SourcesConfig, client *http.Client, log *zap.Logger) []Provider {
	if log == nil {
		log = zap.NewNop()
	}
	all := []Provider{
		&Crossref{Client: client, Cfg: cfg},
		&PubMed{Client: client, Cfg: cfg},
		&SemanticScholar{Client: client, Cfg: cfg},
		&OpenAlex{Client: client, Cfg: cfg},
		&Arxiv{Client: client, Cfg: cfg},
		&EuropePMC{Client: client, Cfg: cfg},
		&DataCite{Client: client, Cfg: cfg},
	}

	enabled := make(map[string]bool, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		enabled[name] = true
	}

	var out []Provider
	for _, p := range all {
		if len(cfg.Enabled) > 0 && !enabled[p.Name()] {
			continue
		}
		if p.Name() == "openalex" && cfg.OpenAlexAPIKey == "" {
			log.Info("openalex api key not set, skipping provider")
			continue
		}
		out = append(out, p)
	}
	return out
}
