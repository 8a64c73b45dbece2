// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// mockProvider returns canned results or an error.
type mockProvider struct {
	name    string
	results []types.PaperCandidate
	err     error
	calls   int32
	stamps  []time.Time
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(_ context.Context, query string, _ int) ([]types.PaperCandidate, error) {
	atomic.AddInt32(&m.calls, 1)
	m.stamps = append(m.stamps, time.Now())
	if m.err != nil {
		return nil, m.err
	}
	out := make([]types.PaperCandidate, len(m.results))
	copy(out, m.results)
	for i := range out {
		out[i].ProviderID = query
	}
	return out, nil
}

func TestFederatedSearch_CombinesProviders(t *testing.T) {
	a := &mockProvider{name: "alpha", results: []types.PaperCandidate{{Title: "A1", Source: "alpha"}}}
	b := &mockProvider{name: "beta", results: []types.PaperCandidate{{Title: "B1", Source: "beta"}, {Title: "B2", Source: "beta"}}}
	f := NewFederated([]Provider{a, b}, nil)

	got, err := f.Search(context.Background(), map[string][]string{
		"alpha": {"q1"},
		"beta":  {"q1"},
	}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	// Registration order is preserved across providers.
	if got[0].Source != "alpha" || got[1].Source != "beta" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestFederatedSearch_ProviderFailureIsIsolated(t *testing.T) {
	ok := &mockProvider{name: "alpha", results: []types.PaperCandidate{{Title: "A1", Source: "alpha"}}}
	bad := &mockProvider{name: "beta", err: errors.New("upstream down")}
	f := NewFederated([]Provider{ok, bad}, nil)

	got, err := f.Search(context.Background(), map[string][]string{
		"alpha": {"q"},
		"beta":  {"q"},
	}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "A1" {
		t.Fatalf("got %+v, want only alpha's result", got)
	}

	warnings := f.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "beta") {
		t.Errorf("warnings = %v, want one beta warning", warnings)
	}
	// Warnings are cleared after reading.
	if len(f.Warnings()) != 0 {
		t.Error("warnings not cleared")
	}
}

func TestFederatedSearch_SequentialWithinProvider(t *testing.T) {
	old := providerInterval
	providerInterval = map[string]time.Duration{"solo": 30 * time.Millisecond}
	defer func() { providerInterval = old }()

	p := &mockProvider{name: "solo", results: []types.PaperCandidate{{Title: "X", Source: "solo"}}}
	f := NewFederated([]Provider{p}, nil)

	_, err := f.Search(context.Background(), map[string][]string{
		"solo": {"q1", "q2", "q3"},
	}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := atomic.LoadInt32(&p.calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	// Pacing keeps successive queries at least one interval apart.
	for i := 1; i < len(p.stamps); i++ {
		if gap := p.stamps[i].Sub(p.stamps[i-1]); gap < 25*time.Millisecond {
			t.Errorf("gap between query %d and %d = %v, want >= 30ms", i-1, i, gap)
		}
	}
}

func TestFederatedSearch_SkipsProvidersWithoutQueries(t *testing.T) {
	a := &mockProvider{name: "alpha", results: []types.PaperCandidate{{Title: "A", Source: "alpha"}}}
	b := &mockProvider{name: "beta", results: []types.PaperCandidate{{Title: "B", Source: "beta"}}}
	f := NewFederated([]Provider{a, b}, nil)

	got, err := f.Search(context.Background(), map[string][]string{"alpha": {"q"}}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if atomic.LoadInt32(&b.calls) != 0 {
		t.Error("beta was queried without queries")
	}
}

func TestSearchAll_QueriesEveryProvider(t *testing.T) {
	var providers []Provider
	for i := 0; i < 3; i++ {
		providers = append(providers, &mockProvider{
			name:    fmt.Sprintf("p%d", i),
			results: []types.PaperCandidate{{Title: fmt.Sprintf("T%d", i)}},
		})
	}
	f := NewFederated(providers, nil)

	got, err := f.SearchAll(context.Background(), "one query", 5)
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
}

func TestDefaultProviders_SkipsOpenAlexWithoutKey(t *testing.T) {
	cfg := types.SourcesConfig{}
	providers := DefaultProviders(cfg, nil, nil)
	for _, p := range providers {
		if p.Name() == "openalex" {
			t.Fatal("openalex registered without an API key")
		}
	}
	if len(providers) != 6 {
		t.Errorf("got %d providers, want 6", len(providers))
	}

	cfg.OpenAlexAPIKey = "key"
	providers = DefaultProviders(cfg, nil, nil)
	if len(providers) != 7 {
		t.Errorf("got %d providers with key, want 7", len(providers))
	}
}

func TestDefaultProviders_EnabledFilter(t *testing.T) {
	cfg := types.SourcesConfig{Enabled: []string{"crossref", "pubmed"}}
	providers := DefaultProviders(cfg, nil, nil)
	if len(providers) != 2 {
		t.Fatalf("got %d providers, want 2", len(providers))
	}
	if providers[0].Name() != "crossref" || providers[1].Name() != "pubmed" {
		t.Errorf("unexpected providers: %v, %v", providers[0].Name(), providers[1].Name())
	}
}
