// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"

	"github.com/pdiddy/claim-engine/internal/resolve"
	"github.com/pdiddy/claim-engine/internal/sources"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// defaultTitleLimit is the per-provider candidate cap for title resolution.
const defaultTitleLimit = 8

// ResolveByTitle finds the paper matching a title (optionally a year):
// every provider is searched with the title as the query, candidates are
// deduplicated and scored, and the best match is enriched. Returns
// resolve.ErrNoMatch when nothing scores above the acceptance floor.
func (e *Enricher) ResolveByTitle(ctx context.Context, fed *sources.Federated, title string, year, limitPerSource int) (types.PaperDetails, error) {
	if limitPerSource <= 0 {
		limitPerSource = defaultTitleLimit
	}

	candidates, err := fed.SearchAll(ctx, title, limitPerSource)
	if err != nil {
		return types.PaperDetails{}, fmt.Errorf("searching for title: %w", err)
	}

	deduped := resolve.Dedupe(candidates)
	best, _, err := resolve.PickBest(deduped, title, year)
	if err != nil {
		return types.PaperDetails{}, err
	}
	return e.Enrich(ctx, best), nil
}
