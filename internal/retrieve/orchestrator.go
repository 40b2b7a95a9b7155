// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve assembles provenance-tagged context bundles for generation
// stages by fanning a query out over the requested corpus categories.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/goal-engine/pkg/types"
)

// Searcher is the corpus capability the orchestrator consumes. An empty
// category leaves the search unrestricted; a category with no indexed
// passages yields an empty result, not an error. Implementations must
// support concurrent calls.
type Searcher interface {
	Search(ctx context.Context, query string, k int, category types.PassageCategory) ([]types.ReferencePassage, error)
}

// Orchestrator issues category-filtered similarity queries and merges the
// results into ordered context bundles.
type Orchestrator struct {
	corpus Searcher
}

// NewOrchestrator returns an Orchestrator over the given corpus handle.
func NewOrchestrator(corpus Searcher) *Orchestrator {
	return &Orchestrator{corpus: corpus}
}

// Retrieve assembles a context bundle for one query. With no categories it
// issues a single unrestricted top-k search. With N categories it issues N
// independent top-k searches, one per category, and concatenates the results
// in category-list order — so the bundle holds up to N*k passages and every
// requested category stays represented rather than letting one dominate a
// merged top-k. The per-category searches run concurrently; the join order
// is fixed by the category list, never by completion order. A category with
// zero matches contributes nothing and does not fail the call.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, k int, categories []types.PassageCategory) (types.ContextBundle, error) {
	if len(categories) == 0 {
		passages, err := o.corpus.Search(ctx, query, k, "")
		if err != nil {
			return nil, fmt.Errorf("searching corpus: %w", err)
		}
		return rank(passages), nil
	}

	results := make([][]types.ReferencePassage, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			passages, err := o.corpus.Search(gctx, query, k, category)
			if err != nil {
				return fmt.Errorf("searching corpus for category %s: %w", category, err)
			}
			results[i] = passages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var bundle types.ContextBundle
	for _, passages := range results {
		bundle = append(bundle, rank(passages)...)
	}
	return bundle, nil
}

// rank pairs passages with their 1-based position within one search.
func rank(passages []types.ReferencePassage) types.ContextBundle {
	bundle := make(types.ContextBundle, len(passages))
	for i, p := range passages {
		bundle[i] = types.RetrievedPassage{Passage: p, Rank: i + 1}
	}
	return bundle
}

// Render serializes a bundle into the context block handed to generation
// templates. Each passage gets a delimiter line carrying its 1-based bundle
// position, source, and category, followed by its content. The serialization
// is deterministic: identical bundles render to identical text, since
// generation output is sensitive to exact context phrasing.
func Render(bundle types.ContextBundle) string {
	parts := make([]string, len(bundle))
	for i, rp := range bundle {
		parts[i] = fmt.Sprintf("--- Passage %d (Source: %s, Category: %s) ---\n%s\n",
			i+1, rp.Passage.Source, rp.Passage.Category, rp.Passage.Content)
	}
	return strings.Join(parts, "\n")
}
