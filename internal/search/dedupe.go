// Package search runs top-k recipe queries over a recipe.Store and ranks the
// candidates by how well their ingredients cover the user's.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"recipefinder/internal/recipe"
	"recipefinder/internal/similarity"
)

// DefaultDedupeThreshold is the title similarity (0–100) at or above which two
// candidates are treated as the same recipe.
const DefaultDedupeThreshold = 95

// Dedupe removes near-duplicate candidates. Titles are compared pairwise in
// one batched similarity matrix; for every pair at or above threshold the
// member with the shorter serialized recipe is dropped, the later one on a
// tie. Drops are final. A candidate without a loaded recipe is compared by
// its URL. The output preserves input order and is empty only when the input
// is.
func Dedupe(ctx context.Context, candidates []recipe.Candidate, recipes map[string]*recipe.Recipe, threshold float64) ([]recipe.Candidate, error) {
	n := len(candidates)
	if n == 0 {
		return []recipe.Candidate{}, nil
	}

	titles := make([]string, n)
	lengths := make([]int, n)
	for i, c := range candidates {
		r, ok := recipes[c.URL]
		if !ok || r == nil {
			titles[i] = c.URL
			continue
		}
		titles[i] = strings.ToLower(r.Title)
		lengths[i] = serializedLen(r)
	}

	sim, err := similarity.Matrix(ctx, titles, titles, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to compute title similarity: %w", err)
	}

	drop := make([]bool, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sim.At(i, j) < threshold {
				continue
			}
			if lengths[i] >= lengths[j] {
				drop[j] = true
			} else {
				drop[i] = true
			}
		}
	}

	kept := make([]recipe.Candidate, 0, n)
	for i, c := range candidates {
		if !drop[i] {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func serializedLen(r *recipe.Recipe) int {
	b, err := json.Marshal(r)
	if err != nil {
		return 0
	}
	return len(b)
}
