package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"recipefinder/internal/ingredient"
	"recipefinder/internal/recipe"
	"recipefinder/internal/similarity"
)

// Scoring defaults.
const (
	DefaultMinPairSim             = 0.9
	DefaultAlpha                  = 0.75
	DefaultSkipHungarianThreshold = 0.2
)

// Scoring paths reported to metrics.
const (
	pathEmpty     = "empty"
	pathQuick     = "quick"
	pathHungarian = "hungarian"
)

// Coverage is the ingredient coverage of one recipe. UserCoverage is the
// fraction of user terms matched by the recipe, RecipeCoverage the matched
// similarity mass per recipe ingredient. Both lie in [0, 1].
type Coverage struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	UserCoverage   float64 `json:"user_coverage"`
	RecipeCoverage float64 `json:"recipe_coverage"`
}

// Scorer computes ingredient coverage between user terms and recipes.
//
// Similarity of a (user term, recipe ingredient) pair blends the token-set
// ratio on canonical forms with the ratio on raw phrases:
// Alpha*canonical + (1-Alpha)*raw, in [0, 1]. Pairs below MinPairSim do not
// count. Recipes whose quick coverage estimate is below
// SkipHungarianThreshold are scored from best-match counts only; the others
// get an optimal one-to-one assignment.
type Scorer struct {
	MinPairSim             float64
	Alpha                  float64
	SkipHungarianThreshold float64

	// Canonicalizer keys user terms; nil keeps them as normalized phrases.
	Canonicalizer *ingredient.Canonicalizer

	metrics *Metrics
}

// NewScorer returns a Scorer with the default parameters.
func NewScorer(canon *ingredient.Canonicalizer) *Scorer {
	return &Scorer{
		MinPairSim:             DefaultMinPairSim,
		Alpha:                  DefaultAlpha,
		SkipHungarianThreshold: DefaultSkipHungarianThreshold,
		Canonicalizer:          canon,
	}
}

// Score returns the coverage of every recipe against userIngredients, sorted
// by URL. With no user ingredients every recipe scores (0, 0).
func (s *Scorer) Score(ctx context.Context, recipes map[string]*recipe.Recipe, userIngredients []string) ([]Coverage, error) {
	urls := make([]string, 0, len(recipes))
	for url, r := range recipes {
		if r != nil {
			urls = append(urls, url)
		}
	}
	sort.Strings(urls)

	results := make([]Coverage, len(urls))
	for i, url := range urls {
		results[i] = Coverage{URL: url, Title: recipes[url].Title}
	}
	if len(userIngredients) == 0 || len(urls) == 0 {
		s.metrics.addScored(pathEmpty, len(urls))
		return results, nil
	}

	// Canonical and raw phrases share offsets: both come from the same
	// ingredient lines.
	var canonical, raw []string
	offsets := make([][2]int, len(urls))
	for i, url := range urls {
		start := len(canonical)
		for _, ing := range recipes[url].Ingredients {
			canonical = append(canonical, strings.ToLower(strings.TrimSpace(ing.Canonical)))
			raw = append(raw, processRaw(ing.Ingredient))
		}
		offsets[i] = [2]int{start, len(canonical)}
	}
	if len(canonical) == 0 {
		s.metrics.addScored(pathEmpty, len(urls))
		return results, nil
	}

	userKeys := make([]string, len(userIngredients))
	userRaw := make([]string, len(userIngredients))
	for i, u := range userIngredients {
		userKeys[i] = s.Canonicalizer.Key(u)
		userRaw[i] = processRaw(u)
	}

	canSim, err := similarity.Matrix(ctx, userKeys, canonical, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to compute canonical similarity: %w", err)
	}
	rawSim, err := similarity.Matrix(ctx, userRaw, raw, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to compute raw similarity: %w", err)
	}

	var combined mat.Dense
	combined.Scale(s.Alpha, canSim)
	rawSim.Scale(1-s.Alpha, rawSim)
	combined.Add(&combined, rawSim)

	n := len(userIngredients)
	for i := range results {
		start, end := offsets[i][0], offsets[i][1]
		if start == end {
			s.metrics.addScored(pathEmpty, 1)
			continue
		}
		sub := combined.Slice(0, n, start, end)
		results[i].UserCoverage, results[i].RecipeCoverage = s.cover(sub)
	}
	return results, nil
}

// cover scores one recipe given its n×m block of the combined matrix.
func (s *Scorer) cover(sim mat.Matrix) (user, rcp float64) {
	n, m := sim.Dims()

	recipeHits := 0
	for j := 0; j < m; j++ {
		if floats.Max(mat.Col(nil, j, sim)) >= s.MinPairSim {
			recipeHits++
		}
	}
	quickRecipe := float64(recipeHits) / float64(m)

	if quickRecipe < s.SkipHungarianThreshold {
		userHits := 0
		for i := 0; i < n; i++ {
			if floats.Max(mat.Row(nil, i, sim)) >= s.MinPairSim {
				userHits++
			}
		}
		s.metrics.addScored(pathQuick, 1)
		return float64(userHits) / float64(n), quickRecipe
	}

	size := max(n, m)
	clipped := mat.NewDense(n, m, nil)
	cost := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i >= n || j >= m {
				cost.Set(i, j, 1)
				continue
			}
			v := sim.At(i, j)
			if v < s.MinPairSim {
				v = 0
			}
			clipped.Set(i, j, v)
			cost.Set(i, j, 1-v)
		}
	}

	var total float64
	matched := 0
	for i, j := range similarity.Assign(cost) {
		if i >= n || j >= m {
			continue
		}
		v := clipped.At(i, j)
		total += v
		if v > 0 {
			matched++
		}
	}
	s.metrics.addScored(pathHungarian, 1)
	return float64(matched) / float64(n), total / float64(m)
}

// processRaw lowercases a raw ingredient phrase and turns every rune that is
// not a letter or digit into a space, so "Steak," and "steak" tokenize alike.
func processRaw(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s))
}
