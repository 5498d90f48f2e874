package recipe_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipefinder/internal/recipe"
	"recipefinder/internal/testutil"
)

const (
	flankURL   = "https://a.com/flank-steak"
	musselsURL = "https://b.com/mussels"
	cookiesURL = "https://a.com/cookies"
)

func seededStore(t *testing.T) *recipe.SQLStore {
	t.Helper()
	s := testutil.NewStore(t)
	testutil.Seed(t, s,
		testutil.Fixture{
			URL:         flankURL,
			Title:       "Grilled Flank Steak",
			Description: "Charred and juicy.",
			Equipment:   "Grill, tongs",
			Source:      "a.com",
			Ingredients: []string{"Flank Steak", "Soy Sauce", "Brown Sugar"},
			Steps:       []string{"Marinate.", "Grill.", "Slice."},
			Tags: []recipe.Tag{
				{Category: recipe.CategoryCourse, Title: "Main Courses"},
				{Category: recipe.CategoryCuisine, Title: "American"},
				{Category: recipe.CategoryCuisine, Title: "Southern"},
				{Category: recipe.CategoryMainIngredient, Title: "Beef"},
			},
		},
		testutil.Fixture{
			URL:         musselsURL,
			Title:       "Steamed Mussels",
			Description: "A quick white wine steam.",
			Equipment:   "Dutch oven",
			Source:      "b.com",
			Ingredients: []string{"Mussels", "White Wine", "Garlic Cloves"},
			Steps:       []string{"Steam.", "Serve."},
			Tags: []recipe.Tag{
				{Category: recipe.CategoryCourse, Title: "Main Courses"},
				{Category: recipe.CategoryCuisine, Title: "French"},
			},
		},
		testutil.Fixture{
			URL:         cookiesURL,
			Title:       "Brown Sugar Cookies",
			Equipment:   "Oven, stand mixer",
			Source:      "a.com",
			Ingredients: []string{"Brown Sugar", "Flour", "Unsalted Butter", "Peanut Butter"},
			Steps:       []string{"Cream.", "Mix.", "Scoop.", "Chill.", "Bake.", "Cool."},
			Tags: []recipe.Tag{
				{Category: recipe.CategoryCourse, Title: "Desserts or Baked Goods"},
				{Category: recipe.CategoryDishType, Title: "Cookies"},
			},
		},
	)
	return s
}

func urls(cs []recipe.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.URL
	}
	return out
}

func TestCandidates_EmptyFilterReturnsAll(t *testing.T) {
	s := seededStore(t)

	got, err := s.Candidates(context.Background(), recipe.Filter{
		TagFilters:   map[recipe.TagCategory][]string{},
		ExcludedTags: map[recipe.TagCategory][]string{},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{cookiesURL, flankURL, musselsURL}, urls(got))
	for _, c := range got {
		assert.Zero(t, c.MatchedCount)
	}
}

func TestCandidates_NoMatchIsEmptyNotNil(t *testing.T) {
	s := seededStore(t)

	got, err := s.Candidates(context.Background(), recipe.Filter{KeywordsInclude: []string{"tea"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = s.Candidates(context.Background(), recipe.Filter{MinIngredientMatches: 1})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCandidates_ExactIngredientMatches(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	got, err := s.Candidates(ctx, recipe.Filter{
		UserIngredients:      []string{"flank steak", "brown sugar", "soy sauce"},
		MinIngredientMatches: 1,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recipe.Candidate{URL: flankURL, MatchedCount: 3}, got[0])
	assert.Equal(t, recipe.Candidate{URL: cookiesURL, MatchedCount: 1}, got[1])

	// Substrings never count as exact matches.
	got, err = s.Candidates(ctx, recipe.Filter{UserIngredients: []string{"brown"}, MinIngredientMatches: 1})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Candidates(ctx, recipe.Filter{
		UserIngredients:      []string{"unsalted butter", "peanut butter"},
		MinIngredientMatches: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{cookiesURL}, urls(got))
}

func TestCandidates_Limit(t *testing.T) {
	s := seededStore(t)

	got, err := s.Candidates(context.Background(), recipe.Filter{
		UserIngredients: []string{"flank steak", "soy sauce"},
		Limit:           1,
	})
	require.NoError(t, err)
	assert.Equal(t, []recipe.Candidate{{URL: flankURL, MatchedCount: 2}}, got)
}

func TestCandidates_Keywords(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{"steam does not match steak", []string{"steam"}, nil, []string{musselsURL}},
		{"steak", []string{"STEAK"}, nil, []string{flankURL}},
		{"ingredient text", []string{"peanut"}, nil, []string{cookiesURL}},
		{"all keywords required", []string{"brown", "sugar"}, nil, []string{cookiesURL, flankURL}},
		{"exclude", nil, []string{"sugar"}, []string{musselsURL}},
		{"wildcards are literal", []string{"%"}, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Candidates(ctx, recipe.Filter{KeywordsInclude: tt.include, KeywordsExclude: tt.exclude})
			require.NoError(t, err)
			assert.Equal(t, tt.want, urls(got))
		})
	}
}

func TestCandidates_Tags(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		include map[recipe.TagCategory][]string
		exclude map[recipe.TagCategory][]string
		mode    recipe.TagFilterMode
		want    []string
	}{
		{
			name: "all categories",
			include: map[recipe.TagCategory][]string{
				recipe.CategoryCourse:  {"Main Courses"},
				recipe.CategoryCuisine: {"French"},
			},
			mode: recipe.MatchAll,
			want: []string{musselsURL},
		},
		{
			name: "any category",
			include: map[recipe.TagCategory][]string{
				recipe.CategoryCourse:  {"Main Courses"},
				recipe.CategoryCuisine: {"French"},
			},
			mode: recipe.MatchAny,
			want: []string{flankURL, musselsURL},
		},
		{
			name: "several tags in one category are counted once",
			include: map[recipe.TagCategory][]string{
				recipe.CategoryCourse:  {"Main Courses"},
				recipe.CategoryCuisine: {"American", "Southern"},
			},
			mode: recipe.MatchAll,
			want: []string{flankURL},
		},
		{
			name:    "exclusion",
			exclude: map[recipe.TagCategory][]string{recipe.CategoryCourse: {"Desserts or Baked Goods"}},
			want:    []string{flankURL, musselsURL},
		},
		{
			name:    "exclusion is never relaxed by mode",
			include: map[recipe.TagCategory][]string{recipe.CategoryCourse: {"Main Courses"}},
			exclude: map[recipe.TagCategory][]string{
				recipe.CategoryCuisine:  {"French"},
				recipe.CategoryDishType: {},
			},
			mode: recipe.MatchAny,
			want: []string{flankURL},
		},
		{
			name:    "empty title lists are ignored",
			include: map[recipe.TagCategory][]string{recipe.CategoryHoliday: {}},
			mode:    recipe.MatchAll,
			want:    []string{cookiesURL, flankURL, musselsURL},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Candidates(ctx, recipe.Filter{
				TagFilters:    tt.include,
				ExcludedTags:  tt.exclude,
				TagFilterMode: tt.mode,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, urls(got))
		})
	}
}

func TestCandidates_IngredientConstraints(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	got, err := s.Candidates(ctx, recipe.Filter{ForbiddenIngredients: []string{"peanut", "wine"}})
	require.NoError(t, err)
	assert.Equal(t, []string{flankURL}, urls(got))

	got, err = s.Candidates(ctx, recipe.Filter{MustUse: []string{"brown sugar", "flour"}})
	require.NoError(t, err)
	assert.Equal(t, []string{cookiesURL}, urls(got))

	got, err = s.Candidates(ctx, recipe.Filter{MustUse: []string{"sugar"}})
	require.NoError(t, err)
	assert.Equal(t, []string{cookiesURL, flankURL}, urls(got))
}

func TestCandidates_StepsSourcesEquipment(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	got, err := s.Candidates(ctx, recipe.Filter{MaxSteps: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{flankURL, musselsURL}, urls(got))

	got, err = s.Candidates(ctx, recipe.Filter{Sources: []string{"b.com"}})
	require.NoError(t, err)
	assert.Equal(t, []string{musselsURL}, urls(got))

	got, err = s.Candidates(ctx, recipe.Filter{EquipmentInclude: []string{"oven"}})
	require.NoError(t, err)
	assert.Equal(t, []string{cookiesURL, musselsURL}, urls(got))

	got, err = s.Candidates(ctx, recipe.Filter{EquipmentExclude: []string{"grill"}})
	require.NoError(t, err)
	assert.Equal(t, []string{cookiesURL, musselsURL}, urls(got))
}

func TestCandidates_InvalidFilter(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	_, err := s.Candidates(ctx, recipe.Filter{TagFilters: map[recipe.TagCategory][]string{"color": {"red"}}})
	assert.ErrorIs(t, err, recipe.ErrUnknownTagCategory)

	_, err = s.Candidates(ctx, recipe.Filter{TagFilterMode: "XOR"})
	assert.ErrorIs(t, err, recipe.ErrInvalidTagFilterMode)
}

func TestLoadRecipes(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	testutil.Seed(t, s, testutil.Fixture{
		URL:        "https://c.com/broken",
		Title:      "Broken Payload",
		Simplified: "{not json",
	}, testutil.Fixture{
		URL:        "https://c.com/simple",
		Title:      "Simple",
		Simplified: `{"servings": 2, "steps": ["a", "b"]}`,
	})
	_, err := s.DB().ExecContext(ctx, s.DB().Rebind(
		`INSERT INTO recipe_instructions (url, step_number, instruction) VALUES (?, ?, ?), (?, NULL, ?)`),
		flankURL, "serve", "Garnish.", flankURL, "Rest.")
	require.NoError(t, err)

	got, err := s.LoadRecipes(ctx, []string{flankURL, cookiesURL, flankURL, "https://missing", "https://c.com/broken", "https://c.com/simple"})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.NotContains(t, got, "https://missing")

	flank := got[flankURL]
	assert.Equal(t, "Grilled Flank Steak", flank.Title)
	assert.Equal(t, "a.com", flank.SourceDomain)
	assert.Equal(t, "Grill, tongs", flank.Equipment)
	assert.Equal(t, "30 minutes", flank.CookTime)
	require.Len(t, flank.Ingredients, 3)
	assert.Equal(t, []recipe.Ingredient{
		{Ingredient: "Flank Steak", Normalized: "flank steak", Canonical: "flank steak"},
		{Ingredient: "Soy Sauce", Normalized: "soy sauce", Canonical: "soy sauce"},
		{Ingredient: "Brown Sugar", Normalized: "brown sugar", Canonical: "brown sugar"},
	}, flank.Ingredients)

	require.Len(t, flank.Instructions, 5)
	var texts []string
	for _, in := range flank.Instructions {
		texts = append(texts, in.Text)
	}
	assert.Equal(t, []string{"Marinate.", "Grill.", "Slice."}, texts[:3])
	assert.Equal(t, []string{"Garnish.", "Rest."}, texts[3:])
	assert.Equal(t, 1, flank.Instructions[0].Number)
	assert.Equal(t, -1, flank.Instructions[4].Number)

	assert.Empty(t, flank.Simplified)
	assert.NotNil(t, flank.Simplified)
	assert.Empty(t, got["https://c.com/broken"].Simplified)
	assert.Equal(t, float64(2), got["https://c.com/simple"].Simplified["servings"])
	assert.Empty(t, got["https://c.com/simple"].Ingredients)
}

func TestLoadRecipes_InsertionOrder(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	testutil.Seed(t, s,
		testutil.Fixture{URL: "https://a.com/one", Title: "One", Ingredients: []string{"Zucchini"}},
		testutil.Fixture{URL: "https://a.com/two", Title: "Two", Ingredients: []string{"Yams"}},
	)

	// Interleave rows of both recipes so neither table order nor text order
	// gives back the per-recipe insertion order by accident.
	db := s.DB()
	insert := db.Rebind(`INSERT INTO recipe_ingredients (url, ingredient, normalized_ingredient, canonical_ingredient) VALUES (?, ?, ?, ?)`)
	for _, row := range [][2]string{
		{"https://a.com/two", "Apples"},
		{"https://a.com/one", "Basil"},
		{"https://a.com/two", "Mint"},
		{"https://a.com/one", "Anchovies"},
	} {
		norm := strings.ToLower(row[1])
		_, err := db.ExecContext(ctx, insert, row[0], row[1], norm, norm)
		require.NoError(t, err)
	}
	steps := db.Rebind(`INSERT INTO recipe_instructions (url, step_number, instruction) VALUES (?, ?, ?)`)
	for _, text := range []string{"Zest.", "Chop.", "Mix."} {
		_, err := db.ExecContext(ctx, steps, "https://a.com/one", "note", text)
		require.NoError(t, err)
	}

	got, err := s.LoadRecipes(ctx, []string{"https://a.com/two", "https://a.com/one"})
	require.NoError(t, err)

	names := func(r *recipe.Recipe) []string {
		var out []string
		for _, ing := range r.Ingredients {
			out = append(out, ing.Ingredient)
		}
		return out
	}
	assert.Equal(t, []string{"Zucchini", "Basil", "Anchovies"}, names(got["https://a.com/one"]))
	assert.Equal(t, []string{"Yams", "Apples", "Mint"}, names(got["https://a.com/two"]))

	var texts []string
	for _, in := range got["https://a.com/one"].Instructions {
		texts = append(texts, in.Text)
	}
	assert.Equal(t, []string{"Zest.", "Chop.", "Mix."}, texts)
}

func TestLoadRecipes_Empty(t *testing.T) {
	s := testutil.NewStore(t)

	got, err := s.LoadRecipes(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSourcesAndCanonicalTerms(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com"}, sources)

	terms, err := s.CanonicalTerms(ctx)
	require.NoError(t, err)
	assert.Contains(t, terms, "flank steak")
	assert.Contains(t, terms, "brown sugar")
	assert.Len(t, terms, 9)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := recipe.Open(context.Background(), "mysql", "", nil)
	assert.Error(t, err)
}
