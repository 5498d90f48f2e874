package testutil

import (
	"context"
	"strconv"
	"testing"

	"recipefinder/internal/ingredient"
	"recipefinder/internal/recipe"
)

// NewStore creates an in-memory SQLite recipe store with the schema applied.
// The store is automatically closed when the test completes.
func NewStore(t *testing.T) *recipe.SQLStore {
	t.Helper()
	ctx := context.Background()
	s, err := recipe.Open(ctx, recipe.DriverSQLite, ":memory:", Logger())
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	return s
}

// Fixture describes one recipe to seed. Ingredients are raw phrases; their
// normalized and canonical forms are derived with ingredient.Normalize unless
// Canonical supplies an override for the same index.
type Fixture struct {
	URL         string
	Title       string
	Description string
	Equipment   string
	Source      string
	Ingredients []string
	Canonical   []string
	Steps       []string
	Tags        []recipe.Tag
	Simplified  string
}

// Seed inserts fixtures into s.
func Seed(t *testing.T, s *recipe.SQLStore, fixtures ...Fixture) {
	t.Helper()
	ctx := context.Background()
	db := s.DB()
	exec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
			t.Fatalf("testutil.Seed: %v", err)
		}
	}

	for _, f := range fixtures {
		exec(`INSERT INTO recipe_schema (url, title, description, equipment, source_domain, cook_time, yields)
			VALUES (?, ?, ?, ?, ?, '30 minutes', '4 servings')`,
			f.URL, f.Title, f.Description, f.Equipment, f.Source)

		for i, raw := range f.Ingredients {
			normalized := ingredient.Normalize(raw)
			canonical := normalized
			if i < len(f.Canonical) && f.Canonical[i] != "" {
				canonical = f.Canonical[i]
			}
			exec(`INSERT INTO recipe_ingredients (url, ingredient, normalized_ingredient, canonical_ingredient)
				VALUES (?, ?, ?, ?)`, f.URL, raw, normalized, canonical)
		}
		for i, step := range f.Steps {
			exec(`INSERT INTO recipe_instructions (url, step_number, instruction) VALUES (?, ?, ?)`,
				f.URL, strconv.Itoa(i+1), step)
		}
		for _, tag := range f.Tags {
			exec(`INSERT INTO recipe_tags (url, category, title) VALUES (?, ?, ?)`,
				f.URL, string(tag.Category), tag.Title)
		}
		if f.Simplified != "" {
			exec(`INSERT INTO simplified_recipes (url, simplified_data) VALUES (?, ?)`, f.URL, f.Simplified)
		}
	}
}
