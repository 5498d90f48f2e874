package recipe

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LoadRecipes hydrates the recipes for urls with one batched query per table.
// URLs without a recipe row are absent from the result. A missing or
// malformed simplified payload leaves that recipe's Simplified empty.
func (s *SQLStore) LoadRecipes(ctx context.Context, urls []string) (map[string]*Recipe, error) {
	recipes := make(map[string]*Recipe, len(urls))
	urls = uniqueStrings(urls)
	if len(urls) == 0 {
		return recipes, nil
	}

	var rows []Recipe
	if err := s.selectIn(ctx, &rows, `
		SELECT url,
			COALESCE(title, '') AS title,
			COALESCE(description, '') AS description,
			COALESCE(cook_time, '') AS cook_time,
			COALESCE(yields, '') AS yields,
			COALESCE(why_this_works, '') AS why_this_works,
			COALESCE(headnote, '') AS headnote,
			COALESCE(equipment, '') AS equipment,
			COALESCE(source_domain, '') AS source_domain,
			COALESCE(processed_at, '') AS processed_at,
			COALESCE(course, '') AS course,
			COALESCE(main_ingredient, '') AS main_ingredient
		FROM recipe_schema WHERE url IN (?) ORDER BY url`, urls); err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	for i := range rows {
		r := rows[i]
		r.Ingredients = []Ingredient{}
		r.Instructions = []Instruction{}
		r.Simplified = map[string]any{}
		recipes[r.URL] = &r
	}

	var ingredients []struct {
		URL        string `db:"url"`
		Ingredient string `db:"ingredient"`
		Normalized string `db:"normalized_ingredient"`
		Canonical  string `db:"canonical_ingredient"`
	}
	if err := s.selectIn(ctx, &ingredients, `
		SELECT url, ingredient,
			COALESCE(normalized_ingredient, '') AS normalized_ingredient,
			COALESCE(canonical_ingredient, '') AS canonical_ingredient
		FROM recipe_ingredients WHERE url IN (?) ORDER BY url, `+s.rowOrder(), urls); err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	for _, row := range ingredients {
		if r, ok := recipes[row.URL]; ok {
			r.Ingredients = append(r.Ingredients, Ingredient{
				Ingredient: row.Ingredient,
				Normalized: row.Normalized,
				Canonical:  row.Canonical,
			})
		}
	}

	var steps []struct {
		URL         string         `db:"url"`
		StepNumber  sql.NullString `db:"step_number"`
		Instruction sql.NullString `db:"instruction"`
	}
	if err := s.selectIn(ctx, &steps, `
		SELECT url, step_number, instruction
		FROM recipe_instructions WHERE url IN (?) ORDER BY url, `+s.rowOrder(), urls); err != nil {
		return nil, fmt.Errorf("failed to load instructions: %w", err)
	}
	for _, row := range steps {
		if r, ok := recipes[row.URL]; ok {
			r.Instructions = append(r.Instructions, Instruction{
				Step:   row.StepNumber.String,
				Number: ParseStep(row.StepNumber.String),
				Text:   row.Instruction.String,
			})
		}
	}
	for _, r := range recipes {
		sort.SliceStable(r.Instructions, func(i, j int) bool {
			return r.Instructions[i].less(r.Instructions[j])
		})
	}

	var payloads []struct {
		URL  string         `db:"url"`
		Data sql.NullString `db:"simplified_data"`
	}
	if err := s.selectIn(ctx, &payloads, `
		SELECT url, simplified_data
		FROM simplified_recipes WHERE url IN (?) ORDER BY url`, urls); err != nil {
		return nil, fmt.Errorf("failed to load simplified data: %w", err)
	}
	for _, row := range payloads {
		r, ok := recipes[row.URL]
		if !ok || row.Data.String == "" {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(row.Data.String), &data); err != nil || data == nil {
			s.logger.Warn("failed to decode simplified data",
				zap.String("url", row.URL),
				zap.Error(err),
			)
			continue
		}
		r.Simplified = data
	}

	return recipes, nil
}

// Sources returns the distinct, non-empty source domains in sorted order.
func (s *SQLStore) Sources(ctx context.Context) ([]string, error) {
	sources := []string{}
	err := s.db.SelectContext(ctx, &sources, `
		SELECT DISTINCT source_domain FROM recipe_schema
		WHERE source_domain IS NOT NULL AND source_domain <> ''
		ORDER BY source_domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	return sources, nil
}

// CanonicalTerms returns every distinct canonical ingredient form in the store.
func (s *SQLStore) CanonicalTerms(ctx context.Context) ([]string, error) {
	terms := []string{}
	err := s.db.SelectContext(ctx, &terms, `
		SELECT DISTINCT canonical_ingredient FROM recipe_ingredients
		WHERE canonical_ingredient IS NOT NULL AND canonical_ingredient <> ''
		ORDER BY canonical_ingredient`)
	if err != nil {
		return nil, fmt.Errorf("failed to get canonical ingredients: %w", err)
	}
	return terms, nil
}

// rowOrder is the column that orders rows of one recipe as the ingestion
// pipeline inserted them: SQLite's rowid or PostgreSQL's ctid.
func (s *SQLStore) rowOrder() string {
	if s.db.DriverName() == DriverPostgres {
		return "ctid"
	}
	return "rowid"
}

// selectIn expands the single "IN (?)" of query for args and scans into dest.
func (s *SQLStore) selectIn(ctx context.Context, dest any, query string, args ...any) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...)
}

func uniqueStrings(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
