package recipe

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownTagCategory is returned when a filter names a category outside Categories.
	ErrUnknownTagCategory = errors.New("unknown tag category")
	// ErrInvalidTagFilterMode is returned for a tag filter mode other than AND or OR.
	ErrInvalidTagFilterMode = errors.New("invalid tag filter mode")
)

// Filter holds the constraints of a candidate search. Ingredient terms are
// expected to be normalized by the caller; everything else is matched
// case-insensitively. Zero values mean "no constraint".
type Filter struct {
	TagFilters           map[TagCategory][]string
	ExcludedTags         map[TagCategory][]string
	TagFilterMode        TagFilterMode
	UserIngredients      []string
	MinIngredientMatches int
	ForbiddenIngredients []string
	MustUse              []string
	MaxSteps             int
	KeywordsInclude      []string
	KeywordsExclude      []string
	EquipmentInclude     []string
	EquipmentExclude     []string
	Sources              []string
	Limit                int
}

// Validate checks tag categories and the tag filter mode.
func (f Filter) Validate() error {
	if !f.TagFilterMode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTagFilterMode, f.TagFilterMode)
	}
	for _, tags := range []map[TagCategory][]string{f.TagFilters, f.ExcludedTags} {
		for cat := range tags {
			if !cat.Valid() {
				return fmt.Errorf("%w: %q", ErrUnknownTagCategory, cat)
			}
		}
	}
	return nil
}

// candidateQuery builds the aggregated candidate SQL with '?' placeholders.
//
// Tag and ingredient matches are LEFT JOINed with their conditions in the ON
// clause, so a recipe contributes one row per (matched tag, matched ingredient)
// pair. Both counts use COUNT(DISTINCT ...) and are therefore immune to that
// fan-out; the tag requirement is applied in HAVING.
func candidateQuery(f Filter) (string, []any) {
	var (
		sb     strings.Builder
		joins  []string
		where  []string
		having []string
		args   []any
	)

	// Placeholder arguments must follow textual order: SELECT, JOIN, WHERE, HAVING, LIMIT.
	var joinArgs, whereArgs, havingArgs []any

	matchedCount := "0"
	if len(f.UserIngredients) > 0 {
		matchedCount = "COUNT(DISTINCT i.normalized_ingredient)"
		joins = append(joins, "LEFT JOIN recipe_ingredients i ON i.url = s.url AND i.normalized_ingredient IN ("+placeholders(len(f.UserIngredients))+")")
		joinArgs = append(joinArgs, toArgs(f.UserIngredients)...)
	}

	categories := requestedCategories(f.TagFilters)
	if len(categories) > 0 {
		var ors []string
		for _, cat := range categories {
			titles := f.TagFilters[cat]
			ors = append(ors, "(t.category = ? AND t.title IN ("+placeholders(len(titles))+"))")
			joinArgs = append(joinArgs, string(cat))
			joinArgs = append(joinArgs, toArgs(titles)...)
		}
		joins = append(joins, "LEFT JOIN recipe_tags t ON t.url = s.url AND ("+strings.Join(ors, " OR ")+")")

		if f.TagFilterMode == MatchAll {
			having = append(having, "COUNT(DISTINCT t.category) = ?")
			havingArgs = append(havingArgs, len(categories))
		} else {
			having = append(having, "COUNT(DISTINCT t.category) >= 1")
		}
	}

	if f.MaxSteps > 0 {
		joins = append(joins, "LEFT JOIN (SELECT url, COUNT(*) AS step_count FROM recipe_instructions GROUP BY url) st ON st.url = s.url")
		having = append(having, "MAX(COALESCE(st.step_count, 0)) <= ?")
		havingArgs = append(havingArgs, f.MaxSteps)
	}

	if len(f.Sources) > 0 {
		where = append(where, "s.source_domain IN ("+placeholders(len(f.Sources))+")")
		whereArgs = append(whereArgs, toArgs(f.Sources)...)
	}

	for _, cat := range requestedCategories(f.ExcludedTags) {
		titles := f.ExcludedTags[cat]
		where = append(where, "NOT EXISTS (SELECT 1 FROM recipe_tags te WHERE te.url = s.url AND te.category = ? AND te.title IN ("+placeholders(len(titles))+"))")
		whereArgs = append(whereArgs, string(cat))
		whereArgs = append(whereArgs, toArgs(titles)...)
	}

	if forbidden := nonEmpty(f.ForbiddenIngredients); len(forbidden) > 0 {
		conds := make([]string, len(forbidden))
		for k, term := range forbidden {
			conds[k] = "LOWER(fi.normalized_ingredient) LIKE ? ESCAPE '\\'"
			whereArgs = append(whereArgs, likePattern(term))
		}
		where = append(where, "NOT EXISTS (SELECT 1 FROM recipe_ingredients fi WHERE fi.url = s.url AND ("+strings.Join(conds, " OR ")+"))")
	}

	for _, term := range nonEmpty(f.MustUse) {
		where = append(where, "EXISTS (SELECT 1 FROM recipe_ingredients mu WHERE mu.url = s.url AND LOWER(mu.normalized_ingredient) LIKE ? ESCAPE '\\')")
		whereArgs = append(whereArgs, likePattern(term))
	}

	for _, kw := range nonEmpty(f.KeywordsInclude) {
		where = append(where, "("+keywordMatch+")")
		p := likePattern(kw)
		whereArgs = append(whereArgs, p, p, p)
	}
	for _, kw := range nonEmpty(f.KeywordsExclude) {
		where = append(where, "NOT ("+keywordMatch+")")
		p := likePattern(kw)
		whereArgs = append(whereArgs, p, p, p)
	}

	for _, eq := range nonEmpty(f.EquipmentInclude) {
		where = append(where, "LOWER(COALESCE(s.equipment, '')) LIKE ? ESCAPE '\\'")
		whereArgs = append(whereArgs, likePattern(eq))
	}
	for _, eq := range nonEmpty(f.EquipmentExclude) {
		where = append(where, "LOWER(COALESCE(s.equipment, '')) NOT LIKE ? ESCAPE '\\'")
		whereArgs = append(whereArgs, likePattern(eq))
	}

	if f.MinIngredientMatches > 0 {
		if len(f.UserIngredients) == 0 {
			// Nothing can match; keep the query valid and empty.
			having = append(having, "1 = 0")
		} else {
			having = append(having, matchedCount+" >= ?")
			havingArgs = append(havingArgs, f.MinIngredientMatches)
		}
	}

	sb.WriteString("SELECT s.url AS url, ")
	sb.WriteString(matchedCount)
	sb.WriteString(" AS matched_count FROM recipe_schema s")
	for _, j := range joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" GROUP BY s.url")
	if len(having) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(strings.Join(having, " AND "))
	}
	sb.WriteString(" ORDER BY matched_count DESC, s.url ASC")

	args = append(args, joinArgs...)
	args = append(args, whereArgs...)
	args = append(args, havingArgs...)
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	return sb.String(), args
}

// keywordMatch matches one keyword against title, description or any ingredient line.
const keywordMatch = "LOWER(COALESCE(s.title, '')) LIKE ? ESCAPE '\\'" +
	" OR LOWER(COALESCE(s.description, '')) LIKE ? ESCAPE '\\'" +
	" OR EXISTS (SELECT 1 FROM recipe_ingredients ki WHERE ki.url = s.url AND LOWER(ki.normalized_ingredient) LIKE ? ESCAPE '\\')"

// requestedCategories returns the categories with at least one title, sorted so
// the generated SQL is stable.
func requestedCategories(tags map[TagCategory][]string) []TagCategory {
	var cats []TagCategory
	for cat, titles := range tags {
		if len(titles) > 0 {
			cats = append(cats, cat)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// likePattern wraps term for a case-insensitive substring LIKE, escaping wildcards.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func nonEmpty(ss []string) []string {
	var out []string
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
