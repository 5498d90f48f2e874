package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"recipefinder/internal/ingredient"
	"recipefinder/internal/recipe"
	"recipefinder/internal/search"
)

// Output formats of the query command.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type queryFlags struct {
	ingredients  []string
	forbidden    []string
	mustUse      []string
	tags         []string
	excludedTags []string
	mode         string
	minMatches   int
	maxSteps     int
	userCov      float64
	recipeCov    float64
	keywords     []string
	noKeywords   []string
	equipment    []string
	noEquipment  []string
	sources      []string
	topNDB       int
	limit        int
	format       string
	full         bool
}

func newQueryCmd(a *app) *cobra.Command {
	var f queryFlags

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Rank recipes by how well they cover the given ingredients",
		Example: `  recipesearch query -i "flank steak" -i garlic --tag cuisine=American
  recipesearch query --keyword cookie --max-steps 6 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := f.query()
			if err != nil {
				return err
			}
			switch f.format {
			case formatTable, formatJSON, formatYAML:
			default:
				return fmt.Errorf("unknown format %q", f.format)
			}

			ctx := cmd.Context()
			store, err := a.open(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			canon := ingredient.NewCanonicalizer(nil)
			if a.cfg.Search.CanonicalLexicon {
				if canon, err = search.LexiconCanonicalizer(ctx, store, a.logger); err != nil {
					return err
				}
			}

			svc := search.NewService(store, canon, a.cfg.Search.Options(), a.logger, nil)
			results, err := svc.QueryTopK(ctx, q)
			if err != nil {
				return err
			}
			a.logger.Debug("query finished", zap.Int("results", len(results)))

			if f.limit > 0 && len(results) > f.limit {
				results = results[:f.limit]
			}
			return render(cmd.OutOrStdout(), f.format, results, f.full)
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&f.ingredients, "ingredient", "i", nil, "ingredient on hand (repeatable)")
	fl.StringArrayVar(&f.forbidden, "forbid", nil, "ingredient a recipe must not contain (repeatable)")
	fl.StringArrayVar(&f.mustUse, "must-use", nil, "ingredient a recipe must contain (repeatable)")
	fl.StringArrayVarP(&f.tags, "tag", "t", nil, "required tag as category=title (repeatable)")
	fl.StringArrayVar(&f.excludedTags, "exclude-tag", nil, "excluded tag as category=title (repeatable)")
	fl.StringVar(&f.mode, "mode", string(recipe.MatchAny), "how tag categories combine: AND or OR")
	fl.IntVar(&f.minMatches, "min-matches", 0, "minimum number of exact ingredient matches")
	fl.IntVar(&f.maxSteps, "max-steps", 0, "maximum number of instruction steps")
	fl.Float64Var(&f.userCov, "user-coverage", 0, "minimum share of your ingredients a recipe uses")
	fl.Float64Var(&f.recipeCov, "recipe-coverage", 0, "minimum share of a recipe's ingredients you have")
	fl.StringArrayVarP(&f.keywords, "keyword", "k", nil, "keyword the recipe text must contain (repeatable)")
	fl.StringArrayVar(&f.noKeywords, "exclude-keyword", nil, "keyword the recipe text must not contain (repeatable)")
	fl.StringArrayVar(&f.equipment, "equipment", nil, "equipment the recipe must use (repeatable)")
	fl.StringArrayVar(&f.noEquipment, "exclude-equipment", nil, "equipment the recipe must not use (repeatable)")
	fl.StringArrayVar(&f.sources, "source", nil, "restrict to a source domain (repeatable)")
	fl.IntVar(&f.topNDB, "top-n-db", 0, "candidate limit of the database pass (0 uses the configured value)")
	fl.IntVar(&f.limit, "limit", 20, "maximum results to print (0 prints all)")
	fl.StringVarP(&f.format, "format", "o", formatTable, "output format: table, json or yaml")
	fl.BoolVar(&f.full, "full", false, "include the full recipe in json and yaml output")
	return cmd
}

func (f queryFlags) query() (search.Query, error) {
	tags, err := parseTags(f.tags)
	if err != nil {
		return search.Query{}, err
	}
	excluded, err := parseTags(f.excludedTags)
	if err != nil {
		return search.Query{}, err
	}
	return search.Query{
		UserIngredients:      f.ingredients,
		TagFilters:           tags,
		ExcludedTags:         excluded,
		TagFilterMode:        recipe.TagFilterMode(strings.ToUpper(f.mode)),
		MinIngredientMatches: f.minMatches,
		ForbiddenIngredients: f.forbidden,
		MustUse:              f.mustUse,
		MaxSteps:             f.maxSteps,
		UserCoverageReq:      f.userCov,
		RecipeCoverageReq:    f.recipeCov,
		KeywordsInclude:      f.keywords,
		KeywordsExclude:      f.noKeywords,
		EquipmentInclude:     f.equipment,
		EquipmentExclude:     f.noEquipment,
		Sources:              f.sources,
		TopNDB:               f.topNDB,
	}, nil
}

// parseTags turns category=title pairs into a tag map.
func parseTags(pairs []string) (map[recipe.TagCategory][]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make(map[recipe.TagCategory][]string)
	for _, p := range pairs {
		cat, title, ok := strings.Cut(p, "=")
		cat, title = strings.TrimSpace(cat), strings.TrimSpace(title)
		if !ok || cat == "" || title == "" {
			return nil, fmt.Errorf("tag %q: want category=title", p)
		}
		c := recipe.TagCategory(strings.ToLower(cat))
		if !c.Valid() {
			return nil, fmt.Errorf("tag %q: unknown category %q", p, cat)
		}
		tags[c] = append(tags[c], title)
	}
	return tags, nil
}

// row is the printed form of a result.
type row struct {
	URL            string         `json:"url" yaml:"url"`
	Title          string         `json:"title" yaml:"title"`
	UserCoverage   float64        `json:"user_coverage" yaml:"user_coverage"`
	RecipeCoverage float64        `json:"recipe_coverage" yaml:"recipe_coverage"`
	MatchedCount   int            `json:"matched_ingredient_count" yaml:"matched_ingredient_count"`
	Recipe         *recipe.Recipe `json:"recipe,omitempty" yaml:"recipe,omitempty"`
}

func render(w io.Writer, format string, results []search.Result, full bool) error {
	rows := make([]row, 0, len(results))
	for _, r := range results {
		out := row{
			URL:            r.URL,
			Title:          r.Title,
			UserCoverage:   r.UserCoverage,
			RecipeCoverage: r.RecipeCoverage,
			MatchedCount:   r.MatchedCount,
		}
		if full {
			out.Recipe = r.Recipe
		}
		rows = append(rows, out)
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case formatYAML:
		b, err := yaml.Marshal(rows)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		return renderTable(w, rows)
	}
}

func renderTable(w io.Writer, rows []row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no matching recipes")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECIPE\tUSER\tMATCHED\tTITLE\tURL")
	for _, r := range rows {
		fmt.Fprintf(tw, "%.2f\t%.2f\t%d\t%s\t%s\n", r.RecipeCoverage, r.UserCoverage, r.MatchedCount, r.Title, r.URL)
	}
	return tw.Flush()
}
