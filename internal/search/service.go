package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipefinder/internal/ingredient"
	"recipefinder/internal/recipe"
)

// ErrInvalidQuery is returned for out-of-range query values.
var ErrInvalidQuery = errors.New("invalid query")

// DefaultTopNDB is the candidate limit of the first candidate filter pass.
const DefaultTopNDB = 3000

// Query is the full constraint set of a top-k search. Ingredient terms are
// free text; they are normalized and canonicalized before use. Nil and empty
// collections mean "no constraint".
type Query struct {
	UserIngredients      []string                        `json:"user_ingredients"`
	TagFilters           map[recipe.TagCategory][]string `json:"tag_filters"`
	ExcludedTags         map[recipe.TagCategory][]string `json:"excluded_tags"`
	TagFilterMode        recipe.TagFilterMode            `json:"tag_filter_mode"`
	MinIngredientMatches int                             `json:"min_ing_matches"`
	ForbiddenIngredients []string                        `json:"forbidden_ingredients"`
	MustUse              []string                        `json:"must_use"`
	MaxSteps             int                             `json:"max_steps"`
	UserCoverageReq      float64                         `json:"user_coverage_req"`
	RecipeCoverageReq    float64                         `json:"recipe_coverage_req"`
	KeywordsInclude      []string                        `json:"keywords_to_include"`
	KeywordsExclude      []string                        `json:"keywords_to_exclude"`
	EquipmentInclude     []string                        `json:"equipment_to_include"`
	EquipmentExclude     []string                        `json:"equipment_to_exclude"`
	Sources              []string                        `json:"sources"`

	// TopNDB overrides the service's candidate limit when positive.
	TopNDB int `json:"top_n_db"`
	// SkipHungarianThreshold overrides the scorer's threshold when set.
	SkipHungarianThreshold *float64 `json:"skip_hungarian_threshold"`
}

// Result is one ranked recipe.
type Result struct {
	URL            string         `json:"url"`
	Title          string         `json:"title"`
	UserCoverage   float64        `json:"user_coverage"`
	RecipeCoverage float64        `json:"recipe_coverage"`
	MatchedCount   int            `json:"matched_ingredient_count"`
	Recipe         *recipe.Recipe `json:"recipe"`
}

// Options tunes the search pipeline.
type Options struct {
	TopNDB                 int
	DedupeThreshold        float64
	MinPairSim             float64
	Alpha                  float64
	SkipHungarianThreshold float64
}

// DefaultOptions returns the default pipeline tuning.
func DefaultOptions() Options {
	return Options{
		TopNDB:                 DefaultTopNDB,
		DedupeThreshold:        DefaultDedupeThreshold,
		MinPairSim:             DefaultMinPairSim,
		Alpha:                  DefaultAlpha,
		SkipHungarianThreshold: DefaultSkipHungarianThreshold,
	}
}

// Service runs top-k queries against a recipe store. It holds no per-query
// state and is safe for concurrent use.
type Service struct {
	store   recipe.Store
	canon   *ingredient.Canonicalizer
	opts    Options
	logger  *zap.Logger
	metrics *Metrics
}

// NewService creates a Service. canon, logger and metrics may be nil. Zero
// or negative options take their DefaultOptions value; a query can still
// lower SkipHungarianThreshold to 0 through Query.SkipHungarianThreshold.
func NewService(store recipe.Store, canon *ingredient.Canonicalizer, opts Options, logger *zap.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.TopNDB <= 0 {
		opts.TopNDB = defaults.TopNDB
	}
	if opts.DedupeThreshold <= 0 {
		opts.DedupeThreshold = defaults.DedupeThreshold
	}
	if opts.MinPairSim <= 0 {
		opts.MinPairSim = defaults.MinPairSim
	}
	if opts.Alpha <= 0 {
		opts.Alpha = defaults.Alpha
	}
	if opts.SkipHungarianThreshold <= 0 {
		opts.SkipHungarianThreshold = defaults.SkipHungarianThreshold
	}
	return &Service{
		store:   store,
		canon:   canon,
		opts:    opts,
		logger:  logger.Named("search"),
		metrics: metrics,
	}
}

// QueryTopK runs the candidate filter, loads and dedupes the candidates,
// scores their coverage and returns the recipes meeting the coverage
// requirements, best recipe coverage first and then best user coverage.
// An empty result is not an error.
func (s *Service) QueryTopK(ctx context.Context, q Query) ([]Result, error) {
	start := time.Now()
	defer s.metrics.observeStage("total", start)

	results, err := s.queryTopK(ctx, q)
	if err != nil {
		s.metrics.incErrors()
		return nil, err
	}
	s.metrics.observeResults(len(results))
	return results, nil
}

func (s *Service) queryTopK(ctx context.Context, q Query) ([]Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	mode := q.TagFilterMode
	if mode == "" {
		mode = recipe.MatchAny
	}
	limit := s.opts.TopNDB
	if q.TopNDB > 0 {
		limit = q.TopNDB
	}

	userTerms := nonBlank(q.UserIngredients)
	filter := recipe.Filter{
		TagFilters:           q.TagFilters,
		ExcludedTags:         q.ExcludedTags,
		TagFilterMode:        mode,
		UserIngredients:      s.canon.Keys(userTerms),
		MinIngredientMatches: q.MinIngredientMatches,
		ForbiddenIngredients: s.canon.Keys(q.ForbiddenIngredients),
		MustUse:              s.canon.Keys(q.MustUse),
		MaxSteps:             q.MaxSteps,
		KeywordsInclude:      q.KeywordsInclude,
		KeywordsExclude:      q.KeywordsExclude,
		EquipmentInclude:     q.EquipmentInclude,
		EquipmentExclude:     q.EquipmentExclude,
		Sources:              q.Sources,
		Limit:                limit,
	}

	candidates, recipes, deduped, err := s.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Result{}, nil
	}
	if len(deduped) == 0 {
		// One bounded retry with a wider candidate pool.
		filter.Limit = limit * 2
		s.metrics.incRetries()
		s.logger.Info("no candidates left after dedupe, retrying",
			zap.Int("candidates", len(candidates)),
			zap.Int("limit", filter.Limit),
		)
		candidates, recipes, deduped, err = s.candidates(ctx, filter)
		if err != nil {
			return nil, err
		}
	}

	matched := make(map[string]int, len(deduped))
	scored := make(map[string]*recipe.Recipe, len(deduped))
	for _, c := range deduped {
		matched[c.URL] = c.MatchedCount
		scored[c.URL] = recipes[c.URL]
	}

	scorer := s.scorer(q)
	stageStart := time.Now()
	coverage, err := scorer.Score(ctx, scored, userTerms)
	if err != nil {
		return nil, err
	}
	s.metrics.observeStage("coverage", stageStart)

	results := make([]Result, 0, len(coverage))
	for _, c := range coverage {
		if c.UserCoverage < q.UserCoverageReq || c.RecipeCoverage < q.RecipeCoverageReq {
			continue
		}
		results = append(results, Result{
			URL:            c.URL,
			Title:          c.Title,
			UserCoverage:   c.UserCoverage,
			RecipeCoverage: c.RecipeCoverage,
			MatchedCount:   matched[c.URL],
			Recipe:         scored[c.URL],
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RecipeCoverage != results[j].RecipeCoverage {
			return results[i].RecipeCoverage > results[j].RecipeCoverage
		}
		return results[i].UserCoverage > results[j].UserCoverage
	})

	s.logger.Debug("query complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("deduped", len(deduped)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// candidates runs one filter, load and dedupe pass. Candidates whose recipe
// row is missing are logged and left out of deduped.
func (s *Service) candidates(ctx context.Context, f recipe.Filter) ([]recipe.Candidate, map[string]*recipe.Recipe, []recipe.Candidate, error) {
	stageStart := time.Now()
	candidates, err := s.store.Candidates(ctx, f)
	if err != nil {
		return nil, nil, nil, err
	}
	s.metrics.observeStage("candidates", stageStart)
	s.metrics.observeCandidates(len(candidates))
	s.logger.Debug("candidate set", zap.Int("count", len(candidates)), zap.Int("limit", f.Limit))
	if len(candidates) == 0 {
		return candidates, nil, nil, nil
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}
	stageStart = time.Now()
	recipes, err := s.store.LoadRecipes(ctx, urls)
	if err != nil {
		return nil, nil, nil, err
	}
	s.metrics.observeStage("load", stageStart)

	loaded := make([]recipe.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if r, ok := recipes[c.URL]; ok && r != nil {
			loaded = append(loaded, c)
			continue
		}
		s.logger.Warn("candidate has no recipe row", zap.String("url", c.URL))
	}

	stageStart = time.Now()
	deduped, err := Dedupe(ctx, loaded, recipes, s.opts.DedupeThreshold)
	if err != nil {
		return nil, nil, nil, err
	}
	s.metrics.observeStage("dedupe", stageStart)
	s.metrics.addDropped(len(loaded) - len(deduped))

	return candidates, recipes, deduped, nil
}

func (s *Service) scorer(q Query) *Scorer {
	sc := &Scorer{
		MinPairSim:             s.opts.MinPairSim,
		Alpha:                  s.opts.Alpha,
		SkipHungarianThreshold: s.opts.SkipHungarianThreshold,
		Canonicalizer:          s.canon,
		metrics:                s.metrics,
	}
	if q.SkipHungarianThreshold != nil {
		sc.SkipHungarianThreshold = *q.SkipHungarianThreshold
	}
	return sc
}

// Validate checks the query's enumerated values and numeric ranges.
func (q Query) Validate() error {
	if q.MinIngredientMatches < 0 || q.MaxSteps < 0 || q.TopNDB < 0 {
		return fmt.Errorf("%w: negative count", ErrInvalidQuery)
	}
	if q.UserCoverageReq < 0 || q.UserCoverageReq > 1 || q.RecipeCoverageReq < 0 || q.RecipeCoverageReq > 1 {
		return fmt.Errorf("%w: coverage requirements must be within [0, 1]", ErrInvalidQuery)
	}
	f := recipe.Filter{TagFilters: q.TagFilters, ExcludedTags: q.ExcludedTags, TagFilterMode: q.TagFilterMode}
	return f.Validate()
}

func nonBlank(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
