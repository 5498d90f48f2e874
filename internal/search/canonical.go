package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"recipefinder/internal/ingredient"
	"recipefinder/internal/recipe"
)

// LexiconCanonicalizer builds a Canonicalizer whose vocabulary is every
// canonical ingredient form in store. An empty vocabulary yields a
// Canonicalizer without extractor, which keeps phrases as they are.
func LexiconCanonicalizer(ctx context.Context, store recipe.Store, logger *zap.Logger) (*ingredient.Canonicalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	terms, err := store.CanonicalTerms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load canonical lexicon: %w", err)
	}
	lx := ingredient.NewLexiconExtractor(terms)
	if lx.Len() == 0 {
		logger.Warn("canonical lexicon is empty, user terms are not canonicalized")
		return ingredient.NewCanonicalizer(nil), nil
	}
	logger.Info("canonical lexicon loaded", zap.Int("terms", lx.Len()))
	return ingredient.NewCanonicalizer(lx), nil
}
