package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"recipefinder/internal/testutil"
)

func TestLexiconCanonicalizer(t *testing.T) {
	s := testutil.NewStore(t)
	testutil.Seed(t, s, testutil.Fixture{
		URL:         "https://a.com/tacos",
		Title:       "Chicken Tacos",
		Ingredients: []string{"2 Chicken Thighs", "Corn Tortillas"},
		Canonical:   []string{"chicken thigh", "tortilla"},
	})

	core, logs := observer.New(zapcore.InfoLevel)
	canon, err := LexiconCanonicalizer(context.Background(), s, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, "chicken thigh", canon.Key("Chicken Thigh"))
	assert.Equal(t, "tortilla", canon.Key("tortilla"))
	assert.Equal(t, "corn tortilla", canon.Key("corn tortilla"))

	entries := logs.FilterMessage("canonical lexicon loaded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["terms"])
}

func TestLexiconCanonicalizer_EmptyStore(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	canon, err := LexiconCanonicalizer(context.Background(), testutil.NewStore(t), zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, "boneless chicken thigh", canon.Key("Boneless Chicken Thigh!"))
	assert.Equal(t, 1, logs.FilterMessage("canonical lexicon is empty, user terms are not canonicalized").Len())
}

func TestLexiconCanonicalizer_StoreError(t *testing.T) {
	_, err := LexiconCanonicalizer(context.Background(), &scriptedStore{termsErr: errors.New("boom")}, nil)
	assert.ErrorContains(t, err, "canonical lexicon")
}
