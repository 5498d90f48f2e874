package ingredient

import "strings"

// EntityExtractor finds food entities in an ingredient phrase.
type EntityExtractor interface {
	ExtractFoods(text string) []string
}

// Canonicalizer reduces ingredient phrases to their head food term(s).
// A nil extractor makes Canonicalize return the lowercased, trimmed phrase.
type Canonicalizer struct {
	extractor EntityExtractor
}

// NewCanonicalizer creates a Canonicalizer backed by extractor.
func NewCanonicalizer(extractor EntityExtractor) *Canonicalizer {
	return &Canonicalizer{extractor: extractor}
}

// Canonicalize returns the food entities of text joined by spaces. When the
// entities do not account for every token of text, the whole phrase is kept.
func (c *Canonicalizer) Canonicalize(text string) string {
	phrase := strings.ToLower(strings.TrimSpace(text))
	if c == nil || c.extractor == nil || phrase == "" {
		return phrase
	}

	foods := c.extractor.ExtractFoods(phrase)
	if len(foods) == 0 {
		return phrase
	}

	entTokens := 0
	for i, f := range foods {
		foods[i] = strings.ToLower(strings.TrimSpace(f))
		entTokens += len(strings.Fields(foods[i]))
	}
	if entTokens != len(strings.Fields(phrase)) {
		return phrase
	}

	return strings.Join(foods, " ")
}

// Key is the form used for every user-supplied ingredient term before it is
// compared with stored normalized forms: Normalize(Canonicalize(text)).
func (c *Canonicalizer) Key(text string) string {
	return Normalize(c.Canonicalize(text))
}

// Keys applies Key to each term, dropping terms that normalize to nothing.
func (c *Canonicalizer) Keys(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if k := c.Key(t); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// LexiconExtractor recognizes food entities by greedy longest match against a
// fixed vocabulary of normalized food terms.
type LexiconExtractor struct {
	terms   map[string]struct{}
	maxSpan int
}

// NewLexiconExtractor builds an extractor from terms. Terms are normalized and
// empty ones ignored.
func NewLexiconExtractor(terms []string) *LexiconExtractor {
	lx := &LexiconExtractor{terms: make(map[string]struct{}, len(terms))}
	for _, n := range NormalizeAll(terms) {
		lx.terms[n] = struct{}{}
		if span := len(strings.Fields(n)); span > lx.maxSpan {
			lx.maxSpan = span
		}
	}
	return lx
}

// Len reports the vocabulary size.
func (lx *LexiconExtractor) Len() int {
	return len(lx.terms)
}

// ExtractFoods scans text left to right and returns every vocabulary term found,
// preferring the longest span at each position.
func (lx *LexiconExtractor) ExtractFoods(text string) []string {
	tokens := strings.Fields(Normalize(text))
	var foods []string
	for i := 0; i < len(tokens); {
		matched := 0
		for span := min(lx.maxSpan, len(tokens)-i); span > 0; span-- {
			candidate := strings.Join(tokens[i:i+span], " ")
			if _, ok := lx.terms[candidate]; ok {
				foods = append(foods, candidate)
				matched = span
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		i += matched
	}
	return foods
}
