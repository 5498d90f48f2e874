// Package similarity implements fuzzy string similarity over batches of
// strings and optimal one-to-one assignment between two sets.
package similarity

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// TokenSet is a string split on whitespace into sorted, unique tokens.
// Precomputing it lets one phrase be compared against many others cheaply.
type TokenSet struct {
	tokens []string
}

// NewTokenSet tokenizes s on whitespace. Comparison is case sensitive; callers
// lowercase beforehand when needed.
func NewTokenSet(s string) TokenSet {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return TokenSet{}
	}
	sort.Strings(fields)
	uniq := fields[:1]
	for _, f := range fields[1:] {
		if f != uniq[len(uniq)-1] {
			uniq = append(uniq, f)
		}
	}
	return TokenSet{tokens: uniq}
}

// Empty reports whether the set holds no tokens.
func (ts TokenSet) Empty() bool {
	return len(ts.tokens) == 0
}

// TokenSetRatio scores a and b between 0 and 100, ignoring word order and
// duplicated words and rewarding one string being a token subset of the other.
func TokenSetRatio(a, b string) float64 {
	return TokenSetRatioSets(NewTokenSet(a), NewTokenSet(b))
}

// TokenSetRatioSets is TokenSetRatio on pre-tokenized inputs.
func TokenSetRatioSets(a, b TokenSet) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}

	var intersect, diffAB, diffBA []string
	i, j := 0, 0
	for i < len(a.tokens) && j < len(b.tokens) {
		switch {
		case a.tokens[i] == b.tokens[j]:
			intersect = append(intersect, a.tokens[i])
			i++
			j++
		case a.tokens[i] < b.tokens[j]:
			diffAB = append(diffAB, a.tokens[i])
			i++
		default:
			diffBA = append(diffBA, b.tokens[j])
			j++
		}
	}
	diffAB = append(diffAB, a.tokens[i:]...)
	diffBA = append(diffBA, b.tokens[j:]...)

	// One side is a token subset of the other.
	if len(intersect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	ab := strings.Join(diffAB, " ")
	ba := strings.Join(diffBA, " ")
	abLen := utf8.RuneCountInString(ab)
	baLen := utf8.RuneCountInString(ba)

	sectLen := utf8.RuneCountInString(strings.Join(intersect, " "))
	sep := 0
	if sectLen > 0 {
		sep = 1
	}
	sectABLen := sectLen + sep + abLen
	sectBALen := sectLen + sep + baLen

	result := normalizedSimilarity(indelDistance(ab, abLen, ba, baLen), sectABLen+sectBALen)
	if sectLen == 0 {
		return result
	}

	// The intersection is a prefix of both "sect ab" and "sect ba", so their
	// indel distance to it is just the appended length.
	sectAB := normalizedSimilarity(sep+abLen, sectLen+sectABLen)
	sectBA := normalizedSimilarity(sep+baLen, sectLen+sectBALen)

	return max(result, sectAB, sectBA)
}

// indelDistance counts insertions plus deletions needed to turn a into b.
func indelDistance(a string, aLen int, b string, bLen int) int {
	if aLen == 0 || bLen == 0 {
		return aLen + bLen
	}
	return aLen + bLen - 2*edlib.LCS(a, b)
}

func normalizedSimilarity(dist, lensum int) float64 {
	if lensum == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(lensum))
}
