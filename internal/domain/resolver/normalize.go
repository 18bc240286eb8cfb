package resolver

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a name into a comparable form: accents stripped,
// lower-cased, punctuation turned into spaces, whitespace collapsed.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// sortedTokens returns the normalized tokens of s in lexical order, joined by a single space
func sortedTokens(s string) string {
	tokens := strings.Fields(Normalize(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio compares two strings ignoring token order and returns a
// similarity in [0,1]. Both sides are normalized and their tokens sorted
// before an edit-distance ratio is taken.
func TokenSortRatio(a, b string) float64 {
	sa, sb := sortedTokens(a), sortedTokens(b)
	if sa == "" && sb == "" {
		return 0
	}
	if sa == sb {
		return 1
	}
	la, lb := len([]rune(sa)), len([]rune(sb))
	longest := la
	if lb > longest {
		longest = lb
	}
	dist := levenshtein.ComputeDistance(sa, sb)
	ratio := 1 - float64(dist)/float64(longest)
	if ratio < 0 {
		return 0
	}
	return ratio
}
