// Package tokens is the deterministic tokenizer shared by fusion budgeting,
// deduplication, keyword extraction and the TRACe overlap metrics.
package tokens

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var citationPattern = regexp.MustCompile(`\[\s*\d+(?:\s*,\s*\d+)*\s*\]`)

// Normalize lowercases s and folds diacritics (e.g. "Zażółć" -> "zazołc").
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize splits normalized text on every rune that is neither letter nor digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Count is the token estimate used for budgeting.
func Count(s string) int {
	return len(Tokenize(s))
}

// Set is a set of normalized tokens.
type Set map[string]struct{}

// SetOf returns the token set of s.
func SetOf(s string) Set {
	set := Set{}
	for _, t := range Tokenize(s) {
		set[t] = struct{}{}
	}
	return set
}

// Union returns the token set of all texts.
func Union(texts ...string) Set {
	set := Set{}
	for _, text := range texts {
		for _, t := range Tokenize(text) {
			set[t] = struct{}{}
		}
	}
	return set
}

// IntersectionSize counts tokens present in both sets.
func IntersectionSize(a, b Set) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}

// UnionSize counts tokens present in either set.
func UnionSize(a, b Set) int {
	return len(a) + len(b) - IntersectionSize(a, b)
}

// Jaccard is |a∩b| / |a∪b|, 0 for two empty sets.
func Jaccard(a, b Set) float64 {
	union := UnionSize(a, b)
	if union == 0 {
		return 0
	}
	return float64(IntersectionSize(a, b)) / float64(union)
}

// Sorted returns the tokens of the set in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Keywords returns the distinct non stop word tokens longer than two runes, in query order.
func Keywords(s string) []string {
	seen := map[string]bool{}
	var keywords []string
	for _, t := range Tokenize(s) {
		if len([]rune(t)) <= 2 || IsStopWord(t) || seen[t] {
			continue
		}
		seen[t] = true
		keywords = append(keywords, t)
	}
	return keywords
}

// StripCitations removes citation markers like [1] or [2, 3] from text.
func StripCitations(s string) string {
	return citationPattern.ReplaceAllString(s, " ")
}

// ParseCitations returns the distinct cited numbers in order of first appearance.
func ParseCitations(s string) []int {
	seen := map[int]bool{}
	var numbers []int
	for _, marker := range citationPattern.FindAllString(s, -1) {
		for _, part := range strings.Split(strings.Trim(marker, "[] "), ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || seen[n] {
				continue
			}
			seen[n] = true
			numbers = append(numbers, n)
		}
	}
	return numbers
}
