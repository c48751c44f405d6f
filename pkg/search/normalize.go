package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "we": {}, "where": {}, "with": {},
}

// fold case-folds s and strips diacritics, so "Café" and "cafe" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Tokenize splits s into normalized terms. Punctuation separates terms.
func Tokenize(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// QueryTerms returns the distinct terms of a query in first-seen order.
// Stopwords are dropped unless the query is made of nothing else.
func QueryTerms(query string) []string {
	tokens := Tokenize(query)

	seen := make(map[string]struct{}, len(tokens))
	var terms, common []string
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		if _, stop := stopwords[t]; stop {
			common = append(common, t)
			continue
		}
		terms = append(terms, t)
	}

	if len(terms) == 0 {
		return common
	}
	return terms
}
