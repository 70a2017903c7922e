package analyzer

import (
	"regexp"
	"strings"
)

// nonAlnum matches every character that survives neither as a letter nor a
// digit after lowercasing. Anything it hits becomes a space, so punctuation
// and non-ASCII letters act as token boundaries rather than vanishing.
var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// queryStopwords are filler words stripped from queries before matching.
// "new" and "brand" are stopwords because sold searches already pin the
// item condition; requiring them in titles would reject good listings.
var queryStopwords = map[string]struct{}{
	"for":   {},
	"the":   {},
	"a":     {},
	"an":    {},
	"and":   {},
	"or":    {},
	"new":   {},
	"brand": {},
}

// Normalize lowercases text and replaces every character outside
// [a-z0-9\s] with a single space.
func Normalize(text string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(text), " ")
}

// Tokenize splits normalized text on whitespace, dropping empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// ImportantTokens returns the query's tokens minus stopwords, in query
// order. Duplicates are kept; they cost nothing in the set lookup below.
func ImportantTokens(query string) []string {
	tokens := Tokenize(query)
	important := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, skip := queryStopwords[tok]; skip {
			continue
		}
		important = append(important, tok)
	}
	return important
}

// TitleMatches reports whether every important token of the query appears
// as an exact whole token of the title. Substring hits inside longer tokens
// do not count: a query "iphone 11 pro" will not match "iPhone 11 Case"
// because "pro" is absent, and "case" alone will not match "Briefcase".
// A query with no important tokens matches trivially.
func TitleMatches(title, query string) bool {
	important := ImportantTokens(query)
	if len(important) == 0 {
		return true
	}

	titleTokens := Tokenize(title)
	tokenSet := make(map[string]struct{}, len(titleTokens))
	for _, tok := range titleTokens {
		tokenSet[tok] = struct{}{}
	}

	for _, tok := range important {
		if _, ok := tokenSet[tok]; !ok {
			return false
		}
	}
	return true
}
