// Package textutil provides the lexical plumbing shared by query generation
// and similarity scoring: keyword extraction and word-set tokenization.
package textutil

import (
	"strings"
	"unicode"
)

// MaxKeywords bounds ExtractKeywords output.
const MaxKeywords = 20

// stopWords are common English words that carry no signal for search or
// similarity purposes.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "had": true, "this": true, "that": true, "with": true,
	"they": true, "from": true, "been": true, "were": true, "will": true,
	"would": true, "could": true, "should": true, "there": true,
	"their": true, "what": true, "when": true, "where": true, "which": true,
	"your": true, "them": true, "then": true, "than": true, "its": true,
	"also": true, "into": true, "only": true, "other": true, "some": true,
	"such": true, "very": true, "just": true, "about": true, "after": true,
	"before": true, "because": true, "does": true, "doing": true,
	"please": true, "thanks": true, "hello": true,
}

// ExtractKeywords pulls up to MaxKeywords lowercase tokens out of free text.
// Punctuation is stripped, tokens of length <= 2 and stop words are dropped,
// and first-occurrence order is preserved. Deterministic: the same input
// always yields the same output, and the operation is idempotent.
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string

	for _, field := range strings.Fields(stripPunctuation(strings.ToLower(text))) {
		if len(field) <= 2 || stopWords[field] || seen[field] {
			continue
		}
		seen[field] = true
		keywords = append(keywords, field)
		if len(keywords) == MaxKeywords {
			break
		}
	}

	return keywords
}

// WordSet tokenizes text into a set of lowercase words for Jaccard-style
// comparisons. Splits on any non-letter, non-digit rune.
func WordSet(text string) map[string]bool {
	set := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) > 0 {
			set[w] = true
		}
	}
	return set
}

// stripPunctuation replaces every rune that is not a letter, digit, or
// whitespace with a space so compound forms like "error:timeout" split
// cleanly.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
}
