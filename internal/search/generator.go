// Package search generates tracker search queries from a proposed issue.
//
// The generator is recall-oriented: duplicate bug reports are rarely worded
// identically, so it casts a wide net of plausible phrasings across problem
// categories rather than building one precise query.
package search

import (
	"strings"

	"github.com/supportops/triage/internal/types"
)

const (
	maxQueries        = 8
	maxTechnicalTerms = 3
	maxErrorTerms     = 2
	minQueryLength    = 3
	maxQueryLength    = 49
)

// Problem-category detection tables. A category is detected when any of its
// patterns appears as a substring of the combined title+body text.
var categoryPatterns = map[string][]string{
	"loading": {"not loading", "won't load", "doesn't load", "not showing", "not appearing",
		"not displaying", "blank", "missing", "invisible", "disappear"},
	"errors":  {"error", "exception", "crash", "fail", "broken", "bug"},
	"server":  {"500", "internal server", "server error", "backend", "api error", "502", "503"},
	"auth":    {"login", "auth", "unauthorized", "401", "403", "sign in", "signin", "token", "session"},
	"ui":      {"widget", "button", "popup", "modal", "component", "messenger", "chat", "iframe"},
}

// technicalVocabulary: known terms that make useful standalone queries.
// Order matters: earlier terms win the three slots.
var technicalVocabulary = []string{
	"api", "widget", "messenger", "chat", "authentication", "login", "webhook",
	"integration", "popup", "modal", "iframe", "script", "cdn", "cors", "ssl",
	"tls", "oauth", "jwt", "session", "cookie", "token",
}

// errorVocabulary: terms worth extracting from operator-supplied error text.
var errorVocabulary = []string{
	"error", "exception", "failed", "timeout", "refused", "forbidden",
	"unauthorized", "not found", "bad request",
}

// genericQueries are always appended so every run searches the broad strokes.
var genericQueries = []string{"error", "issue", "problem", "bug", "failed", "broken"}

// fallbackQueries guarantee a non-empty result when everything else filters out.
var fallbackQueries = []string{"error", "issue", "bug"}

// Generate produces an ordered, deduplicated list of search queries for a
// proposed issue. Never returns an empty list; capped at 8 queries.
func Generate(issue *types.ProposedIssue, enrichment *types.EnrichmentContext) []string {
	text := strings.ToLower(issue.Title + " " + issue.Body)
	detected := detectCategories(text)

	var queries []string
	queries = append(queries, categoryQueries(detected)...)
	queries = append(queries, technicalTermQueries(text)...)
	queries = append(queries, genericQueries...)

	if strings.Contains(text, "messenger") || strings.Contains(text, "chat") {
		queries = append(queries, "messenger", "chat")
	}
	if strings.Contains(text, "widget") || strings.Contains(text, "popup") {
		queries = append(queries, "widget", "popup")
	}

	errorText := issue.ErrorText
	if errorText == "" && enrichment != nil {
		errorText = enrichment.ErrorText
	}
	if len(errorText) > 10 {
		queries = append(queries, errorTermQueries(strings.ToLower(errorText))...)
	}

	appID := issue.AppID
	if appID == "" && enrichment != nil {
		appID = enrichment.AppID
	}
	if appID != "" && len(queries) > 3 {
		queries = append(queries, appID)
	}

	queries = sanitize(queries)
	if len(queries) == 0 {
		return append([]string(nil), fallbackQueries...)
	}
	return queries
}

func detectCategories(text string) map[string]bool {
	detected := make(map[string]bool)
	for category, patterns := range categoryPatterns {
		for _, p := range patterns {
			if strings.Contains(text, p) {
				detected[category] = true
				break
			}
		}
	}
	return detected
}

// categoryQueries emits phrasings for each detected category combination.
func categoryQueries(detected map[string]bool) []string {
	var queries []string

	if detected["loading"] && detected["ui"] {
		queries = append(queries, "not showing", "not loading", "not displaying", "not appearing")
	} else if detected["loading"] {
		queries = append(queries, "not loading", "fails to load")
	}
	if detected["server"] {
		queries = append(queries, "server error", "internal error", "500 error", "backend error", "api error")
	}
	if detected["auth"] {
		queries = append(queries, "authentication", "login", "unauthorized", "401")
	}
	if detected["errors"] && !detected["server"] && !detected["auth"] {
		queries = append(queries, "unexpected error", "crash")
	}

	return queries
}

// technicalTermQueries extracts up to three vocabulary terms present in the
// text, each as its own query.
func technicalTermQueries(text string) []string {
	var terms []string
	for _, term := range technicalVocabulary {
		if strings.Contains(text, term) {
			terms = append(terms, term)
			if len(terms) == maxTechnicalTerms {
				break
			}
		}
	}
	return terms
}

// errorTermQueries extracts up to two error vocabulary terms from the
// operator-supplied error text.
func errorTermQueries(errorText string) []string {
	var terms []string
	for _, term := range errorVocabulary {
		if strings.Contains(errorText, term) {
			terms = append(terms, term)
			if len(terms) == maxErrorTerms {
				break
			}
		}
	}
	return terms
}

// sanitize trims whitespace, enforces length bounds, deduplicates preserving
// first occurrence, and caps the list at maxQueries.
func sanitize(queries []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if len(q) < minQueryLength || len(q) > maxQueryLength || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == maxQueries {
			break
		}
	}
	return out
}
