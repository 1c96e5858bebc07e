// Package similarity scores how likely two issues describe the same
// underlying problem, via an LLM judgment with a lexical fallback.
package similarity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/supportops/triage/internal/textutil"
	"github.com/supportops/triage/internal/types"
)

// Lexical formula weights. This weighted four-term sum is the canonical
// fallback formula; it is used everywhere a lexical score is needed.
const (
	titleWeight = 0.4
	bodyWeight  = 0.3
	errorWeight = 0.2
	appIDWeight = 0.1
)

// Jaccard computes the Jaccard similarity coefficient between the word sets
// of two texts. Symmetric; identical non-empty texts score 1.0.
func Jaccard(a, b string) float64 {
	setA := textutil.WordSet(a)
	setB := textutil.WordSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// LexicalScore computes the fallback similarity between a proposed issue and
// a candidate: 0.4 title Jaccard + 0.3 body Jaccard + 0.2 error-text-vs-body
// Jaccard + 0.1 for an exact app-id substring match.
func LexicalScore(issue *types.ProposedIssue, candidate *types.CandidateIssue) (float64, string) {
	titleSim := Jaccard(issue.Title, candidate.Title)
	bodySim := Jaccard(issue.Body, candidate.Body)

	errorSim := 0.0
	if strings.TrimSpace(issue.ErrorText) != "" {
		errorSim = Jaccard(issue.ErrorText, candidate.Body)
	}

	appIDMatch := 0.0
	if issue.AppID != "" {
		candidateText := strings.ToLower(candidate.Title + " " + candidate.Body)
		if strings.Contains(candidateText, strings.ToLower(issue.AppID)) {
			appIDMatch = 1.0
		}
	}

	score := titleWeight*titleSim + bodyWeight*bodySim + errorWeight*errorSim + appIDWeight*appIDMatch

	reasoning := fmt.Sprintf(
		"Lexical similarity: title %.2f, body %.2f, error text %.2f, app id match %.0f",
		titleSim, bodySim, errorSim, appIDMatch)
	if shared := sharedTerms(issue.Title+" "+issue.Body, candidate.Title+" "+candidate.Body, 5); len(shared) > 0 {
		reasoning += "; shared terms: " + strings.Join(shared, ", ")
	}

	return score, reasoning
}

// sharedTerms lists up to limit keywords common to both texts, sorted for
// stable output.
func sharedTerms(a, b string, limit int) []string {
	setB := textutil.WordSet(b)
	var shared []string
	for _, kw := range textutil.ExtractKeywords(a) {
		if setB[kw] {
			shared = append(shared, kw)
		}
	}
	sort.Strings(shared)
	if len(shared) > limit {
		shared = shared[:limit]
	}
	return shared
}
