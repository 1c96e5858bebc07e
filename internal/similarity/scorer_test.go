package similarity

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage/internal/types"
)

// fakeJudge scripts judge responses for scorer tests.
type fakeJudge struct {
	response string
	err      error
	calls    int
}

func (f *fakeJudge) Name() string { return "fake/test" }

func (f *fakeJudge) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestJaccardSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"widget not loading", "widget fails to load"},
		{"500 internal server error", "backend failure"},
		{"", "something"},
		{"login broken", "login broken"},
	}

	for _, p := range pairs {
		assert.InDelta(t, Jaccard(p[0], p[1]), Jaccard(p[1], p[0]), 1e-12,
			"Jaccard(%q, %q) must be symmetric", p[0], p[1])
	}
}

func TestJaccardIdentity(t *testing.T) {
	for _, text := range []string{"widget", "the chat widget is broken", "a b c"} {
		assert.Equal(t, 1.0, Jaccard(text, text), "Jaccard(x,x) must be 1.0 for %q", text)
	}
	// Both empty counts as identical, one-sided empty as disjoint.
	assert.Equal(t, 1.0, Jaccard("", ""))
	assert.Equal(t, 0.0, Jaccard("widget", ""))
}

func TestLexicalScoreWeights(t *testing.T) {
	issue := &types.ProposedIssue{
		Title:     "Widget not loading",
		Body:      "The chat widget is blank",
		ErrorText: "TypeError: undefined",
		AppID:     "app_42x",
	}

	// Identical candidate with the app id and error text embedded scores the
	// full title and body terms plus the app id term.
	candidate := &types.CandidateIssue{
		Number: 7,
		Title:  "Widget not loading",
		Body:   "The chat widget is blank",
	}
	score, reasoning := LexicalScore(issue, candidate)
	assert.InDelta(t, 0.4+0.3, score, 1e-9, "identical title+body without app id or error overlap")
	assert.Contains(t, reasoning, "title 1.00")

	candidate.Body += " app_42x TypeError: undefined"
	score2, _ := LexicalScore(issue, candidate)
	assert.Greater(t, score2, score, "app id and error overlap must add weight")
	assert.LessOrEqual(t, score2, 1.0)
}

func TestLexicalScoreDisjoint(t *testing.T) {
	issue := &types.ProposedIssue{Title: "alpha beta", Body: "gamma delta"}
	candidate := &types.CandidateIssue{Title: "epsilon zeta", Body: "eta theta"}

	score, _ := LexicalScore(issue, candidate)
	assert.Equal(t, 0.0, score)
}

func TestScoreWithJudge(t *testing.T) {
	judge := &fakeJudge{response: `{"score": 0.85, "reasoning": "same 500 root cause"}`}
	scorer := NewScorer(judge)

	j, err := scorer.Score(context.Background(),
		&types.ProposedIssue{Title: "Internal Server Error on save"},
		&types.CandidateIssue{Number: 3, Title: "500 error when saving"})
	require.NoError(t, err)
	assert.Equal(t, 0.85, j.Score)
	assert.False(t, j.Fallback)
	assert.Equal(t, 1, judge.calls)
}

func TestScoreFallbackOnJudgeError(t *testing.T) {
	judge := &fakeJudge{err: errors.New("model overloaded")}
	scorer := NewScorer(judge)

	issue := &types.ProposedIssue{Title: "Widget not loading", Body: "blank widget"}
	candidate := &types.CandidateIssue{Number: 9, Title: "Widget not loading", Body: "blank widget"}

	j, err := scorer.Score(context.Background(), issue, candidate)
	require.NoError(t, err, "a judge failure must not fail the candidate")
	assert.True(t, j.Fallback)
	assert.Contains(t, j.Reasoning, "lexical fallback")
	assert.False(t, math.IsNaN(j.Score))
	assert.Greater(t, j.Score, 0.5, "identical text should score high lexically")
}

func TestScoreFallbackOnUnparsableResponse(t *testing.T) {
	judge := &fakeJudge{response: "I think they are probably the same issue."}
	scorer := NewScorer(judge)

	j, err := scorer.Score(context.Background(),
		&types.ProposedIssue{Title: "Login broken"},
		&types.CandidateIssue{Number: 2, Title: "Cannot login"})
	require.NoError(t, err)
	assert.True(t, j.Fallback)
}

func TestScoreFallbackOnOutOfRangeScore(t *testing.T) {
	judge := &fakeJudge{response: `{"score": 3.5, "reasoning": "very similar"}`}
	scorer := NewScorer(judge)

	j, err := scorer.Score(context.Background(),
		&types.ProposedIssue{Title: "Login broken"},
		&types.CandidateIssue{Number: 2, Title: "Cannot login"})
	require.NoError(t, err)
	assert.True(t, j.Fallback, "out-of-range judge scores are parse failures")
	assert.LessOrEqual(t, j.Score, 1.0)
}

func TestScoreLexicalOnly(t *testing.T) {
	scorer := NewScorer(nil)
	assert.Equal(t, "lexical", scorer.Engine())

	j, err := scorer.Score(context.Background(),
		&types.ProposedIssue{Title: "Widget broken"},
		&types.CandidateIssue{Number: 1, Title: "Widget broken"})
	require.NoError(t, err)
	assert.False(t, j.Fallback, "lexical-only scoring is not a fallback")
	assert.Greater(t, j.Score, 0.0)
}

func TestScoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scorer := NewScorer(&fakeJudge{response: `{"score": 0.5, "reasoning": "x"}`})
	_, err := scorer.Score(ctx, &types.ProposedIssue{Title: "t"}, &types.CandidateIssue{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPromptTruncatesBody(t *testing.T) {
	issue := &types.ProposedIssue{Title: "t", Body: strings.Repeat("x", 2000)}
	candidate := &types.CandidateIssue{Number: 1, Title: "c", Body: strings.Repeat("y", 2000)}

	prompt := buildPrompt(issue, candidate)
	assert.Less(t, strings.Count(prompt, "x"), 600)
	assert.Less(t, strings.Count(prompt, "y"), 600)
	assert.Contains(t, prompt, `"Internal Server Error" vs "500 Error"`)
}
