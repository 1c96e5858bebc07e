package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/supportops/triage/internal/ai"
	"github.com/supportops/triage/internal/types"
)

// maxBodyChars bounds how much of each issue body goes into the prompt.
const maxBodyChars = 500

// Judgment is one similarity verdict.
type Judgment struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
	// Fallback is true when the lexical formula produced the score because
	// the judge call or its parse failed.
	Fallback bool `json:"fallback,omitempty"`
}

// Scorer computes issue similarity. With a judge configured it asks the
// model and falls back to the lexical formula on any failure; without one it
// is lexical-only.
type Scorer struct {
	judge ai.Judge // nil means lexical-only
}

// NewScorer creates a scorer. A nil judge is allowed.
func NewScorer(judge ai.Judge) *Scorer {
	return &Scorer{judge: judge}
}

// Engine names the scoring engine for result metadata.
func (s *Scorer) Engine() string {
	if s.judge == nil {
		return "lexical"
	}
	return s.judge.Name()
}

// Score judges the similarity of a candidate to the proposed issue. A judge
// failure for one candidate never fails the call: the lexical formula takes
// over and the reasoning records the fallback. The only returned error is
// context cancellation.
func (s *Scorer) Score(ctx context.Context, issue *types.ProposedIssue, candidate *types.CandidateIssue) (Judgment, error) {
	if err := ctx.Err(); err != nil {
		return Judgment{}, err
	}

	if s.judge == nil {
		score, reasoning := LexicalScore(issue, candidate)
		return Judgment{Score: clamp(score), Reasoning: reasoning}, nil
	}

	judgment, err := s.scoreWithJudge(ctx, issue, candidate)
	if err == nil {
		return judgment, nil
	}
	if ctx.Err() != nil {
		return Judgment{}, ctx.Err()
	}

	slog.Warn("judge scoring failed, using lexical fallback",
		"candidate", candidate.Number, "error", err)
	score, reasoning := LexicalScore(issue, candidate)
	return Judgment{
		Score:     clamp(score),
		Reasoning: "AI scoring unavailable, lexical fallback used. " + reasoning,
		Fallback:  true,
	}, nil
}

type judgeResponse struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

func (s *Scorer) scoreWithJudge(ctx context.Context, issue *types.ProposedIssue, candidate *types.CandidateIssue) (Judgment, error) {
	prompt := buildPrompt(issue, candidate)

	text, err := s.judge.Complete(ctx, prompt, 1000)
	if err != nil {
		return Judgment{}, fmt.Errorf("judge call: %w", err)
	}

	resp, err := ai.ParseJSON[judgeResponse](text, "similarity judgment")
	if err != nil {
		return Judgment{}, types.NewParseError("similarity judgment unparsable", err)
	}
	if resp.Score < 0.0 || resp.Score > 1.0 {
		return Judgment{}, types.NewParseError(
			fmt.Sprintf("similarity score %.2f outside [0,1]", resp.Score), nil)
	}

	return Judgment{Score: resp.Score, Reasoning: resp.Reasoning}, nil
}

// buildPrompt presents both issues and the judging criteria. The explicit
// note about rewordings matters: "Internal Server Error", "500 Error", and
// "Backend Failure" must all score as the same root cause.
func buildPrompt(issue *types.ProposedIssue, candidate *types.CandidateIssue) string {
	var b strings.Builder

	b.WriteString("You are comparing a new bug report against an existing tracker issue to decide whether they describe the same underlying problem.\n\n")

	b.WriteString("NEW REPORT\n")
	fmt.Fprintf(&b, "Title: %s\n", issue.Title)
	fmt.Fprintf(&b, "Body: %s\n", truncate(issue.Body, maxBodyChars))
	if issue.ErrorText != "" {
		fmt.Fprintf(&b, "Error text: %s\n", issue.ErrorText)
	}
	if issue.AppID != "" {
		fmt.Fprintf(&b, "App ID: %s\n", issue.AppID)
	}

	b.WriteString("\nEXISTING ISSUE\n")
	fmt.Fprintf(&b, "Number: #%d\n", candidate.Number)
	fmt.Fprintf(&b, "Title: %s\n", candidate.Title)
	fmt.Fprintf(&b, "Body: %s\n", truncate(candidate.Body, maxBodyChars))
	fmt.Fprintf(&b, "State: %s\n", candidate.State)

	b.WriteString(`
Rate the similarity considering:
1. Root cause: do both describe the same underlying failure? Differently worded descriptions of the same root cause (e.g. "Internal Server Error" vs "500 Error" vs "Backend Failure") must score highly.
2. Symptoms: do users observe the same behavior?
3. Context: same app id, same technical component?

Respond with JSON only:
{"score": <number between 0.0 and 1.0>, "reasoning": "<one or two sentences>"}
`)

	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
