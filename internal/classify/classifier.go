// Package classify decides whether a helpdesk conversation describes a
// software bug and drafts the initial issue analysis for ones that do.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/supportops/triage/internal/ai"
	"github.com/supportops/triage/internal/types"
)

// maxTranscriptChars bounds how much conversation text goes into the prompt.
const maxTranscriptChars = 8000

// Classifier asks a judge whether a conversation reports a bug.
type Classifier struct {
	judge ai.Judge
}

// NewClassifier creates a classifier backed by the given judge.
func NewClassifier(judge ai.Judge) (*Classifier, error) {
	if judge == nil {
		return nil, fmt.Errorf("classifier requires a judge")
	}
	return &Classifier{judge: judge}, nil
}

// Classify renders the conversation transcript into the classification prompt
// and parses the verdict. A response the parser cannot recover surfaces as a
// typed parse error; the classifier never guesses a verdict.
func (c *Classifier) Classify(ctx context.Context, conv *types.Conversation) (*types.Classification, error) {
	if conv == nil {
		return nil, types.NewValidationError("conversation is required")
	}
	if err := conv.Validate(); err != nil {
		return nil, types.NewValidationError("invalid conversation: %v", err)
	}
	if len(conv.Messages) == 0 {
		return nil, types.NewValidationError("conversation %s has no messages to classify", conv.ID)
	}

	text, err := c.judge.Complete(ctx, buildPrompt(conv), 2000)
	if err != nil {
		return nil, fmt.Errorf("classifying conversation %s: %w", conv.ID, err)
	}

	classification, err := ai.ParseJSON[types.Classification](text, "bug classification")
	if err != nil {
		return nil, types.NewParseError(
			fmt.Sprintf("analysis unparsable for conversation %s", conv.ID), err)
	}
	if err := classification.Validate(); err != nil {
		return nil, types.NewParseError(
			fmt.Sprintf("analysis invalid for conversation %s: %v", conv.ID, err), nil)
	}

	slog.Info("classified conversation",
		"conversation", conv.ID,
		"is_bug", classification.IsBug,
		"confidence", classification.Confidence,
		"bug_type", classification.BugType)
	return &classification, nil
}

func buildPrompt(conv *types.Conversation) string {
	var b strings.Builder

	b.WriteString("You are a support triage engineer. Decide whether the following helpdesk conversation describes a software bug that should be filed in the issue tracker.\n\n")

	fmt.Fprintf(&b, "CONVERSATION %s\n", conv.ID)
	fmt.Fprintf(&b, "Title: %s\n", conv.Title)
	fmt.Fprintf(&b, "Customer: %s\n", conv.CustomerName)
	fmt.Fprintf(&b, "Priority: %s\n", conv.Priority)
	if len(conv.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(conv.Tags, ", "))
	}
	b.WriteString("\nTRANSCRIPT\n")
	b.WriteString(truncate(conv.Transcript(), maxTranscriptChars))

	b.WriteString(`
Classify the conversation. A bug is broken product behavior: errors, crashes, features not working as documented. How-to questions, billing requests, and feature requests are not bugs.

Respond with JSON only:
{
  "is_bug": <true|false>,
  "confidence": <number between 0.0 and 1.0>,
  "reasoning": "<one or two sentences>",
  "bug_type": "<short category, e.g. UI Rendering, API Error, empty if not a bug>",
  "severity": "<Low|Medium|High|Critical, empty if not a bug>",
  "key_indicators": ["<phrases from the transcript that support the verdict>"],
  "agent_escalation": <true if a support agent already escalated internally>,
  "initial_analysis": {
    "title": "<concise issue title, empty if not a bug>",
    "description": "<what is broken, from the engineering point of view>",
    "customer_impact": "<what the customer cannot do>"
  }
}
`)

	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "\n[transcript truncated]"
}
