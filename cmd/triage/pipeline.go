package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/supportops/triage/internal/ai"
	"github.com/supportops/triage/internal/classify"
	"github.com/supportops/triage/internal/conversation"
	"github.com/supportops/triage/internal/types"
)

// fetchConversation pulls and normalizes one helpdesk conversation.
func fetchConversation(ctx context.Context, id string) (*types.Conversation, error) {
	client, err := conversation.NewClient(cfg.HelpdeskToken, cfg.HelpdeskBaseURL)
	if err != nil {
		return nil, err
	}
	return client.FetchNormalized(ctx, id)
}

// classifyConversation runs the bug classifier over a normalized conversation.
func classifyConversation(ctx context.Context, judge ai.Judge, conv *types.Conversation) (*types.Classification, error) {
	classifier, err := classify.NewClassifier(judge)
	if err != nil {
		return nil, err
	}
	return classifier.Classify(ctx, conv)
}

// printClassification renders a classifier verdict for the terminal.
func printClassification(c *types.Classification) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if c.IsBug {
		fmt.Printf("%s bug (%.0f%% confidence)\n", green("✓"), c.Confidence*100)
		fmt.Printf("  Type:     %s\n", c.BugType)
		fmt.Printf("  Severity: %s\n", c.Severity)
		fmt.Printf("  Title:    %s\n", c.InitialAnalysis.Title)
	} else {
		fmt.Printf("%s not a bug (%.0f%% confidence)\n", yellow("⚠"), c.Confidence*100)
	}
	fmt.Printf("  Reasoning: %s\n", c.Reasoning)
	for _, indicator := range c.KeyIndicators {
		fmt.Printf("  - %s\n", indicator)
	}
}
