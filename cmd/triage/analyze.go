package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/supportops/triage/internal/analysis"
	"github.com/supportops/triage/internal/enrich"
	"github.com/supportops/triage/internal/issue"
	"github.com/supportops/triage/internal/similarity"
	"github.com/supportops/triage/internal/tracker"
	"github.com/supportops/triage/internal/types"
)

var analyzeSkipEnrich bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <conversation-id>",
	Short: "Find duplicate tracker issues for a conversation",
	Long: `Run the full duplicate analysis for one helpdesk conversation:
classify it, optionally enrich it interactively, generate search queries,
search the configured repositories, and rank candidate issues by similarity.

Nothing is filed; use 'triage file' to file after reviewing the candidates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AnalysisTimeout)
		defer cancel()

		proposed, _, err := proposeFromConversation(ctx, args[0], analyzeSkipEnrich)
		if err != nil {
			return err
		}

		result, err := runAnalysis(ctx, proposed)
		if err != nil {
			return err
		}
		printAnalysis(result)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSkipEnrich, "no-enrich", false, "skip the interactive enrichment walk-through")
	rootCmd.AddCommand(analyzeCmd)
}

// proposeFromConversation runs fetch, classification, enrichment, and issue
// building, producing the proposal the analysis and filing steps share.
func proposeFromConversation(ctx context.Context, conversationID string, skipEnrich bool) (*types.ProposedIssue, *types.Conversation, error) {
	judge, err := requireJudge(ctx)
	if err != nil {
		return nil, nil, err
	}

	conv, err := fetchConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	classification, err := classifyConversation(ctx, judge, conv)
	if err != nil {
		return nil, nil, err
	}
	printClassification(classification)
	if !classification.IsBug {
		return nil, nil, fmt.Errorf("conversation %s was not classified as a bug", conversationID)
	}

	enrichment := &types.EnrichmentContext{}
	if !skipEnrich {
		prompter, err := enrich.NewPrompter()
		if err != nil {
			return nil, nil, err
		}
		defer prompter.Close()
		if enrichment, err = prompter.Collect(); err != nil {
			return nil, nil, err
		}
	}

	proposed, err := issue.Build(conv, classification, enrichment)
	if err != nil {
		return nil, nil, err
	}
	return proposed, conv, nil
}

// runAnalysis wires the orchestrator from global config and runs one pass.
func runAnalysis(ctx context.Context, proposed *types.ProposedIssue) (*types.AnalysisResult, error) {
	if len(cfg.Repositories) == 0 {
		return nil, fmt.Errorf("no repositories configured: set TRIAGE_REPOSITORIES")
	}

	client, err := tracker.NewClient(cfg.TrackerToken, cfg.TrackerBaseURL)
	if err != nil {
		return nil, err
	}
	judge, err := buildJudge(ctx)
	if err != nil {
		return nil, err
	}

	orchestrator, err := analysis.New(client, similarity.NewScorer(judge), cfg.Repositories, analysis.Config{
		MaxResults:            cfg.MaxResults,
		MaxConcurrentSearches: cfg.MaxConcurrentSearches,
		MaxConcurrentScores:   cfg.MaxConcurrentScores,
		State:                 cfg.State(),
		Label:                 cfg.SearchLabel,
	})
	if err != nil {
		return nil, err
	}
	return orchestrator.Analyze(ctx, proposed, nil)
}

// printAnalysis renders the ranked candidates.
func printAnalysis(result *types.AnalysisResult) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("\n%s %d candidates examined, %d shown (engine: %s, %.1fs)\n",
		bold("Duplicate analysis:"), result.TotalExamined, len(result.Candidates),
		result.Engine, result.Elapsed.Seconds())

	if len(result.Candidates) == 0 {
		fmt.Println("  No similar issues found.")
		return
	}

	for _, sc := range result.Candidates {
		marker := yellow("related")
		if sc.Relationship == types.RelationDuplicate {
			marker = red("DUPLICATE")
		}
		fmt.Printf("\n  %s #%d %s (%.2f)\n", marker, sc.Candidate.Number, cyan(sc.Candidate.Title), sc.Score)
		fmt.Printf("    %s [%s] %s\n", sc.Candidate.State, sc.Action, sc.Candidate.HTMLURL)
		if sc.Reasoning != "" {
			fmt.Printf("    %s\n", strings.TrimSpace(sc.Reasoning))
		}
	}
}
