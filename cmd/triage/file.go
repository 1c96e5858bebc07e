package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/supportops/triage/internal/issue"
	"github.com/supportops/triage/internal/tracker"
	"github.com/supportops/triage/internal/types"
)

var (
	fileRepo        string
	fileYes         bool
	fileSkipEnrich  bool
	fileHTMLPreview string
)

var fileCmd = &cobra.Command{
	Use:   "file <conversation-id>",
	Short: "File a tracker issue for a conversation",
	Long: `Run the full workflow for one conversation: classify, enrich, analyze for
duplicates, preview the issue, and file it in the tracker.

Filing is blocked when analysis finds a confident duplicate unless --yes is
given. The issue is created in the repository named by --repo, defaulting to
the first configured repository.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AnalysisTimeout)
		defer cancel()

		repo := fileRepo
		if repo == "" {
			if len(cfg.Repositories) == 0 {
				return fmt.Errorf("no repositories configured: set TRIAGE_REPOSITORIES or pass --repo")
			}
			repo = cfg.Repositories[0]
		}
		if err := tracker.ValidateRepoScope(repo); err != nil {
			return err
		}

		proposed, conv, err := proposeFromConversation(ctx, args[0], fileSkipEnrich)
		if err != nil {
			return err
		}

		result, err := runAnalysis(ctx, proposed)
		if err != nil {
			return err
		}
		printAnalysis(result)

		if dup := firstDuplicate(result); dup != nil && !fileYes {
			return fmt.Errorf("confident duplicate #%d (%.2f); re-run with --yes to file anyway",
				dup.Candidate.Number, dup.Score)
		}

		if fileHTMLPreview != "" {
			html, err := issue.RenderPreviewHTML(proposed.Body)
			if err != nil {
				return err
			}
			if err := os.WriteFile(fileHTMLPreview, []byte(html), 0o644); err != nil {
				return fmt.Errorf("writing preview: %w", err)
			}
			fmt.Printf("Preview written to %s\n", fileHTMLPreview)
		}

		printProposal(proposed, repo)
		if !fileYes {
			confirmed, err := confirm("File this issue? [y/N] ")
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
		}

		client, err := tracker.NewClient(cfg.TrackerToken, cfg.TrackerBaseURL)
		if err != nil {
			return err
		}
		created, err := client.CreateIssue(ctx, repo, tracker.CreateRequest{
			Title:  proposed.Title,
			Body:   proposed.Body,
			Labels: proposed.Labels,
		})
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Filed #%d for conversation %s: %s\n", green("✓"), created.Number, conv.ID, created.HTMLURL)
		return nil
	},
}

func init() {
	fileCmd.Flags().StringVar(&fileRepo, "repo", "", "repository to file into (owner/name)")
	fileCmd.Flags().BoolVarP(&fileYes, "yes", "y", false, "file without confirmation, even past a confident duplicate")
	fileCmd.Flags().BoolVar(&fileSkipEnrich, "no-enrich", false, "skip the interactive enrichment walk-through")
	fileCmd.Flags().StringVar(&fileHTMLPreview, "html-preview", "", "write an HTML preview of the issue body to this path")
	rootCmd.AddCommand(fileCmd)
}

func firstDuplicate(result *types.AnalysisResult) *types.ScoredCandidate {
	for i := range result.Candidates {
		if result.Candidates[i].Relationship == types.RelationDuplicate {
			return &result.Candidates[i]
		}
	}
	return nil
}

func printProposal(proposed *types.ProposedIssue, repo string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("\n%s %s\n", bold("Filing into:"), repo)
	fmt.Printf("%s %s\n", bold("Title:"), proposed.Title)
	fmt.Printf("%s %s\n\n", bold("Labels:"), strings.Join(proposed.Labels, ", "))
	fmt.Println(proposed.Body)
}

func confirm(prompt string) (bool, error) {
	line, err := readline.Line(prompt)
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
