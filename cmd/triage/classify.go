package main

import (
	"context"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <conversation-id>",
	Short: "Classify a helpdesk conversation as bug or not-bug",
	Long: `Pull a helpdesk conversation, normalize it, and ask the configured AI
engine whether it describes a software bug worth filing.

The verdict includes a confidence score, a bug type and severity, and a
drafted issue title for conversations classified as bugs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		judge, err := requireJudge(ctx)
		if err != nil {
			return err
		}

		conv, err := fetchConversation(ctx, args[0])
		if err != nil {
			return err
		}

		classification, err := classifyConversation(ctx, judge, conv)
		if err != nil {
			return err
		}
		printClassification(classification)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
