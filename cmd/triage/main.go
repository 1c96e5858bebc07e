// Command triage turns helpdesk conversations into tracker issues and finds
// duplicates before filing.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/supportops/triage/internal/config"
)

var (
	configPath string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Support conversation triage and duplicate detection",
	Long: `Triage pulls helpdesk conversations, classifies them as bugs, and files
tracker issues with duplicate analysis up front.

The typical workflow:
  triage classify <conversation-id>   check whether a conversation is a bug
  triage analyze <conversation-id>    run duplicate analysis for a conversation
  triage file <conversation-id>       enrich, analyze, and file the issue
  triage doctor                       check tokens, tracker access, and the AI engine`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		slog.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.triage.yaml"
	}
	return ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
