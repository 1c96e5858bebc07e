package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/supportops/triage/internal/tracker"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check triage configuration and connectivity",
	Long: `Run health checks to diagnose common triage configuration issues.

This command checks:
- Helpdesk and tracker tokens present
- Tracker credentials valid and search API reachable
- Configured repositories well-formed
- AI engine configured and reachable

Exit codes:
  0 - All checks passed
  1 - One or more checks failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running triage health checks...\n\n")
		failures := 0

		// Check 1: tokens
		fmt.Printf("%s Credentials\n", cyan("→"))
		if cfg.HelpdeskToken == "" {
			fmt.Printf("  %s TRIAGE_HELPDESK_TOKEN not set\n", red("✗"))
			failures++
		} else {
			fmt.Printf("  %s Helpdesk token present\n", green("✓"))
		}
		if cfg.TrackerToken == "" {
			fmt.Printf("  %s TRIAGE_TRACKER_TOKEN not set\n", red("✗"))
			failures++
		} else {
			fmt.Printf("  %s Tracker token present\n", green("✓"))
		}

		// Check 2: repositories
		fmt.Printf("%s Repositories\n", cyan("→"))
		if len(cfg.Repositories) == 0 {
			fmt.Printf("  %s No repositories configured\n", red("✗"))
			failures++
		} else {
			fmt.Printf("  %s %d repositories configured\n", green("✓"), len(cfg.Repositories))
		}

		// Check 3: tracker access
		fmt.Printf("%s Tracker access\n", cyan("→"))
		if cfg.TrackerToken == "" {
			fmt.Printf("  %s Skipped (no token)\n", yellow("⚠"))
		} else if client, err := tracker.NewClient(cfg.TrackerToken, cfg.TrackerBaseURL); err != nil {
			fmt.Printf("  %s %v\n", red("✗"), err)
			failures++
		} else if report, err := client.ValidateAccess(ctx, cfg.Repositories); err != nil {
			fmt.Printf("  %s Validation failed: %v\n", red("✗"), err)
			failures++
		} else {
			if report.Valid {
				fmt.Printf("  %s Authenticated as %s\n", green("✓"), report.Login)
			} else {
				fmt.Printf("  %s Token rejected\n", red("✗"))
				failures++
			}
			if report.CanSearch {
				fmt.Printf("  %s Search API reachable\n", green("✓"))
			} else {
				fmt.Printf("  %s Search API not available to this token\n", red("✗"))
				failures++
			}
		}

		// Check 4: AI engine
		fmt.Printf("%s AI engine\n", cyan("→"))
		judge, err := buildJudge(ctx)
		switch {
		case err != nil:
			fmt.Printf("  %s %v\n", red("✗"), err)
			failures++
		case judge == nil:
			fmt.Printf("  %s No engine configured, similarity scoring will be lexical-only\n", yellow("⚠"))
		default:
			fmt.Printf("  %s Engine ready: %s\n", green("✓"), judge.Name())
		}

		if failures > 0 {
			fmt.Printf("\n%s %d check(s) failed\n", red("✗"), failures)
			os.Exit(1)
		}
		fmt.Printf("\n%s All checks passed\n", green("✓"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
