// Package enrich walks the operator through supplying detail the
// conversation alone does not carry: reproduction steps, error text, the
// affected app id.
package enrich

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/supportops/triage/internal/types"
)

// Prompter collects enrichment interactively over readline.
type Prompter struct {
	rl *readline.Instance
}

// NewPrompter creates an interactive prompter.
func NewPrompter() (*Prompter, error) {
	cyan := color.New(color.FgCyan).SprintFunc()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("> "),
		HistoryFile:       "",
		InterruptPrompt:   "^C",
		EOFPrompt:         "done",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Prompter{rl: rl}, nil
}

// Close releases the underlying terminal.
func (p *Prompter) Close() error {
	return p.rl.Close()
}

// Collect runs the walk-through. Every step is skippable with an empty
// answer; Ctrl+D finishes early with whatever was gathered so far.
func (p *Prompter) Collect() (*types.EnrichmentContext, error) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s\n", bold("Enrich the issue before filing (empty answer skips a step, Ctrl+D finishes):"))

	enrichment := &types.EnrichmentContext{}

	steps := []struct {
		label string
		apply func(string)
	}{
		{"Reproduction steps", func(v string) { enrichment.ReproductionSteps = v }},
		{"Technical details (browser, version, environment)", func(v string) { enrichment.TechnicalDetails = v }},
		{"Exact error text, if any", func(v string) { enrichment.ErrorText = v }},
		{"Affected app id", func(v string) { enrichment.AppID = v }},
		{"Customer impact", func(v string) { enrichment.CustomerImpact = v }},
		{"Screenshot URLs (comma separated)", func(v string) {
			for _, url := range strings.Split(v, ",") {
				if url = strings.TrimSpace(url); url != "" {
					enrichment.Screenshots = append(enrichment.Screenshots, url)
				}
			}
		}},
	}

	for _, step := range steps {
		fmt.Printf("%s\n", step.label)
		answer, err := p.readAnswer()
		if err == io.EOF {
			return enrichment, nil
		}
		if err != nil {
			return nil, err
		}
		if answer != "" {
			step.apply(answer)
		}
	}
	return enrichment, nil
}

func (p *Prompter) readAnswer() (string, error) {
	for {
		line, err := p.rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C skips the current step
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}
