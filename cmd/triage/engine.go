package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supportops/triage/internal/ai"
)

// buildJudge wires the configured AI engine. Returns nil when no engine is
// configured; callers degrade to lexical-only scoring in that case.
func buildJudge(ctx context.Context) (ai.Judge, error) {
	if cfg.UseLocalEngine {
		judge := ai.NewLocalJudge(cfg.LocalEngineURL, cfg.LocalEngineModel)
		if err := judge.Initialize(ctx, func(stage string) {
			slog.Debug("local engine initialization", "stage", stage)
		}); err != nil {
			return nil, fmt.Errorf("local engine unavailable: %w", err)
		}
		return judge, nil
	}

	if cfg.AnthropicAPIKey == "" {
		return nil, nil
	}
	return ai.NewAnthropicJudge(ai.AnthropicConfig{
		APIKey:             cfg.AnthropicAPIKey,
		Model:              cfg.Model,
		MaxConcurrentCalls: cfg.MaxConcurrentAICalls,
	})
}

// requireJudge is buildJudge for commands that cannot degrade, like classify.
func requireJudge(ctx context.Context) (ai.Judge, error) {
	judge, err := buildJudge(ctx)
	if err != nil {
		return nil, err
	}
	if judge == nil {
		return nil, fmt.Errorf("no AI engine configured: set TRIAGE_ANTHROPIC_API_KEY or TRIAGE_USE_LOCAL_ENGINE=true")
	}
	return judge, nil
}
