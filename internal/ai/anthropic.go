package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// DefaultModel is the Anthropic model used for classification and
// similarity judgments.
const DefaultModel = "claude-sonnet-4-5-20250929"

// AnthropicJudge implements Judge against the Anthropic Messages API, with
// retry, circuit breaking, and a concurrency cap on in-flight calls.
type AnthropicJudge struct {
	client  *anthropic.Client
	model   string
	retry   RetryConfig
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
}

// Compile-time check that AnthropicJudge implements Judge
var _ Judge = (*AnthropicJudge)(nil)

// AnthropicConfig holds configuration for the remote judge
type AnthropicConfig struct {
	APIKey             string      // required
	Model              string      // default: DefaultModel
	Retry              RetryConfig // zero value uses DefaultRetryConfig
	MaxConcurrentCalls int         // default: 3, 0 means use default, <0 unlimited
}

// NewAnthropicJudge creates the remote judge.
func NewAnthropicJudge(cfg AnthropicConfig) (*AnthropicJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.Timeout == 0 {
		retry = DefaultRetryConfig()
	}
	maxConcurrent := cfg.MaxConcurrentCalls
	if maxConcurrent == 0 {
		maxConcurrent = 3
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	j := &AnthropicJudge{
		client:  &client,
		model:   model,
		retry:   retry,
		breaker: NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout),
	}
	if maxConcurrent > 0 {
		j.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return j, nil
}

// Name implements Judge.
func (j *AnthropicJudge) Name() string {
	return "anthropic/" + j.model
}

// Complete implements Judge.
func (j *AnthropicJudge) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	if j.sem != nil {
		if err := j.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer j.sem.Release(1)
	}

	if err := j.breaker.Allow(); err != nil {
		return "", err
	}

	start := time.Now()
	var response *anthropic.Message
	err := retryWithBackoff(ctx, j.retry, "complete", func(attemptCtx context.Context) error {
		resp, apiErr := j.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(j.model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		j.breaker.RecordFailure()
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}
	j.breaker.RecordSuccess()

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	slog.Debug("judge call complete",
		"model", j.model,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
		"duration", time.Since(start))

	return text, nil
}
