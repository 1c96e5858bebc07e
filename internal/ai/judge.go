// Package ai provides the LLM plumbing for the triage pipeline: a Judge
// abstraction over prompt completion, remote and local engine
// implementations, resilient JSON parsing of model output, and retry with
// circuit breaking around API calls.
package ai

import "context"

// Judge produces a text completion for a prompt. The remote Anthropic engine
// and the local inference engine both implement it; everything downstream is
// engine-agnostic and differs only in latency and the engine name recorded
// on results.
type Judge interface {
	// Name identifies the engine for AnalysisResult.Engine.
	Name() string

	// Complete returns the model's text response for the prompt.
	// maxTokens bounds the response length.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
