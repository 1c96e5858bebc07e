package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LocalJudge implements Judge against an Ollama-compatible local inference
// server. It is the in-process alternative to the remote Anthropic engine:
// slower to warm up, free to run, identical interface.
type LocalJudge struct {
	baseURL string
	model   string
	client  *http.Client
}

// Compile-time check that LocalJudge implements Judge
var _ Judge = (*LocalJudge)(nil)

// NewLocalJudge creates a local inference judge. Defaults: localhost Ollama
// endpoint, llama3.2.
func NewLocalJudge(baseURL, model string) *LocalJudge {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &LocalJudge{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			// Local models can be slow to first token, especially while the
			// weights page in.
			Timeout: 120 * time.Second,
		},
	}
}

// Name implements Judge.
func (j *LocalJudge) Name() string {
	return "local/" + j.model
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Options struct {
		NumPredict int `json:"num_predict,omitempty"`
	} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Initialize verifies the local server is reachable and the model is
// available, reporting progress through the callback when provided.
func (j *LocalJudge) Initialize(ctx context.Context, progress func(stage string)) error {
	report := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	report("connecting to local inference server")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("local inference server unreachable at %s: %w", j.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("local inference server returned status %d", resp.StatusCode)
	}

	report("warming up model " + j.model)
	// A tiny completion forces the model to load before the first real call.
	if _, err := j.Complete(ctx, "ok", 1); err != nil {
		return fmt.Errorf("warming up model %s: %w", j.model, err)
	}
	report("ready")
	return nil
}

// Complete implements Judge.
func (j *LocalJudge) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := generateRequest{
		Model:  j.model,
		Prompt: prompt,
		Stream: false,
	}
	if maxTokens > 0 {
		reqBody.Options.NumPredict = maxTokens
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling local inference server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local inference server returned status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return gen.Response, nil
}
