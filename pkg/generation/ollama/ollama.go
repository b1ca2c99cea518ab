// Package ollama implements pkg/generation's Generator client for Ollama's
// completion API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foliodocs/folio/pkg/generation"
)

const (
	// DefaultModel is the default model used for answer synthesis.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Generator wraps Ollama's generate API.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the completion model to use. Defaults to DefaultModel if empty.
	Model string
}

// generateRequest is the request body for Ollama's generate API.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the response from Ollama's generate API.
type generateResponse struct {
	Response      string `json:"response"`
	PromptEvalCnt int    `json:"prompt_eval_count"`
	EvalCount     int    `json:"eval_count"`
}

// NewGenerator creates a new generator using Ollama's generate API.
func NewGenerator(cfg Config) (*Generator, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Generate synthesizes an answer grounded in the prompt's context.
func (g *Generator) Generate(ctx context.Context, prompt generation.Prompt) (generation.Result, error) {
	reqBody := generateRequest{
		Model:  g.model,
		Prompt: buildPrompt(prompt),
		Stream: false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return generation.Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return generation.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return generation.Result{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return generation.Result{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return generation.Result{}, fmt.Errorf("decoding response: %w", err)
	}

	return generation.Result{
		Text:      genResp.Response,
		TokensIn:  genResp.PromptEvalCnt,
		TokensOut: genResp.EvalCount,
	}, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

func buildPrompt(p generation.Prompt) string {
	return fmt.Sprintf(
		"Answer the question using only the provided context. If the context does not contain the answer, say so.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		p.Context, p.Question,
	)
}

// Ensure Generator implements generation.Generator
var _ generation.Generator = (*Generator)(nil)
