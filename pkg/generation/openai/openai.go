// Package openai implements pkg/generation's Generator client for
// OpenAI-compatible chat completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/foliodocs/folio/pkg/generation"
)

const (
	// DefaultModel is the default model used for answer synthesis.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the OpenAI API URL. Point it elsewhere for
	// compatible services.
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Generator wraps an OpenAI-compatible chat completions API.
type Generator struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// Config holds configuration for the OpenAI-compatible generator.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the completion model to use. Defaults to DefaultModel.
	Model string

	// APIKeyEnv names the environment variable holding the bearer token.
	APIKeyEnv string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the chat completions endpoint.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatResponse is the response from the chat completions endpoint.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewGenerator creates a new generator for an OpenAI-compatible API.
func NewGenerator(cfg Config) (*Generator, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv)
		}
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Generate synthesizes an answer grounded in the prompt's context.
func (g *Generator) Generate(ctx context.Context, prompt generation.Prompt) (generation.Result, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "Answer the question using only the provided context. If the context does not contain the answer, say so.",
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", prompt.Context, prompt.Question),
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return generation.Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return generation.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return generation.Result{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return generation.Result{}, fmt.Errorf("api returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return generation.Result{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return generation.Result{}, errors.New("no choices returned")
	}

	return generation.Result{
		Text:      chatResp.Choices[0].Message.Content,
		TokensIn:  chatResp.Usage.PromptTokens,
		TokensOut: chatResp.Usage.CompletionTokens,
	}, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

// Ensure Generator implements generation.Generator
var _ generation.Generator = (*Generator)(nil)
