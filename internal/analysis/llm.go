// SPDX-License-Identifier: MIT

// Package analysis generates equity research content through an LLM:
// company analyses, house-perspective observations and topic searches
// across a market segment.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// LLMClient is the minimal surface the service needs from a model provider.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Gemini calls the Google GenAI API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// NewGemini creates a Gemini-backed client. The API key is required.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, logger zerolog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model, timeout: timeout, logger: logger}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

// Generate sends one prompt and returns the model's text. Transient errors
// are retried with exponential backoff.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 1024,
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(prompt), cfg)
		cancel()

		if err == nil {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", fmt.Errorf("model returned empty response")
			}
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		g.logger.Warn().
			Err(err).
			Str("event", "llm.generate_retry").
			Str("model", g.model).
			Int("attempt", attempt).
			Msg("generate failed")

		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("generate after %d attempts: %w", maxAttempts, lastErr)
}
