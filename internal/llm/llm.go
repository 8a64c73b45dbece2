// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps an OpenAI-compatible chat-completion endpoint behind a
// small backend interface the extraction, planning, and judging stages
// share. The default client targets DeepSeek, which speaks the OpenAI
// wire protocol.
package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// Backend issues one chat completion and returns the raw text response.
// Implementations must be safe for concurrent use.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// DefaultBaseURL is the DeepSeek OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.deepseek.com/v1"

// DefaultModel is the model used when the config names none.
const DefaultModel = "deepseek-chat"

// backoffBase controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Client is a Backend over an OpenAI-compatible API. Responses are
// requested in JSON mode since every caller parses structured output.
type Client struct {
	api        *openai.Client
	model      string
	maxRetries int
}

// NewClient builds a client from AI config. Returns nil when no API key
// is configured; callers treat a nil backend as "use heuristics".
func NewClient(cfg types.AIConfig) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if oc.BaseURL == "" {
		oc.BaseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		api:        openai.NewClientWithConfig(oc),
		model:      model,
		maxRetries: maxRetries,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends one system+user exchange and returns the assistant text.
// Failed calls retry with exponential backoff.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

// StripFence removes a Markdown code fence wrapping a JSON payload.
// Models occasionally fence their output even in JSON mode.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
