// Package llm calls the language-model provider used by the task-analysis
// endpoint. Prompts and responses are treated as opaque text.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.trai.ch/zerr"

	"github.com/taskvault/taskvault/internal/logger"
	"github.com/taskvault/taskvault/internal/model"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
	maxRetries     = 3
	initialDelay   = 1 * time.Second
)

// Client is a chat-completions style text generation client.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     logger.Logger
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint, used by tests and
// self-hosted gateways.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// NewClient creates a generation client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     logger.LLM(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends the prompt and returns the provider's text response.
// Provider failures surface as model.ErrUpstream; 429 and 5xx responses are
// retried with exponential backoff.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", zerr.Wrap(model.ErrUpstream, "language model API key not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var provider apiError
			if json.Unmarshal(respBody, &provider) == nil && provider.Error.Message != "" {
				lastErr = fmt.Errorf("provider error (%d): %s", resp.StatusCode, provider.Error.Message)
			} else {
				lastErr = fmt.Errorf("provider error (%d)", resp.StatusCode)
			}

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				c.log.Warn("retrying language model call", "status", resp.StatusCode, "attempt", attempt+1)
				continue
			}
			return "", zerr.Wrap(model.ErrUpstream, lastErr.Error())
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", zerr.Wrap(model.ErrUpstream, "failed to decode provider response")
		}
		if len(parsed.Choices) == 0 {
			return "", zerr.Wrap(model.ErrUpstream, "provider returned no choices")
		}
		return parsed.Choices[0].Message.Content, nil
	}

	return "", zerr.Wrap(model.ErrUpstream, fmt.Sprintf("max retries exceeded: %v", lastErr))
}
