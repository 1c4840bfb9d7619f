package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Masoud-kamali/Literature-Agent/internal/config"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

const (
	completionRetries   = 2
	completionRetryBase = 2 * time.Second
	completionRetryCeil = 30 * time.Second
)

// Client implements ports.ChatClient against an OpenAI-compatible chat
// completions API, typically a local vLLM server.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ports.ChatClient = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
		logger:      logger,
	}
}

// withSampling derives a client with its own temperature and completion
// budget, sharing the underlying HTTP client.
func (c *Client) withSampling(temperature float64, maxTokens int) *Client {
	derived := *c
	derived.temperature = temperature
	derived.maxTokens = maxTokens
	return &derived
}

// ModelName reports the model identifier recorded in ledger rows.
func (c *Client) ModelName() string { return c.model }

// Complete sends a system and user message pair and returns the
// generated text. Transient failures retry with exponential backoff.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	var content string
	op := func() error {
		text, err := c.complete(ctx, body)
		if err != nil {
			return err
		}
		content = text
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = completionRetryBase
	expo.MaxInterval = completionRetryCeil
	expo.MaxElapsedTime = 0

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(expo, completionRetries), ctx)); err != nil {
		return "", err
	}

	c.logger.Debug("completion done", "model", c.model, "chars", len(content))
	return content, nil
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := fmt.Errorf("completion error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode completion: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("completion returned no choices"))
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
