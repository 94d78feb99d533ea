// Package genai is the HTTP client for the generative-model service. The
// model is an opaque collaborator: prompt text in, response text out, and it
// may fail or return malformed content. Callers own the fallback.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"poi-recommender/internal/common/logger"
)

var (
	ErrModelTimeout = errors.New("MODEL_TIMEOUT")
	ErrModelFailed  = errors.New("MODEL_UNAVAILABLE")
)

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// Generator is the single capability every model-backed adapter depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		// No client-level timeout; the per-call context carries the deadline.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"client": "genai"}),
	}
}

// Generate performs one blocking round trip to the model service. The
// configured timeout bounds the whole call including retries; a deadline hit
// maps to ErrModelTimeout so callers can route to their deterministic path.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrModelTimeout
			}
		}

		// A fresh request per attempt; the body reader is consumed by each
		// round trip.
		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/ai/generate", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrModelFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return "", ErrModelTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrModelTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrModelFailed, lastErr)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrModelFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrModelFailed, err)
	}

	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", fmt.Errorf("%w: empty model response", ErrModelFailed)
	}

	c.logger.Debug("model call completed", map[string]interface{}{
		"promptLen":   len(prompt),
		"responseLen": len(apiResponse.Text),
	})

	return apiResponse.Text, nil
}
