package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

const (
	anthropicVersion = "2023-06-01"
	defaultAttempts  = 3
	initialBackoff   = time.Second
	maxBackoff       = 30 * time.Second
)

type httpStatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("anthropic api status %d: %s", e.Code, e.Body)
}

func (e *httpStatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client calls the Anthropic messages API with bounded retries.
type Client struct {
	cfg         *config.Config
	httpClient  *http.Client
	sleep       func(time.Duration)
	maxAttempts int
}

// ClientOption customizes client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides the retry pause, primarily for tests.
func WithSleeper(sleep func(time.Duration)) ClientOption {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs an API client from configuration.
func NewClient(cfg *config.Config, opts ...ClientOption) *Client {
	c := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.Anthropic.TimeoutSeconds) * time.Second},
		sleep:       time.Sleep,
		maxAttempts: defaultAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends one user prompt and returns the model's text reply.
// Rate limits and server errors are retried with doubling backoff, honoring
// Retry-After when the service provides one.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(messageRequest{
		Model:     c.cfg.Anthropic.Model,
		MaxTokens: c.cfg.Anthropic.MaxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "analyze", "encode request", "", err)
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.send(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err

		statusErr, ok := err.(*httpStatusError)
		if ok && !statusErr.retryable() {
			marker := services.ErrValidation
			if statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden {
				marker = services.ErrConfiguration
			}
			return "", services.Wrap(marker, "analyze", "call anthropic", "", err)
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := backoff
		if ok && statusErr.RetryAfter > 0 {
			delay = statusErr.RetryAfter
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		c.sleep(delay)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return "", services.Wrap(services.ErrTransient, "analyze", "call anthropic", fmt.Sprintf("gave up after %d attempts", c.maxAttempts), lastErr)
}

func (c *Client) send(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Anthropic.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.cfg.AnthropicAPIKey())
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{
			Code:       resp.StatusCode,
			Body:       snippet(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var decoded messageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, block := range decoded.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("response contained no text content")
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		return body[:200] + "..."
	}
	return body
}
