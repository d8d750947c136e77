// Package advisor provides a client for OpenAI-compatible chat completion endpoints.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const quotaErrorCode = "insufficient_quota"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Client calls the /chat/completions endpoint.
type Client struct {
	http        *retryablehttp.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	log         *logger.Logger
}

// NewClient creates a new advisor client.
func NewClient(cfg *config.CoachConfig, log *logger.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = 100 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.CheckRetry = retryServerErrors
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = leveledLogger{log: log}
	if cfg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		log:         log,
	}
}

// Complete sends the conversation and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if resp == nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrAdviceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", apperrors.ErrAdviceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, body)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %w", apperrors.ErrAdviceUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response had no choices", apperrors.ErrAdviceUnavailable)
	}

	reply := strings.TrimSpace(parsed.Choices[0].Message.Content)
	c.log.Debug().Int("reply_length", len(reply)).Msg("Received advice")
	return reply, nil
}

// classifyStatus maps a non-200 response onto the advice error kinds.
func classifyStatus(status int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)
	detail := parsed.Error.Message
	if detail == "" {
		detail = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests || parsed.Error.Code == quotaErrorCode:
		return fmt.Errorf("%w: %s", apperrors.ErrAdviceQuota, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", apperrors.ErrAdviceAuth, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", apperrors.ErrAdviceUnavailable, status, detail)
	}
}

// retryServerErrors retries connection errors and 5xx responses only.
func retryServerErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.StatusCode < http.StatusInternalServerError {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// leveledLogger adapts the application logger to retryablehttp.
type leveledLogger struct {
	log *logger.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
