package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archie/internal/domain/entity"
	"archie/internal/domain/repository"
	"archie/internal/infrastructure/metrics"
)

type Config struct {
	APIKey string
	// BaseURL is the OpenAI-compatible endpoint root. With APIVersion set it is treated as an
	// Azure OpenAI resource and the model names the deployment.
	BaseURL     string
	APIVersion  string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
}

// ChatCompletionGateway calls a chat-completions API with a bounded timeout and bounded retries
// for transient failures.
type ChatCompletionGateway struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

var _ repository.CompletionGateway = (*ChatCompletionGateway)(nil)

func NewChatCompletionGateway(cfg Config, logger *slog.Logger) *ChatCompletionGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &ChatCompletionGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "llm"),
	}
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []entity.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// retryableError marks failures worth another attempt: transport errors, 429 and 5xx.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (g *ChatCompletionGateway) Complete(ctx context.Context, messages []entity.Message) (string, error) {
	metrics.IncLLMRequest(g.cfg.Model)
	start := time.Now()
	defer func() { metrics.ObserveLLMDuration(g.cfg.Model, time.Since(start)) }()

	g.logger.InfoContext(ctx, "requesting completion", "model", g.cfg.Model, "messages", len(messages))

	body, err := json.Marshal(chatRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return "", g.fail(ctx, entity.NewUpstreamError(fmt.Errorf("failed to marshal request: %w", err)))
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.cfg.Backoff * time.Duration(1<<uint(attempt-1))
			g.logger.WarnContext(ctx, "retrying completion", "attempt", attempt, "delay", delay, "err", lastErr)
			select {
			case <-ctx.Done():
				return "", g.fail(ctx, entity.NewUpstreamError(ctx.Err()))
			case <-time.After(delay):
			}
		}

		content, err := g.makeRequest(ctx, body)
		if err == nil {
			if strings.TrimSpace(content) == "" {
				return "", g.fail(ctx, entity.NewEmptyResponseError())
			}
			g.logger.InfoContext(ctx, "completion received", "attempt", attempt, "duration", time.Since(start))
			return content, nil
		}

		lastErr = err
		var re *retryableError
		if !errors.As(err, &re) || ctx.Err() != nil {
			break
		}
	}

	return "", g.fail(ctx, entity.NewUpstreamError(lastErr))
}

func (g *ChatCompletionGateway) fail(ctx context.Context, err *entity.CompletionError) error {
	metrics.IncLLMFailure(string(err.Reason))
	g.logger.ErrorContext(ctx, "completion failed", "reason", err.Reason, "err", err.Message)
	return err
}

func (g *ChatCompletionGateway) endpoint() string {
	base := strings.TrimRight(g.cfg.BaseURL, "/")
	if g.cfg.APIVersion == "" {
		return base + "/chat/completions"
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		base, url.PathEscape(g.cfg.Model), url.QueryEscape(g.cfg.APIVersion))
}

func (g *ChatCompletionGateway) makeRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIVersion != "" {
		req.Header.Set("api-key", g.cfg.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.WarnContext(ctx, "close body failed", "err", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("api error: %d - %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", &retryableError{err: apiErr}
		}
		return "", apiErr
	}

	return parseResponse(data)
}

func parseResponse(data []byte) (string, error) {
	var response chatResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("api error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("invalid response format: no choices")
	}
	return response.Choices[0].Message.Content, nil
}
