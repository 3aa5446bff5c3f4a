// Package openrouter implements domain.Generator over an OpenAI-compatible
// chat completions endpoint (OpenRouter, HF router, Groq).
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interviewer/internal/config"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

const snippetLimit = 512

// Client sends one chat completion per Generate call. It never retries.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	referer string
	title   string
	hc      *http.Client
}

// New constructs a client with an otelhttp-instrumented transport.
// Per-call deadlines come from the caller's context.
func New(cfg config.Config) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Generate %s %s", r.Method, r.URL.Host)
		}),
	)
	return &Client{
		baseURL: strings.TrimRight(cfg.OpenRouterBaseURL, "/"),
		apiKey:  cfg.OpenRouterAPIKey,
		model:   cfg.OpenRouterModel,
		referer: cfg.OpenRouterReferer,
		title:   cfg.OpenRouterTitle,
		hc:      &http.Client{Transport: transport},
	}
}

// Model returns the configured model id.
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate implements domain.Generator.
func (c *Client) Generate(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY not configured", domain.ErrInvalidArgument)
	}
	endpoint := c.baseURL + "/chat/completions"
	b, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxOutputTokens,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("op=openrouter.Generate: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("op=openrouter.Generate: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("op=openrouter.Generate: %w", ctxErr)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("ai provider rate limited", slog.String("provider", "openrouter"), slog.Int("status", resp.StatusCode), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
		return "", fmt.Errorf("%w: status 429", domain.ErrRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		slog.Warn("ai provider 4xx", slog.String("provider", "openrouter"), slog.Int("status", resp.StatusCode), slog.String("model", c.model), slog.String("endpoint", endpoint), slog.String("body", snippet(body)))
		return "", fmt.Errorf("%w: chat status %d", domain.ErrInvalidArgument, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		slog.Error("ai provider non-2xx", slog.String("provider", "openrouter"), slog.Int("status", resp.StatusCode), slog.String("model", c.model), slog.String("endpoint", endpoint), slog.String("body", snippet(body)))
		return "", fmt.Errorf("%w: chat status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		slog.Error("ai provider decode error", slog.String("provider", "openrouter"), slog.String("model", c.model), slog.Any("error", err))
		return "", fmt.Errorf("%w: decode: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, errEmptyChoices)
	}
	if out.Model != "" && out.Model != c.model {
		slog.Debug("model substitution detected", slog.String("requested_model", c.model), slog.String("actual_model", out.Model))
	}
	return out.Choices[0].Message.Content, nil
}

var errEmptyChoices = errors.New("empty choices")

func snippet(b []byte) string {
	if len(b) > snippetLimit {
		b = b[:snippetLimit]
	}
	return string(b)
}
