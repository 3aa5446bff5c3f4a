// Package gemini implements domain.Generator on the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

const defaultModel = "gemini-2.5-flash"

// contentGenerator is the subset of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator sends one GenerateContent request per call. It never retries.
type Generator struct {
	models    contentGenerator
	modelName string
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", domain.ErrInvalidArgument)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("op=gemini.NewGenerator: %w", err)
	}
	return newWithModels(client.Models, model), nil
}

func newWithModels(models contentGenerator, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{models: models, modelName: model}
}

// Model returns the configured model id.
func (g *Generator) Model() string { return g.modelName }

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
	temp := float32(temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxOutputTokens),
	}
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", mapError(ctx, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: gemini returned no response", domain.ErrUpstreamUnavailable)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
		// first candidate only
		break
	}
	out := strings.TrimSpace(builder.String())
	if out == "" {
		return "", fmt.Errorf("%w: gemini returned empty response", domain.ErrUpstreamUnavailable)
	}
	return out, nil
}

func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("op=gemini.Generate: %w", ctxErr)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: gemini %s", domain.ErrRateLimited, apiErr.Status)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return fmt.Errorf("%w: gemini %d %s", domain.ErrInvalidArgument, apiErr.Code, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: gemini: %v", domain.ErrUpstreamUnavailable, err)
}
