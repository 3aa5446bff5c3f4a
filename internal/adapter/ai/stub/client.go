// Package stub provides an offline generator for local runs without provider credentials.
package stub

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// Client always reports the upstream as unavailable, so every pipeline takes its
// deterministic fallback path (bank questions, length-band scores, default skills).
type Client struct{}

// New returns an offline generator.
func New() *Client { return &Client{} }

// Model identifies the offline generator in metrics.
func (c *Client) Model() string { return "offline" }

// Generate implements domain.Generator.
func (c *Client) Generate(ctx context.Context, _ string, _ int, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("op=stub.Generate: %w", err)
	}
	return "", fmt.Errorf("%w: offline generator", domain.ErrUpstreamUnavailable)
}
