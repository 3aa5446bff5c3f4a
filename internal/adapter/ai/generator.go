package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-interviewer/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interviewer/internal/observability"
	"github.com/fairyhunter13/ai-interviewer/internal/service/ratelimiter"
)

// LimiterKey is the bucket every generator call draws from.
const LimiterKey = "generator"

// GeneratorFunc adapts a function to domain.Generator.
type GeneratorFunc func(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error)

// Generate implements domain.Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
	return f(ctx, prompt, maxOutputTokens, temperature)
}

// Middleware decorates a generator.
type Middleware func(domain.Generator) domain.Generator

// Chain wraps g so that the first middleware is the outermost.
func Chain(g domain.Generator, mws ...Middleware) domain.Generator {
	for i := len(mws) - 1; i >= 0; i-- {
		g = mws[i](g)
	}
	return g
}

// WithTimeout bounds each call. A deadline hit by this bound is reported as ErrUpstreamTimeout.
func WithTimeout(d time.Duration) Middleware {
	return func(next domain.Generator) domain.Generator {
		if d <= 0 {
			return next
		}
		return GeneratorFunc(func(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			out, err := next.Generate(cctx, prompt, maxOutputTokens, temperature)
			if err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: generator call exceeded %s", domain.ErrUpstreamTimeout, d)
			}
			return out, err
		})
	}
}

// WithLimiter waits on the shared bucket before every call so that calls are paced
// regardless of which pipeline issues them.
func WithLimiter(l ratelimiter.Limiter, key string) Middleware {
	return func(next domain.Generator) domain.Generator {
		if l == nil {
			return next
		}
		return GeneratorFunc(func(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
			start := time.Now()
			if err := ratelimiter.Wait(ctx, l, key); err != nil {
				return "", fmt.Errorf("%w: waiting for generator pacing: %v", domain.ErrRateLimited, err)
			}
			observability.ObserveLimiterWait(time.Since(start))
			return next.Generate(ctx, prompt, maxOutputTokens, temperature)
		})
	}
}

// WithBreaker fails fast while the breaker is open.
func WithBreaker(cb *CircuitBreaker) Middleware {
	return func(next domain.Generator) domain.Generator {
		if cb == nil {
			return next
		}
		return GeneratorFunc(func(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
			if !cb.ShouldAttempt() {
				return "", fmt.Errorf("%w: circuit open for %s", domain.ErrUpstreamUnavailable, cb.Provider())
			}
			out, err := next.Generate(ctx, prompt, maxOutputTokens, temperature)
			if err != nil {
				// a caller cancellation says nothing about upstream health, except that a probe must still resolve
				if ctx.Err() == nil || cb.GetState() == CircuitHalfOpen {
					cb.RecordFailure()
				}
				return "", err
			}
			cb.RecordSuccess()
			return out, nil
		})
	}
}

// WithInstrumentation records request outcome, latency and token usage per provider.
func WithInstrumentation(counter *tokencount.Counter, provider, model string) Middleware {
	return func(next domain.Generator) domain.Generator {
		return GeneratorFunc(func(ctx context.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
			start := time.Now()
			out, err := next.Generate(ctx, prompt, maxOutputTokens, temperature)
			dur := time.Since(start)
			lg := obsctx.LoggerFromContext(ctx)
			if err != nil {
				observability.ObserveAIRequest(provider, outcomeOf(err), dur)
				lg.Warn("generator call failed",
					slog.String("provider", provider),
					slog.String("model", model),
					slog.Duration("duration", dur),
					slog.Any("error", err))
				return "", err
			}
			observability.ObserveAIRequest(provider, "ok", dur)
			if counter != nil {
				usage := counter.Usage(prompt, out)
				observability.RecordAITokenUsage(provider, "prompt", model, usage.Prompt)
				observability.RecordAITokenUsage(provider, "completion", model, usage.Completion)
				lg.Debug("generator call ok",
					slog.String("provider", provider),
					slog.Int("max_output_tokens", maxOutputTokens),
					slog.Float64("temperature", temperature),
					slog.Int("prompt_tokens", usage.Prompt),
					slog.Int("completion_tokens", usage.Completion),
					slog.Duration("duration", dur))
			}
			return out, nil
		})
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
