package ai

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interviewer/internal/adapter/observability"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets every call through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown has passed.
	CircuitOpen
	// CircuitHalfOpen has a single probe call in flight.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerStats is a point-in-time view of a breaker.
type BreakerStats struct {
	Provider    string
	State       CircuitState
	Consecutive int
	Trips       int
	OpenedAt    time.Time
}

// CircuitBreaker short-circuits generator calls after consecutive failures so that
// the fallback tiers answer immediately instead of waiting on a dead upstream.
type CircuitBreaker struct {
	provider  string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	state       CircuitState
	consecutive int
	trips       int
	openedAt    time.Time
}

// NewCircuitBreaker creates a breaker for a provider. Non-positive values select 3 failures / 30s.
func NewCircuitBreaker(provider string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{provider: provider, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Provider names the upstream the breaker guards.
func (cb *CircuitBreaker) Provider() string { return cb.provider }

// ShouldAttempt reports whether a call may proceed. An open circuit past its
// cooldown moves to half-open and admits exactly one probe.
func (cb *CircuitBreaker) ShouldAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.setState(CircuitHalfOpen)
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutive = 0
	if cb.state != CircuitClosed {
		cb.setState(CircuitClosed)
		slog.Info("generator circuit closed", slog.String("provider", cb.provider))
	}
}

// RecordFailure extends the failure streak and opens the circuit at the threshold.
// A failed half-open probe reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutive++
	if cb.state != CircuitHalfOpen && cb.consecutive < cb.threshold {
		return
	}
	if cb.state != CircuitOpen {
		cb.trips++
		slog.Warn("generator circuit opened",
			slog.String("provider", cb.provider),
			slog.Int("consecutive_failures", cb.consecutive),
			slog.Duration("cooldown", cb.cooldown))
	}
	cb.openedAt = cb.now()
	cb.setState(CircuitOpen)
}

// GetState returns the current circuit state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		Provider:    cb.provider,
		State:       cb.state,
		Consecutive: cb.consecutive,
		Trips:       cb.trips,
		OpenedAt:    cb.openedAt,
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	observability.RecordBreakerState(cb.provider, int(s))
}
