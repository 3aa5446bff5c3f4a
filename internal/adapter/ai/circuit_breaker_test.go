package ai

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type breakerClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *breakerClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *breakerClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *breakerClock) {
	clk := &breakerClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("test", threshold, cooldown)
	cb.now = clk.now
	return cb, clk
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker("openrouter", 0, 0)
	assert.Equal(t, "openrouter", cb.Provider())
	assert.Equal(t, 3, cb.threshold)
	assert.Equal(t, 30*time.Second, cb.cooldown)
	assert.Equal(t, CircuitClosed, cb.GetState())
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	t.Parallel()
	cb, clk := newTestBreaker(3, 30*time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState())
	assert.True(t, cb.ShouldAttempt())

	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.GetState())
	assert.False(t, cb.ShouldAttempt())

	clk.advance(29 * time.Second)
	assert.False(t, cb.ShouldAttempt())

	clk.advance(time.Second)
	assert.True(t, cb.ShouldAttempt(), "probe after cooldown")
	assert.Equal(t, CircuitHalfOpen, cb.GetState())
	assert.False(t, cb.ShouldAttempt(), "only one probe in flight")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())
	assert.False(t, cb.ShouldAttempt(), "failed probe restarts the cooldown")

	clk.advance(30 * time.Second)
	require.True(t, cb.ShouldAttempt())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.GetState())

	st := cb.Stats()
	assert.Equal(t, 1, st.Trips)
	assert.Zero(t, st.Consecutive)
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(2, time.Second)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState())
	assert.Equal(t, 1, cb.Stats().Consecutive)
}

func TestCircuitState_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state    CircuitState
		expected string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker("test", 3, time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if cb.ShouldAttempt() {
					cb.RecordFailure()
				}
				cb.RecordSuccess()
				_ = cb.Stats()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, CircuitClosed, cb.GetState())
}
