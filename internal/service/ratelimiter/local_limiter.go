package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter is an in-process Limiter backed by golang.org/x/time/rate.
type LocalLimiter struct {
	mu       sync.Mutex
	buckets  map[string]BucketConfig
	limiters map[string]*rate.Limiter
}

// NewLocalLimiter creates a LocalLimiter with the given bucket configurations.
func NewLocalLimiter(buckets map[string]BucketConfig) *LocalLimiter {
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &LocalLimiter{buckets: buckets, limiters: map[string]*rate.Limiter{}}
}

// Allow implements Limiter. Unknown or disabled buckets always admit.
func (l *LocalLimiter) Allow(_ context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	lim := l.limiter(key)
	if lim == nil {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	now := time.Now()
	r := lim.ReserveN(now, int(cost))
	if !r.OK() {
		return false, time.Second, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d, nil
	}
	return true, 0, nil
}

// SetBucketConfig replaces the configuration of a bucket and resets its state.
func (l *LocalLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
	delete(l.limiters, key)
}

func (l *LocalLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	cfg, ok := l.buckets[key]
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return nil
	}
	lim := rate.NewLimiter(rate.Limit(cfg.RefillRate), int(cfg.Capacity))
	l.limiters[key] = lim
	return lim
}
