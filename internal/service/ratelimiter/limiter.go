// Package ratelimiter paces calls to the external text generator.
//
// Every generator call, whichever pipeline issues it, passes through one shared
// bucket. The bucket lives in-process (golang.org/x/time/rate) or in Redis when
// several replicas share one upstream quota.
package ratelimiter

import (
	"context"
	"time"
)

// Limiter grants or denies a cost against a named bucket.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig describes a token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// NewBucketConfigFromInterval builds a bucket that admits one call per interval with the given burst.
func NewBucketConfigFromInterval(interval time.Duration, burst int64) BucketConfig {
	if interval <= 0 {
		return BucketConfig{}
	}
	if burst <= 0 {
		burst = 1
	}
	return BucketConfig{
		Capacity:   burst,
		RefillRate: float64(time.Second) / float64(interval),
	}
}

// minRetry keeps Wait from spinning when a backend reports a zero retry hint while denying.
const minRetry = 10 * time.Millisecond

// Wait blocks until the limiter admits one call on key or ctx is done.
// Backend errors fail open since the limiter already returned allowed=true for them.
func Wait(ctx context.Context, l Limiter, key string) error {
	if l == nil {
		return nil
	}
	for {
		allowed, retryAfter, _ := l.Allow(ctx, key, 1)
		if allowed {
			return nil
		}
		if retryAfter < minRetry {
			retryAfter = minRetry
		}
		t := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
