package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface{ Err() error }

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface {
	Ping(ctx context.Context) RedisPingResult
}

// RedisPinger adapts a go-redis client to RedisClient.
type RedisPinger struct{ C redis.Cmdable }

// Ping implements RedisClient.
func (p RedisPinger) Ping(ctx context.Context) RedisPingResult { return p.C.Ping(ctx) }

// BuildReadinessChecks returns the db and redis readiness checks.
// A check is nil when its backend is not configured, so /readyz skips it.
func BuildReadinessChecks(pool Pinger, rdb RedisClient) (dbCheck, redisCheck func(ctx context.Context) error) {
	if pool != nil {
		dbCheck = func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("op=app.dbCheck: %w", err)
			}
			return nil
		}
	}
	if rdb != nil {
		redisCheck = func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("op=app.redisCheck: %w", err)
			}
			return nil
		}
	}
	return dbCheck, redisCheck
}
