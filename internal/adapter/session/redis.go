package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// KeyPrefix namespaces session documents in Redis.
const KeyPrefix = "interview:session:"

// RedisStore keeps sessions as JSON documents whose Redis TTL ends at CreatedAt+ttl.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func key(id string) string { return KeyPrefix + id }

// Get implements domain.SessionStore.
func (r *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("op=session.RedisStore.Get: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("op=session.RedisStore.Get: %w: %v", domain.ErrInternal, err)
	}
	if s.Rephrases == nil {
		s.Rephrases = map[int]int{}
	}
	return &s, nil
}

// Put implements domain.SessionStore.
func (r *RedisStore) Put(ctx context.Context, s *domain.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	now := r.now()
	left := expiry(s, r.ttl, now).Sub(now)
	if left <= 0 {
		return fmt.Errorf("%w: session %s expired", domain.ErrNotFound, s.ID)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("op=session.RedisStore.Put: %w", err)
	}
	if err := r.rdb.Set(ctx, key(s.ID), raw, left).Err(); err != nil {
		return fmt.Errorf("op=session.RedisStore.Put: %w", err)
	}
	return nil
}

// Delete implements domain.SessionStore. Unknown ids are ignored.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("op=session.RedisStore.Delete: %w", err)
	}
	return nil
}

var _ domain.SessionStore = (*RedisStore)(nil)
