package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Second)

	s := newSession("abc", created)
	s.Answers = []string{"first"}
	s.Evaluations = []*domain.Evaluation{{Correctness: 3, Depth: 2, Clarity: 4, Feedback: "ok"}}
	s.Cursor = 1
	s.Rephrases = map[int]int{0: 2}
	require.NoError(t, store.Put(ctx, s))

	assert.True(t, mr.Exists(KeyPrefix+"abc"))
	ttl := mr.TTL(KeyPrefix + "abc")
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, "ttl=%s", ttl)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, s.Evaluations, got.Evaluations)
	assert.Equal(t, 2, got.Rephrases[0])
	assert.Equal(t, 1, got.Cursor)
	assert.True(t, created.Equal(got.CreatedAt))

	require.NoError(t, store.Delete(ctx, "abc"))
	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRedisStore_Expiry(t *testing.T) {
	t.Parallel()
	store, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newSession("short", time.Now())))
	mr.FastForward(61 * time.Minute)
	_, err := store.Get(ctx, "short")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = store.Put(ctx, newSession("stale", time.Now().Add(-2*time.Hour)))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, mr.Exists(KeyPrefix+"stale"))
}

func TestRedisStore_Errors(t *testing.T) {
	t.Parallel()
	store, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	err := store.Put(ctx, &domain.Session{})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	require.NoError(t, mr.Set(KeyPrefix+"bad", "{not json"))
	_, err = store.Get(ctx, "bad")
	assert.True(t, errors.Is(err, domain.ErrInternal))

	mr.Close()
	_, err = store.Get(ctx, "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}
