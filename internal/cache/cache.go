// Package cache provides the shared byte-value cache used for resolution
// results, collaborator HTTP responses and embedding vectors. The store is an
// explicit object with a process lifecycle, injected into services rather
// than reached through globals.
package cache

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store is a small byte-oriented cache contract. Add is insert-if-absent and
// reports whether the caller won the insert, so duplicate concurrent lookups
// can collapse to one upstream call.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) bool
}

// MemoryStore wraps patrickmn/go-cache for single-process deployments.
type MemoryStore struct {
	inner *gocache.Cache
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{inner: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.inner.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.inner.Set(key, value, ttl)
}

func (m *MemoryStore) Add(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	return m.inner.Add(key, value, ttl) == nil
}

// RedisStore backs the same contract with Redis so several instances can
// share resolution and embedding caches.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStore(addr string, db int, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		logger: logger,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.WarnContext(ctx, "redis get failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	return val, true
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "redis set failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (r *RedisStore) Add(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		r.logger.WarnContext(ctx, "redis setnx failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return ok
}

// Ping verifies connectivity; main uses it to fail fast on a bad address.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
