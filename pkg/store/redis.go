package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// DefaultNamespace prefixes every key written by Redis.
const DefaultNamespace = "admin"

// Redis is a Store backed by a Redis server, so several client processes
// (CLI invocations, workers) share one session.
type Redis struct {
	redis     *redis.Client
	namespace string
	scope     map[string]string
}

// NewRedis creates a Redis store. scope may be nil.
func NewRedis(redisClient *redis.Client, namespace string, scope map[string]string) *Redis {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Redis{
		redis:     redisClient,
		namespace: namespace,
		scope:     scope,
	}
}

func (r *Redis) key(name string) string {
	return Key{Namespace: r.namespace, Name: name, Scope: r.scope}.String()
}

// Get retrieves a value. Returns ErrNotFound if the key doesn't exist.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	Operations.WithLabelValues(backendRedis, "get").Inc()

	value, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			Misses.WithLabelValues(backendRedis).Inc()
			return "", ErrNotFound
		}
		Errors.WithLabelValues(backendRedis, "get").Inc()
		return "", fmt.Errorf("redis get: %w", err)
	}

	return value, nil
}

// Set stores a value without expiry.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	Operations.WithLabelValues(backendRedis, "set").Inc()

	if err := r.redis.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		Errors.WithLabelValues(backendRedis, "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a value. Deleting an absent key is not an error.
func (r *Redis) Delete(ctx context.Context, key string) error {
	Operations.WithLabelValues(backendRedis, "delete").Inc()

	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		Errors.WithLabelValues(backendRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
