// Package redis implements store.KV on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/bookstore/pkg/errors"
)

const keyPrefix = "storefront:"

// KV stores session-scoped values in Redis under storefront:<scope>:<key>.
// Each read or write pushes the key's expiry out by ttl, so session state
// lives as long as the session is active.
type KV struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewKV creates a Redis-backed KV.
func NewKV(client goredis.UniversalClient, ttl time.Duration) *KV {
	return &KV{client: client, ttl: ttl}
}

// Key returns the Redis key for scope and key.
func Key(scope, key string) string {
	return keyPrefix + scope + ":" + key
}

// Get retrieves a value and refreshes its TTL.
func (r *KV) Get(ctx context.Context, scope, key string) ([]byte, error) {
	data, err := r.client.GetEx(ctx, Key(scope, key), r.ttl).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperrors.NotFound(key, scope)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set writes a value with the configured TTL.
func (r *KV) Set(ctx context.Context, scope, key string, value []byte) error {
	if err := r.client.Set(ctx, Key(scope, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value.
func (r *KV) Delete(ctx context.Context, scope, key string) error {
	if err := r.client.Del(ctx, Key(scope, key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
