// Package store persists per-session storefront state in a key-value
// backend. Every value lives under a scope (the browser session id) and a
// key ("cart", "token").
package store

import (
	"context"
)

// Well-known keys inside a session scope.
const (
	KeyCart  = "cart"
	KeyToken = "token"
)

// KV is a session-scoped key-value surface. Get returns an error wrapping
// apperrors.ErrNotFound when the key is absent.
type KV interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Set(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
}
