package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/utafrali/bookstore/pkg/errors"
)

// TokenStore holds one session's bearer credential.
type TokenStore struct {
	kv    KV
	scope string
}

// NewTokenStore binds a token store to a session scope.
func NewTokenStore(kv KV, scope string) *TokenStore {
	return &TokenStore{kv: kv, scope: scope}
}

// Load returns the stored credential, or "" when there is none.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	data, err := s.kv.Get(ctx, s.scope, KeyToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load token: %w", err)
	}
	return string(data), nil
}

// Save stores the credential.
func (s *TokenStore) Save(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, s.scope, KeyToken, []byte(token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Delete forgets the credential.
func (s *TokenStore) Delete(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.scope, KeyToken); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
