// Package auth talks to the user-account backend: registration, login,
// current-user lookup, and token refresh.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utafrali/bookstore/internal/coerce"
	"github.com/utafrali/bookstore/internal/domain"
	"github.com/utafrali/bookstore/internal/upstream"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
)

// Result is the outcome of a successful login or registration.
type Result struct {
	Token    string
	Identity domain.Identity
}

// Client calls the account backend.
type Client struct {
	caller *upstream.Caller
	logger *slog.Logger
}

// NewClient creates an account backend client.
func NewClient(caller *upstream.Caller, logger *slog.Logger) *Client {
	return &Client{caller: caller, logger: logger}
}

// Register creates an account. The backend signs the new user in and
// answers with a token and the user record.
func (c *Client) Register(ctx context.Context, p domain.Profile) (Result, error) {
	body, err := c.caller.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   p,
	})
	if err != nil {
		return Result{}, err
	}
	return c.decodeResult(ctx, body)
}

// Login exchanges credentials for a token. Rejected credentials come back
// as an UnauthorizedError.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (Result, error) {
	body, err := c.caller.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   creds,
	})
	if err != nil {
		return Result{}, err
	}
	return c.decodeResult(ctx, body)
}

// Me returns the identity bound to token. A 401 means the token is no
// longer accepted.
func (c *Client) Me(ctx context.Context, token string) (domain.Identity, error) {
	body, err := c.caller.Do(ctx, upstream.Request{
		Method: http.MethodGet,
		Path:   "/auth/me",
		Bearer: token,
	})
	if err != nil {
		return domain.Identity{}, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.Identity{}, apperrors.DataShape(c.caller.Name(), "current user is not an object")
	}
	if inner, ok := envelope["user"]; ok && bytes.HasPrefix(bytes.TrimSpace(inner), []byte("{")) {
		body = inner
	}
	return c.decodeIdentity(ctx, body)
}

// Refresh exchanges a still-valid token for a fresh one.
func (c *Client) Refresh(ctx context.Context, token string) (string, error) {
	body, err := c.caller.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Bearer: token,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		return "", apperrors.DataShape(c.caller.Name(), "refresh response has no token")
	}
	return resp.Token, nil
}

func (c *Client) decodeResult(ctx context.Context, body []byte) (Result, error) {
	var resp struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, apperrors.DataShape(c.caller.Name(), fmt.Sprintf("decode auth response: %v", err))
	}
	if resp.Token == "" {
		return Result{}, apperrors.DataShape(c.caller.Name(), "auth response has no token")
	}

	identity, err := c.decodeIdentity(ctx, resp.User)
	if err != nil {
		return Result{}, err
	}
	return Result{Token: resp.Token, Identity: identity}, nil
}

func (c *Client) decodeIdentity(ctx context.Context, raw []byte) (domain.Identity, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return domain.Identity{}, apperrors.DataShape(c.caller.Name(), "user record is not an object")
	}

	var warnings coerce.Warnings
	idRaw, _ := coerce.First(obj, "id", "user_id")
	nameRaw, _ := coerce.First(obj, "name", "username", "user_name")

	identity := domain.Identity{
		ID:        coerce.String(idRaw, "id", &warnings),
		Name:      coerce.String(nameRaw, "name", &warnings),
		Email:     coerce.String(obj["email"], "email", &warnings),
		CreatedAt: coerce.Time(obj["created_at"], "created_at", &warnings),
	}
	if identity.ID == "" {
		return domain.Identity{}, apperrors.DataShape(c.caller.Name(), "user record has no id")
	}
	for _, w := range warnings {
		c.logger.WarnContext(ctx, "user record coerced", slog.String("warning", w))
	}
	return identity, nil
}
