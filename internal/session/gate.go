// Package session tracks who is signed in for one browser session and gates
// the operations that need an identity.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/bookstore/internal/auth"
	"github.com/utafrali/bookstore/internal/domain"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/validator"
)

// Authenticator is the account backend.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (auth.Result, error)
	Register(ctx context.Context, p domain.Profile) (auth.Result, error)
	Me(ctx context.Context, token string) (domain.Identity, error)
	Refresh(ctx context.Context, token string) (string, error)
}

// TokenStore persists the bearer credential between visits.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

const defaultRehydrateTimeout = 10 * time.Second

// Option configures a Gate.
type Option func(*Gate)

// WithRehydrateTimeout bounds the background identity check.
func WithRehydrateTimeout(d time.Duration) Option {
	return func(g *Gate) { g.timeout = d }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// Gate holds one session's identity and credential.
//
// Every change of identity bumps a generation counter. A background
// rehydration only applies its result if the generation it started with is
// still current, so an explicit Login or Logout always wins.
type Gate struct {
	auth   Authenticator
	tokens TokenStore
	logger *slog.Logger

	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	session    domain.Session
	generation uint64
	settled    chan struct{}
}

// NewGate creates an anonymous gate. Call Rehydrate to restore a stored
// credential.
func NewGate(a Authenticator, tokens TokenStore, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		auth:    a,
		tokens:  tokens,
		logger:  logger,
		timeout: defaultRehydrateTimeout,
		now:     time.Now,
		session: domain.AnonymousSession(),
		settled: make(chan struct{}),
	}
	close(g.settled)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Current returns the session without blocking. The state is loading while
// a rehydration is pending.
func (g *Gate) Current() domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Require returns the session if it is authenticated.
func (g *Gate) Require() (domain.Session, error) {
	s := g.Current()
	if !s.Authenticated() {
		return s, apperrors.Unauthorized("please sign in to continue")
	}
	return s, nil
}

// Wait blocks until no rehydration is pending or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	settled := g.settled
	g.mu.Unlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rehydrate restores the identity behind the stored credential in the
// background. The session is loading until it finishes.
func (g *Gate) Rehydrate(ctx context.Context) {
	g.mu.Lock()
	g.generation++
	gen := g.generation
	g.session = domain.Session{State: domain.SessionLoading}
	g.settled = make(chan struct{})
	tokens := g.tokens
	g.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		g.rehydrate(ctx, gen, tokens)
	}()
}

func (g *Gate) rehydrate(ctx context.Context, gen uint64, tokens TokenStore) {
	token, err := tokens.Load(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "token load failed", slog.String("error", err.Error()))
		g.settle(gen, domain.AnonymousSession())
		return
	}
	if token == "" {
		g.settle(gen, domain.AnonymousSession())
		return
	}

	if tokenExpired(token, g.now()) {
		g.logger.InfoContext(ctx, "stored token expired, dropping it")
		g.dropIfCurrent(ctx, gen)
		return
	}

	identity, err := g.auth.Me(ctx, token)
	switch {
	case err == nil:
		g.settle(gen, domain.Session{
			State:    domain.SessionAuthenticated,
			Identity: &identity,
			Token:    token,
		})
	case errors.Is(err, apperrors.ErrUnauthorized):
		g.logger.InfoContext(ctx, "stored token rejected, dropping it")
		g.dropIfCurrent(ctx, gen)
	default:
		// The credential may still be good; keep it for the next visit.
		g.logger.WarnContext(ctx, "identity check failed", slog.String("error", err.Error()))
		g.settle(gen, domain.AnonymousSession())
	}
}

// settle applies s if gen is still current.
func (g *Gate) settle(gen uint64, s domain.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation {
		return
	}
	g.session = s
	g.markSettledLocked()
}

// dropIfCurrent signs out and deletes the stored credential if gen is still
// current. The lock is held across the delete so that a sign-in cannot save
// its credential in between and then lose it.
func (g *Gate) dropIfCurrent(ctx context.Context, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation {
		return
	}
	if err := g.tokens.Delete(ctx); err != nil {
		g.logger.WarnContext(ctx, "token delete failed", slog.String("error", err.Error()))
	}
	g.session = domain.AnonymousSession()
	g.markSettledLocked()
}

func (g *Gate) markSettledLocked() {
	select {
	case <-g.settled:
	default:
		close(g.settled)
	}
}

// Login exchanges credentials for a session. On failure the previous
// session is left as it was.
func (g *Gate) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := validator.Validate(creds); err != nil {
		return g.Current(), err
	}
	res, err := g.auth.Login(ctx, creds)
	if err != nil {
		return g.Current(), err
	}
	return g.signIn(ctx, res), nil
}

// Register creates an account and signs it in, with the same contract as
// Login.
func (g *Gate) Register(ctx context.Context, p domain.Profile) (domain.Session, error) {
	if err := validator.Validate(p); err != nil {
		return g.Current(), err
	}
	res, err := g.auth.Register(ctx, p)
	if err != nil {
		return g.Current(), err
	}
	return g.signIn(ctx, res), nil
}

func (g *Gate) signIn(ctx context.Context, res auth.Result) domain.Session {
	identity := res.Identity
	s := domain.Session{
		State:    domain.SessionAuthenticated,
		Identity: &identity,
		Token:    res.Token,
	}

	g.mu.Lock()
	g.generation++
	g.session = s
	g.markSettledLocked()
	tokens := g.tokens
	g.mu.Unlock()

	if err := tokens.Save(ctx, res.Token); err != nil {
		g.logger.WarnContext(ctx, "token save failed, session will not survive a restart",
			slog.String("error", err.Error()),
		)
	}
	g.logger.InfoContext(ctx, "signed in", slog.String("user_id", identity.ID))
	return s
}

// Logout forgets the identity and the stored credential. It never fails.
func (g *Gate) Logout(ctx context.Context) {
	g.mu.Lock()
	g.generation++
	g.session = domain.AnonymousSession()
	g.markSettledLocked()
	tokens := g.tokens
	g.mu.Unlock()

	if err := tokens.Delete(ctx); err != nil {
		g.logger.WarnContext(ctx, "token delete failed", slog.String("error", err.Error()))
	}
}

// Rebind moves the stored credential to tokens, which replaces the current
// token store.
func (g *Gate) Rebind(ctx context.Context, tokens TokenStore) {
	g.mu.Lock()
	defer g.mu.Unlock()

	old := g.tokens
	g.tokens = tokens

	token := g.session.Token
	if token == "" {
		stored, err := old.Load(ctx)
		if err != nil {
			g.logger.WarnContext(ctx, "token load failed", slog.String("error", err.Error()))
		}
		token = stored
	}
	if token != "" {
		if err := tokens.Save(ctx, token); err != nil {
			g.logger.WarnContext(ctx, "token save failed", slog.String("error", err.Error()))
		}
	}
	if err := old.Delete(ctx); err != nil {
		g.logger.WarnContext(ctx, "token delete failed", slog.String("error", err.Error()))
	}
}

// Refresh exchanges the current credential for a fresh one.
func (g *Gate) Refresh(ctx context.Context) (domain.Session, error) {
	s, err := g.Require()
	if err != nil {
		return s, err
	}

	token, err := g.auth.Refresh(ctx, s.Token)
	if err != nil {
		return g.Current(), g.Authorize(ctx, err)
	}

	g.mu.Lock()
	if g.session.Token != s.Token {
		current := g.session
		g.mu.Unlock()
		return current, nil
	}
	g.session.Token = token
	s = g.session
	tokens := g.tokens
	g.mu.Unlock()

	if err := tokens.Save(ctx, token); err != nil {
		g.logger.WarnContext(ctx, "token save failed", slog.String("error", err.Error()))
	}
	return s, nil
}

// Authorize inspects the error of a credentialed call. An Unauthorized
// failure means the credential is no longer accepted, so the session is
// logged out before err is returned.
func (g *Gate) Authorize(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, apperrors.ErrUnauthorized) {
		g.logger.InfoContext(ctx, "credential rejected by backend, signing out")
		g.Logout(ctx)
	}
	return err
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Tokens that are not JWTs are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
