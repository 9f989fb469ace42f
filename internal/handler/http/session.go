package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/bookstore/internal/domain"
	"github.com/utafrali/bookstore/internal/storefront"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/httputil"
)

// SessionHandler handles sign-in state for the browser session.
type SessionHandler struct {
	sessions Sessions
	cookie   CookieConfig
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions Sessions, cookie CookieConfig, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookie: cookie, logger: logger}
}

// rotate moves a freshly signed-in session to a new id and re-issues the
// cookie, so an id known before sign-in does not carry the identity.
func (h *SessionHandler) rotate(ctx context.Context, w http.ResponseWriter, sf *storefront.Storefront) {
	setSessionCookie(w, h.cookie, h.sessions.Rotate(ctx, sf))
}

// GetSession handles GET /api/v1/session
//
// The state may be "loading" while a stored credential is being checked.
// With ?wait=true the response is held until that check settles.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		sess, err := sf.WaitSession(ctx)
		if err != nil {
			httputil.WriteError(w, r, apperrors.Network("session", err), h.logger)
			return
		}
		writeData(w, http.StatusOK, sess)
		return
	}

	writeData(w, http.StatusOK, sf.Session())
}

// Login handles POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	sess, err := sf.Login(ctx, creds)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.rotate(ctx, w, sf)

	writeData(w, http.StatusOK, sess)
}

// Register handles POST /api/v1/session/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var profile domain.Profile
	if err := decodeJSON(w, r, &profile); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	sess, err := sf.Register(ctx, profile)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.rotate(ctx, w, sf)

	writeData(w, http.StatusCreated, sess)
}

// Logout handles POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sf.Logout(ctx))
}

// Refresh handles POST /api/v1/session/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	sess, err := sf.Refresh(ctx)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, sess)
}
