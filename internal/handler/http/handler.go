package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/utafrali/bookstore/internal/storefront"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/httputil"
	"github.com/utafrali/bookstore/pkg/logger"
)

// maxBodyBytes caps request bodies. The largest is the sell form.
const maxBodyBytes = 64 << 10

// Sessions hands out the storefront for a browser session.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*storefront.Storefront, error)
	Rotate(ctx context.Context, sf *storefront.Storefront) string
}

// openStorefront returns the caller's storefront. When the session is
// signed in, the user id is added to the context and its logger.
func openStorefront(r *http.Request, sessions Sessions) (*storefront.Storefront, context.Context, error) {
	ctx := r.Context()
	id, _ := sessionIDFromContext(ctx)
	sf, err := sessions.Get(ctx, id)
	if err != nil {
		return nil, ctx, err
	}

	if s := sf.Session(); s.Authenticated() {
		ctx = logger.WithUserID(ctx, s.Identity.ID)
		ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", s.Identity.ID)))
	}
	return sf, ctx, nil
}

// decodeJSON reads the request body into dst. Malformed bodies are reported
// as invalid input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.InvalidInput("request body too large")
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("request body is required")
		default:
			return apperrors.InvalidInput("invalid request body")
		}
	}
	return nil
}

func writeData(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, httputil.Response{Data: data})
}
