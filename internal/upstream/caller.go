// Package upstream performs JSON calls to the collaborating REST backends
// and turns every failure into the storefront error taxonomy.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/httpclient"
	"github.com/utafrali/bookstore/pkg/tracing"
)

const (
	tracerName   = "github.com/utafrali/bookstore/internal/upstream"
	maxBodyBytes = 8 << 20
)

// Caller sends requests to one collaborator through a circuit breaker.
type Caller struct {
	name    string
	baseURL string
	client  httpclient.Doer
	logger  *slog.Logger
}

// NewCaller creates a caller for the collaborator called name at baseURL.
func NewCaller(name, baseURL string, client httpclient.Doer, logger *slog.Logger) *Caller {
	return &Caller{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Name returns the collaborator name used in errors and spans.
func (c *Caller) Name() string {
	return c.name
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Bearer string
}

// Do performs req and returns the response body of a 2xx answer.
//
// Transport failures, timeouts, 5xx answers, and an open breaker become a
// retryable NetworkError. Other non-2xx answers are translated by
// httpclient.ParseResponseError (401 becomes UnauthorizedError, 404
// NotFoundError, and so on).
func (c *Caller) Do(ctx context.Context, req Request) ([]byte, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := httpclient.NewJSONRequest(ctx, req.Method, target, req.Body, req.Bearer)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("build %s request: %w", c.name, err))
	}

	ctx, span := tracing.StartClientSpan(ctx, tracerName, c.name, httpReq)
	body, err := c.do(ctx, httpReq)
	tracing.EndSpan(span, err)
	return body, err
}

func (c *Caller) do(ctx context.Context, httpReq *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.client.Do(ctx, httpReq.WithContext(ctx))
	if err != nil {
		c.logger.WarnContext(ctx, "upstream call failed",
			slog.String("upstream", c.name),
			slog.String("method", httpReq.Method),
			slog.String("path", httpReq.URL.Path),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, c.classify(err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		c.logger.DebugContext(ctx, "upstream returned error status",
			slog.String("upstream", c.name),
			slog.String("path", httpReq.URL.Path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, httpclient.ParseResponseError(resp, c.name)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Network(c.name, fmt.Errorf("read response: %w", err))
	}
	return body, nil
}

func (c *Caller) classify(err error) error {
	var se *httpclient.ServerError
	switch {
	case errors.As(err, &se):
		return apperrors.Network(c.name, se)
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return apperrors.Network(c.name, err)
	default:
		return httpclient.TransportError(c.name, err)
	}
}
