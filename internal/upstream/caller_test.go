package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/httpclient"
	"github.com/utafrali/bookstore/pkg/logger"
)

func newTestCaller(t *testing.T, h http.HandlerFunc) *Caller {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCaller("books", srv.URL+"/", httpclient.New(httpclient.DefaultConfig()), logger.Discard())
}

func TestCaller_Do_SendsJSONAndBearer(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotType string
	var gotBody map[string]any
	c := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	body, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/books",
		Query:  url.Values{"page": {"2"}},
		Body:   map[string]string{"title": "Dune"},
		Bearer: "tok",
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "/books", gotPath)
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "Dune", gotBody["title"])
}

func TestCaller_Do_MapsStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"token expired"}`, apperrors.ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"error":"Book not found"}`, apperrors.ErrNotFound},
		{"bad request", http.StatusBadRequest, `{"price":["must be positive"]}`, apperrors.ErrInvalidInput},
		{"server error", http.StatusInternalServerError, `boom`, apperrors.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCaller(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestCaller_Do_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	c := NewCaller("books", srv.URL, httpclient.New(cfg), logger.Discard())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/slow"})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestCaller_Do_BreakerServerErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("upstream-test"),
		logger.Discard(),
	)
	c := NewCaller("books", srv.URL, cb, logger.Discard())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))

	var se *httpclient.ServerError
	assert.True(t, errors.As(err, &se))
}

func TestCaller_Name(t *testing.T) {
	c := NewCaller("auth", "http://x", httpclient.New(httpclient.DefaultConfig()), logger.Discard())
	assert.Equal(t, "auth", c.Name())
}
