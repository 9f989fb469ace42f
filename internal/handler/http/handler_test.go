package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookstore/internal/auth"
	"github.com/utafrali/bookstore/internal/catalog"
	"github.com/utafrali/bookstore/internal/domain"
	"github.com/utafrali/bookstore/internal/event"
	"github.com/utafrali/bookstore/internal/storefront"
	"github.com/utafrali/bookstore/internal/store"
	"github.com/utafrali/bookstore/pkg/health"
	"github.com/utafrali/bookstore/pkg/httputil"
	pkgkafka "github.com/utafrali/bookstore/pkg/kafka"
	"github.com/utafrali/bookstore/pkg/middleware"
)

// ============================================================================
// Mock Catalog (read and write side)
// ============================================================================

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListBooks(ctx context.Context, p catalog.ListParams) ([]domain.Book, error) {
	args := m.Called(ctx, p)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockCatalog) SearchBooks(ctx context.Context, p catalog.SearchParams) ([]domain.Book, error) {
	args := m.Called(ctx, p)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockCatalog) FeaturedBooks(ctx context.Context, limit int) ([]domain.Book, error) {
	args := m.Called(ctx, limit)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockCatalog) GetBook(ctx context.Context, id string) (domain.Book, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Book), args.Error(1)
}

func (m *mockCatalog) ListSellers(ctx context.Context) ([]domain.Seller, error) {
	args := m.Called(ctx)
	sellers, _ := args.Get(0).([]domain.Seller)
	return sellers, args.Error(1)
}

func (m *mockCatalog) GetSeller(ctx context.Context, id string) (domain.Seller, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Seller), args.Error(1)
}

func (m *mockCatalog) CreateBook(ctx context.Context, token, sellerID string, l catalog.Listing) (domain.Book, error) {
	args := m.Called(ctx, token, sellerID, l)
	return args.Get(0).(domain.Book), args.Error(1)
}

func (m *mockCatalog) UpdateBook(ctx context.Context, token, id, sellerID string, l catalog.Listing) (domain.Book, error) {
	args := m.Called(ctx, token, id, sellerID, l)
	return args.Get(0).(domain.Book), args.Error(1)
}

func (m *mockCatalog) DeleteBook(ctx context.Context, token, id string) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

// ============================================================================
// Mock Authenticator
// ============================================================================

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Login(ctx context.Context, creds domain.Credentials) (auth.Result, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(auth.Result), args.Error(1)
}

func (m *mockAuthenticator) Register(ctx context.Context, p domain.Profile) (auth.Result, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(auth.Result), args.Error(1)
}

func (m *mockAuthenticator) Me(ctx context.Context, token string) (domain.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *mockAuthenticator) Refresh(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	router  http.Handler
	catalog *mockCatalog
	auth    *mockAuthenticator
}

type envOption func(*RouterConfig)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := testLogger()
	env := &testEnv{catalog: new(mockCatalog), auth: new(mockAuthenticator)}

	registry := storefront.NewRegistry(storefront.Deps{
		KV:      store.NewMemory(time.Hour),
		Auth:    env.auth,
		Catalog: env.catalog,
		Events:  event.NewProducer(pkgkafka.NopPublisher{}, logger),
		Logger:  logger,
	}, time.Hour, logger)
	t.Cleanup(registry.Close)

	cfg := RouterConfig{
		Sessions:      registry,
		Catalog:       env.catalog,
		Health:        health.NewHandler(time.Second),
		Logger:        logger,
		Cookie:        CookieConfig{MaxAge: time.Hour},
		CORS:          middleware.DefaultCORSConfig(),
		CatalogMaxAge: time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	env.router = NewRouter(cfg)
	return env
}

// do sends a request, replaying cookie when given.
func (e *testEnv) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// doRaw sends a body with an explicit content type and no cookie.
func (e *testEnv) doRaw(method, path, body, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// newSession makes one request to obtain a session cookie.
func (e *testEnv) newSession(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := sessionCookie(rec)
	require.NotNil(t, c)
	return c
}

// login signs the session in as reader@example.com and returns the
// session cookie issued for the signed-in session.
func (e *testEnv) login(t *testing.T, cookie *http.Cookie) *http.Cookie {
	t.Helper()
	e.auth.On("Login", mock.Anything, domain.Credentials{Email: "reader@example.com", Password: "secret1"}).
		Return(auth.Result{Token: "tok-1", Identity: domain.Identity{ID: "u-1", Name: "Reader", Email: "reader@example.com"}}, nil).Once()

	rec := e.do(http.MethodPost, "/api/v1/session/login", `{"email":"reader@example.com","password":"secret1"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	issued := sessionCookie(rec)
	require.NotNil(t, issued)
	return issued
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCookieName {
			return c
		}
	}
	return nil
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}
