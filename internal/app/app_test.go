package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookstore/internal/config"
	"github.com/utafrali/bookstore/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPPort:         8080,
		RequestTimeout:   5 * time.Second,
		BooksAPIURL:      "http://127.0.0.1:1",
		AuthAPIURL:       "http://127.0.0.1:1",
		UpstreamTimeout:  time.Second,
		SessionTTL:       time.Hour,
		SessionIdle:      time.Minute,
		RehydrateTimeout: time.Second,
		AuthRateLimit:    1,
		AuthRateBurst:    5,
		StoreBackend:     config.StoreMemory,
		CORSOrigins:      []string{"http://localhost:3000"},
	}
}

func TestNewApp_MemoryStore(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, a.registry.Len())
}

func TestNewApp_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.StoreBackend = config.StoreRedis
	cfg.RedisHost = mr.Host()
	cfg.RedisPort, _ = strconv.Atoi(mr.Port())

	a, err := NewApp(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.StoreBackend = config.StoreRedis
	cfg.RedisHost = mr.Host()
	cfg.RedisPort, _ = strconv.Atoi(mr.Port())
	mr.Close()

	_, err := NewApp(context.Background(), cfg, logger.Discard())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, 15*time.Minute, sweepInterval(30*time.Minute))
	assert.Equal(t, time.Second, sweepInterval(time.Second))
}
