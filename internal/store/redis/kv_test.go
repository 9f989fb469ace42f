package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookstore/internal/domain"
	"github.com/utafrali/bookstore/internal/store"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/logger"
)

func setupTestRedis(t *testing.T) (*KV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewKV(client, 24*time.Hour), mr
}

// ---------------------------------------------------------------------------
// KV
// ---------------------------------------------------------------------------

func TestKV_KeyLayout(t *testing.T) {
	kv, mr := setupTestRedis(t)

	require.NoError(t, kv.Set(context.Background(), "sess-1", store.KeyCart, []byte("[]")))

	assert.True(t, mr.Exists("storefront:sess-1:cart"))
	assert.Equal(t, 24*time.Hour, mr.TTL("storefront:sess-1:cart"))
}

func TestKV_GetMissing(t *testing.T) {
	kv, _ := setupTestRedis(t)

	_, err := kv.Get(context.Background(), "sess-1", store.KeyToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestKV_GetRefreshesTTL(t *testing.T) {
	kv, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "sess-1", store.KeyToken, []byte("tok")))
	mr.FastForward(12 * time.Hour)
	assert.Equal(t, 12*time.Hour, mr.TTL(Key("sess-1", store.KeyToken)))

	got, err := kv.Get(ctx, "sess-1", store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(got))
	assert.Equal(t, 24*time.Hour, mr.TTL(Key("sess-1", store.KeyToken)))
}

func TestKV_Expiry(t *testing.T) {
	kv, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "sess-1", store.KeyCart, []byte("[]")))
	mr.FastForward(25 * time.Hour)

	_, err := kv.Get(ctx, "sess-1", store.KeyCart)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestKV_Delete(t *testing.T) {
	kv, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "sess-1", store.KeyToken, []byte("tok")))
	require.NoError(t, kv.Delete(ctx, "sess-1", store.KeyToken))
	assert.False(t, mr.Exists(Key("sess-1", store.KeyToken)))

	require.NoError(t, kv.Delete(ctx, "sess-1", store.KeyToken))
}

func TestKV_ConnectionError(t *testing.T) {
	kv, mr := setupTestRedis(t)
	mr.Close()

	_, err := kv.Get(context.Background(), "sess-1", store.KeyCart)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, err.Error(), "redis get")

	assert.Error(t, kv.Set(context.Background(), "sess-1", store.KeyCart, nil))
}

// ---------------------------------------------------------------------------
// Stores over Redis
// ---------------------------------------------------------------------------

func TestCartStore_RoundTripOverRedis(t *testing.T) {
	kv, _ := setupTestRedis(t)
	ctx := context.Background()
	cs := store.NewCartStore(kv, "sess-1", logger.Discard())

	cart := domain.Cart{Items: []domain.LineItem{
		{ID: "1", Title: "Dune", Price: decimal.RequireFromString("12.50"), Quantity: 2},
		{ID: "2", Title: "Emma", Price: decimal.RequireFromString("9.99"), Quantity: 1},
	}}
	cs.Save(ctx, cart)

	got := cs.Load(ctx)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 3, got.ItemCount())
	assert.Equal(t, "34.99", got.TotalPrice().StringFixed(2))
}

func TestCartStore_CorruptRedisValue(t *testing.T) {
	kv, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(Key("sess-1", store.KeyCart), "\x00\x01garbage"))

	got := store.NewCartStore(kv, "sess-1", logger.Discard()).Load(context.Background())
	assert.True(t, got.IsEmpty())
}

func TestTokenStore_OverRedis(t *testing.T) {
	kv, _ := setupTestRedis(t)
	ctx := context.Background()
	ts := store.NewTokenStore(kv, "sess-1")

	require.NoError(t, ts.Save(ctx, "jwt"))
	tok, err := ts.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok)
}
