package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrank/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(&config.Config{})
	cache := NewCache(client, "stockrank")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	assert.NoError(t, cache.Delete(ctx, "key"))

	ttl, err := cache.TTL(ctx, "key")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestCacheKeys(t *testing.T) {
	client, _ := New(&config.Config{})
	cache := NewCache(client, "stockrank")

	assert.Equal(t, "stockdata:U1234567", StockDataKey("U1234567"))
	assert.Equal(t, "stockrank:cache:stockdata:U1234567", cache.Key(StockDataKey("U1234567")))
}

func TestCache_Mock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromRedis(db), "stockrank")
	ctx := context.Background()

	type entry struct {
		Ticker string  `json:"ticker"`
		Price  float64 `json:"price"`
	}
	key := "stockrank:cache:aapl"

	t.Run("set", func(t *testing.T) {
		mock.ExpectSet(key, []byte(`{"ticker":"AAPL","price":189.5}`), time.Minute).SetVal("OK")
		require.NoError(t, cache.Set(ctx, "aapl", entry{"AAPL", 189.5}, time.Minute))
	})

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet(key).SetVal(`{"ticker":"AAPL","price":189.5}`)
		var got entry
		found, err := cache.Get(ctx, "aapl", &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, entry{"AAPL", 189.5}, got)
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet(key).RedisNil()
		var got entry
		found, err := cache.Get(ctx, "aapl", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))
		var got entry
		_, err := cache.Get(ctx, "aapl", &got)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("ttl", func(t *testing.T) {
		mock.ExpectTTL(key).SetVal(30 * time.Second)
		ttl, err := cache.TTL(ctx, "aapl")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, ttl)

		// 키 없음 = -2
		mock.ExpectTTL(key).SetVal(-2)
		ttl, err = cache.TTL(ctx, "aapl")
		require.NoError(t, err)
		assert.Zero(t, ttl)
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectDel(key).SetVal(1)
		require.NoError(t, cache.Delete(ctx, "aapl"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Integration test, requires a running Redis
func TestCache_RoundTrip(t *testing.T) {
	if testing.Short() || os.Getenv("REDIS_TEST") == "" {
		t.Skip("skipping redis integration test (set REDIS_TEST=1)")
	}

	client, err := New(&config.Config{Redis: config.RedisConfig{
		Host: "localhost", Port: "6379", Enabled: true,
	}})
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "stockrank_test")
	ctx := context.Background()

	type entry struct {
		Ticker string  `json:"ticker"`
		Price  float64 `json:"price"`
	}
	require.NoError(t, cache.Set(ctx, "aapl", entry{"AAPL", 189.5}, time.Minute))

	var got entry
	found, err := cache.Get(ctx, "aapl", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entry{"AAPL", 189.5}, got)

	require.NoError(t, cache.Delete(ctx, "aapl"))
	found, err = cache.Get(ctx, "aapl", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
