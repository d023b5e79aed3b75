package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiddeo/internal/cart"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	cli := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		t.Skipf("Failed to ping test redis: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	return cli
}

func TestCartRepository_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewCartRepository(db)

	userID := fmt.Sprintf("test-user-%d", time.Now().UnixNano())
	t.Cleanup(func() { repo.Delete(ctx, userID, "Москва") })

	snap, err := repo.Load(ctx, userID, "Москва")
	require.NoError(t, err)
	assert.Nil(t, snap)

	first := cart.Snapshot{Items: []cart.Item{{ID: "p1", Type: cart.ItemProduct, Price: 100, Quantity: 1}}, Total: 100, ItemCount: 1}
	second := cart.Snapshot{Items: []cart.Item{{ID: "p1", Type: cart.ItemProduct, Price: 100, Quantity: 3}}, Total: 300, ItemCount: 3}
	require.NoError(t, repo.Save(ctx, userID, "Москва", first))
	require.NoError(t, repo.Save(ctx, userID, "Москва", second))

	snap, err = repo.Load(ctx, userID, "Москва")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, second, *snap)
}

func TestRedisCartStore_RoundTripAndNotify(t *testing.T) {
	cli := setupTestRedis(t)
	ctx := context.Background()
	store := NewRedisCartStore(cli, time.Minute)

	key := fmt.Sprintf("test:cart:%d", time.Now().UnixNano())
	t.Cleanup(func() { store.Delete(ctx, key) })

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, data)

	events, cancel, err := store.Subscribe(ctx, key)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, store.Set(ctx, key, []byte(`{"items":[]}`), "tab-1"))

	select {
	case origin := <-events:
		assert.Equal(t, "tab-1", origin)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	data, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(data))

	ttl, err := cli.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, key))
	data, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, data)
}
