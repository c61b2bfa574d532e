package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStockCache mimics the Redis stock scripts.
type memStockCache struct {
	stock map[int64]int
	err   error
}

func newMemStockCache() *memStockCache {
	return &memStockCache{stock: make(map[int64]int)}
}

func (c *memStockCache) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, bool, error) {
	if c.err != nil {
		return false, false, c.err
	}
	current, ok := c.stock[productID]
	if !ok {
		return false, false, nil
	}
	if current < quantity {
		return true, false, nil
	}
	c.stock[productID] = current - quantity
	return true, true, nil
}

func (c *memStockCache) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	if c.err != nil {
		return c.err
	}
	if _, ok := c.stock[productID]; ok {
		c.stock[productID] += quantity
	}
	return nil
}

func (c *memStockCache) SetStock(ctx context.Context, productID int64, stock int) error {
	if c.err != nil {
		return c.err
	}
	c.stock[productID] = stock
	return nil
}

func TestInventoryClient(t *testing.T) {
	ctx := context.Background()

	setup := func() (*memStore, *memStockCache, *InventoryClient) {
		store := newMemStore()
		store.addProduct(1, "Print A", "10.00", 5)
		store.addProduct(2, "Print B", "5.00", 2)
		cache := newMemStockCache()
		client := NewInventoryClient(store, cache)
		require.NoError(t, client.SyncStockToCache(ctx))
		return store, cache, client
	}

	t.Run("sync copies stock", func(t *testing.T) {
		_, cache, _ := setup()
		assert.Equal(t, map[int64]int{1: 5, 2: 2}, cache.stock)
	})

	t.Run("decrement updates cache and store", func(t *testing.T) {
		store, cache, client := setup()
		ok, err := client.DecrementStock(ctx, 1, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, cache.stock[1])
		assert.Equal(t, 2, store.stock(1))
	})

	t.Run("store refuses oversell", func(t *testing.T) {
		store, cache, client := setup()
		ok, err := client.DecrementStock(ctx, 2, 3)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 2, cache.stock[2])
		assert.Equal(t, 2, store.stock(2))
	})

	t.Run("cache miss falls back to store", func(t *testing.T) {
		store, cache, client := setup()
		delete(cache.stock, 1)
		ok, err := client.DecrementStock(ctx, 1, 5)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, store.stock(1))
	})

	t.Run("stale short cache defers to store", func(t *testing.T) {
		store, cache, client := setup()
		// Restocked in the database after the cache was seeded.
		require.NoError(t, store.RestoreStock(ctx, 2, 8))

		ok, err := client.DecrementStock(ctx, 2, 5)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 5, store.stock(2))
		assert.Equal(t, 5, cache.stock[2])
	})

	t.Run("cache miss is reseeded", func(t *testing.T) {
		store, cache, client := setup()
		delete(cache.stock, 1)

		ok, err := client.DecrementStock(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, store.stock(1))
		assert.Equal(t, 3, cache.stock[1])
	})

	t.Run("cache error falls back to store", func(t *testing.T) {
		store, cache, client := setup()
		cache.err = errors.New("redis down")
		ok, err := client.DecrementStock(ctx, 1, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 4, store.stock(1))
	})

	t.Run("store refusal restores cache", func(t *testing.T) {
		store, cache, client := setup()
		ok, err := store.DecrementStock(ctx, 1, 4)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = client.DecrementStock(ctx, 1, 3)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 5, cache.stock[1])
		assert.Equal(t, 1, store.stock(1))
	})

	t.Run("restore gives stock back", func(t *testing.T) {
		store, cache, client := setup()
		ok, err := client.DecrementStock(ctx, 1, 2)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, client.RestoreStock(ctx, 1, 2))
		assert.Equal(t, 5, cache.stock[1])
		assert.Equal(t, 5, store.stock(1))
	})
}
