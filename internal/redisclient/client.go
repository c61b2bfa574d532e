package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

//go:embed scripts/restore_stock.lua
var restoreStockScript string

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb             *redis.Client
	decrementScript *redis.Script
	restoreScript   *redis.Script
	releaseScript   *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:             rdb,
		decrementScript: redis.NewScript(decrementStockScript),
		restoreScript:   redis.NewScript(restoreStockScript),
		releaseScript:   redis.NewScript(releaseLockScript),
	}, nil
}

// Ping checks the connection; used by the readiness check.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// DecrementStock atomically takes quantity from the cached stock.
// found is false when the product has no cached stock.
func (c *Client) DecrementStock(ctx context.Context, productID int64, quantity int) (found, decremented bool, err error) {
	result, err := c.decrementScript.Run(ctx, c.rdb, []string{stockKey(productID)}, quantity).Int64()
	if err != nil {
		return false, false, fmt.Errorf("decrement stock script failed: %w", err)
	}

	switch result {
	case -1:
		return false, false, nil
	case 0:
		return true, false, nil
	case 1:
		return true, true, nil
	default:
		return false, false, fmt.Errorf("unexpected script result %d", result)
	}
}

// RestoreStock atomically gives quantity back to a cached product.
func (c *Client) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	if err := c.restoreScript.Run(ctx, c.rdb, []string{stockKey(productID)}, quantity).Err(); err != nil {
		return fmt.Errorf("restore stock script failed: %w", err)
	}
	return nil
}

// SetStock seeds the cached stock for a product
func (c *Client) SetStock(ctx context.Context, productID int64, stock int) error {
	return c.rdb.Set(ctx, stockKey(productID), stock, 0).Err()
}

// RememberOrder records the order a checkout idempotency key produced.
func (c *Client) RememberOrder(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), orderID, ttl).Err()
}

// RecallOrder looks up the order for an idempotency key.
func (c *Client) RecallOrder(ctx context.Context, key string) (int64, bool, error) {
	orderID, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return orderID, true, nil
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// AcquireLock acquires a distributed lock. The returned token identifies
// this holder and must be passed to ReleaseLock.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	acquired, err := c.rdb.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil || !acquired {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock releases the lock if token still holds it. A lock that expired
// and was taken by another holder is left alone.
func (c *Client) ReleaseLock(ctx context.Context, name, token string) error {
	if err := c.releaseScript.Run(ctx, c.rdb, []string{lockKey(name)}, token).Err(); err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}
