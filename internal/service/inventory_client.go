package service

import (
	"context"
	"fmt"

	"gallery-shop/internal/models"
	"gallery-shop/internal/util"

	"go.uber.org/zap"
)

// StockCache mirrors product stock for fast atomic checks. DecrementStock
// reports found=false when the product is not cached.
type StockCache interface {
	DecrementStock(ctx context.Context, productID int64, quantity int) (found, decremented bool, err error)
	RestoreStock(ctx context.Context, productID int64, quantity int) error
	SetStock(ctx context.Context, productID int64, stock int) error
}

// StockStore is the durable stock record.
type StockStore interface {
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)
	RestoreStock(ctx context.Context, productID int64, quantity int) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// InventoryClient decrements stock at checkout. The cache takes the common
// case in one round trip; the database remains the source of truth and
// decides whenever the cache cannot confirm the decrement.
type InventoryClient struct {
	store  StockStore
	cache  StockCache
	logger *zap.Logger
}

// NewInventoryClient creates a new inventory client
func NewInventoryClient(store StockStore, cache StockCache) *InventoryClient {
	return &InventoryClient{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// DecrementStock removes quantity from the product's stock. It returns false
// when the database does not hold enough stock.
func (ic *InventoryClient) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	ctx, span := util.StartSpan(ctx, "InventoryClient.DecrementStock")
	defer span.End()

	cacheUp := true
	found, cached, err := ic.cache.DecrementStock(ctx, productID, quantity)
	if err != nil {
		ic.logger.Warn("Stock cache decrement failed, falling back to DB",
			zap.Int64("product_id", productID),
			zap.Error(err))
		cacheUp, found, cached = false, false, false
	}

	if !cached {
		// A short or missing cache entry may be stale after a restock.
		util.StockCacheFallbacksTotal.Inc()
		if found {
			ic.logger.Debug("Cached stock short, checking DB", zap.Int64("product_id", productID))
		}
	}

	ok, err := ic.store.DecrementStock(ctx, productID, quantity)
	if err != nil || !ok {
		if cached {
			ic.restoreCache(ctx, productID, quantity)
		}
		return false, err
	}

	if !cached && cacheUp {
		ic.resyncCache(ctx, productID)
	}
	return true, nil
}

// resyncCache copies the product's current database stock into the cache.
func (ic *InventoryClient) resyncCache(ctx context.Context, productID int64) {
	product, err := ic.store.GetProductByID(ctx, productID)
	if err != nil || product == nil {
		ic.logger.Warn("Failed to read stock for cache resync",
			zap.Int64("product_id", productID),
			zap.Error(err))
		return
	}
	if err := ic.cache.SetStock(ctx, productID, product.Stock); err != nil {
		ic.logger.Error("Failed to resync cached stock",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// RestoreStock gives back quantity previously decremented.
func (ic *InventoryClient) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.RestoreStock")
	defer span.End()

	if err := ic.store.RestoreStock(ctx, productID, quantity); err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	ic.restoreCache(ctx, productID, quantity)
	return nil
}

func (ic *InventoryClient) restoreCache(ctx context.Context, productID int64, quantity int) {
	if err := ic.cache.RestoreStock(ctx, productID, quantity); err != nil {
		ic.logger.Error("Failed to restore stock in cache",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// SyncStockToCache copies every product's stock from the database to the cache.
func (ic *InventoryClient) SyncStockToCache(ctx context.Context) error {
	ic.logger.Info("Starting stock sync to cache")

	products, err := ic.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for _, product := range products {
		if err := ic.cache.SetStock(ctx, product.ID, product.Stock); err != nil {
			ic.logger.Error("Failed to init cached stock",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}

	ic.logger.Info("Stock sync completed", zap.Int("count", len(products)))
	return nil
}
