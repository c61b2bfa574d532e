package service

import (
	"context"
	"time"

	"gallery-shop/internal/models"

	"github.com/shopspring/decimal"
)

// Lookups return (nil, nil) when the record does not exist.

// ProductRepository reads catalog records.
type ProductRepository interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// DiscountRepository reads promotional codes.
type DiscountRepository interface {
	GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error)
	GetDiscountByID(ctx context.Context, id int64) (*models.Discount, error)
}

// CartRepository persists carts and their line items. UpsertCartItem must be
// keyed on (cart, product) so concurrent writers never create two lines.
type CartRepository interface {
	GetCartByID(ctx context.Context, id int64) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartBySessionToken(ctx context.Context, token string) (*models.Cart, error)
	CreateCart(ctx context.Context, cart *models.Cart) error
	UpsertCartItem(ctx context.Context, cartID, productID int64, quantity int) error
	DeleteCartItem(ctx context.Context, cartID, productID int64) error
	ClearCartItems(ctx context.Context, cartID int64) error
	SetCartDiscount(ctx context.Context, cartID int64, discountID *int64) error
	DeleteCart(ctx context.Context, cartID int64) error
}

// OrderRepository persists orders. CreateOrderTx stores the order and its
// items atomically. MarkOrderPaid reports false when the order was already paid.
type OrderRepository interface {
	CreateOrderTx(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	MarkOrderPaid(ctx context.Context, orderID int64) (bool, error)
}

// ProcessedEventLog deduplicates consumed events.
type ProcessedEventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Locker provides short-lived mutual exclusion keyed by name. AcquireLock
// returns a holder token; ReleaseLock only frees the lock for that token.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// IdempotencyCache remembers which order a checkout idempotency key produced.
type IdempotencyCache interface {
	RememberOrder(ctx context.Context, key string, orderID int64, ttl time.Duration) error
	RecallOrder(ctx context.Context, key string) (int64, bool, error)
}

// StockReserver decrements stock atomically at checkout and can undo it.
type StockReserver interface {
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)
	RestoreStock(ctx context.Context, productID int64, quantity int) error
}

// EventPublisher publishes shop domain events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
	PublishCartCheckedOut(ctx context.Context, event *models.CartCheckedOutEvent) error
}
