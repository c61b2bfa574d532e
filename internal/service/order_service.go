package service

import (
	"context"
	"fmt"
	"time"

	"gallery-shop/internal/models"
	"gallery-shop/internal/pricing"
	"gallery-shop/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService implements the order aggregate: checkout, totals and payment state.
type OrderService struct {
	orders         OrderRepository
	carts          *CartService
	stock          StockReserver
	idempotency    IdempotencyCache
	eventPublisher EventPublisher
	opts           CheckoutOptions
	logger         *zap.Logger
}

// CheckoutOptions holds the default shipping charge, used when a checkout
// request carries no explicit cost, and how long idempotency keys are cached.
type CheckoutOptions struct {
	ShippingFlatRate      decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	IdempotencyTTL        time.Duration
}

// NewOrderService creates a new order service
func NewOrderService(
	orders OrderRepository,
	carts *CartService,
	stock StockReserver,
	idempotency IdempotencyCache,
	eventPublisher EventPublisher,
	opts CheckoutOptions,
) *OrderService {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &OrderService{
		orders:         orders,
		carts:          carts,
		stock:          stock,
		idempotency:    idempotency,
		eventPublisher: eventPublisher,
		opts:           opts,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest represents a request to turn a cart into an order
type CheckoutRequest struct {
	CartID         int64            `json:"-"`
	UserID         int64            `json:"user_id" binding:"required"`
	Contact        models.Contact   `json:"contact"`
	ShippingCost   *decimal.Decimal `json:"shipping_cost,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
}

// CreateFromCart freezes the cart into an order: prices are captured from the
// catalog, stock is decremented and the cart is deleted. A retried request with
// the same idempotency key returns the order created the first time.
func (s *OrderService) CreateFromCart(ctx context.Context, req *CheckoutRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateFromCart")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.findByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		return existing, nil
	}

	if err := models.Validate(req.Contact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContact, err)
	}
	if req.ShippingCost != nil && req.ShippingCost.IsNegative() {
		return nil, ErrInvalidShipping
	}

	var (
		order  *models.Order
		replay bool
	)
	err = s.carts.withCartLock(ctx, req.CartID, func() error {
		// A request with the same key may have finished, and deleted the
		// cart, while this one waited.
		existing, err := s.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			order, replay = existing, true
			return nil
		}

		priced, err := s.carts.price(ctx, req.CartID)
		if err != nil {
			return err
		}
		if owner := priced.cart.UserID; owner != nil && *owner != req.UserID {
			return ErrCartOwnerMismatch
		}

		order, err = s.buildOrder(priced, req)
		if err != nil {
			return err
		}

		if err := s.reserveStock(ctx, order); err != nil {
			return err
		}

		if err := s.orders.CreateOrderTx(ctx, order); err != nil {
			s.restoreStock(ctx, order.Items)
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := s.carts.carts.DeleteCart(ctx, req.CartID); err != nil {
			s.logger.Error("Failed to delete checked out cart",
				zap.Int64("cart_id", req.CartID),
				zap.Int64("order_id", order.ID),
				zap.Error(err))
		}
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	if replay {
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", order.ID))
		return order, nil
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("cart_id", req.CartID),
		zap.String("total_price", order.TotalPrice.StringFixed(pricing.CurrencyPlaces)))

	if err := s.idempotency.RememberOrder(ctx, req.IdempotencyKey, order.ID, s.opts.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
	}
	s.publishCheckout(ctx, req.CartID, order)

	return order, nil
}

// buildOrder captures prices and validates every line against the snapshot.
func (s *OrderService) buildOrder(priced *pricedCart, req *CheckoutRequest) (*models.Order, error) {
	if len(priced.cart.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	for _, item := range priced.cart.Items {
		product, ok := priced.catalog.Product(item.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, item.ProductID)
		}
		if !product.Available {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
		}
		if err := pricing.ValidateStock(product, item.Quantity); err != nil {
			util.StockRejectionsTotal.WithLabelValues("checkout").Inc()
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
	}

	items, err := pricing.CaptureLines(priced.cart.Items, priced.catalog)
	if err != nil {
		return nil, err
	}

	subtotal, err := priced.subtotal()
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:         req.UserID,
		Contact:        req.Contact,
		IdempotencyKey: req.IdempotencyKey,
		Items:          items,
	}

	discounted := subtotal
	if priced.discount != nil {
		discounted = pricing.ApplyDiscount(subtotal, priced.discount.Percentage)
		code := priced.discount.Code
		order.DiscountCode = &code
		order.DiscountAmount = subtotal.Sub(discounted)
	}

	if req.ShippingCost != nil {
		order.ShippingCost = *req.ShippingCost
	} else {
		order.ShippingCost = pricing.ShippingCost(s.opts.ShippingFlatRate, s.opts.FreeShippingThreshold, discounted)
	}

	order.TotalPrice = pricing.OrderTotal(order.Items, order.ShippingCost, order.DiscountAmount)
	return order, nil
}

// reserveStock decrements stock line by line, undoing earlier lines on failure.
func (s *OrderService) reserveStock(ctx context.Context, order *models.Order) error {
	for i, item := range order.Items {
		ok, err := s.stock.DecrementStock(ctx, *item.ProductID, item.Quantity)
		if err == nil && ok {
			continue
		}

		s.restoreStock(ctx, order.Items[:i])
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("stock_error").Inc()
			return fmt.Errorf("failed to reserve stock for product %d: %w", *item.ProductID, err)
		}

		util.StockRejectionsTotal.WithLabelValues("checkout").Inc()
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return &pricing.InsufficientStockError{
			ProductID: *item.ProductID,
			Requested: item.Quantity,
			Available: -1,
		}
	}
	return nil
}

func (s *OrderService) restoreStock(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		if err := s.stock.RestoreStock(ctx, *item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to restore stock",
				zap.Int64("product_id", *item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	orderID, found, err := s.idempotency.RecallOrder(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency cache unavailable", zap.Error(err))
	} else if found {
		order, err := s.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}

	order, err := s.orders.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	return order, nil
}

func (s *OrderService) publishCheckout(ctx context.Context, cartID int64, order *models.Order) {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	created := &models.OrderCreatedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeOrderCreated),
		OrderID:      order.ID,
		UserID:       order.UserID,
		TotalPrice:   order.TotalPrice,
		ShippingCost: order.ShippingCost,
		Items:        items,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, created); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	checkedOut := &models.CartCheckedOutEvent{
		BaseEvent: newBaseEvent(models.EventTypeCartCheckedOut),
		CartID:    cartID,
		OrderID:   order.ID,
	}
	if err := s.eventPublisher.PublishCartCheckedOut(ctx, checkedOut); err != nil {
		s.logger.Error("Failed to publish CartCheckedOut event", zap.Error(err))
	}
}

// RecomputeTotal re-sums the captured line subtotals plus shipping (less the
// captured discount) and stores the result. It is idempotent.
func (s *OrderService) RecomputeTotal(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RecomputeTotal")
	defer span.End()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	total := pricing.OrderTotal(order.Items, order.ShippingCost, order.DiscountAmount)
	if total.Equal(order.TotalPrice) {
		return order, nil
	}

	if err := s.orders.UpdateOrderTotal(ctx, orderID, total); err != nil {
		return nil, fmt.Errorf("failed to update order total: %w", err)
	}

	s.logger.Info("Order total recomputed",
		zap.Int64("order_id", orderID),
		zap.String("previous", order.TotalPrice.String()),
		zap.String("total", total.String()))
	order.TotalPrice = total
	return order, nil
}

// MarkPaid moves the order from pending to paid. A second call returns
// ErrAlreadyPaid and leaves the order paid.
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64, txID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkPaid")
	defer span.End()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Paid {
		util.DuplicatePaymentsTotal.Inc()
		return order, ErrAlreadyPaid
	}

	transitioned, err := s.orders.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}
	order.Paid = true
	if !transitioned {
		util.DuplicatePaymentsTotal.Inc()
		return order, ErrAlreadyPaid
	}

	util.OrdersPaidTotal.Inc()
	s.logger.Info("Order paid", zap.Int64("order_id", orderID), zap.String("tx_id", txID))

	event := &models.OrderPaidEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderPaid),
		OrderID:    orderID,
		TotalPrice: order.TotalPrice,
		TxID:       txID,
	}
	if err := s.eventPublisher.PublishOrderPaid(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}

	return order, nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns a user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.orders.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
