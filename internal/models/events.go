package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeCartCheckedOut   = "CART_CHECKED_OUT"
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeOrderPaid        = "ORDER_PAID"
	EventTypePaymentConfirmed = "PAYMENT_CONFIRMED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CartCheckedOutEvent published when a cart has been converted into an order
type CartCheckedOutEvent struct {
	BaseEvent
	CartID  int64 `json:"cart_id"`
	OrderID int64 `json:"order_id"`
}

// OrderCreatedEvent published when an order is placed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID      int64           `json:"order_id"`
	UserID       int64           `json:"user_id"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Items        []OrderItemData `json:"items"`
}

// OrderPaidEvent published when an order transitions to paid
type OrderPaidEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TxID       string          `json:"tx_id,omitempty"`
}

// PaymentConfirmedEvent is published by the external payment provider integration
type PaymentConfirmedEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	TxID    string          `json:"tx_id"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID *int64          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
