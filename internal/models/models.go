package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name" validate:"required"`
	Slug        string          `db:"slug" json:"slug"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price" validate:"gte=0"`
	Stock       int             `db:"stock" json:"stock" validate:"gte=0"`
	Available   bool            `db:"available" json:"available"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Discount is a promotional percentage-off code
type Discount struct {
	ID         int64           `db:"id" json:"id"`
	Code       string          `db:"code" json:"code" validate:"required,max=50"`
	Percentage decimal.Decimal `db:"percentage" json:"percentage" validate:"gte=0,lte=100"`
	Active     bool            `db:"active" json:"active"`
}

// Cart is owned by a user or by an anonymous session, never both
type Cart struct {
	ID           int64      `db:"id" json:"id"`
	UserID       *int64     `db:"user_id" json:"user_id,omitempty"`
	SessionToken *string    `db:"session_token" json:"session_token,omitempty"`
	DiscountID   *int64     `db:"discount_id" json:"discount_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	Items        []CartItem `db:"-" json:"items"`
}

// CartItem is one (cart, product) line
type CartItem struct {
	ID        int64 `db:"id" json:"id"`
	CartID    int64 `db:"cart_id" json:"cart_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
}

// Item returns the line for productID, or nil.
func (c *Cart) Item(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// ProductIDs lists the products referenced by the cart lines.
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Contact is the buyer's name and shipping address
type Contact struct {
	FirstName  string `db:"first_name" json:"first_name" validate:"required,max=50"`
	LastName   string `db:"last_name" json:"last_name" validate:"required,max=50"`
	Email      string `db:"email" json:"email" validate:"required,email"`
	Address    string `db:"address" json:"address" validate:"required,max=200"`
	City       string `db:"city" json:"city" validate:"required,max=100"`
	PostalCode string `db:"postal_code" json:"postal_code" validate:"required,max=20"`
}

// Order represents a placed order
type Order struct {
	ID     int64 `db:"id" json:"id"`
	UserID int64 `db:"user_id" json:"user_id"`
	Contact
	Paid           bool            `db:"paid" json:"paid"`
	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
	ShippingCost   decimal.Decimal `db:"shipping_cost" json:"shipping_cost"`
	DiscountCode   *string         `db:"discount_code" json:"discount_code,omitempty"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	Items          []OrderItem     `db:"-" json:"items"`
}

// Status reports the order state derived from the paid flag.
func (o *Order) Status() string {
	if o.Paid {
		return OrderStatusPaid
	}
	return OrderStatusPending
}

// OrderItem is a line with the price captured when the order was placed.
// ProductID is nil once the product has been deleted.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   *int64          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    int             `db:"quantity" json:"quantity"`
}

// Subtotal is quantity × captured price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order statuses
const (
	OrderStatusPending = "PENDING"
	OrderStatusPaid    = "PAID"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
