package store

import (
	"context"
	"fmt"

	"gallery-shop/internal/models"

	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, first_name, last_name, email, address, city, postal_code,
	paid, total_price, shipping_cost, discount_code, discount_amount,
	COALESCE(idempotency_key, '') AS idempotency_key, created_at, updated_at`

// CreateOrderTx inserts an order and its items in one transaction
func (s *Store) CreateOrderTx(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (user_id, first_name, last_name, email, address, city, postal_code,
			paid, total_price, shipping_cost, discount_code, discount_amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.UserID, order.FirstName, order.LastName, order.Email, order.Address, order.City,
		order.PostalCode, order.Paid, order.TotalPrice, order.ShippingCost, order.DiscountCode,
		order.DiscountAmount, order.IdempotencyKey,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_id, product_name, price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.OrderID, item.ProductID, item.ProductName, item.Price, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order and its items
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key)
}

func (s *Store) getOrder(ctx context.Context, query string, arg interface{}) (*models.Order, error) {
	var order models.Order
	found, err := getOne(ctx, s.db, &order, query, arg)
	if err != nil || !found {
		return nil, err
	}

	order.Items, err = s.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, without items
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT id, order_id, product_id, product_name, price, quantity FROM order_items WHERE order_id = $1 ORDER BY id",
		orderID)
	return items, err
}

// UpdateOrderTotal overwrites the stored total
func (s *Store) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET total_price = $1, updated_at = NOW() WHERE id = $2",
		total, orderID)
	return err
}

// MarkOrderPaid flips paid from false to true. It returns false if the
// order was already paid.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET paid = TRUE, updated_at = NOW() WHERE id = $1 AND paid = FALSE",
		orderID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
