package store

import (
	"context"

	"gallery-shop/internal/models"
)

const cartColumns = `id, user_id, session_token, discount_id, created_at`

// GetCartByID retrieves a cart and its items
func (s *Store) GetCartByID(ctx context.Context, id int64) (*models.Cart, error) {
	return s.getCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE id = $1", id)
}

// GetCartByUserID retrieves the cart owned by a user
func (s *Store) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	return s.getCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE user_id = $1", userID)
}

// GetCartBySessionToken retrieves the cart of an anonymous session
func (s *Store) GetCartBySessionToken(ctx context.Context, token string) (*models.Cart, error) {
	return s.getCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE session_token = $1", token)
}

func (s *Store) getCart(ctx context.Context, query string, arg interface{}) (*models.Cart, error) {
	var cart models.Cart
	found, err := getOne(ctx, s.db, &cart, query, arg)
	if err != nil || !found {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &cart.Items,
		"SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY id", cart.ID)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateCart creates a new cart
func (s *Store) CreateCart(ctx context.Context, cart *models.Cart) error {
	query := `
		INSERT INTO carts (user_id, session_token)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return s.db.QueryRowxContext(ctx, query, cart.UserID, cart.SessionToken).
		Scan(&cart.ID, &cart.CreatedAt)
}

// UpsertCartItem sets the quantity of the (cart, product) line, creating it if needed
func (s *Store) UpsertCartItem(ctx context.Context, cartID, productID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, productID, quantity)
	return err
}

// DeleteCartItem removes one line from a cart
func (s *Store) DeleteCartItem(ctx context.Context, cartID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID)
	return err
}

// ClearCartItems removes every line from a cart
func (s *Store) ClearCartItems(ctx context.Context, cartID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	return err
}

// SetCartDiscount attaches a discount, or detaches it when discountID is nil
func (s *Store) SetCartDiscount(ctx context.Context, cartID int64, discountID *int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE carts SET discount_id = $1 WHERE id = $2", discountID, cartID)
	return err
}

// DeleteCart deletes a cart; cart_items cascade
func (s *Store) DeleteCart(ctx context.Context, cartID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE id = $1", cartID)
	return err
}
