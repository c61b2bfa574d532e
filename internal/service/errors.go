package service

import (
	"errors"

	"gallery-shop/internal/pricing"
)

// ErrInsufficientStock is returned (wrapped in a *pricing.InsufficientStockError)
// when a quantity exceeds the product's stock.
var ErrInsufficientStock = pricing.ErrInsufficientStock

// Cart errors
var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartBusy           = errors.New("cart is being modified by another request")
	ErrInvalidCartOwner   = errors.New("cart must belong to exactly one of user or session")
	ErrCartOwnerMismatch  = errors.New("cart belongs to a different user")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("invalid quantity")
)

// Order errors
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrOrderNotFound   = errors.New("order not found")
	ErrAlreadyPaid     = errors.New("order already paid")
	ErrInvalidContact  = errors.New("invalid contact details")
	ErrInvalidShipping = errors.New("shipping cost must not be negative")
)
