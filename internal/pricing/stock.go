package pricing

import (
	"errors"
	"fmt"

	"gallery-shop/internal/models"
)

// ErrInsufficientStock matches any InsufficientStockError via errors.Is.
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError reports a quantity that exceeds the product's stock.
// Available is -1 when the shortfall was detected by an atomic decrement and
// the remaining stock is unknown.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock for product %d: requested=%d", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %d: available=%d, requested=%d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidateStock checks requested ≤ stock. It never mutates the product.
func ValidateStock(product models.Product, requested int) error {
	if requested > product.Stock {
		return &InsufficientStockError{
			ProductID: product.ID,
			Requested: requested,
			Available: product.Stock,
		}
	}
	return nil
}
