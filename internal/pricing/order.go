package pricing

import (
	"fmt"

	"gallery-shop/internal/models"
)

// CaptureLines copies each cart line into an order line, freezing the
// product's current name and unit price. Later catalog changes do not
// affect the returned items.
func CaptureLines(items []models.CartItem, catalog *Catalog) ([]models.OrderItem, error) {
	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := catalog.Product(item.ProductID)
		if !ok {
			return nil, fmt.Errorf("product %d not in catalog", item.ProductID)
		}
		productID := product.ID
		lines = append(lines, models.OrderItem{
			ProductID:   &productID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    item.Quantity,
		})
	}
	return lines, nil
}
