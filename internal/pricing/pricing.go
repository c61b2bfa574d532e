// Package pricing holds the cart and order arithmetic. All amounts are
// decimals; nothing here touches storage.
package pricing

import (
	"fmt"

	"gallery-shop/internal/models"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the minor-unit precision of every reported total.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// LineSubtotal is quantity × unit price.
func LineSubtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartSubtotal sums quantity × live unit price over the cart lines.
// A line whose product is missing from the catalog is an error.
func CartSubtotal(items []models.CartItem, catalog *Catalog) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		product, ok := catalog.Product(item.ProductID)
		if !ok {
			return decimal.Zero, fmt.Errorf("product %d not in catalog", item.ProductID)
		}
		total = total.Add(LineSubtotal(product.Price, item.Quantity))
	}
	return total, nil
}

// ApplyDiscount returns round_half_up(subtotal - subtotal × percentage / 100, 2).
// Amounts are non-negative, so Round's half-away-from-zero is half-up here.
func ApplyDiscount(subtotal, percentage decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(subtotal.Mul(percentage).Div(hundred)).Round(CurrencyPlaces)
}

// DiscountAmount is what ApplyDiscount took off, so that
// subtotal - DiscountAmount always equals the discounted total.
func DiscountAmount(subtotal, percentage decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(ApplyDiscount(subtotal, percentage))
}

// OrderTotal is the sum of captured line subtotals plus shipping, less any discount.
func OrderTotal(items []models.OrderItem, shipping, discount decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Sub(discount).Add(shipping).Round(CurrencyPlaces)
}

// ShippingCost applies the flat rate unless the order reaches the free
// shipping threshold. A zero threshold disables free shipping.
func ShippingCost(flatRate, freeThreshold, orderValue decimal.Decimal) decimal.Decimal {
	if freeThreshold.IsPositive() && orderValue.GreaterThanOrEqual(freeThreshold) {
		return decimal.Zero
	}
	return flatRate
}
