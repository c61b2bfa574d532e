package pricing

import (
	"errors"
	"testing"

	"gallery-shop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCartSubtotal(t *testing.T) {
	catalog := NewCatalog([]models.Product{
		{ID: 1, Price: d("10.00"), Stock: 5},
		{ID: 2, Price: d("5.00"), Stock: 5},
		{ID: 3, Price: d("0.99"), Stock: 5},
	})

	items := []models.CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 3},
	}

	subtotal, err := CartSubtotal(items, catalog)
	require.NoError(t, err)
	assert.Equal(t, "27.97", subtotal.StringFixed(2))
}

func TestCartSubtotalEmpty(t *testing.T) {
	subtotal, err := CartSubtotal(nil, NewCatalog(nil))
	require.NoError(t, err)
	assert.True(t, subtotal.IsZero())
}

func TestCartSubtotalMissingProduct(t *testing.T) {
	_, err := CartSubtotal([]models.CartItem{{ProductID: 9, Quantity: 1}}, NewCatalog(nil))
	assert.Error(t, err)
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name       string
		subtotal   string
		percentage string
		expected   string
	}{
		{"no discount", "25.00", "0", "25.00"},
		{"ten percent", "25.00", "10", "22.50"},
		{"fractional percentage", "10.00", "12.5", "8.75"},
		{"rounds half up", "0.10", "5", "0.10"},
		{"rounds down below half", "33.33", "15", "28.33"},
		{"full discount", "19.99", "100", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDiscount(d(tt.subtotal), d(tt.percentage))
			assert.Equal(t, tt.expected, got.StringFixed(2))
		})
	}
}

func TestDiscountAmountMatchesTotal(t *testing.T) {
	subtotal := d("0.10")
	pct := d("5")

	amount := DiscountAmount(subtotal, pct)
	assert.True(t, subtotal.Sub(amount).Equal(ApplyDiscount(subtotal, pct)))
	assert.Equal(t, "0.00", amount.StringFixed(2))
}

func TestOrderTotal(t *testing.T) {
	items := []models.OrderItem{
		{Price: d("10.00"), Quantity: 2},
		{Price: d("5.00"), Quantity: 1},
	}

	total := OrderTotal(items, d("3.00"), decimal.Zero)
	assert.Equal(t, "28.00", total.StringFixed(2))

	total = OrderTotal(items, d("3.00"), d("2.50"))
	assert.Equal(t, "25.50", total.StringFixed(2))
}

func TestShippingCost(t *testing.T) {
	flat := d("7.50")

	assert.Equal(t, "7.50", ShippingCost(flat, decimal.Zero, d("1000")).StringFixed(2))
	assert.Equal(t, "7.50", ShippingCost(flat, d("100"), d("99.99")).StringFixed(2))
	assert.True(t, ShippingCost(flat, d("100"), d("100.00")).IsZero())
}

func TestValidateStock(t *testing.T) {
	product := models.Product{ID: 4, Stock: 3}

	assert.NoError(t, ValidateStock(product, 3))
	assert.NoError(t, ValidateStock(product, 1))

	err := ValidateStock(product, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(4), stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)
}

func TestCatalogIsSnapshot(t *testing.T) {
	products := []models.Product{{ID: 1, Price: d("10.00")}}
	catalog := NewCatalog(products)

	products[0].Price = d("99.00")

	p, ok := catalog.Product(1)
	require.True(t, ok)
	assert.Equal(t, "10.00", p.Price.StringFixed(2))
	assert.Equal(t, 1, catalog.Len())

	_, ok = catalog.Product(2)
	assert.False(t, ok)
}
