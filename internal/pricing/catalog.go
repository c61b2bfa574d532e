package pricing

import "gallery-shop/internal/models"

// Catalog is a read-only snapshot of product records taken for one request.
// Values are copied in, so later changes to the source slice are not visible.
type Catalog struct {
	products map[int64]models.Product
}

// NewCatalog builds a snapshot keyed by product ID.
func NewCatalog(products []models.Product) *Catalog {
	m := make(map[int64]models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &Catalog{products: m}
}

// Product looks up a product by ID.
func (c *Catalog) Product(id int64) (models.Product, bool) {
	if c == nil {
		return models.Product{}, false
	}
	p, ok := c.products[id]
	return p, ok
}

// Len returns the number of products in the snapshot.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}
