package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gallery-shop/internal/models"
	"gallery-shop/internal/pricing"
	"gallery-shop/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService implements the cart aggregate: line items, discounts and totals.
type CartService struct {
	carts       CartRepository
	products    ProductRepository
	discounts   *DiscountRegistry
	locker      Locker
	lockTTL     time.Duration
	maxQuantity int
	logger      *zap.Logger
}

// CartOptions tunes cart behaviour. MaxLineQuantity of 0 means no cap.
type CartOptions struct {
	LockTTL         time.Duration
	MaxLineQuantity int
}

// NewCartService creates a new cart service
func NewCartService(
	carts CartRepository,
	products ProductRepository,
	discounts *DiscountRegistry,
	locker Locker,
	opts CartOptions,
) *CartService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Second
	}
	return &CartService{
		carts:       carts,
		products:    products,
		discounts:   discounts,
		locker:      locker,
		lockTTL:     opts.LockTTL,
		maxQuantity: opts.MaxLineQuantity,
		logger:      util.GetLogger(),
	}
}

// CartOwner identifies who a cart belongs to. Exactly one field must be set.
type CartOwner struct {
	UserID       *int64
	SessionToken string
}

// CartLine is a priced cart line for presentation.
type CartLine struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

// CartSummary is the structured total handed to the view layer.
type CartSummary struct {
	CartID             int64           `json:"cart_id"`
	Items              []CartLine      `json:"items"`
	ItemCount          int             `json:"item_count"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountCode       string          `json:"discount_code,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	Total              decimal.Decimal `json:"total"`
}

// pricedCart is a cart together with the catalog snapshot and the active
// discount its totals are computed from.
type pricedCart struct {
	cart     *models.Cart
	catalog  *pricing.Catalog
	discount *models.Discount
}

func (p *pricedCart) subtotal() (decimal.Decimal, error) {
	return pricing.CartSubtotal(p.cart.Items, p.catalog)
}

func (p *pricedCart) discountedTotal() (decimal.Decimal, error) {
	subtotal, err := p.subtotal()
	if err != nil {
		return decimal.Zero, err
	}
	if p.discount == nil {
		return subtotal, nil
	}
	return pricing.ApplyDiscount(subtotal, p.discount.Percentage), nil
}

// GetOrCreateCart returns the owner's cart, creating it on first use.
func (s *CartService) GetOrCreateCart(ctx context.Context, owner CartOwner) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetOrCreateCart")
	defer span.End()

	token := strings.TrimSpace(owner.SessionToken)
	if (owner.UserID == nil) == (token == "") {
		return nil, ErrInvalidCartOwner
	}

	var (
		cart *models.Cart
		err  error
	)
	if owner.UserID != nil {
		cart, err = s.carts.GetCartByUserID(ctx, *owner.UserID)
	} else {
		cart, err = s.carts.GetCartBySessionToken(ctx, token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart != nil {
		return cart, nil
	}

	cart = &models.Cart{UserID: owner.UserID}
	if token != "" {
		cart.SessionToken = &token
	}
	if err := s.carts.CreateCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	s.logger.Info("Cart created", zap.Int64("cart_id", cart.ID))
	return cart, nil
}

// AddItem adds quantity of a product to the cart, merging with an existing
// line. The resulting line quantity must not exceed the product's stock.
func (s *CartService) AddItem(ctx context.Context, cartID, productID int64, quantity int) (*CartSummary, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidQuantity)
	}

	var summary *CartSummary
	err := s.withCartLock(ctx, cartID, func() error {
		cart, err := s.loadCart(ctx, cartID)
		if err != nil {
			return err
		}

		product, err := s.availableProduct(ctx, productID)
		if err != nil {
			return err
		}

		// The added amount alone must fit before it is merged with the line.
		if err := s.checkQuantity(*product, quantity); err != nil {
			return err
		}
		newQuantity := quantity
		if existing := cart.Item(productID); existing != nil {
			newQuantity += existing.Quantity
		}
		if err := s.checkQuantity(*product, newQuantity); err != nil {
			return err
		}

		if err := s.carts.UpsertCartItem(ctx, cartID, productID, newQuantity); err != nil {
			return fmt.Errorf("failed to save cart item: %w", err)
		}
		setLine(cart, productID, newQuantity)

		util.CartItemsAddedTotal.Inc()
		s.logger.Info("Cart item added",
			zap.Int64("cart_id", cartID),
			zap.Int64("product_id", productID),
			zap.Int("quantity", newQuantity))

		summary, err = s.summarize(ctx, cart)
		return err
	})
	util.RecordError(span, err)
	return summary, err
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, productID int64, quantity int) (*CartSummary, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidQuantity)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, cartID, productID)
	}

	var summary *CartSummary
	err := s.withCartLock(ctx, cartID, func() error {
		cart, err := s.loadCart(ctx, cartID)
		if err != nil {
			return err
		}

		product, err := s.availableProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.checkQuantity(*product, quantity); err != nil {
			return err
		}

		if err := s.carts.UpsertCartItem(ctx, cartID, productID, quantity); err != nil {
			return fmt.Errorf("failed to save cart item: %w", err)
		}
		setLine(cart, productID, quantity)

		summary, err = s.summarize(ctx, cart)
		return err
	})
	util.RecordError(span, err)
	return summary, err
}

// RemoveItem deletes the product's line. Removing an absent product is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID int64) (*CartSummary, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	var summary *CartSummary
	err := s.withCartLock(ctx, cartID, func() error {
		cart, err := s.loadCart(ctx, cartID)
		if err != nil {
			return err
		}

		if cart.Item(productID) != nil {
			if err := s.carts.DeleteCartItem(ctx, cartID, productID); err != nil {
				return fmt.Errorf("failed to delete cart item: %w", err)
			}
			removeLine(cart, productID)
			util.CartItemsRemovedTotal.Inc()
		}

		summary, err = s.summarize(ctx, cart)
		return err
	})
	util.RecordError(span, err)
	return summary, err
}

// Clear empties the cart and detaches its discount.
func (s *CartService) Clear(ctx context.Context, cartID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	return s.withCartLock(ctx, cartID, func() error {
		if _, err := s.loadCart(ctx, cartID); err != nil {
			return err
		}
		if err := s.carts.ClearCartItems(ctx, cartID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		if err := s.carts.SetCartDiscount(ctx, cartID, nil); err != nil {
			return fmt.Errorf("failed to detach discount: %w", err)
		}
		return nil
	})
}

// Delete abandons the cart; its line items go with it.
func (s *CartService) Delete(ctx context.Context, cartID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.Delete")
	defer span.End()

	return s.withCartLock(ctx, cartID, func() error {
		if _, err := s.loadCart(ctx, cartID); err != nil {
			return err
		}
		if err := s.carts.DeleteCart(ctx, cartID); err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		s.logger.Info("Cart abandoned", zap.Int64("cart_id", cartID))
		return nil
	})
}

// ApplyDiscount attaches an active discount by code. An unknown or inactive
// code returns false and leaves the cart untouched; only storage failures
// produce an error.
func (s *CartService) ApplyDiscount(ctx context.Context, cartID int64, code string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ApplyDiscount")
	defer span.End()

	applied := false
	err := s.withCartLock(ctx, cartID, func() error {
		if _, err := s.loadCart(ctx, cartID); err != nil {
			return err
		}

		discount, ok, err := s.discounts.Lookup(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			util.DiscountApplicationsTotal.WithLabelValues("rejected").Inc()
			s.logger.Info("Discount code rejected", zap.Int64("cart_id", cartID), zap.String("code", code))
			return nil
		}

		if err := s.carts.SetCartDiscount(ctx, cartID, &discount.ID); err != nil {
			return fmt.Errorf("failed to attach discount: %w", err)
		}
		applied = true
		util.DiscountApplicationsTotal.WithLabelValues("applied").Inc()
		return nil
	})
	util.RecordError(span, err)
	return applied, err
}

// RemoveDiscount detaches any discount from the cart.
func (s *CartService) RemoveDiscount(ctx context.Context, cartID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveDiscount")
	defer span.End()

	return s.withCartLock(ctx, cartID, func() error {
		if _, err := s.loadCart(ctx, cartID); err != nil {
			return err
		}
		return s.carts.SetCartDiscount(ctx, cartID, nil)
	})
}

// Subtotal is Σ quantity × live unit price.
func (s *CartService) Subtotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Subtotal")
	defer span.End()

	priced, err := s.price(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return priced.subtotal()
}

// DiscountedTotal is the subtotal less the attached discount, rounded
// half-up to cents. Without a discount it equals the subtotal.
func (s *CartService) DiscountedTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	ctx, span := util.StartSpan(ctx, "CartService.DiscountedTotal")
	defer span.End()

	priced, err := s.price(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return priced.discountedTotal()
}

// Summary returns the priced cart.
func (s *CartService) Summary(ctx context.Context, cartID int64) (*CartSummary, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Summary")
	defer span.End()

	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, cart)
}

func (s *CartService) summarize(ctx context.Context, cart *models.Cart) (*CartSummary, error) {
	priced, err := s.priceCart(ctx, cart)
	if err != nil {
		return nil, err
	}

	summary := &CartSummary{
		CartID: cart.ID,
		Items:  make([]CartLine, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		product, ok := priced.catalog.Product(item.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, item.ProductID)
		}
		summary.Items = append(summary.Items, CartLine{
			ProductID:    item.ProductID,
			Name:         product.Name,
			UnitPrice:    product.Price,
			Quantity:     item.Quantity,
			LineSubtotal: pricing.LineSubtotal(product.Price, item.Quantity),
		})
		summary.ItemCount += item.Quantity
	}

	if summary.Subtotal, err = priced.subtotal(); err != nil {
		return nil, err
	}
	if summary.Total, err = priced.discountedTotal(); err != nil {
		return nil, err
	}
	if priced.discount != nil {
		summary.DiscountCode = priced.discount.Code
		summary.DiscountPercentage = priced.discount.Percentage
		summary.DiscountAmount = summary.Subtotal.Sub(summary.Total)
	}

	return summary, nil
}

// price loads the cart and everything needed to total it.
func (s *CartService) price(ctx context.Context, cartID int64) (*pricedCart, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.priceCart(ctx, cart)
}

func (s *CartService) priceCart(ctx context.Context, cart *models.Cart) (*pricedCart, error) {
	products, err := s.products.GetProductsByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	priced := &pricedCart{
		cart:    cart,
		catalog: pricing.NewCatalog(products),
	}

	if cart.DiscountID != nil {
		priced.discount, err = s.discounts.Active(ctx, *cart.DiscountID)
		if err != nil {
			return nil, err
		}
	}

	return priced, nil
}

func (s *CartService) loadCart(ctx context.Context, cartID int64) (*models.Cart, error) {
	cart, err := s.carts.GetCartByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

func (s *CartService) availableProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.Available {
		return nil, ErrProductUnavailable
	}
	return product, nil
}

func (s *CartService) checkQuantity(product models.Product, quantity int) error {
	if s.maxQuantity > 0 && quantity > s.maxQuantity {
		return fmt.Errorf("%w: at most %d per line", ErrInvalidQuantity, s.maxQuantity)
	}
	if err := pricing.ValidateStock(product, quantity); err != nil {
		util.StockRejectionsTotal.WithLabelValues("cart").Inc()
		return err
	}
	return nil
}

// withCartLock serialises mutations of one cart across requests.
func (s *CartService) withCartLock(ctx context.Context, cartID int64, fn func() error) error {
	key := fmt.Sprintf("cart:%d", cartID)

	token, acquired, err := s.locker.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	if !acquired {
		return ErrCartBusy
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Error("Failed to release cart lock", zap.Int64("cart_id", cartID), zap.Error(err))
		}
	}()

	err = fn()
	if errors.Is(err, ErrInsufficientStock) {
		s.logger.Info("Quantity rejected", zap.Int64("cart_id", cartID), zap.Error(err))
	}
	return err
}

func setLine(cart *models.Cart, productID int64, quantity int) {
	if item := cart.Item(productID); item != nil {
		item.Quantity = quantity
		return
	}
	cart.Items = append(cart.Items, models.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

func removeLine(cart *models.Cart, productID int64) {
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
}
