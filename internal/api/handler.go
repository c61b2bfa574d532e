package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gallery-shop/internal/models"
	"gallery-shop/internal/pricing"
	"gallery-shop/internal/service"
	"gallery-shop/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SessionTokenHeader identifies anonymous carts.
const SessionTokenHeader = "X-Session-Token"

// CartService is the cart surface the handlers need; *service.CartService implements it.
type CartService interface {
	GetOrCreateCart(ctx context.Context, owner service.CartOwner) (*models.Cart, error)
	Summary(ctx context.Context, cartID int64) (*service.CartSummary, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) (*service.CartSummary, error)
	UpdateQuantity(ctx context.Context, cartID, productID int64, quantity int) (*service.CartSummary, error)
	RemoveItem(ctx context.Context, cartID, productID int64) (*service.CartSummary, error)
	Clear(ctx context.Context, cartID int64) error
	Delete(ctx context.Context, cartID int64) error
	ApplyDiscount(ctx context.Context, cartID int64, code string) (bool, error)
	RemoveDiscount(ctx context.Context, cartID int64) error
	DiscountedTotal(ctx context.Context, cartID int64) (decimal.Decimal, error)
}

// OrderService is the order surface the handlers need; *service.OrderService implements it.
type OrderService interface {
	CreateFromCart(ctx context.Context, req *service.CheckoutRequest) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
	RecomputeTotal(ctx context.Context, orderID int64) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID int64, txID string) (*models.Order, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	carts  CartService
	orders OrderService
	deps   map[string]Pinger
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. deps are checked by /ready.
func NewHandler(carts CartService, orders OrderService, deps map[string]Pinger) *Handler {
	return &Handler{
		carts:  carts,
		orders: orders,
		deps:   deps,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/carts", h.getOrCreateCart)
		v1.GET("/carts/:id", h.getCart)
		v1.DELETE("/carts/:id", h.deleteCart)
		v1.POST("/carts/:id/items", h.addItem)
		v1.DELETE("/carts/:id/items", h.clearCart)
		v1.PUT("/carts/:id/items/:product_id", h.updateItem)
		v1.DELETE("/carts/:id/items/:product_id", h.removeItem)
		v1.POST("/carts/:id/discount", h.applyDiscount)
		v1.DELETE("/carts/:id/discount", h.removeDiscount)
		v1.POST("/carts/:id/checkout", h.checkout)

		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/recompute", h.recomputeOrder)
		v1.POST("/orders/:id/pay", h.payOrder)
		v1.GET("/users/:user_id/orders", h.listOrders)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"errors": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without details.
func (h *Handler) writeError(c *gin.Context, err error) {
	var stockErr *pricing.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		body := gin.H{
			"error":      "Insufficient stock",
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
		}
		if stockErr.Available >= 0 {
			body["available"] = stockErr.Available
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, service.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "Order already paid"})
	case errors.Is(err, service.ErrCartBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart is being modified, retry"})
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidContact),
		errors.Is(err, service.ErrProductUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCartOwnerMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidShipping),
		errors.Is(err, service.ErrInvalidCartOwner):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
