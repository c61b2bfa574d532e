package api

import (
	"net/http"
	"strings"

	"gallery-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createCartRequest struct {
	UserID *int64 `json:"user_id"`
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1,max=10000"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=10000"`
}

type applyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

// getOrCreateCart returns the caller's cart. Anonymous callers without a
// session token are issued one in the response header.
func (h *Handler) getOrCreateCart(c *gin.Context) {
	var req createCartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	owner := service.CartOwner{UserID: req.UserID}
	if owner.UserID == nil {
		owner.SessionToken = strings.TrimSpace(c.GetHeader(SessionTokenHeader))
		if owner.SessionToken == "" {
			owner.SessionToken = uuid.New().String()
		}
		c.Header(SessionTokenHeader, owner.SessionToken)
	}

	cart, err := h.carts.GetOrCreateCart(c.Request.Context(), owner)
	if err != nil {
		h.writeError(c, err)
		return
	}

	summary, err := h.carts.Summary(c.Request.Context(), cart.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) getCart(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.carts.Summary(c.Request.Context(), cartID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) deleteCart(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.carts.Delete(c.Request.Context(), cartID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addItem(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	summary, err := h.carts.AddItem(c.Request.Context(), cartID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) updateItem(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	summary, err := h.carts.UpdateQuantity(c.Request.Context(), cartID, productID, *req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) removeItem(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	summary, err := h.carts.RemoveItem(c.Request.Context(), cartID, productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) clearCart(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.carts.Clear(c.Request.Context(), cartID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// applyDiscount answers 200 either way; "applied" tells the caller whether
// the code was accepted.
func (h *Handler) applyDiscount(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	applied, err := h.carts.ApplyDiscount(c.Request.Context(), cartID, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}

	total, err := h.carts.DiscountedTotal(c.Request.Context(), cartID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applied": applied,
		"total":   total,
	})
}

func (h *Handler) removeDiscount(c *gin.Context) {
	cartID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.carts.RemoveDiscount(c.Request.Context(), cartID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
