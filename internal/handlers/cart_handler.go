package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Keoroanthony/go-dairydelight/internal/auth"
	"github.com/Keoroanthony/go-dairydelight/internal/cart"
	"github.com/Keoroanthony/go-dairydelight/internal/catalog"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/orders"
)

type CartHandler struct {
	Catalog *catalog.Engine
	Orders  *orders.Service
	Stores  cart.StoreFunc
}

type AddToCartRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Qty       int  `json:"qty"`
}

type SetQuantityRequest struct {
	Qty int `json:"qty"`
}

type PaymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

func (h *CartHandler) load(c *gin.Context) (*cart.Manager, bool) {
	session, err := auth.CartSession(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start cart session"})
		return nil, false
	}

	m, err := cart.Load(c.Request.Context(), h.Stores(session))
	if err != nil {
		renderError(c, err)
		return nil, false
	}
	return m, true
}

// GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	m, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m.Summary())
}

// POST /api/cart/items captures the product as it is now; later catalog
// edits do not follow the line.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	product, err := h.Catalog.Get(c.Request.Context(), req.ProductID)
	if err != nil {
		renderError(c, err)
		return
	}

	m, ok := h.load(c)
	if !ok {
		return
	}

	err = m.Add(c.Request.Context(), cart.Item{
		Product:      product.ID,
		Name:         product.Name,
		Image:        product.Image,
		Price:        product.Price,
		CountInStock: product.CountInStock,
		Qty:          req.Qty,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Summary())
}

// PUT /api/cart/items/:productId
func (h *CartHandler) SetQuantity(c *gin.Context) {
	id, ok := paramID(c, "productId")
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := h.load(c)
	if !ok {
		return
	}
	if err := m.SetQuantity(c.Request.Context(), id, req.Qty); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Summary())
}

// DELETE /api/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := paramID(c, "productId")
	if !ok {
		return
	}

	m, ok := h.load(c)
	if !ok {
		return
	}
	if err := m.Remove(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Summary())
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	m, ok := h.load(c)
	if !ok {
		return
	}
	if err := m.Clear(c.Request.Context()); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Summary())
}

// PUT /api/cart/shipping
func (h *CartHandler) SaveShippingAddress(c *gin.Context) {
	var req models.ShippingAddress
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := h.load(c)
	if !ok {
		return
	}
	if err := m.SaveShippingAddress(c.Request.Context(), req); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Summary())
}

// PUT /api/cart/payment
func (h *CartHandler) SavePaymentMethod(c *gin.Context) {
	var req PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := h.load(c)
	if !ok {
		return
	}
	if err := m.SavePaymentMethod(c.Request.Context(), req.PaymentMethod); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Summary())
}

// POST /api/cart/checkout turns the cart into an order priced at the cart
// total, then empties the cart. A failed order leaves the cart as it was.
func (h *CartHandler) Checkout(c *gin.Context) {
	m, ok := h.load(c)
	if !ok {
		return
	}

	summary := m.Summary()
	items := make([]models.OrderItem, 0, len(summary.CartItems))
	for _, it := range summary.CartItems {
		items = append(items, models.OrderItem{
			ProductID: it.Product,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Qty:       it.Qty,
		})
	}

	ctx := c.Request.Context()
	order, err := h.Orders.Create(ctx, auth.CurrentUser(c), orders.NewOrder{
		Items:           items,
		ShippingAddress: summary.ShippingAddress,
		PaymentMethod:   summary.PaymentMethod,
		TotalPrice:      summary.Total,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	if err := m.Clear(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to clear cart after checkout", "order_id", order.ID, "error", err)
	}
	c.JSON(http.StatusCreated, order)
}
