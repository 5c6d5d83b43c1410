package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Keoroanthony/go-dairydelight/internal/auth"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/orders"
)

type OrderHandler struct {
	Orders *orders.Service
}

type CreateOrderRequest struct {
	OrderItems      []models.OrderItem     `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TotalPrice      decimal.Decimal        `json:"totalPrice"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,orderstatus"`
}

// POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	order, err := h.Orders.Create(c.Request.Context(), auth.CurrentUser(c), orders.NewOrder{
		Items:           req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalPrice:      req.TotalPrice,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), id, auth.CurrentUser(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /api/orders/mine
func (h *OrderHandler) MyOrders(c *gin.Context) {
	list, err := h.Orders.ListOwn(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	list, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PUT /api/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of Processing, Shipped, Delivered"})
		return
	}

	order, err := h.Orders.AdvanceStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
