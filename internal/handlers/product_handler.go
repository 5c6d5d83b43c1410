package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Keoroanthony/go-dairydelight/internal/auth"
	"github.com/Keoroanthony/go-dairydelight/internal/catalog"
	"github.com/Keoroanthony/go-dairydelight/internal/reviews"
)

type ProductHandler struct {
	Catalog *catalog.Engine
	Reviews *reviews.Service
}

// GET /api/products?keyword=&category=&minPrice=&maxPrice=&pageNumber=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var params catalog.QueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Catalog.Search(c.Request.Context(), catalog.ParseQuery(params))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := h.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) TopProducts(c *gin.Context) {
	products, err := h.Catalog.TopRated(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) FeaturedProducts(c *gin.Context) {
	products, err := h.Catalog.Featured(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req catalog.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.Catalog.Create(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req catalog.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.Catalog.Update(c.Request.Context(), id, req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Catalog.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

// POST /api/products/:id/reviews
func (h *ProductHandler) CreateReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req reviews.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.Reviews.Submit(c.Request.Context(), id, auth.CurrentUser(c), req); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review added"})
}
