package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Keoroanthony/go-dairydelight/internal/catalog"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

type CategoryHandler struct {
	Catalog *catalog.Engine
}

// GET /api/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	stats, err := h.Catalog.Categories(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/products/average?category=
func (h *CategoryHandler) GetAveragePrice(c *gin.Context) {
	param := c.Query("category")
	if param == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	category, ok := models.ParseCategory(param)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	avg, err := h.Catalog.AveragePrice(c.Request.Context(), category)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "average_price": avg})
}
