package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/orders"
)

var registerOnce sync.Once

// RegisterValidators adds the storefront's binding tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseCategory(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
			return orders.ValidStatus(models.OrderStatus(fl.Field().String()))
		})
	})
}

func renderError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
