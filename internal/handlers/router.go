package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Keoroanthony/go-dairydelight/internal/auth"
	"github.com/Keoroanthony/go-dairydelight/internal/cart"
	"github.com/Keoroanthony/go-dairydelight/internal/catalog"
	"github.com/Keoroanthony/go-dairydelight/internal/orders"
	"github.com/Keoroanthony/go-dairydelight/internal/reviews"
)

type Deps struct {
	Catalog *catalog.Engine
	Orders  *orders.Service
	Reviews *reviews.Service
	Carts   cart.StoreFunc
}

// Register mounts the API under /api. Session middleware must already be
// installed on r.
func Register(r gin.IRouter, d Deps) {
	RegisterValidators()

	products := &ProductHandler{Catalog: d.Catalog, Reviews: d.Reviews}
	categories := &CategoryHandler{Catalog: d.Catalog}
	ordersH := &OrderHandler{Orders: d.Orders}
	carts := &CartHandler{Catalog: d.Catalog, Orders: d.Orders, Stores: d.Carts}

	api := r.Group("/api")
	{
		api.GET("/categories", categories.ListCategories)
		api.GET("/products", products.ListProducts)
		api.GET("/products/top", products.TopProducts)
		api.GET("/products/featured", products.FeaturedProducts)
		api.GET("/products/average", categories.GetAveragePrice)
		api.GET("/products/:id", products.GetProduct)

		api.GET("/cart", carts.GetCart)
		api.DELETE("/cart", carts.ClearCart)
		api.POST("/cart/items", carts.AddItem)
		api.PUT("/cart/items/:productId", carts.SetQuantity)
		api.DELETE("/cart/items/:productId", carts.RemoveItem)
		api.PUT("/cart/shipping", carts.SaveShippingAddress)
		api.PUT("/cart/payment", carts.SavePaymentMethod)
	}

	private := api.Group("", auth.RequireAuth())
	{
		private.POST("/cart/checkout", carts.Checkout)
		private.POST("/products/:id/reviews", products.CreateReview)
		private.POST("/orders", ordersH.CreateOrder)
		private.GET("/orders/mine", ordersH.MyOrders)
		private.GET("/orders/:id", ordersH.GetOrder)
	}

	admin := private.Group("", auth.RequireAdmin())
	{
		admin.GET("/orders", ordersH.ListOrders)
		admin.PUT("/orders/:id/status", ordersH.UpdateOrderStatus)
		admin.POST("/products", products.CreateProduct)
		admin.PUT("/products/:id", products.UpdateProduct)
		admin.DELETE("/products/:id", products.DeleteProduct)
	}
}
