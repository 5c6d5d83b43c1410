package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keoroanthony/go-dairydelight/internal/cart"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

func redisCarts(t *testing.T) (*miniredis.Miniredis, cart.StoreFunc) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cart.RedisStores(client, time.Hour)
}

func cartSummary(t *testing.T, env *testEnv, cookieHeader string) cart.Summary {
	t.Helper()
	w := perform(env.router, http.MethodGet, "/api/cart", nil, cookieHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var s cart.Summary
	decode(t, w, &s)
	return s
}

func TestCartHandlers(t *testing.T) {
	env := setupTestRouter(t, nil)
	milk := env.seedProduct(t, "Cow Milk", 300, 10)
	anon := sessionCookie(nil, "cart-anon")

	t.Run("empty cart still pays shipping", func(t *testing.T) {
		s := cartSummary(t, env, anon)
		assert.Empty(t, s.CartItems)
		assert.True(t, s.Shipping.Equal(cart.ShippingFee))
		assert.Equal(t, cart.DefaultPaymentMethod, s.PaymentMethod)
	})

	t.Run("unknown product", func(t *testing.T) {
		w := perform(env.router, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": 9999, "qty": 1}, anon)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("repeated add replaces the line", func(t *testing.T) {
		w := perform(env.router, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": milk.ID, "qty": 2}, anon)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = perform(env.router, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": milk.ID, "qty": 5}, anon)
		require.Equal(t, http.StatusOK, w.Code)

		s := cartSummary(t, env, anon)
		require.Len(t, s.CartItems, 1)
		assert.Equal(t, 5, s.CartItems[0].Qty)
		assert.Equal(t, 10, s.CartItems[0].CountInStock)
		assert.True(t, s.Subtotal.Equal(decimal.NewFromInt(1500)))
		assert.True(t, s.Shipping.IsZero())
	})

	qtyPath := fmt.Sprintf("/api/cart/items/%d", milk.ID)
	clampCases := []struct {
		requested int
		want      int
	}{
		{0, 1},
		{-4, 1},
		{99, 10},
		{3, 3},
	}
	for _, tc := range clampCases {
		t.Run(fmt.Sprintf("quantity %d is clamped to %d", tc.requested, tc.want), func(t *testing.T) {
			w := perform(env.router, http.MethodPut, qtyPath, map[string]interface{}{"qty": tc.requested}, anon)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var s cart.Summary
			decode(t, w, &s)
			assert.Equal(t, tc.want, s.CartItems[0].Qty)
		})
	}

	t.Run("quantity of a product not in the cart", func(t *testing.T) {
		w := perform(env.router, http.MethodPut, "/api/cart/items/9999", map[string]interface{}{"qty": 2}, anon)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("carts are per session", func(t *testing.T) {
		s := cartSummary(t, env, sessionCookie(nil, "cart-other"))
		assert.Empty(t, s.CartItems)
	})

	t.Run("remove and clear", func(t *testing.T) {
		w := perform(env.router, http.MethodDelete, "/api/cart/items/9999", nil, anon)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, cartSummary(t, env, anon).CartItems, 1)

		w = perform(env.router, http.MethodDelete, qtyPath, nil, anon)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, cartSummary(t, env, anon).CartItems)

		perform(env.router, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": milk.ID, "qty": 1}, anon)
		w = perform(env.router, http.MethodDelete, "/api/cart", nil, anon)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, cartSummary(t, env, anon).CartItems)
	})

	t.Run("shipping details", func(t *testing.T) {
		w := perform(env.router, http.MethodPut, "/api/cart/shipping", map[string]string{"address": "1 Lake Rd"}, anon)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = perform(env.router, http.MethodPut, "/api/cart/shipping",
			map[string]string{"address": "1 Lake Rd", "city": "Udaipur", "postalCode": "313001"}, anon)
		require.Equal(t, http.StatusOK, w.Code)

		w = perform(env.router, http.MethodPut, "/api/cart/payment", map[string]string{"paymentMethod": "UPI"}, anon)
		require.Equal(t, http.StatusOK, w.Code)

		s := cartSummary(t, env, anon)
		assert.Equal(t, "India", s.ShippingAddress.Country)
		assert.Equal(t, "UPI", s.PaymentMethod)
	})
}

func TestCheckoutEndToEnd(t *testing.T) {
	mr, carts := redisCarts(t)
	env := setupTestRouter(t, carts)
	product := env.seedProduct(t, "Buffalo Milk", 200, 10)
	buyer := sessionCookie(&env.customer.ID, "cart-buyer")

	w := perform(env.router, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": product.ID, "qty": 2}, buyer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, mr.Exists("cart:cart-buyer:items"))

	t.Run("checkout without an address leaves the cart", func(t *testing.T) {
		w := perform(env.router, http.MethodPost, "/api/cart/checkout", nil, buyer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Len(t, cartSummary(t, env, buyer).CartItems, 1)
	})

	t.Run("anonymous checkout is refused", func(t *testing.T) {
		w := perform(env.router, http.MethodPost, "/api/cart/checkout", nil, sessionCookie(nil, "cart-buyer"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Len(t, cartSummary(t, env, buyer).CartItems, 1)
	})

	w = perform(env.router, http.MethodPut, "/api/cart/shipping",
		map[string]string{"address": "12 MG Road", "city": "Pune", "postalCode": "411001"}, buyer)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(env.router, http.MethodPost, "/api/cart/checkout", nil, buyer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	decode(t, w, &order)
	// 400 is under the free shipping threshold, so the flat fee applies.
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(450)), order.TotalPrice.String())
	assert.Equal(t, models.StatusProcessing, order.Status)
	assert.Equal(t, cart.DefaultPaymentMethod, order.PaymentMethod)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, 2, order.OrderItems[0].Qty)

	s := cartSummary(t, env, buyer)
	assert.Empty(t, s.CartItems)
	assert.Equal(t, "Pune", s.ShippingAddress.City)
	assert.False(t, mr.Exists("cart:cart-buyer:items"))

	t.Run("later price changes do not touch the order", func(t *testing.T) {
		require.NoError(t, env.db.Model(&product).Update("price", decimal.NewFromInt(999)).Error)

		w := perform(env.router, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), nil, buyer)
		require.Equal(t, http.StatusOK, w.Code)
		var stored models.Order
		decode(t, w, &stored)
		assert.True(t, stored.OrderItems[0].Price.Equal(decimal.NewFromInt(200)))
		assert.True(t, stored.TotalPrice.Equal(decimal.NewFromInt(450)))
	})

	t.Run("empty cart cannot be checked out", func(t *testing.T) {
		w := perform(env.router, http.MethodPost, "/api/cart/checkout", nil, buyer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No order items", errorMessage(t, w))
	})
}
