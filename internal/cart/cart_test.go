package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/cart"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func item(product uint, price string, stock, qty int) cart.Item {
	return cart.Item{
		Product:      product,
		Name:         "Product",
		Price:        decimal.RequireFromString(price),
		CountInStock: stock,
		Qty:          qty,
	}
}

func TestAddReplacesExistingLine(t *testing.T) {
	ctx := context.Background()
	m, err := cart.Load(ctx, &cart.MemoryStore{})
	require.NoError(t, err)

	require.NoError(t, m.Add(ctx, item(1, "10", 20, 2)))
	require.NoError(t, m.Add(ctx, item(2, "5", 20, 1)))
	require.NoError(t, m.Add(ctx, item(1, "10", 20, 5)))

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, uint(1), items[0].Product)
	assert.Equal(t, 5, items[0].Qty)
	assert.Equal(t, uint(2), items[1].Product)
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	m, err := cart.Load(ctx, &cart.MemoryStore{})
	require.NoError(t, err)

	assert.ErrorIs(t, m.Add(ctx, item(0, "10", 5, 1)), apperr.ErrValidation)
	assert.ErrorIs(t, m.Add(ctx, item(1, "10", 0, 1)), apperr.ErrValidation)
	assert.True(t, m.IsEmpty())

	require.NoError(t, m.Add(ctx, item(1, "10", 3, 9)))
	assert.Equal(t, 3, m.Items()[0].Qty)
}

func TestSetQuantityClamps(t *testing.T) {
	ctx := context.Background()
	m, err := cart.Load(ctx, &cart.MemoryStore{})
	require.NoError(t, err)
	require.NoError(t, m.Add(ctx, item(1, "10", 7, 2)))

	cases := []struct {
		requested int
		want      int
	}{
		{0, 1},
		{-40, 1},
		{1, 1},
		{4, 4},
		{7, 7},
		{8, 7},
		{1000, 7},
	}

	for _, tc := range cases {
		for i := 0; i < 2; i++ {
			require.NoError(t, m.SetQuantity(ctx, 1, tc.requested))
			assert.Equal(t, tc.want, m.Items()[0].Qty, "requested %d", tc.requested)
		}
	}

	assert.ErrorIs(t, m.SetQuantity(ctx, 99, 1), apperr.ErrNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := &cart.MemoryStore{}
	m, err := cart.Load(ctx, store)
	require.NoError(t, err)

	require.NoError(t, m.Add(ctx, item(1, "10", 5, 1)))
	require.NoError(t, m.Add(ctx, item(2, "10", 5, 1)))

	require.NoError(t, m.Remove(ctx, 1))
	require.NoError(t, m.Remove(ctx, 42))
	require.Len(t, m.Items(), 1)
	assert.Equal(t, uint(2), m.Items()[0].Product)

	require.NoError(t, m.Clear(ctx))
	assert.True(t, m.IsEmpty())
	assert.False(t, store.Persisted())
}

func TestTotals(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		items    []cart.Item
		subtotal string
		shipping string
		total    string
	}{
		{"empty", nil, "0", "50", "50"},
		{"exactly threshold pays shipping", []cart.Item{item(1, "250", 5, 2)}, "500", "50", "550"},
		{"one paisa over threshold ships free", []cart.Item{item(1, "500.01", 5, 1)}, "500.01", "0", "500.01"},
		{"mixed lines", []cart.Item{item(1, "300", 10, 2), item(2, "12.5", 10, 3)}, "637.5", "0", "637.5"},
		{"over threshold", []cart.Item{item(1, "300", 10, 2)}, "600", "0", "600"},
		{"under threshold", []cart.Item{item(1, "300", 10, 1)}, "300", "50", "350"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := cart.Load(ctx, &cart.MemoryStore{})
			require.NoError(t, err)
			for _, it := range tc.items {
				require.NoError(t, m.Add(ctx, it))
			}

			assert.True(t, m.Subtotal().Equal(decimal.RequireFromString(tc.subtotal)), m.Subtotal().String())
			assert.True(t, m.Shipping().Equal(decimal.RequireFromString(tc.shipping)), m.Shipping().String())
			assert.True(t, m.Total().Equal(decimal.RequireFromString(tc.total)), m.Total().String())

			s := m.Summary()
			assert.True(t, s.Total.Equal(m.Total()))
			assert.NotNil(t, s.CartItems)
		})
	}
}

func TestShippingDetails(t *testing.T) {
	ctx := context.Background()
	m, err := cart.Load(ctx, &cart.MemoryStore{})
	require.NoError(t, err)

	assert.Equal(t, cart.DefaultPaymentMethod, m.Details().PaymentMethod)

	err = m.SaveShippingAddress(ctx, models.ShippingAddress{City: "Pune"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, m.SaveShippingAddress(ctx, models.ShippingAddress{Address: "12 MG Road", City: "Pune", PostalCode: "411001"}))
	assert.Equal(t, cart.DefaultCountry, m.Details().ShippingAddress.Country)

	require.NoError(t, m.SavePaymentMethod(ctx, "UPI"))
	assert.ErrorIs(t, m.SavePaymentMethod(ctx, ""), apperr.ErrValidation)
	assert.Equal(t, "UPI", m.Details().PaymentMethod)
}

func TestRedisStoreSurvivesReload(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	stores := cart.RedisStores(client, time.Hour)

	m, err := cart.Load(ctx, stores("sess-1"))
	require.NoError(t, err)
	require.NoError(t, m.Add(ctx, item(1, "300", 10, 2)))
	require.NoError(t, m.SaveShippingAddress(ctx, models.ShippingAddress{Address: "1 Lake Rd", City: "Kochi", PostalCode: "682001"}))

	assert.True(t, mr.Exists("cart:sess-1:items"))

	reloaded, err := cart.Load(ctx, stores("sess-1"))
	require.NoError(t, err)
	require.Len(t, reloaded.Items(), 1)
	assert.Equal(t, 2, reloaded.Items()[0].Qty)
	assert.True(t, reloaded.Items()[0].Price.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "Kochi", reloaded.Details().ShippingAddress.City)

	other, err := cart.Load(ctx, stores("sess-2"))
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())

	require.NoError(t, reloaded.Clear(ctx))
	assert.False(t, mr.Exists("cart:sess-1:items"))
	assert.True(t, mr.Exists("cart:sess-1:details"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("cart:sess-1:details"))
}

type failingStore struct{ cart.MemoryStore }

func (f *failingStore) Save(context.Context, cart.Snapshot) error { return errors.New("disk full") }

func TestFailedSaveLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	m, err := cart.Load(ctx, &failingStore{})
	require.NoError(t, err)

	err = m.Add(ctx, item(1, "10", 5, 1))
	assert.ErrorIs(t, err, apperr.ErrDependency)
	assert.True(t, m.IsEmpty())
}
