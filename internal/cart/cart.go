// Package cart keeps a session's line items, shipping details and derived
// totals. Every mutation is written through to a Store before it becomes
// visible, so a reloaded Manager sees exactly what the last call left.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

const DefaultPaymentMethod = "Cash On Delivery"

const DefaultCountry = "India"

var (
	FreeShippingThreshold = decimal.NewFromInt(500)
	ShippingFee           = decimal.NewFromInt(50)
)

// Item is one cart line. CountInStock is the product stock captured when the
// item was added and bounds every later quantity change.
type Item struct {
	Product      uint            `json:"product"`
	Name         string          `json:"name"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"countInStock"`
	Qty          int             `json:"qty"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

type Details struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

type Snapshot struct {
	Items   []Item  `json:"cartItems"`
	Details Details `json:"details"`
}

// Store is the durable home of one session's cart. Clear drops the items
// record only; shipping details survive a checkout.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Clear(ctx context.Context) error
}

func clamp(qty, stock int) int {
	if qty > stock {
		qty = stock
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}

type Manager struct {
	mu    sync.Mutex
	store Store
	snap  Snapshot
}

func Load(ctx context.Context, store Store) (*Manager, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load cart")
	}
	if snap.Details.PaymentMethod == "" {
		snap.Details.PaymentMethod = DefaultPaymentMethod
	}
	return &Manager{store: store, snap: snap}, nil
}

// commit persists next and only then makes it current.
func (m *Manager) commit(ctx context.Context, next Snapshot) error {
	if err := m.store.Save(ctx, next); err != nil {
		return apperr.Dependency(err, "failed to save cart")
	}
	m.snap = next
	return nil
}

func (m *Manager) copyItems() []Item {
	return append([]Item(nil), m.snap.Items...)
}

// Add replaces any line for the same product wholesale, so a repeated add
// sets the quantity rather than adding to it.
func (m *Manager) Add(ctx context.Context, item Item) error {
	if item.Product == 0 {
		return apperr.Validation("product is required")
	}
	if item.CountInStock < 1 {
		return apperr.Validation("%s is out of stock", item.Name)
	}
	item.Qty = clamp(item.Qty, item.CountInStock)

	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.copyItems()
	replaced := false
	for i := range items {
		if items[i].Product == item.Product {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	next := m.snap
	next.Items = items
	return m.commit(ctx, next)
}

// SetQuantity clamps qty into [1, stock-at-add-time].
func (m *Manager) SetQuantity(ctx context.Context, product uint, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.copyItems()
	for i := range items {
		if items[i].Product == product {
			items[i].Qty = clamp(qty, items[i].CountInStock)
			next := m.snap
			next.Items = items
			return m.commit(ctx, next)
		}
	}
	return apperr.NotFound("product %d is not in the cart", product)
}

// Remove is a no-op for products not in the cart.
func (m *Manager) Remove(ctx context.Context, product uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]Item, 0, len(m.snap.Items))
	for _, it := range m.snap.Items {
		if it.Product != product {
			items = append(items, it)
		}
	}
	if len(items) == len(m.snap.Items) {
		return nil
	}

	next := m.snap
	next.Items = items
	return m.commit(ctx, next)
}

func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return apperr.Dependency(err, "failed to clear cart")
	}
	m.snap.Items = nil
	return nil
}

func (m *Manager) SaveShippingAddress(ctx context.Context, addr models.ShippingAddress) error {
	if addr.Address == "" || addr.City == "" || addr.PostalCode == "" {
		return apperr.Validation("address, city and postal code are required")
	}
	if addr.Country == "" {
		addr.Country = DefaultCountry
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.snap
	next.Details.ShippingAddress = addr
	return m.commit(ctx, next)
}

func (m *Manager) SavePaymentMethod(ctx context.Context, method string) error {
	if method == "" {
		return apperr.Validation("payment method is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.snap
	next.Details.PaymentMethod = method
	return m.commit(ctx, next)
}

func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyItems()
}

func (m *Manager) Details() Details {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Details
}

func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snap.Items) == 0
}

func (m *Manager) Subtotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return subtotal(m.snap.Items)
}

func (m *Manager) Shipping() decimal.Decimal {
	return shippingFor(m.Subtotal())
}

func (m *Manager) Total() decimal.Decimal {
	sub := m.Subtotal()
	return sub.Add(shippingFor(sub))
}

func subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// shippingFor is free strictly above the threshold.
func shippingFor(sub decimal.Decimal) decimal.Decimal {
	if sub.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return ShippingFee
}

type Summary struct {
	CartItems       []Item                 `json:"cartItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	Shipping        decimal.Decimal        `json:"shipping"`
	Total           decimal.Decimal        `json:"total"`
}

func (m *Manager) Summary() Summary {
	m.mu.Lock()
	items := m.copyItems()
	details := m.snap.Details
	m.mu.Unlock()

	if items == nil {
		items = []Item{}
	}
	sub := subtotal(items)
	ship := shippingFor(sub)
	return Summary{
		CartItems:       items,
		ShippingAddress: details.ShippingAddress,
		PaymentMethod:   details.PaymentMethod,
		Subtotal:        sub,
		Shipping:        ship,
		Total:           sub.Add(ship),
	}
}

// StoreFunc resolves the store that holds a session's cart.
type StoreFunc func(session string) Store
