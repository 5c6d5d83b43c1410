// Package orders persists checkouts and drives the order status lifecycle.
// Notifications are written to the outbox inside the same transaction as the
// order change and delivered after commit.
package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/cart"
	"github.com/Keoroanthony/go-dairydelight/internal/metrics"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/notifier"
	"github.com/Keoroanthony/go-dairydelight/internal/store"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusProcessing: {models.StatusShipped},
	models.StatusShipped:    {models.StatusDelivered},
	models.StatusDelivered:  {},
}

func ValidStatus(s models.OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Options selects the extra channels an order change is announced on.
type Options struct {
	SMS        bool
	KafkaTopic string
}

type Service struct {
	db         *gorm.DB
	orders     *store.Store[models.Order]
	dispatcher *notifier.Dispatcher
	opts       Options
}

// NewService returns a Service. dispatcher may be nil, in which case outbox
// rows wait for the next scheduled drain.
func NewService(conn *gorm.DB, dispatcher *notifier.Dispatcher, opts Options) *Service {
	return &Service{
		db:         conn,
		orders:     store.New[models.Order](conn),
		dispatcher: dispatcher,
		opts:       opts,
	}
}

type NewOrder struct {
	Items           []models.OrderItem
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	TotalPrice      decimal.Decimal
}

// Create persists an order in Processing. TotalPrice is taken as given; the
// caller owns pricing.
func (s *Service) Create(ctx context.Context, requester *models.User, in NewOrder) (*models.Order, error) {
	if requester == nil {
		return nil, apperr.Unauthorized("not authorized, please log in")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("No order items")
	}
	addr := in.ShippingAddress
	if addr.Address == "" || addr.City == "" || addr.PostalCode == "" {
		return nil, apperr.Validation("shipping address, city and postal code are required")
	}
	if addr.Country == "" {
		addr.Country = cart.DefaultCountry
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = cart.DefaultPaymentMethod
	}
	if in.TotalPrice.IsNegative() {
		return nil, apperr.Validation("total price cannot be negative")
	}

	items := make([]models.OrderItem, len(in.Items))
	for i, it := range in.Items {
		if it.Qty < 1 {
			return nil, apperr.Validation("quantity for %s must be at least 1", it.Name)
		}
		items[i] = models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Qty:       it.Qty,
		}
	}

	order := &models.Order{
		UserID:          requester.ID,
		OrderItems:      items,
		ShippingAddress: addr,
		PaymentMethod:   in.PaymentMethod,
		TotalPrice:      in.TotalPrice,
		Status:          models.StatusProcessing,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		var admins []models.User
		if err := tx.Where("role = ?", models.RoleAdmin).Order("id").Find(&admins).Error; err != nil {
			return apperr.Dependency(err, "failed to load admins")
		}

		return s.enqueue(tx, s.createdMessages(order, requester, admins))
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.dispatcher.Notify()
	slog.InfoContext(ctx, "order created", "order_id", order.ID, "user_id", requester.ID, "total", order.TotalPrice.String())

	order.User = requester
	return order, nil
}

// AdvanceStatus moves an order one step along the lifecycle. Asking for the
// current status is a no-op that writes and notifies nothing.
func (s *Service) AdvanceStatus(ctx context.Context, id uint, next models.OrderStatus) (*models.Order, error) {
	if !ValidStatus(next) {
		return nil, apperr.Validation("invalid order status %q", next)
	}

	var order models.Order
	changed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("OrderItems").Preload("User").First(&order, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Order not found")
		}
		if err != nil {
			return apperr.Dependency(err, "failed to load order")
		}

		prev := order.Status
		if prev == next {
			return nil
		}
		if !CanTransition(prev, next) {
			return apperr.Validation("cannot move order from %s to %s", prev, next)
		}

		now := time.Now()
		updates := map[string]any{"status": next, "updated_at": now}
		if next == models.StatusDelivered {
			updates["delivered_at"] = now
		}

		res := tx.Model(&models.Order{}).Where("id = ? AND status = ?", id, prev).Updates(updates)
		if res.Error != nil {
			return apperr.Dependency(res.Error, "failed to update order status")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order %d was updated concurrently, reload and retry", id)
		}

		order.Status = next
		order.UpdatedAt = now
		if next == models.StatusDelivered {
			order.DeliveredAt = &now
		}
		changed = true

		return s.enqueue(tx, s.statusMessages(&order, prev))
	})
	if err != nil {
		metrics.StatusTransitions.WithLabelValues(string(next), "rejected").Inc()
		return nil, err
	}

	if !changed {
		metrics.StatusTransitions.WithLabelValues(string(next), "noop").Inc()
		return &order, nil
	}

	metrics.StatusTransitions.WithLabelValues(string(next), "applied").Inc()
	s.dispatcher.Notify()
	slog.InfoContext(ctx, "order status updated", "order_id", order.ID, "status", next)
	return &order, nil
}

// Get returns the order to its owner or an admin.
func (s *Service) Get(ctx context.Context, id uint, requester *models.User) (*models.Order, error) {
	if requester == nil {
		return nil, apperr.Unauthorized("not authorized, please log in")
	}

	order, err := s.orders.FindByID(ctx, id, "OrderItems", "User")
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("Order not found")
	}
	if !requester.IsAdmin() && order.UserID != requester.ID {
		return nil, apperr.Unauthorized("Not authorized to view this order")
	}
	return order, nil
}

func (s *Service) ListOwn(ctx context.Context, userID uint) ([]models.Order, error) {
	own := func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID).Preload("OrderItems")
	}
	return s.list(ctx, own)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	all := func(tx *gorm.DB) *gorm.DB {
		return tx.Preload("OrderItems").Preload("User")
	}
	return s.list(ctx, all)
}

func (s *Service) list(ctx context.Context, pred store.Predicate) ([]models.Order, error) {
	out, err := s.orders.FindMany(ctx, pred, store.Page{})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Order{}
	}
	return out, nil
}

func (s *Service) enqueue(tx *gorm.DB, msgs []notifier.OutboxMessage) error {
	if err := notifier.Enqueue(tx, msgs...); err != nil {
		return apperr.Dependency(err, "failed to queue notifications")
	}
	return nil
}
