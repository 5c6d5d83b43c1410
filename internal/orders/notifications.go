package orders

import (
	"log/slog"

	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/notifier"
)

// createdMessages renders the confirmation for customer and one alert per
// admin. A message that fails to render is logged and skipped; it never
// blocks the order.
func (s *Service) createdMessages(order *models.Order, customer *models.User, admins []models.User) []notifier.OutboxMessage {
	var msgs []notifier.OutboxMessage

	if email, err := notifier.OrderConfirmation(order, customer); err != nil {
		logRenderFailure(order.ID, customer.Email, err)
	} else {
		msgs = append(msgs, notifier.EmailMessage(notifier.KindConfirmation, order.ID, email))
	}

	for i := range admins {
		email, err := notifier.AdminAlert(order, customer, &admins[i])
		if err != nil {
			logRenderFailure(order.ID, admins[i].Email, err)
			continue
		}
		msgs = append(msgs, notifier.EmailMessage(notifier.KindAdminAlert, order.ID, email))
	}

	if s.opts.SMS && customer.Phone != "" {
		msgs = append(msgs, notifier.SMSMessage(notifier.KindConfirmation, order.ID, customer.Phone, notifier.ConfirmationSMS(order)))
	}

	return append(msgs, s.event(notifier.KindCreated, order, "")...)
}

func (s *Service) statusMessages(order *models.Order, prev models.OrderStatus) []notifier.OutboxMessage {
	var msgs []notifier.OutboxMessage

	if order.User != nil {
		if email, err := notifier.StatusUpdate(order, order.User); err != nil {
			logRenderFailure(order.ID, order.User.Email, err)
		} else {
			msgs = append(msgs, notifier.EmailMessage(notifier.KindStatusUpdate, order.ID, email))
		}
	}

	return append(msgs, s.event(notifier.KindStatusChanged, order, prev)...)
}

func (s *Service) event(kind string, order *models.Order, prev models.OrderStatus) []notifier.OutboxMessage {
	if s.opts.KafkaTopic == "" {
		return nil
	}
	msg, err := notifier.EventMessage(s.opts.KafkaTopic, notifier.NewOrderEvent(kind, order, prev))
	if err != nil {
		logRenderFailure(order.ID, s.opts.KafkaTopic, err)
		return nil
	}
	return []notifier.OutboxMessage{msg}
}

func logRenderFailure(orderID uint, recipient string, err error) {
	slog.Error("failed to render notification", "order_id", orderID, "recipient", recipient, "error", err)
}
