package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	config "github.com/Keoroanthony/go-dairydelight/configs"
	"github.com/Keoroanthony/go-dairydelight/internal/metrics"
)

// Deliverer hands one outbox message to its transport.
type Deliverer interface {
	Deliver(ctx context.Context, msg OutboxMessage) error
}

type DelivererFunc func(ctx context.Context, msg OutboxMessage) error

func (f DelivererFunc) Deliver(ctx context.Context, msg OutboxMessage) error { return f(ctx, msg) }

type EmailDeliverer struct {
	Sender EmailSender
}

func (d EmailDeliverer) Deliver(ctx context.Context, msg OutboxMessage) error {
	return d.Sender.SendEmail(ctx, Email{
		To:      msg.Recipient,
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
	})
}

type SMSDeliverer struct {
	Sender SMSSender
}

func (d SMSDeliverer) Deliver(ctx context.Context, msg OutboxMessage) error {
	return d.Sender.SendSMS(ctx, msg.Recipient, msg.TextBody)
}

// Dispatcher drains committed outbox messages. Delivery failures are logged
// and recorded on the row; they never reach the request that caused them.
type Dispatcher struct {
	db           *gorm.DB
	deliverers   map[Channel]Deliverer
	interval     time.Duration
	batchSize    int
	maxAttempts  int
	claimTimeout time.Duration
	kick         chan struct{}
}

func NewDispatcher(conn *gorm.DB, cfg config.NotificationConfig) *Dispatcher {
	d := &Dispatcher{
		db:           conn,
		deliverers:   map[Channel]Deliverer{},
		interval:     cfg.Interval,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		claimTimeout: cfg.ClaimTimeout,
		kick:         make(chan struct{}, 1),
	}
	if d.interval <= 0 {
		d.interval = 5 * time.Second
	}
	if d.batchSize <= 0 {
		d.batchSize = 50
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 1
	}
	if d.claimTimeout <= 0 {
		d.claimTimeout = 5 * time.Minute
	}
	return d
}

func (d *Dispatcher) Register(ch Channel, del Deliverer) {
	d.deliverers[ch] = del
}

// Notify wakes the run loop without blocking. Safe on a nil Dispatcher.
func (d *Dispatcher) Notify() {
	if d == nil {
		return
	}
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Start drains on every tick and every Notify until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	slog.Info("notification dispatcher started", "interval", d.interval, "batch", d.batchSize)
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification dispatcher stopped")
			return
		case <-ticker.C:
		case <-d.kick:
		}
		if _, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			slog.Error("failed to drain outbox", "error", err)
		}
	}
}

// Drain delivers up to one batch of pending messages and returns how many
// were sent.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	if err := d.releaseStale(ctx); err != nil {
		return 0, err
	}

	var batch []OutboxMessage
	err := d.db.WithContext(ctx).
		Where("status = ?", OutboxPending).
		Order("created_at").Order("id").
		Limit(d.batchSize).
		Find(&batch).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load outbox: %w", err)
	}

	sent := 0
	for _, msg := range batch {
		claimed, err := d.claim(ctx, msg.ID)
		if err != nil {
			return sent, err
		}
		if !claimed {
			continue
		}
		if d.deliver(ctx, msg) {
			sent++
		}
	}
	return sent, nil
}

// releaseStale puts rows claimed longer than claimTimeout ago back to
// pending. Their delivery may already have happened, so a release can
// deliver a message twice.
func (d *Dispatcher) releaseStale(ctx context.Context) error {
	res := d.db.WithContext(ctx).Model(&OutboxMessage{}).
		Where("status = ? AND updated_at < ?", OutboxSending, time.Now().Add(-d.claimTimeout)).
		Updates(map[string]any{"status": OutboxPending, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to release stale outbox claims: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		slog.WarnContext(ctx, "released stale outbox claims", "count", res.RowsAffected)
	}
	return nil
}

// claim moves a pending row to sending; false means another drain got it.
func (d *Dispatcher) claim(ctx context.Context, id string) (bool, error) {
	res := d.db.WithContext(ctx).Model(&OutboxMessage{}).
		Where("id = ? AND status = ?", id, OutboxPending).
		Updates(map[string]any{"status": OutboxSending, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim outbox message %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg OutboxMessage) bool {
	var err error
	if del, ok := d.deliverers[msg.Channel]; ok {
		err = del.Deliver(ctx, msg)
	} else {
		err = fmt.Errorf("no deliverer registered for channel %q", msg.Channel)
	}

	attempts := msg.Attempts + 1
	updates := map[string]any{"attempts": attempts}

	if err == nil {
		now := time.Now()
		updates["status"] = OutboxSent
		updates["sent_at"] = &now
		updates["last_error"] = ""
		metrics.Notifications.WithLabelValues(string(msg.Channel), "sent").Inc()
	} else {
		status := OutboxPending
		if attempts >= d.maxAttempts {
			status = OutboxFailed
		}
		updates["status"] = status
		updates["last_error"] = err.Error()
		metrics.Notifications.WithLabelValues(string(msg.Channel), "failed").Inc()
		slog.ErrorContext(ctx, "notification delivery failed",
			"order_id", msg.OrderID,
			"channel", msg.Channel,
			"kind", msg.Kind,
			"recipient", msg.Recipient,
			"attempt", attempts,
			"error", err,
		)
	}

	// recorded even after ctx is cancelled, or the row would stay in sending
	if uerr := d.db.WithContext(context.WithoutCancel(ctx)).Model(&OutboxMessage{}).
		Where("id = ?", msg.ID).Updates(updates).Error; uerr != nil {
		slog.ErrorContext(ctx, "failed to record outbox result", "id", msg.ID, "error", uerr)
	}
	return err == nil
}
