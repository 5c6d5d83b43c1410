package notifier

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelKafka Channel = "kafka"
)

const (
	KindConfirmation  = "order.confirmation"
	KindAdminAlert    = "order.admin_alert"
	KindStatusUpdate  = "order.status_update"
	KindCreated       = "order.created"
	KindStatusChanged = "order.status_changed"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSending OutboxStatus = "sending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxMessage is one pre-rendered notification for one recipient, written
// in the same transaction as the order change that caused it.
type OutboxMessage struct {
	ID        string  `gorm:"type:varchar(36);primaryKey"`
	Channel   Channel `gorm:"type:varchar(10);not null"`
	Kind      string  `gorm:"type:varchar(40);not null"`
	OrderID   uint    `gorm:"index;not null"`
	Recipient string  `gorm:"not null"`
	Subject   string
	HTMLBody  string       `gorm:"type:text"`
	TextBody  string       `gorm:"type:text"`
	Status    OutboxStatus `gorm:"type:varchar(10);index;not null;default:pending"`
	Attempts  int          `gorm:"not null;default:0"`
	LastError string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"index"`
	UpdatedAt time.Time
	SentAt    *time.Time
}

func EmailMessage(kind string, orderID uint, e Email) OutboxMessage {
	return OutboxMessage{
		Channel:   ChannelEmail,
		Kind:      kind,
		OrderID:   orderID,
		Recipient: e.To,
		Subject:   e.Subject,
		HTMLBody:  e.HTML,
		TextBody:  e.Text,
	}
}

func SMSMessage(kind string, orderID uint, phone, text string) OutboxMessage {
	return OutboxMessage{Channel: ChannelSMS, Kind: kind, OrderID: orderID, Recipient: phone, TextBody: text}
}

// Enqueue stores msgs as pending. tx must be the transaction that writes the
// order change so the messages commit or roll back with it.
func Enqueue(tx *gorm.DB, msgs ...OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
		msgs[i].Status = OutboxPending
		msgs[i].Attempts = 0
	}
	return tx.Create(&msgs).Error
}
