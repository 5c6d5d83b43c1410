package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

// OrderEvent is the payload published for order lifecycle changes.
type OrderEvent struct {
	Type           string             `json:"type"`
	OrderID        uint               `json:"orderId"`
	UserID         uint               `json:"userId"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previousStatus,omitempty"`
	TotalPrice     decimal.Decimal    `json:"totalPrice"`
	ItemCount      int                `json:"itemCount"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

func NewOrderEvent(kind string, order *models.Order, previous models.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:           kind,
		OrderID:        order.ID,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalPrice:     order.TotalPrice,
		ItemCount:      len(order.OrderItems),
		OccurredAt:     time.Now().UTC(),
	}
}

// EventMessage addresses ev to topic. The JSON payload travels in TextBody.
func EventMessage(topic string, ev OrderEvent) (OutboxMessage, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal %s event: %w", ev.Type, err)
	}
	return OutboxMessage{
		Channel:   ChannelKafka,
		Kind:      ev.Type,
		OrderID:   ev.OrderID,
		Recipient: topic,
		TextBody:  string(payload),
	}, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Deliver publishes msg to the topic named by its recipient, keyed by order
// id so one order's events stay on one partition.
func (p *KafkaPublisher) Deliver(ctx context.Context, msg OutboxMessage) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Recipient,
		Key:   []byte(strconv.FormatUint(uint64(msg.OrderID), 10)),
		Value: []byte(msg.TextBody),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(msg.Kind)},
			{Key: "message-id", Value: []byte(msg.ID)},
		},
		Time: time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
