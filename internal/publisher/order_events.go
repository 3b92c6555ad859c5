package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
)

const TopicOrderEvents = "shop.order.events"

const EventOrderPlaced = "order.placed"

// OrderPlacedEvent is emitted after a checkout commits its order document.
type OrderPlacedEvent struct {
	EventID   string             `json:"event_id"`
	Event     string             `json:"event"`
	OrderID   string             `json:"order_id"`
	UserID    string             `json:"user_id"`
	Products  []domain.OrderLine `json:"products"`
	Total     float64            `json:"total"`
	Timestamp time.Time          `json:"timestamp"`
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEventPublisher writes order events to Kafka. Publishing is
// best-effort: checkout never fails because the broker is down.
type OrderEventPublisher struct {
	writer kafkaWriter
	logger *log.Entry
}

func NewOrderEventPublisher(brokers []string) *OrderEventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicOrderEvents,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 5 * time.Second,
	}

	return &OrderEventPublisher{
		writer: writer,
		logger: log.WithField("component", "order-events"),
	}
}

func (p *OrderEventPublisher) OrderPlaced(ctx context.Context, order domain.Order) error {
	event := OrderPlacedEvent{
		EventID:   uuid.NewString(),
		Event:     EventOrderPlaced,
		OrderID:   order.ID.Hex(),
		UserID:    order.UserID.Hex(),
		Products:  order.Products,
		Total:     order.Total,
		Timestamp: time.Now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := kafka.Message{
		// Key by user so one customer's orders stay ordered per partition.
		Key:   []byte(event.UserID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithError(err).WithField("order_id", event.OrderID).
			Error("failed to publish order event")
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"order_id": event.OrderID,
		"event_id": event.EventID,
	}).Debug("order event published")

	return nil
}

func (p *OrderEventPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
