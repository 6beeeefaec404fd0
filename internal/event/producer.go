package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topics for storefront domain events.
var (
	TopicCartSynced       = pkgkafka.Topic("cart", "synced")
	TopicOrderCreated     = pkgkafka.Topic("order", "created")
	TopicPaymentCompleted = pkgkafka.Topic("payment", "completed")
	TopicPaymentFailed    = pkgkafka.Topic("payment", "failed")
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events originating from this client core.
const SourceStorefront = "storefront"

// CartSyncedData is the payload for a cart.synced event.
type CartSyncedData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID string        `json:"order_id"`
	UserID  string        `json:"user_id,omitempty"`
	Totals  domain.Totals `json:"totals"`
}

// PaymentCompletedData is the payload for a payment.completed event.
type PaymentCompletedData struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id,omitempty"`
}

// PaymentFailedData is the payload for a payment.failed event.
type PaymentFailedData struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status,omitempty"`
	Reason        string `json:"reason"`
}

// Publisher publishes storefront domain events. Callers log failures and
// carry on; a lost event never fails a cart or checkout operation.
type Publisher interface {
	PublishCartSynced(ctx context.Context, data CartSyncedData) error
	PublishOrderCreated(ctx context.Context, data OrderCreatedData) error
	PublishPaymentCompleted(ctx context.Context, data PaymentCompletedData) error
	PublishPaymentFailed(ctx context.Context, data PaymentFailedData) error
}

// Sender delivers an event envelope to a topic. *pkgkafka.Producer
// implements it.
type Sender interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  Sender
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Sender, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEventFromContext(ctx, topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCartSynced publishes a cart.synced event keyed by the merged session.
func (p *Producer) PublishCartSynced(ctx context.Context, data CartSyncedData) error {
	return p.publish(ctx, TopicCartSynced, data.SessionID, AggregateTypeCart, data)
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, data OrderCreatedData) error {
	return p.publish(ctx, TopicOrderCreated, data.OrderID, AggregateTypeOrder, data)
}

// PublishPaymentCompleted publishes a payment.completed event.
func (p *Producer) PublishPaymentCompleted(ctx context.Context, data PaymentCompletedData) error {
	return p.publish(ctx, TopicPaymentCompleted, data.OrderID, AggregateTypeOrder, data)
}

// PublishPaymentFailed publishes a payment.failed event.
func (p *Producer) PublishPaymentFailed(ctx context.Context, data PaymentFailedData) error {
	return p.publish(ctx, TopicPaymentFailed, data.OrderID, AggregateTypeOrder, data)
}

// Noop discards every event. It is used when events are disabled.
type Noop struct{}

func (Noop) PublishCartSynced(context.Context, CartSyncedData) error             { return nil }
func (Noop) PublishOrderCreated(context.Context, OrderCreatedData) error         { return nil }
func (Noop) PublishPaymentCompleted(context.Context, PaymentCompletedData) error { return nil }
func (Noop) PublishPaymentFailed(context.Context, PaymentFailedData) error       { return nil }
