package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Envelope is the message shape published to the broker. Downstream
// consumers (CRM sync, analytics) key off the routing key and Kind.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	TenantID   string          `json:"tenant_id"`
	CallID     string          `json:"call_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Routing keys for the topic exchange.
const (
	KeyCallCompleted  = "voice.call.completed"
	KeyBookingCreated = "voice.booking.created"
	KeyCallEscalated  = "voice.call.escalated"
)

// Publisher emits domain events. Publishing is best-effort: call handling
// never fails because the broker is down.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

// New connects to the broker and declares the topic exchange.
func New(url, exchange string, logger *slog.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &rmqPublisher{
		conn:     conn,
		exchange: exchange,
		log:      logger,
	}, nil
}

func (r *rmqPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType: "application/json",
			MessageId:   msg.ID,
			Timestamp:   msg.OccurredAt,
			Body:        body,
		},
	)
	if err != nil {
		r.log.Error("event publish failed", "key", key, "error", err)
		return err
	}
	return nil
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, Envelope) error { return nil }
func (NoopPublisher) Close() error                                    { return nil }
