// Package queue publishes complaint lifecycle events to RabbitMQ so
// downstream consumers (notifiers, dashboards) can react without the
// HTTP path waiting on them. Publishing is optional: without a broker
// URL the server runs with a no-op publisher.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ComplaintEvent describes one lifecycle change of a complaint.
type ComplaintEvent struct {
	ComplaintID string    `json:"complaint_id"`
	Action      string    `json:"action"`
	Status      string    `json:"status,omitempty"`
	Title       string    `json:"title,omitempty"`
	Category    string    `json:"category,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher emits complaint events. Implementations must be safe for
// concurrent use by HTTP handlers.
type Publisher interface {
	Publish(ctx context.Context, event ComplaintEvent) error
}

// Connect dials RabbitMQ and opens a channel.
func Connect(uri string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return conn, ch, nil
}

// AMQPPublisher publishes events to a durable queue.
type AMQPPublisher struct {
	ch        *amqp.Channel
	queueName string
}

// NewAMQPPublisher declares the queue and returns a publisher bound to it.
func NewAMQPPublisher(ch *amqp.Channel, queueName string) (*AMQPPublisher, error) {
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPPublisher{ch: ch, queueName: queueName}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event ComplaintEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ComplaintEvent) error { return nil }
