// Package service publishes review events to RabbitMQ. Publishing is best
// effort: callers log a failure and carry on.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/movie-reviews/internal/queue"
)

// Publisher sends review events to downstream consumers.
type Publisher interface {
	PublishReviewEvent(ctx context.Context, ev queue.ReviewEvent) error
}

// AMQPPublisher publishes each event on its own short-lived connection to
// the default exchange, routed to a durable queue.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *slog.Logger
}

// NewAMQPPublisher returns a publisher for queueName on the broker at url.
func NewAMQPPublisher(url, queueName string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{url: url, queue: queueName, logger: logger}
}

// PublishReviewEvent marshals ev and publishes it as a persistent message.
func (p *AMQPPublisher) PublishReviewEvent(ctx context.Context, ev queue.ReviewEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent. Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.logger.Debug("review event published", slog.String("type", ev.Type), slog.String("review_id", ev.ReviewID))
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReviewEvent(context.Context, queue.ReviewEvent) error { return nil }
