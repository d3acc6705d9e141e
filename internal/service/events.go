// Package service holds collaborators that handlers call after a write
// succeeds.  Publishing is best effort: errors are logged and returned so
// callers can ignore them without interrupting the request.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/queue"
)

// dialTimeout bounds how long a write request can wait on an unreachable
// broker.
const dialTimeout = 2 * time.Second

// EventPublisher emits movie change notifications.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.MovieEvent) error
}

// NewEventPublisher returns an AMQP publisher when events are enabled and
// a no-op otherwise.
func NewEventPublisher(cfg config.QueueConfig) EventPublisher {
	if !cfg.Enabled {
		return NopPublisher{}
	}
	return &AMQPPublisher{URL: cfg.URL, Queue: cfg.Queue}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.MovieEvent) error { return nil }

// AMQPPublisher sends events to a durable RabbitMQ queue through the
// default exchange.  A connection is dialed per publish; writes are rare
// enough that holding a long-lived channel is not worth the reconnect logic.
type AMQPPublisher struct {
	URL   string
	Queue string
}

// Publish marshals ev and sends it as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.MovieEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		slog.Warn("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Warn("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		slog.Warn("rabbitmq: queue declare failed", "queue", p.Queue, "error", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("rabbitmq: marshal event failed", "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		slog.Warn("rabbitmq: publish failed", "queue", p.Queue, "error", err)
		return err
	}
	return nil
}
