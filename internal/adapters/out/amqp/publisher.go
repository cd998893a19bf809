// Package amqp publishes committed order status events to a RabbitMQ topic
// exchange so analytics and other off-process consumers can follow the
// order flow without touching the database.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the durable topic exchange events are published to.
	ExchangeName = "order_events_topic"

	// DefaultQueueSize bounds the publisher's intake queue. Publish never
	// blocks the mutation path; a full queue drops the event with a log
	// line instead.
	DefaultQueueSize = 256
)

// statusEventMessage is the wire form of one status change.
// PreviousStatus is empty for the creation event.
type statusEventMessage struct {
	OrderID        string    `json:"order_id"`
	CustomerID     string    `json:"customer_id"`
	RestaurantID   string    `json:"restaurant_id"`
	PartnerID      *string   `json:"partner_id,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status"`
	ActorRole      string    `json:"actor_role"`
	Version        int       `json:"version"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher implements ports.EventPublisher over a RabbitMQ topic exchange.
//
// Events go out with routing key "order.status.<new_status>", so consumers
// bind "order.status.cancelled" for refund handling, "order.status.#" for
// the full feed, and so on. Publishing runs on a single worker goroutine
// fed by a bounded queue, which keeps broker latency and broker outages out
// of the order mutation path.
type Publisher struct {
	channel *amqp.Channel
	logger  *slog.Logger

	queue chan ports.StatusEvent
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPublisher opens a channel on the given connection, declares the
// exchange, and starts the delivery worker. Non-positive queueSize falls
// back to DefaultQueueSize. Call Close to stop the worker and release the
// channel.
func NewPublisher(conn *amqp.Connection, logger *slog.Logger, queueSize int) (*Publisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err = channel.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Publisher{
		channel: channel,
		logger:  logger.With("component", "amqp_publisher"),
		queue:   make(chan ports.StatusEvent, queueSize),
		done:    make(chan struct{}),
	}

	p.wg.Add(1)
	go p.run()

	return p, nil
}

// Publish enqueues the event for delivery and returns immediately.
func (p *Publisher) Publish(event ports.StatusEvent) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- event:
	default:
		p.logger.Warn("publish queue full, dropping event",
			"order_id", event.OrderID.String(),
			"version", event.Version)
	}
}

// Close stops the worker and closes the channel. Queued events that were
// not yet delivered are discarded.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		err = p.channel.Close()
	})
	return err
}

func (p *Publisher) run() {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.queue:
			if err := p.deliver(event); err != nil {
				p.logger.Error("failed to publish event",
					"order_id", event.OrderID.String(),
					"version", event.Version,
					"error", err)
			}
		case <-p.done:
			return
		}
	}
}

func (p *Publisher) deliver(event ports.StatusEvent) error {
	msg := statusEventMessage{
		OrderID:      event.OrderID.String(),
		CustomerID:   event.CustomerID.String(),
		RestaurantID: event.RestaurantID.String(),
		NewStatus:    event.New.String(),
		ActorRole:    event.ActorRole.String(),
		Version:      event.Version,
		OccurredAt:   event.OccurredAt,
	}
	if event.Previous != order.Unknown {
		msg.PreviousStatus = event.Previous.String()
	}
	if event.PartnerID != nil {
		partnerID := event.PartnerID.String()
		msg.PartnerID = &partnerID
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	routingKey := fmt.Sprintf("order.status.%s", event.New)

	err = p.channel.PublishWithContext(context.Background(),
		ExchangeName, routingKey, false, false, amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
