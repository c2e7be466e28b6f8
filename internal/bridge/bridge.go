// Package bridge consumes the change stream from RabbitMQ and hands each
// event to the websocket hub for per-viewer fan-out.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ordering-platform/internal/domain"
	"ordering-platform/internal/publisher"
)

const queueName = "orders.changes.push"

type Hub interface {
	Broadcast(ev domain.ChangeEvent)
}

type Bridge struct {
	url string
	hub Hub
	lg  *slog.Logger
}

func New(url string, hub Hub, lg *slog.Logger) *Bridge {
	return &Bridge{url: url, hub: hub, lg: lg}
}

// Run consumes until ctx is cancelled, redialling with capped backoff when
// the connection drops. Malformed payloads are dead-lettered rather than
// requeued; requeueing them would loop forever.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := b.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		b.lg.Error("consume_loop_stopped", "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (b *Bridge) consume(ctx context.Context) error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(publisher.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queueName, publisher.PlatformBinding(), publisher.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		return err
	}

	closeCh := ch.NotifyClose(make(chan *amqp.Error, 1))

	msgs, err := ch.Consume(queueName, "change-bridge", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	b.lg.Info("bridge_consuming", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-closeCh:
			return fmt.Errorf("channel closed: %v", e)
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				b.lg.Error("bad_change_event", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			b.hub.Broadcast(ev)
			_ = d.Ack(false)
		}
	}
}
