// Package publisher fans committed order changes out over a RabbitMQ topic
// exchange. Routing key is order.<store_id>.<order_id>, so one binding can
// follow a single order (order.*.<id>), a store (order.<store>.*), or the
// whole platform (order.#).
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"ordering-platform/internal/domain"
	"ordering-platform/internal/metrics"
)

const Exchange = "orders.changes"

func RoutingKey(storeID, orderID uuid.UUID) string {
	return fmt.Sprintf("order.%s.%s", storeID, orderID)
}

func OrderBinding(orderID uuid.UUID) string { return fmt.Sprintf("order.*.%s", orderID) }
func StoreBinding(storeID uuid.UUID) string { return fmt.Sprintf("order.%s.*", storeID) }
func PlatformBinding() string               { return "order.#" }

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) PublishChange(ctx context.Context, o domain.Order) error {
	body, err := json.Marshal(domain.NewChangeEvent(o))
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	pub := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: o.ID.String(),
		Timestamp:     time.Now().UTC(),
		Headers: amqp.Table{
			"x-source": "orders-api",
		},
		Body: body,
	}

	if err := p.ch.PublishWithContext(ctx, Exchange, RoutingKey(o.StoreID, o.ID), false, false, pub); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	metrics.EventsPublished.Inc()
	return nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
