package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

const (
	exchangeName = "jirabot.auth.events"
)

// AMQPPublisher mirrors lifecycle events onto a RabbitMQ topic exchange so
// downstream consumers (usage analytics, session auditing) can subscribe.
// Delivery is fire-and-forget; a publish error is logged and dropped.
type AMQPPublisher struct {
	conn   *amqp.Connection
	logger *slog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPPublisher(url string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, ch: ch, logger: logger}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev domain.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("amqp event marshal failed", "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, exchangeName, string(ev.Kind), false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		p.logger.Warn("amqp event publish failed",
			"kind", string(ev.Kind), "error", err)
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
	}
	return p.conn.Close()
}
