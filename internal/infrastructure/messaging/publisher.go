package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Publisher publishes payloads to an exchange
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Message is one outgoing payload
type Message struct {
	RoutingKey string
	MessageID  string
	Body       []byte
	Timestamp  time.Time
}

// RabbitPublisher publishes persistent JSON messages to a topic exchange
type RabbitPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

// NewRabbitPublisher declares exchange and returns a publisher for it
func NewRabbitPublisher(conn *amqp091.Connection, exchange string) (*RabbitPublisher, error) {
	if err := declareExchange(conn, exchange); err != nil {
		return nil, err
	}
	return &RabbitPublisher{conn: conn, exchange: exchange}, nil
}

// Publish sends msg. A channel is opened per call since amqp channels are
// not safe for concurrent publishing.
func (p *RabbitPublisher) Publish(ctx context.Context, msg Message) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.PublishWithContext(ctx, p.exchange, msg.RoutingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    msg.Timestamp,
		Body:         msg.Body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", msg.RoutingKey, err)
	}
	return nil
}

var _ Publisher = (*RabbitPublisher)(nil)
