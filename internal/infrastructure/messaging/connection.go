// Package messaging carries order events in and notifications out over RabbitMQ.
package messaging

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Dial opens a connection to the broker
func Dial(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	return conn, nil
}

// declareExchange declares a durable topic exchange on a short-lived channel
func declareExchange(conn *amqp091.Connection, exchange string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange,
		amqp091.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}
