package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DeliveryHandler processes one delivery. Returning a PermanentError drops
// the message; any other error requeues it.
type DeliveryHandler func(ctx context.Context, d amqp091.Delivery) error

// PermanentError marks a delivery that will never succeed, such as an
// undecodable payload
type PermanentError struct {
	Err error
}

// Error implements the error interface
func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a PermanentError
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is or wraps a PermanentError
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// ConsumerConfig describes the queue a consumer reads and how it binds
type ConsumerConfig struct {
	Exchange    string
	Queue       string
	RoutingKeys []string
	Prefetch    int
	Workers     int
}

// Consumer reads a durable queue with a fixed pool of workers
type Consumer struct {
	conn   *amqp091.Connection
	cfg    ConsumerConfig
	logger *zap.Logger
}

// NewRabbitConsumer declares the exchange and queue and binds each routing key
func NewRabbitConsumer(conn *amqp091.Connection, cfg ConsumerConfig, logger *zap.Logger) (*Consumer, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Prefetch < cfg.Workers {
		cfg.Prefetch = cfg.Workers
	}
	if err := declareExchange(conn, cfg.Exchange); err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	for _, key := range cfg.RoutingKeys {
		if err := ch.QueueBind(cfg.Queue, key, cfg.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind %s to %s: %w", key, cfg.Queue, err)
		}
	}

	return &Consumer{conn: conn, cfg: cfg, logger: logger}, nil
}

// Run consumes until ctx is cancelled or the channel closes
func (c *Consumer) Run(ctx context.Context, handler DeliveryHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", c.cfg.Queue, err)
	}

	c.logger.Info("consumer started",
		zap.String("queue", c.cfg.Queue),
		zap.Int("workers", c.cfg.Workers),
		zap.Int("prefetch", c.cfg.Prefetch),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						return nil
					}
					Settle(d, handler(ctx, d), c.logger)
				}
			}
		})
	}
	return g.Wait()
}

// Settle acknowledges d according to the handler result
func Settle(d amqp091.Delivery, err error, logger *zap.Logger) {
	fields := []zap.Field{
		zap.String("routing_key", d.RoutingKey),
		zap.String("message_id", d.MessageId),
	}

	var ackErr error
	switch {
	case err == nil:
		ackErr = d.Ack(false)
	case IsPermanent(err):
		logger.Error("dropping undeliverable message", append(fields, zap.Error(err))...)
		ackErr = d.Reject(false)
	default:
		logger.Warn("requeueing message", append(fields, zap.Error(err))...)
		ackErr = d.Nack(false, !d.Redelivered)
	}
	if ackErr != nil {
		logger.Error("failed to settle message", append(fields, zap.Error(ackErr))...)
	}
}
