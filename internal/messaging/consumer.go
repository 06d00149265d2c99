package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cafe-pos/internal/logger"
)

// MessageHandler processes one delivery body
type MessageHandler func(ctx context.Context, body []byte) error

// ErrDiscard marks a message that can never be processed. The consumer
// drops it instead of requeueing.
var ErrDiscard = errors.New("discard message")

// Discard wraps err so the consumer will not requeue the message.
func Discard(err error) error {
	return fmt.Errorf("%w: %w", ErrDiscard, err)
}

// acknowledger is the part of amqp091.Delivery the consumer settles with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer handles message consumption from RabbitMQ
type Consumer struct {
	conn           *Connection
	logger         *logger.Logger
	queueName      string
	consumerTag    string
	prefetch       int
	processTimeout time.Duration
}

// NewConsumer creates a new message consumer
func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:           conn,
		logger:         log,
		queueName:      queueName,
		consumerTag:    consumerTag,
		prefetch:       prefetch,
		processTimeout: 2 * time.Minute,
	}
}

// StartConsuming consumes until ctx is cancelled, reconnecting when the
// broker closes the delivery channel. Cancellation is a clean stop and
// returns nil.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			c.logger.Info("consumer_stopped", "Consumer stopped by context", "", map[string]interface{}{
				"queue": c.queueName,
			})
			return nil
		}
		if err != nil {
			return err
		}

		c.logger.Error("consumer_channel_closed", "Message channel closed, attempting to reconnect", "", nil, map[string]interface{}{
			"queue": c.queueName,
		})
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect after channel closed: %w", err)
		}
	}
}

// consume returns nil when the delivery channel closes.
func (c *Consumer) consume(ctx context.Context, handler MessageHandler) error {
	if c.conn.IsClosed() {
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(c.queueName, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from queue %s", c.queueName),
		"", map[string]interface{}{
			"queue":    c.queueName,
			"consumer": c.consumerTag,
			"prefetch": c.prefetch,
		})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.processMessage(ctx, &d, d.RoutingKey, d.DeliveryTag, d.Body, handler)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, ack acknowledger, routingKey string, tag uint64, body []byte, handler MessageHandler) {
	startTime := time.Now()
	requestID := logger.GenerateRequestID()
	fields := map[string]interface{}{
		"queue":        c.queueName,
		"routing_key":  routingKey,
		"delivery_tag": tag,
	}

	processingCtx, cancel := context.WithTimeout(logger.WithRequestID(ctx, requestID), c.processTimeout)
	defer cancel()

	err := handler(processingCtx, body)
	fields["duration_ms"] = time.Since(startTime).Milliseconds()

	if err != nil {
		requeue := !errors.Is(err, ErrDiscard)
		fields["requeue"] = requeue
		c.logger.Error("message_processing_failed", "Failed to process message", requestID, err, fields)

		if nackErr := ack.Nack(false, requeue); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", requestID, nackErr, nil)
		}
		return
	}

	c.logger.Debug("message_processed", "Successfully processed message", requestID, fields)
	if ackErr := ack.Ack(false); ackErr != nil {
		c.logger.Error("message_ack_failed", "Failed to ack message", requestID, ackErr, nil)
	}
}

// Close cancels the consumer
func (c *Consumer) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Channel().Cancel(c.consumerTag, false); err != nil {
			c.logger.Error("consumer_cancel_failed", "Failed to cancel consumer", "", err, nil)
			return err
		}
	}
	return nil
}

var _ acknowledger = (*amqp091.Delivery)(nil)
