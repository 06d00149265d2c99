package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cafe-pos/internal/logger"
)

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishOrderPlaced publishes a committed order to the orders topic exchange
func (p *Publisher) PublishOrderPlaced(ctx context.Context, msg interface{}, routingKey string) error {
	return p.publishMessage(ctx, OrdersExchange, routingKey, msg, true)
}

// PublishNotification publishes a status update to the notifications fanout exchange
func (p *Publisher) PublishNotification(ctx context.Context, msg interface{}) error {
	return p.publishMessage(ctx, NotificationsExchange, "", msg, false)
}

func newPublishing(message interface{}, persistent bool, now time.Time) (amqp091.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	deliveryMode := amqp091.Transient
	if persistent {
		deliveryMode = amqp091.Persistent
	}

	return amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: deliveryMode,
		Timestamp:    now,
	}, nil
}

func (p *Publisher) publishMessage(ctx context.Context, exchange, routingKey string, message interface{}, persistent bool) error {
	requestID := logger.RequestIDFromContext(ctx)

	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	publishing, err := newPublishing(message, persistent, time.Now())
	if err != nil {
		return err
	}
	publishing.MessageId = requestID

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(ctx, exchange, routingKey, false, false, publishing)
	if err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", exchange),
			requestID, err, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", exchange),
		requestID, map[string]interface{}{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(publishing.Body),
		})

	return nil
}
