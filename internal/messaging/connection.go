package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
)

const (
	OrdersExchange        = "orders_topic"
	NotificationsExchange = "notifications_fanout"
	BaristaQueue          = "barista_queue"
	NotificationsQueue    = "notifications_queue"
)

// Connection wraps RabbitMQ connection with reconnection logic
type Connection struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New creates a new RabbitMQ connection and declares the topology
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}

	if err := conn.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Connection) connect() error {
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if setupErr := setupTopology(c.channel); setupErr != nil {
					c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", setupErr, nil)
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, nil)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// declarer is the part of *amqp091.Channel the topology needs.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
}

type binding struct {
	queue      string
	routingKey string
	exchange   string
}

// Bindings lists which queue receives which messages.
var bindings = []binding{
	{BaristaQueue, "barista.*", OrdersExchange},
	{NotificationsQueue, "", NotificationsExchange},
}

func setupTopology(ch declarer) error {
	if err := ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", OrdersExchange, err)
	}
	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", NotificationsExchange, err)
	}

	_, err := ch.QueueDeclare(BaristaQueue, true, false, false, false, amqp091.Table{
		"x-message-ttl": int32(30 * 60 * 1000), // drinks older than 30 minutes are stale
	})
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", BaristaQueue, err)
	}
	if _, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", NotificationsQueue, err)
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %q: %w", b.queue, b.routingKey, err)
		}
	}
	return nil
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed checks if the connection is closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed()
}

// Reconnect attempts to reconnect to RabbitMQ
func (c *Connection) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return c.connect()
}
