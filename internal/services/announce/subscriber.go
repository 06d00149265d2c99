package announce

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Handler receives raw push payloads.
type Handler interface {
	Handle(ctx context.Context, payload []byte) Result
}

// Subscriber keeps a WebSocket subscription to the ready push channel open,
// reconnecting after a fixed delay until the context ends.
type Subscriber struct {
	url     string
	delay   time.Duration
	dialer  *websocket.Dialer
	handler Handler
	logger  *logger.Logger
}

func NewSubscriber(url string, reconnectDelay time.Duration, handler Handler, log *logger.Logger) *Subscriber {
	return &Subscriber{
		url:     url,
		delay:   reconnectDelay,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handler: handler,
		logger:  log,
	}
}

// Run blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := s.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Warn("push_disconnected", fmt.Sprintf("Push channel lost, reconnecting in %s", s.delay), "", map[string]interface{}{
			"url":   s.url,
			"error": models.NewChannelError("subscribe", err).Error(),
		})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.delay):
		}
	}
}

func (s *Subscriber) listen(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	// ReadMessage does not take a context; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.logger.Info("push_connected", "Subscribed to ready push channel", "", map[string]interface{}{
		"url": s.url,
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		msgCtx := logger.WithRequestID(ctx, logger.GenerateRequestID())
		result := s.handler.Handle(msgCtx, data)
		s.logger.Debug("push_message_received", "Ready event received", logger.RequestIDFromContext(msgCtx), map[string]interface{}{
			"result": result,
		})
	}
}
