package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/models"
)

// Broadcaster pushes a payload to connected announcers.
type Broadcaster interface {
	Broadcast(payload []byte) int
}

// Consumer is satisfied by *messaging.Consumer.
type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber turns status updates from the notifications fanout into ready
// events on the push channel.
type Subscriber struct {
	consumer Consumer
	hub      Broadcaster
	logger   *logger.Logger
}

func NewSubscriber(consumer Consumer, hub Broadcaster, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		hub:      hub,
		logger:   log,
	}
}

// Start consumes until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("service_started", "Notification subscriber started", "", nil)
	err := s.consumer.StartConsuming(ctx, s.handleNotification)
	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Warn("consumer_close_failed", "Failed to cancel notification consumer", "", map[string]interface{}{
			"error": closeErr.Error(),
		})
	}
	return err
}

func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.RequestIDFromContext(ctx)

	var update models.StatusUpdateMessage
	if err := json.Unmarshal(body, &update); err != nil {
		return messaging.Discard(fmt.Errorf("failed to parse notification: %w", err))
	}

	s.logger.Debug("notification_received", "Received status update notification", requestID, map[string]interface{}{
		"order_id":   update.OrderID,
		"old_status": update.OldStatus,
		"new_status": update.NewStatus,
		"changed_by": update.ChangedBy,
	})

	if update.NewStatus != models.StatusReady {
		return nil
	}

	payload, err := json.Marshal(models.ReadyEvent{OrderID: update.OrderID})
	if err != nil {
		return messaging.Discard(err)
	}
	sent := s.hub.Broadcast(payload)

	s.logger.Info("ready_event_pushed", fmt.Sprintf("Order %d ready pushed to announcers", update.OrderID), requestID, map[string]interface{}{
		"order_id": update.OrderID,
		"clients":  sent,
	})
	return nil
}
