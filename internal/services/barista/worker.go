package barista

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/models"
)

// Store tracks barista presence.
type Store interface {
	RegisterBarista(ctx context.Context, name string, staleAfter time.Duration) (int64, error)
	SetBaristaStatus(ctx context.Context, name string, status models.BaristaStatus) error
	IncrementBaristaProcessed(ctx context.Context, name string) error
}

// Orders moves a prepared order to ready.
type Orders interface {
	MarkReady(ctx context.Context, orderID int64, changedBy string) error
}

type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Worker takes placed orders off the barista queue, prepares them and marks
// them ready.
type Worker struct {
	name              string
	heartbeatInterval time.Duration
	prefetch          int

	store    Store
	orders   Orders
	consumer Consumer
	logger   *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewWorker(cfg config.BaristaConfig, store Store, orders Orders, consumer Consumer, log *logger.Logger) *Worker {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Worker{
		name:              cfg.Name,
		heartbeatInterval: cfg.HeartbeatInterval,
		prefetch:          cfg.Prefetch,
		store:             store,
		orders:            orders,
		consumer:          consumer,
		logger:            log,
		sleep:             sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Start registers the barista and consumes until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	// A barista is considered gone after two missed heartbeats.
	id, err := w.store.RegisterBarista(ctx, w.name, 2*w.heartbeatInterval)
	if err != nil {
		w.logger.Error("worker_registration_failed", "Failed to register barista", requestID, err, map[string]interface{}{
			"worker_name": w.name,
		})
		return fmt.Errorf("failed to register barista: %w", err)
	}

	w.logger.Info("worker_started", fmt.Sprintf("Barista %s started", w.name), requestID, map[string]interface{}{
		"worker_id":          id,
		"worker_name":        w.name,
		"heartbeat_interval": w.heartbeatInterval.Seconds(),
		"prefetch":           w.prefetch,
	})

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeatLoop(hbCtx)

	err = w.consumer.StartConsuming(ctx, w.handleMessage)
	stopHeartbeat()
	w.shutdown(requestID)
	return err
}

func (w *Worker) handleMessage(ctx context.Context, body []byte) error {
	requestID := logger.RequestIDFromContext(ctx)

	var msg models.OrderPlacedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return messaging.Discard(fmt.Errorf("failed to parse order message: %w", err))
	}

	cups := 0
	for _, item := range msg.Items {
		cups += item.Quantity
	}
	prep := models.PrepTime(cups)

	w.logger.Debug("order_processing_started", fmt.Sprintf("Preparing order %d", msg.OrderID), requestID, map[string]interface{}{
		"order_id":          msg.OrderID,
		"cups":              cups,
		"prep_time_seconds": prep.Seconds(),
	})

	if err := w.sleep(ctx, prep); err != nil {
		return fmt.Errorf("preparation of order %d interrupted: %w", msg.OrderID, err)
	}

	if err := w.orders.MarkReady(ctx, msg.OrderID, w.name); err != nil {
		// Cancelled or already handed out while it was being prepared.
		if errors.Is(err, models.ErrIllegalTransition) || errors.Is(err, models.ErrNotFound) {
			w.logger.Warn("order_skipped", fmt.Sprintf("Order %d can no longer be marked ready", msg.OrderID), requestID, map[string]interface{}{
				"order_id": msg.OrderID,
				"error":    err.Error(),
			})
			return messaging.Discard(err)
		}
		return fmt.Errorf("failed to mark order %d ready: %w", msg.OrderID, err)
	}

	if err := w.store.IncrementBaristaProcessed(ctx, w.name); err != nil {
		w.logger.Error("worker_update_failed", "Failed to update processed count", requestID, err, nil)
	}

	w.logger.Debug("order_completed", fmt.Sprintf("Order %d ready", msg.OrderID), requestID, map[string]interface{}{
		"order_id":     msg.OrderID,
		"processed_by": w.name,
	})
	return nil
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.SetBaristaStatus(ctx, w.name, models.BaristaOnline); err != nil {
				w.logger.Error("heartbeat_failed", "Failed to send heartbeat", "", err, nil)
				continue
			}
			w.logger.Debug("heartbeat_sent", "Heartbeat sent", "", nil)
		}
	}
}

func (w *Worker) shutdown(requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.store.SetBaristaStatus(ctx, w.name, models.BaristaOffline); err != nil {
		w.logger.Error("shutdown_failed", "Failed to mark barista offline", requestID, err, nil)
	}
	if err := w.consumer.Close(); err != nil {
		w.logger.Warn("consumer_close_failed", "Failed to cancel consumer", requestID, map[string]interface{}{
			"error": err.Error(),
		})
	}
	w.logger.Info("graceful_shutdown", "Barista stopped", requestID, nil)
}
