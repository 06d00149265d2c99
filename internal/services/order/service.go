package order

import (
	"context"
	"fmt"
	"time"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Store is the persistence the order service writes through.
type Store interface {
	CommitOrder(ctx context.Context, req models.CommitRequest) (int64, time.Time, error)
	TransitionStatus(ctx context.Context, orderID int64, to models.OrderStatus, changedBy, note string) (models.OrderStatus, error)
	SettleReceipt(ctx context.Context, paymentRef, paymentStatus string) error
}

// Publisher fans order events out over the broker.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, msg interface{}, routingKey string) error
	PublishNotification(ctx context.Context, msg interface{}) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *logger.Logger
}

// NewService wires the order service. publisher may be nil, in which case no
// events are published.
func NewService(store Store, publisher Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// PlaceOrder validates and durably commits an order, then tells the baristas.
// A publish failure is logged; the order is already committed at that point.
func (s *Service) PlaceOrder(ctx context.Context, req models.CommitRequest) (int64, error) {
	requestID := logger.RequestIDFromContext(ctx)

	if err := ValidateCommitRequest(req); err != nil {
		s.logger.Debug("validation_failed", "Commit request rejected", requestID, map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}

	orderID, createdAt, err := s.store.CommitOrder(ctx, req)
	if err != nil {
		return 0, err
	}

	s.logger.Info("order_received", fmt.Sprintf("Order %d committed", orderID), requestID, map[string]interface{}{
		"order_id":       orderID,
		"payment_method": req.PaymentMethod,
		"total_amount":   req.Total.StringFixed(2),
		"lines":          len(req.Lines),
	})

	if s.publisher != nil {
		msg := models.NewOrderPlacedMessage(orderID, req, createdAt)
		routingKey := models.GenerateRoutingKey(req.PaymentMethod)
		if err := s.publisher.PublishOrderPlaced(ctx, msg, routingKey); err != nil {
			s.logger.Error("rabbitmq_publish_failed", "Failed to publish order placed message", requestID, err, map[string]interface{}{
				"order_id":    orderID,
				"routing_key": routingKey,
			})
		}
	}

	return orderID, nil
}

// MarkReady moves a processing order to ready and triggers the ready
// announcement.
func (s *Service) MarkReady(ctx context.Context, orderID int64, changedBy string) error {
	return s.transition(ctx, orderID, models.StatusReady, changedBy, "order ready for pickup")
}

// MarkServed closes an order that was handed to the customer.
func (s *Service) MarkServed(ctx context.Context, orderID int64, changedBy string) error {
	return s.transition(ctx, orderID, models.StatusDone, changedBy, "order served")
}

// Cancel stops a processing order.
func (s *Service) Cancel(ctx context.Context, orderID int64, changedBy, reason string) error {
	if reason == "" {
		reason = "order cancelled"
	}
	return s.transition(ctx, orderID, models.StatusCancelled, changedBy, reason)
}

func (s *Service) transition(ctx context.Context, orderID int64, to models.OrderStatus, changedBy, note string) error {
	requestID := logger.RequestIDFromContext(ctx)
	if changedBy == "" {
		return models.NewValidationError("changed_by", "changed_by is required")
	}

	from, err := s.store.TransitionStatus(ctx, orderID, to, changedBy, note)
	if err != nil {
		return err
	}

	s.logger.Info("order_status_changed", fmt.Sprintf("Order %d moved to %s", orderID, to), requestID, map[string]interface{}{
		"order_id":   orderID,
		"old_status": from,
		"new_status": to,
		"changed_by": changedBy,
	})

	if s.publisher != nil {
		msg := models.NewStatusUpdateMessage(orderID, from, to, changedBy)
		if err := s.publisher.PublishNotification(ctx, msg); err != nil {
			s.logger.Error("notification_publish_failed", "Failed to publish status update", requestID, err, map[string]interface{}{
				"order_id":   orderID,
				"new_status": to,
			})
		}
	}
	return nil
}

// SettleReceipt records a payment callback that arrives for an order that is
// already committed.
func (s *Service) SettleReceipt(ctx context.Context, paymentRef, paymentStatus string) error {
	switch paymentStatus {
	case models.ReceiptSucceeded, models.ReceiptRefunded:
	default:
		return models.NewValidationError("status", fmt.Sprintf("unsupported receipt status %q", paymentStatus))
	}

	if err := s.store.SettleReceipt(ctx, paymentRef, paymentStatus); err != nil {
		return err
	}

	s.logger.Info("receipt_settled", "Receipt payment status updated", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"payment_ref":    paymentRef,
		"payment_status": paymentStatus,
	})
	return nil
}
