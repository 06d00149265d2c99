package tracking

import (
	"context"
	"errors"
	"time"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

const (
	DefaultReceiptLimit = 50
	MaxReceiptLimit     = 500
)

// Store is the read side of the order database.
type Store interface {
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListStatusHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error)
	ListReceipts(ctx context.Context, limit int) ([]models.Receipt, error)
	ListBaristas(ctx context.Context) ([]models.Barista, error)
	Ping(ctx context.Context) error
}

// BaristaStatus is one barista as shown on the status board.
type BaristaStatus struct {
	Name            string               `json:"barista_name"`
	Status          models.BaristaStatus `json:"status"`
	OrdersProcessed int                  `json:"orders_processed"`
	LastSeen        time.Time            `json:"last_seen"`
}

// Service answers receipt, order status and barista presence queries.
type Service struct {
	store             Store
	heartbeatInterval time.Duration
	logger            *logger.Logger
	now               func() time.Time
}

func NewService(store Store, heartbeatInterval time.Duration, log *logger.Logger) *Service {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	return &Service{
		store:             store,
		heartbeatInterval: heartbeatInterval,
		logger:            log,
		now:               time.Now,
	}
}

// GetOrderStatus retrieves the current status of an order
func (s *Service) GetOrderStatus(ctx context.Context, orderID int64) (*models.OrderStatusResponse, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, s.queryError(ctx, "get_order", orderID, err)
	}
	return &models.OrderStatusResponse{
		OrderID:       order.ID,
		CurrentStatus: order.Status,
		TotalAmount:   order.TotalAmount,
		UpdatedAt:     order.UpdatedAt,
	}, nil
}

// GetOrderHistory retrieves the complete status history of an order
func (s *Service) GetOrderHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	history, err := s.store.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, s.queryError(ctx, "list_history", orderID, err)
	}
	return history, nil
}

// ListReceipts returns up to limit receipts, newest first. A non-positive
// limit means the default; larger than MaxReceiptLimit is clamped.
func (s *Service) ListReceipts(ctx context.Context, limit int) ([]models.Receipt, error) {
	switch {
	case limit <= 0:
		limit = DefaultReceiptLimit
	case limit > MaxReceiptLimit:
		limit = MaxReceiptLimit
	}
	receipts, err := s.store.ListReceipts(ctx, limit)
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to query receipts", logger.RequestIDFromContext(ctx), err, nil)
		return nil, models.NewPersistenceError("list_receipts", err)
	}
	return receipts, nil
}

// GetBaristaStatus lists every registered barista. One whose last heartbeat
// is older than two intervals is reported offline whatever its row says.
func (s *Service) GetBaristaStatus(ctx context.Context) ([]BaristaStatus, error) {
	baristas, err := s.store.ListBaristas(ctx)
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to query barista status", logger.RequestIDFromContext(ctx), err, nil)
		return nil, models.NewPersistenceError("list_baristas", err)
	}

	now := s.now()
	out := make([]BaristaStatus, 0, len(baristas))
	for i := range baristas {
		b := &baristas[i]
		status := models.BaristaOffline
		if b.IsOnline(s.heartbeatInterval, now) {
			status = models.BaristaOnline
		}
		out = append(out, BaristaStatus{
			Name:            b.Name,
			Status:          status,
			OrdersProcessed: b.OrdersProcessed,
			LastSeen:        b.LastSeen,
		})
	}
	return out, nil
}

// HealthCheck checks the health of dependencies
func (s *Service) HealthCheck(ctx context.Context) bool {
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health_check_failed", "Database ping failed", logger.RequestIDFromContext(ctx), err, nil)
		return false
	}
	return true
}

// queryError passes not-found through and logs everything else as a
// persistence failure.
func (s *Service) queryError(ctx context.Context, step string, orderID int64, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	s.logger.Error("db_query_failed", "Failed to query order", logger.RequestIDFromContext(ctx), err, map[string]interface{}{
		"order_id": orderID,
		"step":     step,
	})
	return models.NewPersistenceError(step, err)
}
