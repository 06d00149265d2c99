package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Store is the pgx-backed system of record for orders, receipts, the catalog
// and barista registrations.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// CommitOrder writes header, lines, receipt and the initial status log entry
// in one transaction. Any failure rolls the whole write back and is returned
// as a *models.PersistenceError naming the step that failed.
func (s *Store) CommitOrder(ctx context.Context, req models.CommitRequest) (int64, time.Time, error) {
	if err := req.Reconcile(); err != nil {
		return 0, time.Time{}, models.NewPersistenceError("reconcile", err)
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return 0, time.Time{}, models.NewPersistenceError("begin", err)
	}

	fail := func(step string, err error) (int64, time.Time, error) {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.db.logger.Error("db_rollback_failed", "Failed to roll back order commit", logger.RequestIDFromContext(ctx), rbErr, map[string]interface{}{
				"step": step,
			})
		}
		return 0, time.Time{}, models.NewPersistenceError(step, err)
	}

	var (
		orderID   int64
		createdAt time.Time
	)
	if err := tx.QueryRow(ctx, InsertOrderSQL, string(models.StatusProcessing), req.Total).Scan(&orderID, &createdAt); err != nil {
		return fail("header", err)
	}

	for i, line := range req.Lines {
		_, err := tx.Exec(ctx, InsertOrderLineSQL,
			orderID, line.ItemID, line.Name, line.UnitPrice, line.Quantity, line.LineTotal, line.Description, line.Note)
		if err != nil {
			return fail("lines", fmt.Errorf("line %d: %w", i, err))
		}
	}

	tendered, change := decimal.Zero, decimal.Zero
	paymentStatus := models.ReceiptSucceeded
	if req.Cash != nil {
		tendered, change = req.Cash.Tendered, req.Cash.Change
		paymentStatus = models.ReceiptPaid
	}
	_, err = tx.Exec(ctx, InsertReceiptSQL,
		orderID, string(req.PaymentMethod), req.Attendant, string(models.StatusProcessing),
		req.Total, tendered, change, req.PaymentRef, paymentStatus)
	if err != nil {
		return fail("receipt", err)
	}

	_, err = tx.Exec(ctx, InsertOrderStatusLogSQL,
		orderID, string(models.StatusProcessing), req.Attendant, fmt.Sprintf("Order placed, paid by %s", req.PaymentMethod))
	if err != nil {
		return fail("status_log", err)
	}

	var reconciled bool
	if err := tx.QueryRow(ctx, ReconcileOrderSQL, orderID).Scan(&reconciled); err != nil {
		return fail("reconcile", err)
	}
	if !reconciled {
		return fail("reconcile", fmt.Errorf("order %d: stored totals do not reconcile", orderID))
	}

	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}

	return orderID, createdAt, nil
}

// TransitionStatus moves an order to a new status, mirrors it on the receipt
// and appends to the status log. It returns the previous status.
func (s *Store) TransitionStatus(ctx context.Context, orderID int64, to models.OrderStatus, changedBy, note string) (models.OrderStatus, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}

	rollback := func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.db.logger.Error("db_rollback_failed", "Failed to roll back status transition", logger.RequestIDFromContext(ctx), rbErr, nil)
		}
	}

	var current string
	if err := tx.QueryRow(ctx, LockOrderStatusSQL, orderID).Scan(&current); err != nil {
		rollback()
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
		}
		return "", fmt.Errorf("failed to lock order: %w", err)
	}

	from := models.OrderStatus(current)
	if !from.CanTransitionTo(to) {
		rollback()
		return from, fmt.Errorf("order %d %s -> %s: %w", orderID, from, to, models.ErrIllegalTransition)
	}

	if _, err := tx.Exec(ctx, UpdateOrderStatusSQL, string(to), orderID); err != nil {
		rollback()
		return from, fmt.Errorf("failed to update order status: %w", err)
	}
	if _, err := tx.Exec(ctx, UpdateReceiptStatusSQL, string(to), orderID); err != nil {
		rollback()
		return from, fmt.Errorf("failed to update receipt status: %w", err)
	}
	if _, err := tx.Exec(ctx, InsertOrderStatusLogSQL, orderID, string(to), changedBy, note); err != nil {
		rollback()
		return from, fmt.Errorf("failed to insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return from, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return from, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListQueue returns the headers and lines of every order with the given
// status. Both reads run in one read-only repeatable-read transaction so the
// lines always belong to the headers returned with them.
func (s *Store) ListQueue(ctx context.Context, status models.OrderStatus) ([]models.Order, []models.OrderLine, error) {
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	rollback := func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.db.logger.Error("db_rollback_failed", "Failed to close queue snapshot", logger.RequestIDFromContext(ctx), rbErr, nil)
		}
	}

	orders, err := listOrders(ctx, tx, status)
	if err != nil {
		rollback()
		return nil, nil, err
	}
	lines, err := listOrderLines(ctx, tx, status)
	if err != nil {
		rollback()
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return orders, lines, nil
}

func listOrders(ctx context.Context, q querier, status models.OrderStatus) ([]models.Order, error) {
	rows, err := q.Query(ctx, ListOrdersByStatusSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.Status, &o.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func listOrderLines(ctx context.Context, q querier, status models.OrderStatus) ([]models.OrderLine, error) {
	rows, err := q.Query(ctx, ListOrderLinesByStatusSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Name, &l.UnitPrice, &l.Quantity, &l.LineTotal, &l.Description, &l.Note)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var o models.Order
	err := s.db.QueryRow(ctx, GetOrderByIDSQL, orderID).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.Status, &o.TotalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return &o, nil
}

// ListStatusHistory returns the status log of an order, oldest first.
func (s *Store) ListStatusHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, OrderExistsSQL, orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check order existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}

	rows, err := s.db.Query(ctx, GetOrderStatusHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	history := []models.OrderStatusHistory{}
	for rows.Next() {
		var entry models.OrderStatusHistory
		if err := rows.Scan(&entry.Status, &entry.ChangedBy, &entry.ChangedAt, &entry.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// ListReceipts returns the newest receipts first.
func (s *Store) ListReceipts(ctx context.Context, limit int) ([]models.Receipt, error) {
	rows, err := s.db.Query(ctx, ListReceiptsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		var r models.Receipt
		err := rows.Scan(&r.ID, &r.OrderID, &r.PaymentMethod, &r.Attendant, &r.Status, &r.TotalAmount,
			&r.Tendered, &r.Change, &r.PaymentRef, &r.PaymentStatus, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// SettleReceipt records a payment outcome that arrived after the order was
// committed.
func (s *Store) SettleReceipt(ctx context.Context, paymentRef, paymentStatus string) error {
	tag, err := s.db.Pool.Exec(ctx, SettleReceiptSQL, paymentStatus, paymentRef)
	if err != nil {
		return fmt.Errorf("failed to settle receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("receipt with payment ref %q: %w", paymentRef, models.ErrNotFound)
	}
	return nil
}

func (s *Store) ListCatalog(ctx context.Context) ([]models.CatalogItem, error) {
	rows, err := s.db.Query(ctx, ListProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		var (
			item     models.CatalogItem
			category string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.NameEn, &item.Price, &category, &item.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if item.Category, err = models.ParseCategory(category); err != nil {
			return nil, fmt.Errorf("product %d: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ListAttendants(ctx context.Context) ([]models.Attendant, error) {
	rows, err := s.db.Query(ctx, ListEmployeesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []models.Attendant
	for rows.Next() {
		var a models.Attendant
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RegisterBarista marks a barista online. It fails if a barista with the
// same name has sent a heartbeat within staleAfter.
func (s *Store) RegisterBarista(ctx context.Context, name string, staleAfter time.Duration) (int64, error) {
	var count int
	if err := s.db.QueryRow(ctx, CheckBaristaOnlineSQL, name, staleAfter.Seconds()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to check barista status: %w", err)
	}
	if count > 0 {
		return 0, fmt.Errorf("barista %s is already online", name)
	}

	var id int64
	if err := s.db.QueryRow(ctx, UpsertBaristaSQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to register barista: %w", err)
	}
	return id, nil
}

func (s *Store) SetBaristaStatus(ctx context.Context, name string, status models.BaristaStatus) error {
	return s.db.Exec(ctx, UpdateBaristaStatusSQL, string(status), name)
}

func (s *Store) IncrementBaristaProcessed(ctx context.Context, name string) error {
	return s.db.Exec(ctx, IncrementBaristaProcessedSQL, name)
}

func (s *Store) ListBaristas(ctx context.Context) ([]models.Barista, error) {
	rows, err := s.db.Query(ctx, ListBaristasSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query baristas: %w", err)
	}
	defer rows.Close()

	baristas := []models.Barista{}
	for rows.Next() {
		var b models.Barista
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.Name, &b.Status, &b.LastSeen, &b.OrdersProcessed); err != nil {
			return nil, fmt.Errorf("failed to scan barista: %w", err)
		}
		baristas = append(baristas, b)
	}
	return baristas, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
