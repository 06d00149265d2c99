package queue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

const DefaultPageSize = 6

// Source reads order headers and their lines filtered by status. Both come
// from one consistent snapshot.
type Source interface {
	ListQueue(ctx context.Context, status models.OrderStatus) ([]models.Order, []models.OrderLine, error)
}

// Entry is one order as rendered in the queue. Total is derived from the
// lines; StoredTotal is what the header says.
type Entry struct {
	ID          int64              `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	Status      models.OrderStatus `json:"status"`
	Lines       []models.OrderLine `json:"lines"`
	Total       decimal.Decimal    `json:"total"`
	StoredTotal decimal.Decimal    `json:"stored_total"`
	Reconciled  bool               `json:"reconciled"`
}

// View is a read-only projection of processing orders. Every call fetches
// fresh data.
type View struct {
	source   Source
	pageSize int
	logger   *logger.Logger
}

func NewView(source Source, pageSize int, log *logger.Logger) *View {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &View{source: source, pageSize: pageSize, logger: log}
}

func (v *View) PageSize() int {
	return v.pageSize
}

// List returns processing orders newest first.
func (v *View) List(ctx context.Context) ([]Entry, error) {
	headers, lines, err := v.source.ListQueue(ctx, models.StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("list processing orders: %w", err)
	}

	return v.group(ctx, headers, lines), nil
}

func (v *View) group(ctx context.Context, headers []models.Order, lines []models.OrderLine) []Entry {
	byOrder := make(map[int64][]models.OrderLine, len(headers))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}

	entries := make([]Entry, 0, len(headers))
	for _, h := range headers {
		own, ok := byOrder[h.ID]
		if !ok {
			own = []models.OrderLine{}
		}
		delete(byOrder, h.ID)

		total := models.SumLineTotals(own)
		e := Entry{
			ID:          h.ID,
			CreatedAt:   h.CreatedAt,
			Status:      h.Status,
			Lines:       own,
			Total:       total,
			StoredTotal: h.TotalAmount,
			Reconciled:  total.Equal(h.TotalAmount),
		}
		if !e.Reconciled {
			v.logger.Error("order_total_mismatch", fmt.Sprintf("Order %d header total does not match its lines", h.ID), logger.RequestIDFromContext(ctx), nil, map[string]interface{}{
				"order_id":     h.ID,
				"stored_total": h.TotalAmount.StringFixed(2),
				"line_total":   total.StringFixed(2),
				"line_count":   len(own),
			})
		}
		entries = append(entries, e)
	}

	// Lines whose header is not in the result.
	for orderID, orphan := range byOrder {
		v.logger.Debug("orphan_order_lines", "Skipping lines without a processing header", logger.RequestIDFromContext(ctx), map[string]interface{}{
			"order_id": orderID,
			"lines":    len(orphan),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	return entries
}

// Page fetches the queue and returns page n, clamped to the valid range.
func (v *View) Page(ctx context.Context, n int) (Page, error) {
	entries, err := v.List(ctx)
	if err != nil {
		return Page{}, err
	}
	p := NewPager(entries, v.pageSize)
	p.Go(n)
	return p.Current(), nil
}
