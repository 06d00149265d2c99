package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

type fakeSource struct {
	headers []models.Order
	lines   []models.OrderLine
	err     error
	calls   int
}

func (f *fakeSource) ListQueue(_ context.Context, status models.OrderStatus) ([]models.Order, []models.OrderLine, error) {
	f.calls++
	if status != models.StatusProcessing {
		return nil, nil, fmt.Errorf("unexpected status %s", status)
	}
	return f.headers, f.lines, f.err
}

func line(orderID int64, price string, qty int) models.OrderLine {
	p := decimal.RequireFromString(price)
	return models.OrderLine{OrderID: orderID, Name: "item", UnitPrice: p, Quantity: qty, LineTotal: p.Mul(decimal.NewFromInt(int64(qty)))}
}

func header(id int64, total string) models.Order {
	return models.Order{ID: id, Status: models.StatusProcessing, TotalAmount: decimal.RequireFromString(total)}
}

func TestListGroupsAndSortsNewestFirst(t *testing.T) {
	src := &fakeSource{
		headers: []models.Order{header(3, "75"), header(5, "40"), header(4, "90")},
		lines: []models.OrderLine{
			line(3, "40", 1), line(4, "45", 2), line(3, "35", 1), line(5, "40", 1),
			line(9, "10", 1),
		},
	}

	entries, err := NewView(src, 6, logger.Nop()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []int64{5, 4, 3}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Len(t, entries[2].Lines, 2)
	assert.True(t, entries[2].Total.Equal(decimal.NewFromInt(75)))
	for _, e := range entries {
		assert.True(t, e.Reconciled, "order %d", e.ID)
	}
}

func TestListFlagsTotalMismatch(t *testing.T) {
	src := &fakeSource{
		headers: []models.Order{header(1, "100"), header(2, "0")},
		lines:   []models.OrderLine{line(1, "40", 2)},
	}

	entries, err := NewView(src, 6, logger.Nop()).List(context.Background())
	require.NoError(t, err)

	byID := map[int64]Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	assert.False(t, byID[1].Reconciled)
	assert.True(t, byID[1].Total.Equal(decimal.NewFromInt(80)), "displayed total comes from the lines")
	assert.True(t, byID[1].StoredTotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, byID[2].Reconciled)
	assert.Empty(t, byID[2].Lines)
}

func TestListFailsWhenSnapshotFails(t *testing.T) {
	src := &fakeSource{headers: []models.Order{header(1, "40")}, err: errors.New("timeout")}

	_, err := NewView(src, 6, logger.Nop()).List(context.Background())
	require.ErrorContains(t, err, "list processing orders")
}

func TestListReadsHeadersAndLinesTogether(t *testing.T) {
	src := &fakeSource{
		headers: []models.Order{header(10, "40")},
		lines:   []models.OrderLine{line(10, "40", 1)},
	}

	entries, err := NewView(src, 6, logger.Nop()).List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Reconciled)
	assert.Len(t, entries[0].Lines, 1)
}

func TestOrderWithoutLinesRendersEmptyList(t *testing.T) {
	src := &fakeSource{headers: []models.Order{header(2, "0")}}

	entries, err := NewView(src, 6, logger.Nop()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Lines)

	body, err := json.Marshal(entries[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), `"lines":[]`)
}

func TestPageClampsToRange(t *testing.T) {
	src := &fakeSource{}
	for i := int64(1); i <= 13; i++ {
		src.headers = append(src.headers, header(i, "40"))
		src.lines = append(src.lines, line(i, "40", 1))
	}
	v := NewView(src, 6, logger.Nop())

	p, err := v.Page(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Pages)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, int64(1), p.Entries[0].ID)
	assert.False(t, p.HasNext)

	p, err = v.Page(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Number)

	p, err = v.Page(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, int64(13), p.Entries[0].ID)
}

func TestPagerNavigationIsBoundsChecked(t *testing.T) {
	entries := make([]Entry, 7)
	for i := range entries {
		entries[i] = Entry{ID: int64(len(entries) - i)}
	}
	p := NewPager(entries, 6)

	assert.False(t, p.Prev())
	assert.Equal(t, 1, p.Number())

	assert.True(t, p.Next())
	assert.Equal(t, 2, p.Number())
	assert.Len(t, p.Current().Entries, 1)

	assert.False(t, p.Next())
	assert.Equal(t, 2, p.Number())

	assert.True(t, p.Prev())
	assert.Len(t, p.Current().Entries, 6)
}

func TestPagerEmptyQueue(t *testing.T) {
	p := NewPager(nil, 6)
	assert.Equal(t, 1, p.Pages())
	assert.False(t, p.Next())
	page := p.Current()
	assert.Empty(t, page.Entries)
	assert.False(t, page.HasPrev)
	assert.False(t, page.HasNext)
}
