package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomizationValidateFor(t *testing.T) {
	tests := []struct {
		name     string
		c        Customization
		category Category
		wantErr  bool
	}{
		{name: "beverage defaults", c: DefaultCustomization(CategoryHotCoffee), category: CategoryHotCoffee},
		{name: "bakery without options", c: Customization{Note: "warm it up"}, category: CategoryBakery},
		{name: "beverage missing options", c: Customization{}, category: CategoryColdCoffee, wantErr: true},
		{name: "bakery with options", c: DefaultCustomization(CategoryHotCoffee), category: CategoryBakery, wantErr: true},
		{
			name: "bad size",
			c: Customization{Beverage: &BeverageOptions{
				Temperature: TemperatureHot, Size: "medium", Sweetness: SweetnessLow,
			}},
			category: CategoryHotCoffee,
			wantErr:  true,
		},
		{
			name:     "note too long",
			c:        Customization{Note: strings.Repeat("ก", MaxNoteLength+1)},
			category: CategoryBakery,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.ValidateFor(tt.category)
			if tt.wantErr {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDefaultCustomizationPerCategory(t *testing.T) {
	assert.Equal(t, TemperatureHot, DefaultCustomization(CategoryHotCoffee).Beverage.Temperature)
	assert.Equal(t, TemperatureIced, DefaultCustomization(CategoryColdCoffee).Beverage.Temperature)
	assert.Equal(t, TemperatureBlended, DefaultCustomization(CategoryBlended).Beverage.Temperature)
	assert.Nil(t, DefaultCustomization(CategoryBakery).Beverage)
}

func TestCustomizationDescribe(t *testing.T) {
	c := Customization{Beverage: &BeverageOptions{
		Temperature: TemperatureIced, Size: SizeLarge, Sweetness: SweetnessLow,
	}}
	assert.Equal(t, "less sweet, large, iced", c.Describe())
	assert.Equal(t, "", Customization{Note: "cut in half"}.Describe())
}

func TestCustomizationCloneIsIndependent(t *testing.T) {
	orig := DefaultCustomization(CategoryHotCoffee)
	clone := orig.Clone()
	clone.Beverage.Size = SizeLarge
	assert.Equal(t, SizeSmall, orig.Beverage.Size)
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, StatusProcessing.CanTransitionTo(StatusReady))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusReady.CanTransitionTo(StatusDone))
	assert.False(t, StatusReady.CanTransitionTo(StatusProcessing))
	assert.False(t, StatusDone.CanTransitionTo(StatusReady))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusDone))
}

func TestCommitRequestReconcile(t *testing.T) {
	line := func(price string, qty int) OrderLine {
		p := decimal.RequireFromString(price)
		return OrderLine{Name: "x", UnitPrice: p, Quantity: qty, LineTotal: p.Mul(decimal.NewFromInt(int64(qty)))}
	}

	req := CommitRequest{
		Lines: []OrderLine{line("40", 2), line("35", 1)},
		Total: decimal.RequireFromString("115"),
	}
	require.NoError(t, req.Reconcile())

	req.Total = decimal.RequireFromString("114.99")
	require.Error(t, req.Reconcile())

	broken := line("40", 2)
	broken.LineTotal = decimal.RequireFromString("79")
	req = CommitRequest{Lines: []OrderLine{broken}, Total: decimal.RequireFromString("79")}
	require.Error(t, req.Reconcile())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(4000), MinorUnits(decimal.RequireFromString("40")))
	assert.Equal(t, int64(4550), MinorUnits(decimal.RequireFromString("45.50")))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "validation", ErrorKind(fmt.Errorf("wrap: %w", NewValidationError("a", "b"))))
	assert.Equal(t, "payment", ErrorKind(NewPaymentError("insufficient cash", nil)))
	assert.Equal(t, "persistence", ErrorKind(NewPersistenceError("lines", errors.New("boom"))))
	assert.Equal(t, "channel", ErrorKind(NewChannelError("dial", errors.New("refused"))))
	assert.Equal(t, "not_found", ErrorKind(fmt.Errorf("order 3: %w", ErrNotFound)))
	assert.Equal(t, "internal", ErrorKind(errors.New("other")))
}

func TestBaristaIsOnline(t *testing.T) {
	now := time.Now()
	b := &Barista{Status: BaristaOnline, LastSeen: now.Add(-50 * time.Second)}
	assert.True(t, b.IsOnline(30*time.Second, now))
	b.LastSeen = now.Add(-61 * time.Second)
	assert.False(t, b.IsOnline(30*time.Second, now))
	b.Status = BaristaOffline
	b.LastSeen = now
	assert.False(t, b.IsOnline(30*time.Second, now))
}
