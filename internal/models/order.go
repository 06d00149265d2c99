package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusReady      OrderStatus = "ready"
	StatusDone       OrderStatus = "done"
	StatusCancelled  OrderStatus = "cancelled"
)

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusProcessing:
		return next == StatusReady || next == StatusDone || next == StatusCancelled
	case StatusReady:
		return next == StatusDone
	default:
		return false
	}
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// PaymentMethod is how the customer settled the order.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentQR   PaymentMethod = "qr"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentQR
}

// OrderLine is a persisted per-item record of an order
type OrderLine struct {
	ID          int64           `json:"id,omitempty" db:"id"`
	OrderID     int64           `json:"order_id,omitempty" db:"order_id"`
	ItemID      int64           `json:"item_id" db:"item_id"`
	Name        string          `json:"name" db:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
	Description string          `json:"description" db:"description"`
	Note        string          `json:"note,omitempty" db:"note"`
}

// Order is the persisted order header with its lines
type Order struct {
	ID          int64           `json:"id" db:"id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	Status      OrderStatus     `json:"status" db:"status"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Lines       []OrderLine     `json:"lines,omitempty"`
}

// Receipt is the payment summary linked to an order header
type Receipt struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       int64           `json:"order_id" db:"order_id"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	Attendant     string          `json:"attendant" db:"attendant"`
	Status        OrderStatus     `json:"status" db:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	Tendered      decimal.Decimal `json:"tendered" db:"tendered"`
	Change        decimal.Decimal `json:"change" db:"change_due"`
	PaymentRef    string          `json:"payment_ref,omitempty" db:"payment_ref"`
	PaymentStatus string          `json:"payment_status" db:"payment_status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

const (
	ReceiptPaid      = "paid"
	ReceiptSucceeded = "succeeded"
	ReceiptRefunded  = "refunded"
)

// OrderStatusHistory represents an entry in the order status log
type OrderStatusHistory struct {
	Status    OrderStatus `json:"status" db:"status"`
	ChangedBy string      `json:"changed_by" db:"changed_by"`
	ChangedAt time.Time   `json:"timestamp" db:"changed_at"`
	Notes     *string     `json:"notes,omitempty" db:"notes"`
}

// OrderStatusResponse represents the response for order tracking
type OrderStatusResponse struct {
	OrderID       int64           `json:"order_id"`
	CurrentStatus OrderStatus     `json:"current_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CashDetails is written on cash receipts.
type CashDetails struct {
	Tendered decimal.Decimal
	Change   decimal.Decimal
}

// CommitRequest carries everything the persistence gateway writes for one
// checkout.
type CommitRequest struct {
	Lines         []OrderLine
	Total         decimal.Decimal
	Attendant     string
	PaymentMethod PaymentMethod
	Cash          *CashDetails
	PaymentRef    string
}

// SumLineTotals adds the line totals of lines.
func SumLineTotals(lines []OrderLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal)
	}
	return sum
}

// Reconcile verifies that every line total equals price × quantity and that
// the lines add up to the header total.
func (r CommitRequest) Reconcile() error {
	for i, l := range r.Lines {
		want := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if !l.LineTotal.Equal(want) {
			return fmt.Errorf("line %d total %s does not match %s x %d", i, l.LineTotal, l.UnitPrice, l.Quantity)
		}
	}
	if sum := SumLineTotals(r.Lines); !sum.Equal(r.Total) {
		return fmt.Errorf("line totals %s do not match order total %s", sum, r.Total)
	}
	return nil
}

// Validate checks the request shape before anything is written.
func (r CommitRequest) Validate() error {
	if len(r.Lines) == 0 {
		return NewValidationError("lines", "order has no lines")
	}
	if r.Attendant == "" {
		return NewValidationError("attendant", "attendant is required")
	}
	if !r.PaymentMethod.Valid() {
		return NewValidationError("payment_method", fmt.Sprintf("unsupported payment method %q", r.PaymentMethod))
	}
	if r.PaymentMethod == PaymentCash && r.Cash == nil {
		return NewValidationError("cash", "cash details are required for cash payments")
	}
	return nil
}

// MinorUnits converts an amount to satang, the unit the payment API expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
