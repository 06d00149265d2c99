package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

const (
	KeyBackspace = "backspace"
	KeyClear     = "clear"

	maxIntegerDigits  = 7
	maxFractionDigits = 2
)

// CashBuffer is the amount-tendered keypad buffer. It is kept as a string
// so what the operator typed is exactly what gets parsed.
type CashBuffer struct {
	value string
}

// Press applies one keypad key: a digit, ".", "backspace" or "clear".
func (b *CashBuffer) Press(key string) error {
	switch key {
	case KeyClear:
		b.value = ""
		return nil
	case KeyBackspace:
		if b.value != "" {
			b.value = b.value[:len(b.value)-1]
		}
		return nil
	case ".":
		if strings.Contains(b.value, ".") {
			return models.NewValidationError("key", "amount already has a decimal point")
		}
		if b.value == "" {
			b.value = "0"
		}
		b.value += "."
		return nil
	}

	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		return models.NewValidationError("key", fmt.Sprintf("unsupported key %q", key))
	}

	intPart, frac, hasPoint := strings.Cut(b.value, ".")
	switch {
	case hasPoint && len(frac) >= maxFractionDigits:
		return models.NewValidationError("key", "amount has at most two decimal places")
	case !hasPoint && len(intPart) >= maxIntegerDigits:
		return models.NewValidationError("key", "amount is too large")
	case !hasPoint && b.value == "0":
		b.value = key
	default:
		b.value += key
	}
	return nil
}

func (b *CashBuffer) String() string {
	return b.value
}

// Amount parses the buffer. An empty buffer is zero.
func (b *CashBuffer) Amount() decimal.Decimal {
	v := strings.TrimSuffix(b.value, ".")
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		// Press only ever builds valid numbers.
		return decimal.Zero
	}
	return d
}

// CashQuote is the live view of a cash payment.
type CashQuote struct {
	Buffer    string          `json:"buffer"`
	Tendered  decimal.Decimal `json:"tendered"`
	Total     decimal.Decimal `json:"total"`
	Change    decimal.Decimal `json:"change"`
	CanCommit bool            `json:"can_commit"`
}

// Quote computes change = max(0, tendered - total).
func Quote(buf *CashBuffer, total decimal.Decimal) CashQuote {
	tendered := buf.Amount()
	change := tendered.Sub(total)
	if change.IsNegative() {
		change = decimal.Zero
	}
	return CashQuote{
		Buffer:    buf.String(),
		Tendered:  tendered,
		Total:     total,
		Change:    change,
		CanCommit: tendered.GreaterThanOrEqual(total),
	}
}
