package order

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

const (
	maxLines         = 50
	maxQuantity      = 99
	maxNameLength    = 100
	maxAttendantName = 100
)

var maxUnitPrice = decimal.RequireFromString("9999.99")

// ValidateCommitRequest checks a commit request before anything is written.
func ValidateCommitRequest(req models.CommitRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if utf8.RuneCountInString(req.Attendant) > maxAttendantName {
		return models.NewValidationError("attendant", fmt.Sprintf("attendant must be at most %d characters", maxAttendantName))
	}

	if err := validateLines(req.Lines); err != nil {
		return err
	}

	if req.Cash != nil {
		if req.Cash.Tendered.LessThan(req.Total) {
			return models.NewValidationError("cash.tendered", "tendered amount is less than the total")
		}
		if !req.Cash.Change.Equal(req.Cash.Tendered.Sub(req.Total)) {
			return models.NewValidationError("cash.change", "change does not match tendered minus total")
		}
	}

	if req.PaymentMethod == models.PaymentQR && req.PaymentRef == "" {
		return models.NewValidationError("payment_ref", "qr payments need a payment reference")
	}
	return nil
}

func validateLines(lines []models.OrderLine) error {
	if len(lines) > maxLines {
		return models.NewValidationError("lines", fmt.Sprintf("a maximum of %d lines is allowed", maxLines))
	}

	for i, l := range lines {
		if err := validateLine(l, i); err != nil {
			return err
		}
	}
	return nil
}

func validateLine(l models.OrderLine, index int) error {
	if l.Name == "" {
		return models.NewValidationError(fmt.Sprintf("lines[%d].name", index), "item name is required")
	}

	if utf8.RuneCountInString(l.Name) > maxNameLength {
		return models.NewValidationError(fmt.Sprintf("lines[%d].name", index), fmt.Sprintf("item name must be at most %d characters", maxNameLength))
	}

	if l.Quantity < 1 || l.Quantity > maxQuantity {
		return models.NewValidationError(fmt.Sprintf("lines[%d].quantity", index), fmt.Sprintf("quantity must be between 1 and %d", maxQuantity))
	}

	if l.UnitPrice.IsNegative() || l.UnitPrice.GreaterThan(maxUnitPrice) {
		return models.NewValidationError(fmt.Sprintf("lines[%d].unit_price", index), "unit price must be between 0 and 9999.99")
	}

	if utf8.RuneCountInString(l.Note) > models.MaxNoteLength {
		return models.NewValidationError(fmt.Sprintf("lines[%d].note", index), "note is too long")
	}
	return nil
}
