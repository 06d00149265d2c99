package checkout

import (
	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
	"cafe-pos/internal/services/cart"
)

// State is the observable checkout state of one terminal.
type State string

const (
	StateEmpty            State = "empty"
	StateSelecting        State = "selecting"
	StateReadyToPay       State = "ready_to_pay"
	StateCashTendering    State = "cash_tendering"
	StateQRAwaitingResult State = "qr_awaiting_result"
	StateCommitting       State = "committing"
	StateCommitted        State = "committed"
)

// Outcome is what the payment collaborator reports for an intent.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCancelled Outcome = "cancelled"
)

func (o Outcome) Valid() bool {
	return o == OutcomeSucceeded || o == OutcomeCancelled
}

// IntentState tracks a QR intent while the session waits for its callback.
type IntentState string

const (
	IntentCreating  IntentState = "creating"
	IntentPending   IntentState = "pending"
	IntentSucceeded IntentState = "succeeded"
)

// PaymentView describes the active payment sub-state.
type PaymentView struct {
	Method      models.PaymentMethod `json:"method"`
	Cash        *CashQuote           `json:"cash,omitempty"`
	Reference   string               `json:"reference,omitempty"`
	RedirectURL string               `json:"redirect_url,omitempty"`
	IntentState IntentState          `json:"intent_state,omitempty"`
}

// View is a point-in-time copy of a session, safe to serialize.
type View struct {
	Terminal  string            `json:"terminal"`
	State     State             `json:"state"`
	Attendant *models.Attendant `json:"attendant,omitempty"`
	Lines     []cart.Line       `json:"lines"`
	Total     decimal.Decimal   `json:"total"`
	Draft     *cart.Draft       `json:"draft,omitempty"`
	Payment   *PaymentView      `json:"payment,omitempty"`
}

// CommitResult is returned once an order is durably committed. Next tells the
// terminal which view to navigate to.
type CommitResult struct {
	OrderID int64                `json:"order_id"`
	Method  models.PaymentMethod `json:"payment_method"`
	Total   decimal.Decimal      `json:"total"`
	Change  decimal.Decimal      `json:"change"`
	State   State                `json:"state"`
	Next    string               `json:"next"`
}

// Resolution is the effect of a QR completion callback.
type Resolution struct {
	State  State         `json:"state"`
	Commit *CommitResult `json:"commit,omitempty"`
}
