package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/metrics"
	"cafe-pos/internal/models"
	"cafe-pos/internal/services/cart"
	"cafe-pos/internal/services/payment"
)

const (
	defaultCommitTimeout  = 15 * time.Second
	defaultPaymentTimeout = 10 * time.Second
)

// Gateway durably commits an order and returns its id.
type Gateway interface {
	PlaceOrder(ctx context.Context, req models.CommitRequest) (int64, error)
}

// IntentCreator asks the payment collaborator for a QR intent.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
}

// Directory resolves attendants by id.
type Directory interface {
	Lookup(id int64) (models.Attendant, error)
}

// Deps are shared by every session of a registry.
type Deps struct {
	Catalog        cart.Lookup
	Directory      Directory
	Orders         Gateway
	Intents        IntentCreator
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	CommitTimeout  time.Duration
	PaymentTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.CommitTimeout <= 0 {
		d.CommitTimeout = defaultCommitTimeout
	}
	if d.PaymentTimeout <= 0 {
		d.PaymentTimeout = defaultPaymentTimeout
	}
	return d
}

type refIndex interface {
	bind(ref string, s *Session)
	release(ref string)
}

type paymentSession struct {
	method      models.PaymentMethod
	cash        *CashBuffer
	ref         string
	redirectURL string
	intent      IntentState
}

// Session is the checkout state of one terminal. All methods are safe for
// concurrent use; network calls run without holding the lock while the
// session is marked busy.
type Session struct {
	terminal string
	deps     Deps
	index    refIndex

	mu         sync.Mutex
	cart       *cart.Cart
	attendant  *models.Attendant
	payment    *paymentSession
	committing bool
}

// NewSession creates a standalone session not attached to a registry.
func NewSession(terminal string, deps Deps) *Session {
	return newSession(terminal, deps, nil)
}

func newSession(terminal string, deps Deps, index refIndex) *Session {
	deps = deps.withDefaults()
	return &Session{
		terminal: terminal,
		deps:     deps,
		index:    index,
		cart:     cart.New(deps.Catalog),
	}
}

func (s *Session) Terminal() string {
	return s.terminal
}

func (s *Session) stateLocked() State {
	switch {
	case s.committing:
		return StateCommitting
	case s.payment != nil && s.payment.method == models.PaymentCash:
		return StateCashTendering
	case s.payment != nil:
		return StateQRAwaitingResult
	case s.cart.IsEmpty():
		return StateEmpty
	case s.attendant == nil:
		return StateSelecting
	default:
		return StateReadyToPay
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// View returns a copy of the session for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.cart.Total()
	v := View{
		Terminal: s.terminal,
		State:    s.stateLocked(),
		Lines:    s.cart.Lines(),
		Total:    total,
	}
	if s.attendant != nil {
		a := *s.attendant
		v.Attendant = &a
	}
	if d, ok := s.cart.Draft(); ok {
		v.Draft = &d
	}
	if p := s.payment; p != nil {
		pv := &PaymentView{
			Method:      p.method,
			Reference:   p.ref,
			RedirectURL: p.redirectURL,
			IntentState: p.intent,
		}
		if p.cash != nil {
			q := Quote(p.cash, total)
			pv.Cash = &q
		}
		v.Payment = pv
	}
	return v
}

// editableLocked rejects cart and attendant edits while a payment is active.
func (s *Session) editableLocked() error {
	if s.committing {
		return models.NewValidationError("session", "order is being committed")
	}
	if s.payment != nil {
		return models.NewValidationError("payment", "finish or cancel the payment first")
	}
	return nil
}

func (s *Session) SelectItem(itemID int64) (cart.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return cart.Draft{}, err
	}
	return s.cart.SelectItem(itemID)
}

func (s *Session) ConfirmAdd(custom models.Customization) (cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return cart.Line{}, err
	}
	return s.cart.ConfirmAdd(custom)
}

func (s *Session) CancelDraft() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.cart.CancelDraft()
	return nil
}

func (s *Session) RemoveLine(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return s.cart.RemoveLine(index)
}

func (s *Session) ChangeQuantity(index, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return s.cart.ChangeQuantity(index, delta)
}

// SelectAttendant records who takes the order.
func (s *Session) SelectAttendant(id int64) (models.Attendant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return models.Attendant{}, err
	}
	a, err := s.deps.Directory.Lookup(id)
	if err != nil {
		return models.Attendant{}, models.NewValidationError("attendant_id", err.Error())
	}
	s.attendant = &a
	return a, nil
}

func (s *Session) ClearAttendant() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.attendant = nil
	return nil
}

func (s *Session) enterPaymentLocked() error {
	if err := s.editableLocked(); err != nil {
		return err
	}
	if s.cart.IsEmpty() {
		return models.NewValidationError("cart", "cart is empty")
	}
	if s.attendant == nil {
		return models.NewValidationError("attendant", "select an attendant before payment")
	}
	s.cart.CancelDraft()
	return nil
}

// BeginCash opens the cash keypad.
func (s *Session) BeginCash() (CashQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterPaymentLocked(); err != nil {
		return CashQuote{}, err
	}
	buf := &CashBuffer{}
	s.payment = &paymentSession{method: models.PaymentCash, cash: buf}
	return Quote(buf, s.cart.Total()), nil
}

func (s *Session) cashLocked() (*CashBuffer, error) {
	if s.committing {
		return nil, models.NewValidationError("session", "order is being committed")
	}
	if s.payment == nil || s.payment.method != models.PaymentCash {
		return nil, models.NewValidationError("payment", "no cash payment in progress")
	}
	return s.payment.cash, nil
}

// PressKey applies a keypad key and returns the updated quote.
func (s *Session) PressKey(key string) (CashQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, err := s.cashLocked()
	if err != nil {
		return CashQuote{}, err
	}
	if err := buf.Press(key); err != nil {
		return Quote(buf, s.cart.Total()), err
	}
	return Quote(buf, s.cart.Total()), nil
}

func (s *Session) CashQuote() (CashQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, err := s.cashLocked()
	if err != nil {
		return CashQuote{}, err
	}
	return Quote(buf, s.cart.Total()), nil
}

// CommitCash commits the order once the tendered amount covers the total. An
// insufficient amount is a PaymentError and the session returns to
// ReadyToPay.
func (s *Session) CommitCash(ctx context.Context) (*CommitResult, error) {
	s.mu.Lock()
	buf, err := s.cashLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	quote := Quote(buf, s.cart.Total())
	if !quote.CanCommit {
		s.payment = nil
		s.mu.Unlock()
		err := models.NewPaymentError(fmt.Sprintf("tendered %s is less than total %s", quote.Tendered.StringFixed(2), quote.Total.StringFixed(2)), nil)
		s.recordFailure(ctx, err)
		return nil, err
	}

	req := s.commitRequestLocked(models.PaymentCash)
	req.Cash = &models.CashDetails{Tendered: quote.Tendered, Change: quote.Change}
	s.committing = true
	s.mu.Unlock()

	return s.commit(ctx, req, quote.Change)
}

// BeginQR creates a payment intent for the cart. The order is committed only
// when ResolveQR later reports success for the returned reference.
func (s *Session) BeginQR(ctx context.Context) (*PaymentView, error) {
	s.mu.Lock()
	if err := s.enterPaymentLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ref := uuid.NewString()
	req := payment.IntentRequest{
		Items:     s.intentItemsLocked(),
		Employee:  s.attendant.DisplayName(),
		Reference: ref,
		Total:     models.MinorUnits(s.cart.Total()),
	}
	s.payment = &paymentSession{method: models.PaymentQR, ref: ref, intent: IntentCreating}
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.deps.PaymentTimeout)
	defer cancel()
	intent, err := s.deps.Intents.CreateIntent(callCtx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.payment = nil
		perr := models.NewPaymentError("create payment intent", err)
		s.deps.Logger.Error("payment_intent_failed", "Failed to create payment intent", logger.RequestIDFromContext(ctx), err, map[string]interface{}{
			"terminal":  s.terminal,
			"reference": ref,
		})
		s.recordFailure(ctx, perr)
		return nil, perr
	}

	s.payment.intent = IntentPending
	s.payment.redirectURL = intent.RedirectURL
	if s.index != nil {
		s.index.bind(ref, s)
	}

	s.deps.Logger.Info("payment_intent_created", "Waiting for QR payment", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"terminal":  s.terminal,
		"reference": ref,
	})

	return &PaymentView{
		Method:      models.PaymentQR,
		Reference:   ref,
		RedirectURL: intent.RedirectURL,
		IntentState: IntentPending,
	}, nil
}

// ResolveQR applies the completion callback for the session's intent.
func (s *Session) ResolveQR(ctx context.Context, ref string, outcome Outcome) (Resolution, error) {
	if !outcome.Valid() {
		return Resolution{}, models.NewValidationError("status", fmt.Sprintf("unsupported payment outcome %q", outcome))
	}

	s.mu.Lock()
	p := s.payment
	if p == nil || p.method != models.PaymentQR || p.ref != ref {
		s.mu.Unlock()
		return Resolution{}, fmt.Errorf("payment reference %s: %w", ref, models.ErrNotFound)
	}
	if s.committing || p.intent != IntentPending {
		s.mu.Unlock()
		return Resolution{}, fmt.Errorf("payment reference %s is %s: %w", ref, p.intent, models.ErrIllegalTransition)
	}

	if outcome == OutcomeCancelled {
		s.dropPaymentLocked()
		state := s.stateLocked()
		s.mu.Unlock()
		s.deps.Logger.Info("payment_cancelled", "QR payment cancelled, cart kept", logger.RequestIDFromContext(ctx), map[string]interface{}{
			"terminal":  s.terminal,
			"reference": ref,
		})
		return Resolution{State: state}, nil
	}

	p.intent = IntentSucceeded
	req := s.commitRequestLocked(models.PaymentQR)
	req.PaymentRef = ref
	s.committing = true
	s.mu.Unlock()

	res, err := s.commit(ctx, req, decimal.Zero)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{State: StateCommitted, Commit: res}, nil
}

// CancelPayment leaves the payment sub-state and keeps the cart.
func (s *Session) CancelPayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return models.NewValidationError("session", "order is being committed")
	}
	if s.payment == nil {
		return models.NewValidationError("payment", "no payment in progress")
	}
	if s.payment.intent == IntentCreating {
		return models.NewValidationError("payment", "payment intent is still being created")
	}
	s.dropPaymentLocked()
	return nil
}

// CancelOrder discards the cart, the attendant and any payment.
func (s *Session) CancelOrder() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return models.NewValidationError("session", "order is being committed")
	}
	if s.payment != nil && s.payment.intent == IntentCreating {
		return models.NewValidationError("payment", "payment intent is still being created")
	}
	s.dropPaymentLocked()
	s.cart.Reset()
	s.attendant = nil
	return nil
}

func (s *Session) dropPaymentLocked() {
	if s.payment != nil && s.payment.ref != "" && s.index != nil {
		s.index.release(s.payment.ref)
	}
	s.payment = nil
}

func (s *Session) commitRequestLocked(method models.PaymentMethod) models.CommitRequest {
	return models.CommitRequest{
		Lines:         s.cart.OrderLines(),
		Total:         s.cart.Total(),
		Attendant:     s.attendant.DisplayName(),
		PaymentMethod: method,
	}
}

func (s *Session) intentItemsLocked() []payment.Item {
	lines := s.cart.Lines()
	items := make([]payment.Item, len(lines))
	for i, l := range lines {
		items[i] = payment.Item{
			Name:        l.Name,
			Description: l.Customization.Describe(),
			Price:       models.MinorUnits(l.UnitPrice),
			Quantity:    l.Quantity,
		}
	}
	return items
}

// commit runs the gateway call with the session marked committing. Success
// resets the session; failure returns it to ReadyToPay with the cart intact.
func (s *Session) commit(ctx context.Context, req models.CommitRequest, change decimal.Decimal) (*CommitResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.deps.CommitTimeout)
	defer cancel()

	orderID, err := s.deps.Orders.PlaceOrder(callCtx, req)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && models.ErrorKind(err) != "persistence" {
		err = models.NewPersistenceError("timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	s.dropPaymentLocked()
	requestID := logger.RequestIDFromContext(ctx)

	if err != nil {
		s.deps.Logger.Error("order_commit_failed", "Order commit abandoned, cart kept", requestID, err, map[string]interface{}{
			"terminal":    s.terminal,
			"method":      req.PaymentMethod,
			"payment_ref": req.PaymentRef,
		})
		s.recordFailure(ctx, err)
		return nil, err
	}

	s.cart.Reset()
	s.attendant = nil
	if s.deps.Metrics != nil {
		s.deps.Metrics.OrdersCommitted.WithLabelValues(string(req.PaymentMethod)).Inc()
	}
	s.deps.Logger.Info("order_committed", "Order committed", requestID, map[string]interface{}{
		"terminal": s.terminal,
		"order_id": orderID,
		"method":   req.PaymentMethod,
		"total":    req.Total.StringFixed(2),
	})

	return &CommitResult{
		OrderID: orderID,
		Method:  req.PaymentMethod,
		Total:   req.Total,
		Change:  change,
		State:   StateCommitted,
		Next:    "queue",
	}, nil
}

func (s *Session) recordFailure(ctx context.Context, err error) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.CheckoutFailures.WithLabelValues(models.ErrorKind(err)).Inc()
	}
	s.deps.Logger.Debug("checkout_failed", err.Error(), logger.RequestIDFromContext(ctx), map[string]interface{}{
		"terminal": s.terminal,
		"kind":     models.ErrorKind(err),
	})
}
