package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// ValidationError blocks a transition before any side effect happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError returns a *ValidationError as an error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// PaymentError reports a failed or rejected payment step.
type PaymentError struct {
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payment failed: %s", e.Reason)
	}
	return fmt.Sprintf("payment failed: %s: %v", e.Reason, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// NewPaymentError returns a *PaymentError as an error.
func NewPaymentError(reason string, err error) error {
	return &PaymentError{Reason: reason, Err: err}
}

// PersistenceError reports the commit step that failed. The whole commit is
// abandoned when one is returned.
type PersistenceError struct {
	Step string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist order (%s): %v", e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError returns a *PersistenceError as an error.
func NewPersistenceError(step string, err error) error {
	return &PersistenceError{Step: step, Err: err}
}

// ChannelError covers push-channel and audio failures. Never fatal.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// NewChannelError returns a *ChannelError as an error.
func NewChannelError(op string, err error) error {
	return &ChannelError{Op: op, Err: err}
}

// ErrorKind classifies err for HTTP mapping and metrics labels.
func ErrorKind(err error) string {
	var (
		validationErr  *ValidationError
		paymentErr     *PaymentError
		persistenceErr *PersistenceError
		channelErr     *ChannelError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &paymentErr):
		return "payment"
	case errors.As(err, &persistenceErr):
		return "persistence"
	case errors.As(err, &channelErr):
		return "channel"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIllegalTransition):
		return "conflict"
	default:
		return "internal"
	}
}
