// Package errors defines the domain error kinds shared by the ledger,
// wallet, currency and fraud services.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a DomainError so callers can switch on it instead of
// matching message text.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInsufficientBalance
	KindRecipientNotFound
	KindSelfTransfer
	KindConcurrencyConflict
	KindStoreUnavailable
	KindCurrencyUnsupported
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindRecipientNotFound:
		return "recipient_not_found"
	case KindSelfTransfer:
		return "self_transfer"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindCurrencyUnsupported:
		return "currency_unsupported"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// DomainError is a business error with a stable code.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same kind and code,
// so wrapped copies of a sentinel still match it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap returns a copy of e carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// WithMessage returns a copy of e with a more specific message.
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

func New(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of the first DomainError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) string {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindSelfTransfer, KindCurrencyUnsupported:
		return 400
	case KindNotFound, KindRecipientNotFound:
		return 404
	case KindConcurrencyConflict:
		return 409
	case KindInsufficientBalance:
		return 422
	case KindStoreUnavailable:
		return 503
	default:
		return 500
	}
}
