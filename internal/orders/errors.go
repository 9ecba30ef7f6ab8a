package orders

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecordNotFound dikembalikan gateway bila baris tidak ada.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateKey dikembalikan gateway saat unique constraint dilanggar.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrReferenced: baris masih dipakai baris lain (foreign key).
var ErrReferenced = errors.New("record is referenced")

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindTransaction
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindTransaction:
		return "transaction_failure"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error is the error type returned by every operation of this package.
type Error struct {
	Kind   Kind
	Entity string
	Reason string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return e.Entity + " not found"
	case KindValidation:
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Message)
		}
		return "validation failed: " + strings.Join(msgs, "; ")
	case KindTransaction, KindInternal:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Reason, e.Err)
		}
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Reason: "validation failed", Fields: fields}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Reason: entity + " not found"}
}

func InvalidState(reason string) *Error {
	return &Error{Kind: KindInvalidState, Reason: reason}
}

// TransactionFailure: write/commit gagal, deadlock, serialization failure atau timeout. Boleh di-retry.
func TransactionFailure(err error) *Error {
	return &Error{Kind: KindTransaction, Reason: "transaction failed", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Reason: "internal error", Err: err}
}

const (
	ReasonStoreClosed      = "store closed"
	ReasonProductNotSold   = "product not sold by store"
	ReasonDuplicatePayment = "payment method already exists"

	EntityStore         = "store"
	EntityPaymentMethod = "payment method"
	EntityProduct       = "product"
	EntityCategory      = "category"
	EntityOrder         = "order"
)

func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsRetryable(err error) bool { return KindOf(err) == KindTransaction }

// asDomain membiarkan *Error lewat apa adanya; error lain dianggap internal.
func asDomain(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internal(err)
}
