package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Services return *Error values wrapping one of these so callers
// can match with errors.Is and handlers can map them to status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrIneligibleCustomer = errors.New("customer not eligible for transfer")
	ErrNoPendingCharge    = errors.New("no pending transfer charge")
	ErrImmutableField     = errors.New("immutable field")
	ErrTransport          = errors.New("transport error")
	ErrUpstreamRejected   = errors.New("rejected by back office")
	ErrOrphanedTransfer   = errors.New("orphaned transfer")
)

// Error is a typed failure with a human readable reason.
type Error struct {
	Kind   error
	Reason string
	Field  string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Reason: fmt.Sprintf("%s %s not found", entity, id)}
}

func Validation(field, reason string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Reason: reason}
}

func Ineligible(customerID string) *Error {
	return &Error{Kind: ErrIneligibleCustomer, Reason: fmt.Sprintf("customer %s has no allotted unit eligible for transfer", customerID)}
}

func NoPendingCharge(customerID string) *Error {
	return &Error{Kind: ErrNoPendingCharge, Reason: fmt.Sprintf("no unconsumed transfer charge paid for customer %s", customerID)}
}

func ImmutableField(field string) *Error {
	return &Error{Kind: ErrImmutableField, Field: field, Reason: fmt.Sprintf("%s cannot be changed after the transfer is recorded", field)}
}

func Transport(op string, cause error) *Error {
	return &Error{Kind: ErrTransport, Reason: op, Cause: cause}
}

// UpstreamRejected is a business refusal from a healthy upstream. message is
// shown to the user as is.
func UpstreamRejected(message string) *Error {
	return &Error{Kind: ErrUpstreamRejected, Reason: message}
}

func Orphaned(transferID string, cause error) *Error {
	return &Error{
		Kind:   ErrOrphanedTransfer,
		Reason: fmt.Sprintf("transfer %s recorded but charge consumption unconfirmed; flagged for manual reconciliation", transferID),
		Cause:  cause,
	}
}

// ReasonCode returns the stable code clients route on.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrOrphanedTransfer):
		return "ORPHANED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrIneligibleCustomer):
		return "NOT_ELIGIBLE"
	case errors.Is(err, ErrNoPendingCharge):
		return "NO_CHARGE_PAID"
	case errors.Is(err, ErrImmutableField):
		return "IMMUTABLE_FIELD"
	case errors.Is(err, ErrTransport):
		return "TRANSPORT"
	case errors.Is(err, ErrUpstreamRejected):
		return "UPSTREAM_REJECTED"
	}
	return "INTERNAL"
}
