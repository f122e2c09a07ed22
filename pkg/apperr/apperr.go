package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers that need to decide between
// "fix the input", "explain the refusal" and "try again later".
type Kind string

const (
	KindValidation   Kind = "validation"
	KindDomain       Kind = "domain"
	KindStore        Kind = "store"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// Error is the classified error returned by every service operation.
// Two errors are considered equal by errors.Is when kind and reason match,
// so a sentinel with extra Detail still matches the bare sentinel.
type Error struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
	// NotFound marks domain errors about a missing referenced record.
	NotFound bool  `json:"-"`
	Err      error `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// WithDetail returns a copy of e carrying a formatted detail message.
func (e *Error) WithDetail(format string, args ...any) *Error {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func Validation(reason string) *Error { return &Error{Kind: KindValidation, Reason: reason} }
func Domain(reason string) *Error     { return &Error{Kind: KindDomain, Reason: reason} }

func domainNotFound(reason string) *Error {
	return &Error{Kind: KindDomain, Reason: reason, NotFound: true}
}

// Store wraps a failure of the record store. A nil cause yields nil.
func Store(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var classified *Error
	if errors.As(cause, &classified) {
		return cause
	}
	return &Error{Kind: KindStore, Reason: "store unavailable", Detail: op, Err: cause}
}

var (
	ErrNoActiveContract   = Domain("no active contract")
	ErrContractFullyPaid  = Domain("contract already fully paid")
	ErrOverpayment        = Domain("overpayment")
	ErrInsufficientStock  = Domain("insufficient stock")
	ErrAdminExists        = Domain("administrator already exists")
	ErrSelfRemoval        = Domain("cannot remove yourself")
	ErrProductNotFound    = domainNotFound("product not found")
	ErrSubscriberNotFound = domainNotFound("subscriber not found")
	ErrSaleNotFound       = domainNotFound("sale not found")
	ErrAdminNotFound      = domainNotFound("administrator not found")

	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Reason: "invalid credentials"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthorized, Reason: "authentication required"}
	ErrNotAdministrator   = &Error{Kind: KindForbidden, Reason: "not an administrator"}
)

// KindOf reports the kind of err, defaulting to KindStore for
// unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// IsNotFound reports whether err is a domain error about a missing record.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.NotFound
}
