// Package fault defines the error taxonomy shared by the fleet services.
// Every service failure is an *Error carrying a Kind the HTTP layer maps to
// a status code and a dotted operation code for log correlation.
package fault

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a service failure for transport-level handling.
type Kind int

const (
	// KindStoreError covers persistence failures with no more specific kind.
	KindStoreError Kind = iota
	// KindValidation marks payloads with missing or malformed required fields.
	KindValidation
	// KindDuplicateSerial marks a serial-number conflict among live equipment.
	KindDuplicateSerial
	// KindDuplicateEmail marks an email conflict among user accounts.
	KindDuplicateEmail
	// KindAmbiguousCity marks a city lookup that matched several candidates.
	KindAmbiguousCity
	// KindCityNeedsState marks an unknown city that cannot be created without a state code.
	KindCityNeedsState
	// KindNotFound marks a lookup by identifier that matched no row.
	KindNotFound
	// KindStoreTimeout marks a store operation that exceeded its bounded wait.
	KindStoreTimeout
)

// Error is the typed failure returned by every fleet service.
type Error struct {
	kind   Kind
	code   string
	fields []string
	err    error
}

// New builds an Error with the given kind and dotted operation code.
func New(kind Kind, operation, reason string, cause error) *Error {
	return &Error{
		kind: kind,
		code: fmt.Sprintf("%s.%s", operation, reason),
		err:  cause,
	}
}

// Validation builds a KindValidation error naming every offending field.
func Validation(operation string, fields []string) *Error {
	return &Error{
		kind:   KindValidation,
		code:   fmt.Sprintf("%s.%s", operation, "validation_failed"),
		fields: fields,
	}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.code)
	if len(e.fields) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.fields, ", "))
	}
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

// Kind exposes the failure classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Code exposes the dotted operation code.
func (e *Error) Code() string {
	return e.code
}

// Fields lists the offending payload fields for validation failures.
func (e *Error) Fields() []string {
	return e.fields
}

// KindOf extracts the Kind from err, defaulting to KindStoreError.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.kind
	}
	return KindStoreError
}

// Store classifies a persistence failure, promoting exceeded context
// deadlines to KindStoreTimeout so callers can signal a retriable condition.
func Store(operation, reason string, cause error) *Error {
	kind := KindStoreError
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = KindStoreTimeout
	}
	return New(kind, operation, reason, cause)
}
