// Package apperr defines the error kinds shared by the repositories and the
// HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Allowed []string
	Message string
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "invalid value"
	}
	if len(e.Allowed) > 0 {
		msg = fmt.Sprintf("%s; must be one of: %s", msg, strings.Join(e.Allowed, ", "))
	}
	if e.Field == "" {
		return msg
	}
	return e.Field + ": " + msg
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotInSet builds a ValidationError for a value outside an enumerated set.
func NotInSet[T ~string](field string, got string, allowed []T) *ValidationError {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return &ValidationError{
		Field:   field,
		Allowed: names,
		Message: fmt.Sprintf("invalid %s %q", field, got),
	}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError unless it is nil or already a domain error.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var nf *NotFoundError
	var se *StoreError
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
