// Package errs defines the error taxonomy shared across the engine.
//
// Three typed errors cover every failure class:
//   - IntegrityError: corrupted reference data, fatal, never silently repaired
//   - ValidationError: rejected input, raised before any side effect
//   - NotFoundError: requested thing absent, recoverable by the caller
//
// Degraded-but-successful outcomes (invalid indicators, skipped dividend
// adjustments) are not errors and never reach this package.
package errs

import (
	"errors"
	"fmt"
)

// IntegrityError signals corrupted reference data, such as overlapping
// membership intervals for one symbol. Fatal for the operation; never
// silently corrected.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string {
	return "integrity: " + e.Msg
}

// Integrityf builds an IntegrityError.
func Integrityf(format string, args ...any) error {
	return &IntegrityError{Msg: fmt.Sprintf(format, args...)}
}

// IsIntegrity reports whether err is or wraps an IntegrityError.
func IsIntegrity(err error) bool {
	var e *IntegrityError
	return errors.As(err, &e)
}

// ValidationError signals input rejected before any side effect, such as an
// empty snapshot or a malformed timestamp. The caller may retry with
// corrected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// NotFoundError signals an absent snapshot, metadata file, or record.
// Recoverable: CLI callers print a message and exit non-zero, library
// callers may fall back.
type NotFoundError struct {
	What string // kind of thing ("snapshot", "metadata")
	Key  string // identifying key (timestamp, symbol)
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.What + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.What, e.Key)
}

// NotFound builds a NotFoundError.
func NotFound(what, key string) error {
	return &NotFoundError{What: what, Key: key}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
