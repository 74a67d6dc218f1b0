// Package errors provides the consolidated error definitions for specdb.
//
// The taxonomy mirrors how callers are expected to react:
//   - configuration errors (unsupported model/sampler/profile kind) and
//     malformed input terminate the call;
//   - missing auxiliary data and statistical edge cases are recovered
//     internally and surfaced as warnings;
//   - range errors (burn-in beyond the chain length) terminate the call.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// Not found errors
	ErrNotFound        = errors.New("not found")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrFilterNotFound  = errors.New("filter not found")

	// Configuration errors
	ErrUnsupportedModel   = errors.New("unsupported model")
	ErrUnsupportedSampler = errors.New("unsupported sampler")
	ErrUnsupportedProfile = errors.New("unsupported pressure-temperature profile")
	ErrUnsupportedKind    = errors.New("unsupported kind")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingField       = errors.New("missing required field")

	// Input errors
	ErrMalformedInput = errors.New("malformed input")
	ErrShapeMismatch  = errors.New("array shape mismatch")
	ErrInvalidPath    = errors.New("invalid path")

	// Range errors
	ErrBurninRange = errors.New("burn-in exceeds the number of steps")
	ErrNoSamples   = errors.New("sample set is empty")

	// Internal errors
	ErrDatabase    = errors.New("database error")
	ErrStoreClosed = errors.New("store is closed")
)

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDatasetNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrFilterNotFound)
}

// IsUnsupported returns true if err is a configuration error for an
// unregistered kind.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedModel) ||
		errors.Is(err, ErrUnsupportedSampler) ||
		errors.Is(err, ErrUnsupportedProfile) ||
		errors.Is(err, ErrUnsupportedKind)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrInvalidPath)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewUnsupported creates an unsupported-kind error that enumerates the
// valid choices.
func NewUnsupported(sentinel error, kind string, valid []string) error {
	return fmt.Errorf("'%s': %w (valid choices: %v)", kind, sentinel, valid)
}

// NewMalformed creates a malformed-input error with context.
func NewMalformed(source, reason string) error {
	return fmt.Errorf("%s: %s: %w", source, reason, ErrMalformedInput)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}
