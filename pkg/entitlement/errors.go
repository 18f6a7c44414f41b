package entitlement

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrymomot/resumekit/pkg/validator"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("subscription facts violate invariant")
	ErrDuplicateEvent     = errors.New("subscription event already processed")
	ErrStorage            = errors.New("storage failure")
	ErrUnknownFeature     = errors.New("unknown feature")
)

// InvariantViolation describes why subscription facts were rejected.
// Fields maps the offending field name to a human readable reason.
// It matches ErrInvariantViolation with errors.Is and carries the underlying
// validator.ValidationErrors for errors.As.
type InvariantViolation struct {
	Fields map[string]string

	errs validator.ValidationErrors
}

func (v *InvariantViolation) empty() bool {
	return v == nil || len(v.Fields) == 0
}

// Error implements the error interface.
func (v *InvariantViolation) Error() string {
	if v.empty() {
		return ErrInvariantViolation.Error()
	}
	parts := make([]string, 0, len(v.Fields))
	for _, field := range slices.Sorted(maps.Keys(v.Fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v.Fields[field]))
	}
	return fmt.Sprintf("%s: %s", ErrInvariantViolation, strings.Join(parts, ", "))
}

// Unwrap allows errors.Is(err, ErrInvariantViolation).
func (v *InvariantViolation) Unwrap() []error {
	if v.errs == nil {
		return []error{ErrInvariantViolation}
	}
	return []error{ErrInvariantViolation, v.errs}
}

// IsRetryable reports whether the error is a transient storage failure that
// the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
