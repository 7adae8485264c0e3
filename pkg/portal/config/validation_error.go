package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError collects every problem found in one validation pass.
type ValidationError struct {
	Errors []error
}

// NewValidationError creates an empty ValidationError
func NewValidationError() *ValidationError {
	return &ValidationError{}
}

// Add records err. Nil errors are ignored so checks can be added unconditionally.
func (v *ValidationError) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// HasErrors reports whether anything was recorded
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationError) Error() string {
	switch len(v.Errors) {
	case 0:
		return ""
	case 1:
		return v.Errors[0].Error()
	}

	lines := make([]string, 0, len(v.Errors)+1)
	lines = append(lines, fmt.Sprintf("found %d validation errors:", len(v.Errors)))
	for i, err := range v.Errors {
		lines = append(lines, fmt.Sprintf("  %d. %v", i+1, err))
	}
	return strings.Join(lines, "\n")
}

// Is matches target against any recorded error.
func (v *ValidationError) Is(target error) bool {
	for _, err := range v.Errors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Unwrap exposes the recorded errors to errors.Is and errors.As.
func (v *ValidationError) Unwrap() []error {
	return v.Errors
}

// ErrorOrNil returns v when it holds errors, nil otherwise
func (v *ValidationError) ErrorOrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
