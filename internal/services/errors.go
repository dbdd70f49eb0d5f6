package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input rejected at a boundary.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup that produced no result. A valid outcome for
	// user queries, never a system fault.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks an upstream dependency that could not be reached
	// or timed out. Callers treat it as transient and do not retry here.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrStore marks a persistence fault. Indicates a deployment or storage
	// problem and must never be conflated with "no rows".
	ErrStore = errors.New("store error")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserFacing reports whether the error should be surfaced to the requesting
// user rather than logged as a system fault.
func UserFacing(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
