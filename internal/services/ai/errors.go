package ai

import (
	"errors"
	"fmt"
)

// ErrUnavailable is the single failure mode the completion service exposes.
// Network errors, timeouts, non-success statuses, and malformed payloads are
// all wrapped in it so callers have exactly one branch: use the reply or run
// the fallback heuristic.
var ErrUnavailable = errors.New("completion service unavailable")

// Unavailable wraps err as an ErrUnavailable, preserving the cause for logs.
func Unavailable(err error) error {
	if err == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// IsUnavailable reports whether err represents completion-service unavailability
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
