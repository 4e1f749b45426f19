// Package apperr defines the error kinds shared by the stores, the price feed
// and the HTTP layer. Callers match them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrStorage         = errors.New("storage error")
	ErrFeedUnavailable = errors.New("price feed unavailable")
	ErrRateLimited     = errors.New("price feed rate limited")
	ErrValidation      = errors.New("validation error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
)

// Storage wraps a persistence failure. The caller must not assume any part of
// the write reached the backend.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func FeedUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrFeedUnavailable, err)
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Unauthorized(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, reason)
}
