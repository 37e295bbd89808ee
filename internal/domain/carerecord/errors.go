package carerecord

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a request rejected before any query runs.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a missing case manager, team, state or window.
	ErrNotFound = errors.New("not found")
	// ErrStore marks a failed query against the care record store.
	ErrStore = errors.New("store failure")
)

// Invalid wraps a message as ErrInvalidInput.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound wraps a message as ErrNotFound.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// storeErr tags err as a store failure unless it already carries a kind.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
