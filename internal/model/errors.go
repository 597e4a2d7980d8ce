package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Error taxonomy for the pipeline. Per-lead failures are not errors at this
// level; they are recorded on the lead itself.
var (
	// ErrNotConfigured means a mandatory capability is missing. Fatal to a
	// run before it starts; never retried.
	ErrNotConfigured = eris.New("capability not configured")

	// ErrCapabilityUnavailable means an entire external service is down or
	// rejecting all calls. The stage is skipped and the run continues.
	ErrCapabilityUnavailable = eris.New("capability unavailable")

	// ErrNotFound is returned for unknown run or campaign identifiers.
	ErrNotFound = eris.New("not found")
)

// StoreError wraps a persistence failure. Fatal to the run: lead state must
// never diverge from durable state.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError for the given operation.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether any error in the chain is a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsNotConfigured reports whether err wraps ErrNotConfigured.
func IsNotConfigured(err error) bool { return errors.Is(err, ErrNotConfigured) }

// IsCapabilityUnavailable reports whether err wraps ErrCapabilityUnavailable.
func IsCapabilityUnavailable(err error) bool { return errors.Is(err, ErrCapabilityUnavailable) }
