// internal/types/errors.go
package types

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds shared by the wallet, pipeline and swap modules.
// Callers match them with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized: wallet is not connected")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrSettlementFailed  = errors.New("settlement failed")
	ErrTimeout           = errors.New("operation timed out")
	ErrCancelled         = errors.New("operation cancelled")
	ErrSlippageExceeded  = errors.New("price moved beyond slippage tolerance")
)

// StepError classifies the failure of one asynchronous step. parent is the caller's
// context, step the per-step context that carries the timeout.
// A deadline on step while parent is still live means the step timed out.
func StepError(parent, step context.Context, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		if cause := context.Cause(parent); cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
			return cause
		}
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	if step != nil && errors.Is(step.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Temporary() bool { return true }

// Transient marks err as worth retrying.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether some error in the chain asks to be retried.
func IsTransient(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
