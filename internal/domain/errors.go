// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrListFailure marks a remote directory listing that could not complete
	// (auth, network, protocol).
	ErrListFailure = errors.New("list failure")

	// ErrStoreFailure marks a seen-store operation that could not complete.
	ErrStoreFailure = errors.New("store failure")

	// ErrSinkFailure marks an accepted event the downstream sink did not take.
	ErrSinkFailure = errors.New("sink failure")

	ErrCycleInProgress  = errors.New("poll cycle already in progress")
	ErrPollerNotRunning = errors.New("poller is not running")
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
	ErrStoreClosed      = errors.New("seen store is closed")
)

// ListError represents a failed remote directory listing.
type ListError struct {
	Dir string // Remote directory being listed
	Err error  // Underlying error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list %s: %v", e.Dir, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// Is reports ListError as ErrListFailure.
func (e *ListError) Is(target error) bool {
	return target == ErrListFailure
}

// NewListError creates a new ListError.
func NewListError(dir string, err error) *ListError {
	return &ListError{
		Dir: dir,
		Err: err,
	}
}

// StoreError represents a seen-store operation that failed.
type StoreError struct {
	Op  string // Operation that failed (open, put, count, close)
	Key string // Key involved, empty for store-wide operations
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports StoreError as ErrStoreFailure.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// SinkError represents an accepted event that could not be delivered.
type SinkError struct {
	Key string // Dedup key of the event that was not delivered
	Err error  // Underlying error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("deliver %q: %v", e.Key, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Is reports SinkError as ErrSinkFailure.
func (e *SinkError) Is(target error) bool {
	return target == ErrSinkFailure
}

// NewSinkError creates a new SinkError.
func NewSinkError(key string, err error) *SinkError {
	return &SinkError{
		Key: key,
		Err: err,
	}
}
