package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrInventoryNotFound   = errors.New("inventory unit not found")
	ErrSeatNotFound        = errors.New("seat not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidTTL          = errors.New("invalid ttl")
	ErrSeatHeld            = errors.New("seat already held")
	ErrAlreadyTerminal     = errors.New("reservation already terminal")
	ErrReservationExpired  = errors.New("reservation expired")
	ErrNotExpired          = errors.New("reservation not yet expired")
	ErrInvalidCursor       = errors.New("invalid cursor")
	ErrEventNameRequired   = errors.New("event name is required")
	ErrUnitNameRequired    = errors.New("inventory unit name is required")
	ErrInvalidCapacity     = errors.New("capacity must be positive")
)

// ConflictError reports a lost optimistic-concurrency race: the store held a
// different version than the caller expected. Always retryable after a fresh read.
type ConflictError struct {
	Expected ETag
	Actual   ETag
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict: expected version %q, store holds %q", e.Expected.Version, e.Actual.Version)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// CapacityError reports that a decrement asked for more than is available.
// Retrying without changing the request cannot succeed.
type CapacityError struct {
	UnitID    string
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity on unit %s: requested %d, available %d", e.UnitID, e.Requested, e.Available)
}

// IsCapacity reports whether err is (or wraps) a CapacityError.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}
