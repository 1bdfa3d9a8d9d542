// Package domain holds the error taxonomy shared by the store, the booking
// service and the transport layer. Callers match with errors.Is against the
// sentinels and use errors.As when they need the offending id or field.
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrReservationConflict = errors.New("the requested time slot is already booked")
	ErrStorage             = errors.New("storage error")
)

// ValidationError reports caller input that violates a precondition.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ClientNotFoundError is returned when a referenced client does not exist.
type ClientNotFoundError struct {
	ID uuid.UUID
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("client not found with ID: %s", e.ID)
}

func (e *ClientNotFoundError) Is(target error) bool { return target == ErrNotFound }

// ReservationNotFoundError is returned when a reservation id is unknown.
type ReservationNotFoundError struct {
	ID uuid.UUID
}

func (e *ReservationNotFoundError) Error() string {
	return fmt.Sprintf("reservation not found with ID: %s", e.ID)
}

func (e *ReservationNotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the underlying database. The cause is kept
// for logs; it must not be shown to remote callers.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
