package apperr

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error taxonomy
// ============================================================================
//
// Every failure of the settlement subsystem unwraps to exactly one of the
// sentinels below, so callers can branch with errors.Is and still get the
// details through errors.As.
//
// ============================================================================

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConcurrencyConflict = errors.New("optimistic lock conflict, re-read and retry")
	ErrDuplicatePayout     = errors.New("payout already exists for bid and dish media")
	ErrNotFound            = errors.New("record not found")
)

// ValidationError rejects malformed input before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError is returned when a status edge is not in the transition table.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// StateError is returned when an operation requires the entity to be in a
// particular status, without itself moving it.
type StateError struct {
	Entity string
	ID     string
	Status string
	Want   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s is %s, want %s", e.Entity, e.ID, e.Status, e.Want)
}

func (e *StateError) Unwrap() error { return ErrInvalidTransition }

// ConflictError reports a stale expected version on a guarded write.
type ConflictError struct {
	Entity          string
	ID              string
	ExpectedVersion int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: version %d is stale", e.Entity, e.ID, e.ExpectedVersion)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrencyConflict }

// DuplicatePayoutError is raised by the store when (bid_id, dish_media_id)
// or transfer_id already exists.
type DuplicatePayoutError struct {
	BidID       string
	DishMediaID string
}

func (e *DuplicatePayoutError) Error() string {
	return fmt.Sprintf("payout for bid %s and dish media %s already exists", e.BidID, e.DishMediaID)
}

func (e *DuplicatePayoutError) Unwrap() error { return ErrDuplicatePayout }

type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
