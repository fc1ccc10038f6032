package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrResourceConflict = errors.New("resource already booked for an overlapping interval")
	ErrBookingNotFound  = errors.New("booking not found")
	// ErrUnavailable means retries ran out on storage contention. The request may succeed
	// if sent again; it is never a business rejection.
	ErrUnavailable = errors.New("booking store temporarily unavailable")
)

// ConflictError is a rejected Reserve. ConflictingIDs is empty when the overlap was caught
// by the store at commit time rather than by the overlap query.
type ConflictError struct {
	ResourceID     string
	ConflictingIDs []uuid.UUID
}

func (e *ConflictError) Error() string {
	if len(e.ConflictingIDs) == 0 {
		return fmt.Sprintf("resource %s: %s", e.ResourceID, ErrResourceConflict)
	}
	ids := make([]string, len(e.ConflictingIDs))
	for i, id := range e.ConflictingIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("resource %s: %s (%s)", e.ResourceID, ErrResourceConflict, strings.Join(ids, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrResourceConflict }
