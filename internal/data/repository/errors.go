// Package repository defines the Interval Store contract consumed by the reservation engine
// and its PostgreSQL, MongoDB and in-memory implementations.
package repository

import "errors"

// ErrTxConflict means the unit of work was aborted because a concurrent transaction
// touched the same data. Nothing was written and the caller may retry.
var ErrTxConflict = errors.New("transaction conflict")

// ErrOverlap means the store itself refused to commit an active booking that intersects
// another active booking on the same resource.
var ErrOverlap = errors.New("overlapping active booking")

// ErrBookingExists is returned when inserting an id that is already stored.
var ErrBookingExists = errors.New("booking already exists")
