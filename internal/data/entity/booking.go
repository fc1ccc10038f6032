package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidBooking = errors.New("invalid booking")

type BookingStatus string

const (
	BookingStatusCreated   BookingStatus = "CREATED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// ParseBookingStatus only accepts the two known states.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusCreated:
		return BookingStatusCreated, nil
	case BookingStatusCancelled:
		return BookingStatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidBooking, s)
	}
}

// IsActive reports whether a booking in this state holds its interval.
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingStatusCreated:
		return true
	case BookingStatusCancelled:
		return false
	default:
		return false
	}
}

// Booking is a reservation of one resource for one interval. Identity, resource, user and
// interval are fixed at construction; status only moves CREATED -> CANCELLED.
type Booking struct {
	id         uuid.UUID
	resourceID string
	userID     string
	interval   Interval
	status     BookingStatus
	createdAt  time.Time
	updatedAt  time.Time
}

// BookingRecord is the persisted layout of a booking. Stores read and write records;
// the engine works with *Booking.
type BookingRecord struct {
	BaseNoDelete
	ResourceID string        `db:"resource_id" json:"resource_id"`
	UserID     string        `db:"user_id" json:"user_id"`
	StartTime  time.Time     `db:"start_time" json:"start_time"`
	EndTime    time.Time     `db:"end_time" json:"end_time"`
	Status     BookingStatus `db:"status" json:"status"`
}

// NewBooking creates an active booking with a fresh id.
func NewBooking(resourceID, userID string, start, end time.Time) (*Booking, error) {
	if strings.TrimSpace(resourceID) == "" {
		return nil, fmt.Errorf("%w: resource id is required", ErrInvalidBooking)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidBooking)
	}

	interval, err := NewInterval(start, end)
	if err != nil {
		return nil, err
	}

	now := normalizeTime(time.Now())
	return &Booking{
		id:         uuid.New(),
		resourceID: resourceID,
		userID:     userID,
		interval:   interval,
		status:     BookingStatusCreated,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// RestoreBooking rebuilds a booking from stored state, rejecting records that could not
// have been produced by NewBooking and Cancel.
func RestoreBooking(rec BookingRecord) (*Booking, error) {
	if rec.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidBooking)
	}
	if rec.ResourceID == "" || rec.UserID == "" {
		return nil, fmt.Errorf("%w: booking %s has empty resource or user id", ErrInvalidBooking, rec.ID)
	}

	status, err := ParseBookingStatus(string(rec.Status))
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", rec.ID, err)
	}

	interval, err := NewInterval(rec.StartTime, rec.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: booking %s: %v", ErrInvalidBooking, rec.ID, err)
	}

	return &Booking{
		id:         rec.ID,
		resourceID: rec.ResourceID,
		userID:     rec.UserID,
		interval:   interval,
		status:     status,
		createdAt:  rec.CreatedAt.UTC(),
		updatedAt:  rec.UpdatedAt.UTC(),
	}, nil
}

func (b *Booking) ID() uuid.UUID { return b.id }

func (b *Booking) ResourceID() string { return b.resourceID }

func (b *Booking) UserID() string { return b.userID }

func (b *Booking) Interval() Interval { return b.interval }

func (b *Booking) Status() BookingStatus { return b.status }

func (b *Booking) CreatedAt() time.Time { return b.createdAt }

func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

func (b *Booking) IsActive() bool { return b.status.IsActive() }

// Cancel flips an active booking to CANCELLED and reports whether anything changed.
// Cancelling a cancelled booking is a no-op.
func (b *Booking) Cancel() bool {
	switch b.status {
	case BookingStatusCancelled:
		return false
	case BookingStatusCreated:
		b.status = BookingStatusCancelled
		b.updatedAt = normalizeTime(time.Now())
		return true
	default:
		return false
	}
}

// Record returns a copy of the booking in its persisted layout.
func (b *Booking) Record() BookingRecord {
	return BookingRecord{
		BaseNoDelete: BaseNoDelete{
			ID:        b.id,
			CreatedAt: b.createdAt,
			UpdatedAt: b.updatedAt,
		},
		ResourceID: b.resourceID,
		UserID:     b.userID,
		StartTime:  b.interval.start,
		EndTime:    b.interval.end,
		Status:     b.status,
	}
}
