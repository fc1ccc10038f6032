package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventCancelled BookingEventType = "booking.cancelled"
)

// BookingEvent is emitted after a lifecycle change has been committed.
type BookingEvent struct {
	EventID    uuid.UUID        `json:"event_id"`
	Type       BookingEventType `json:"type"`
	Booking    BookingRecord    `json:"booking"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func NewBookingEvent(eventType BookingEventType, b *Booking) BookingEvent {
	return BookingEvent{
		EventID:    uuid.New(),
		Type:       eventType,
		Booking:    b.Record(),
		OccurredAt: time.Now().UTC(),
	}
}
