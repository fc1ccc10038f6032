package response

import (
	"time"

	"resource-booking/internal/data/entity"
)

type BookingResponse struct {
	ID         string               `json:"id"`
	ResourceID string               `json:"resource_id"`
	UserID     string               `json:"user_id"`
	StartTime  time.Time            `json:"start_time"`
	EndTime    time.Time            `json:"end_time"`
	Status     entity.BookingStatus `json:"status"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Helper converters
func BookingToResponse(b *entity.Booking) BookingResponse {
	iv := b.Interval()
	return BookingResponse{
		ID:         b.ID().String(),
		ResourceID: b.ResourceID(),
		UserID:     b.UserID(),
		StartTime:  iv.Start(),
		EndTime:    iv.End(),
		Status:     b.Status(),
		CreatedAt:  b.CreatedAt(),
		UpdatedAt:  b.UpdatedAt(),
	}
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingToResponse(b))
	}
	return out
}
