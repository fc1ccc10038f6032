package request

import "time"

type CreateBookingRequest struct {
	ResourceID string    `json:"resource_id" validate:"required,max=128"`
	UserID     string    `json:"user_id" validate:"required,max=128"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required"`
}

type ListBookingsRequest struct {
	UserID string `json:"user_id"`
	PaginatedRequest
}
