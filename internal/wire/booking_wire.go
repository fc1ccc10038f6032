package wire

import (
	"resource-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	r.Route("/api/v1/bookings", func(r chi.Router) {
		// POST /api/v1/bookings - Reserve a resource interval
		r.Post("/", bookingHandler.CreateBooking)

		// GET /api/v1/bookings?user_id= - Booking history of a user
		r.Get("/", bookingHandler.GetUserBookings)

		// GET /api/v1/bookings/{id}
		r.Get("/{id}", bookingHandler.GetBookingByID)

		// POST /api/v1/bookings/{id}/cancel - idempotent
		r.Post("/{id}/cancel", bookingHandler.CancelBooking)
	})
}
