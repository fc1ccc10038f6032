package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"resource-booking/internal/data/entity"
	"resource-booking/internal/dto/request"
	"resource-booking/internal/dto/response"
	"resource-booking/internal/usecase"
	"resource-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBookingRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.service.Reserve(r.Context(), req.ResourceID, req.UserID, req.StartTime, req.EndTime)
	if err != nil {
		h.handleServiceError(w, err, "create booking")
		return
	}

	w.Header().Set("Location", "/api/v1/bookings/"+booking.ID().String())
	utils.ResponseCreated(w, "success", response.BookingToResponse(booking))
}

// CancelBooking handles POST /api/v1/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")

	booking, err := h.service.Cancel(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}

// GetBookingByID handles GET /api/v1/bookings/{id}
func (h *BookingHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "get booking by ID")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}

// GetUserBookings handles GET /api/v1/bookings?user_id=
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	query := r.URL.Query()
	req := request.ListBookingsRequest{
		UserID: query.Get("user_id"),
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		},
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	bookings, total, err := h.service.ListUserBookings(r.Context(), req.UserID, req.Limit(), req.Offset())
	if err != nil {
		h.handleServiceError(w, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success",
		response.NewPaginatedResponse(response.BookingsToResponse(bookings), req.Page, req.Limit(), total))
}

// handleServiceError handles errors untuk booking operations
func (h *BookingHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var conflict *usecase.ConflictError

	switch {
	case errors.Is(err, entity.ErrInvalidInterval), errors.Is(err, entity.ErrInvalidBooking):
		h.log.Warn("Invalid input for "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrBookingNotFound):
		h.log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, usecase.ErrBookingNotFound.Error())

	case errors.As(err, &conflict):
		h.log.Warn(operation+" failed - resource already booked",
			zap.Error(err),
			zap.String("operation", operation))
		var details map[string]any
		if len(conflict.ConflictingIDs) > 0 {
			details = map[string]any{"conflicting_booking_ids": conflict.ConflictingIDs}
		}
		utils.ResponseConflict(w, usecase.ErrResourceConflict.Error(), details)

	case errors.Is(err, usecase.ErrUnavailable):
		h.log.Warn(operation+" failed - store contention",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseServiceUnavailable(w, "Service temporarily unavailable, please retry")

	default:
		h.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
