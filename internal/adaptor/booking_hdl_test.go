package adaptor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resource-booking/internal/data/entity"
	"resource-booking/internal/data/repository"
	"resource-booking/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"
)

// stubService returns err from every call.
type stubService struct {
	err error
}

func (s stubService) Reserve(context.Context, string, string, time.Time, time.Time) (*entity.Booking, error) {
	return nil, s.err
}

func (s stubService) Cancel(context.Context, string) (*entity.Booking, error) {
	return nil, s.err
}

func (s stubService) GetBooking(context.Context, string) (*entity.Booking, error) {
	return nil, s.err
}

func (s stubService) ListUserBookings(context.Context, string, int, int) ([]*entity.Booking, int64, error) {
	return nil, 0, s.err
}

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid interval", fmt.Errorf("reserve: %w", entity.ErrInvalidInterval), http.StatusBadRequest},
		{"invalid booking", entity.ErrInvalidBooking, http.StatusBadRequest},
		{"not found", fmt.Errorf("booking x: %w", usecase.ErrBookingNotFound), http.StatusNotFound},
		{"conflict from query", &usecase.ConflictError{ResourceID: "R"}, http.StatusConflict},
		{"conflict from store", fmt.Errorf("%w: %w", &usecase.ConflictError{ResourceID: "R"}, repository.ErrOverlap), http.StatusConflict},
		{"unavailable", fmt.Errorf("%w: gave up: %w", usecase.ErrUnavailable, repository.ErrTxConflict), http.StatusServiceUnavailable},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookingHandler(stubService{err: tt.err}, zaptest.NewLogger(t))

			r := chi.NewRouter()
			r.Post("/bookings/{id}/cancel", h.CancelBooking)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/abc/cancel", nil))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "disk on fire") {
				t.Error("internal error details leaked to the client")
			}
			if tt.want == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
				t.Error("missing Retry-After")
			}
		})
	}
}

func TestCreateBooking_InvalidJSON(t *testing.T) {
	h := NewBookingHandler(stubService{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader("{")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetUserBookings_PerPageTooLarge(t *testing.T) {
	h := NewBookingHandler(stubService{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.GetUserBookings(rec, httptest.NewRequest(http.MethodGet, "/bookings?user_id=a&per_page=1000", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
