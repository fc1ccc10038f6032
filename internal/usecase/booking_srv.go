package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"resource-booking/internal/data/entity"
	"resource-booking/internal/data/repository"
	"resource-booking/pkg/lock"
	"resource-booking/pkg/messaging"
	"resource-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts    = 5
	defaultRetryBaseDelay = 10 * time.Millisecond
	defaultRetryMaxDelay  = 200 * time.Millisecond
)

type BookingService interface {
	// Reserve admits a booking only if no active booking on the resource overlaps it.
	Reserve(ctx context.Context, resourceID, userID string, start, end time.Time) (*entity.Booking, error)
	// Cancel is idempotent: an already cancelled booking is returned unchanged.
	Cancel(ctx context.Context, bookingID string) (*entity.Booking, error)

	GetBooking(ctx context.Context, bookingID string) (*entity.Booking, error)
	ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*entity.Booking, int64, error)
}

type BookingConfig struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// OpTimeout bounds one attempt against the store, 0 means only the caller's deadline.
	OpTimeout time.Duration
}

func BookingConfigFrom(c utils.ReserveConfig) BookingConfig {
	return BookingConfig{
		MaxAttempts:    c.MaxAttempts,
		RetryBaseDelay: c.RetryBaseDelay,
		RetryMaxDelay:  c.RetryMaxDelay,
		OpTimeout:      c.OpTimeout,
	}
}

func (c BookingConfig) withDefaults() BookingConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		c.RetryMaxDelay = max(defaultRetryMaxDelay, c.RetryBaseDelay)
	}
	if c.OpTimeout < 0 {
		c.OpTimeout = 0
	}
	return c
}

type bookingService struct {
	store     repository.IntervalStore
	locker    lock.Locker
	publisher messaging.Publisher
	cfg       BookingConfig
	log       *zap.Logger
}

// NewBookingService builds the reservation engine. locker and publisher may be nil. A store
// without serializable transactions always gets a lock around Reserve; if none is given an
// in-process one is used, which is only sufficient for a single replica.
func NewBookingService(store repository.IntervalStore, locker lock.Locker, publisher messaging.Publisher, cfg BookingConfig, log *zap.Logger) BookingService {
	log = log.With(zap.String("service", "booking"))

	if locker == nil && !store.SerializableTx() {
		log.Warn("Store is not serializable and no lock backend is configured, using in-process lock")
		locker = lock.NewLocalLocker(2 * time.Second)
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}

	return &bookingService{
		store:     store,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		log:       log,
	}
}

// ==================== RESERVE ====================

func (s *bookingService) Reserve(ctx context.Context, resourceID, userID string, start, end time.Time) (*entity.Booking, error) {
	booking, err := entity.NewBooking(resourceID, userID, start, end)
	if err != nil {
		s.log.Warn("Reserve rejected",
			zap.Error(err),
			zap.String("resource_id", resourceID),
			zap.String("user_id", userID),
			zap.Time("start", start),
			zap.Time("end", end),
		)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("booking_id", booking.ID().String()),
		zap.String("resource_id", resourceID),
		zap.Stringer("interval", booking.Interval()),
	}

	err = s.withRetry(ctx, "reserve", fields, func(ctx context.Context) error {
		return s.reserveOnce(ctx, booking)
	})
	if err != nil {
		if errors.Is(err, ErrResourceConflict) {
			s.log.Warn("Reserve conflict", append(fields, zap.Error(err))...)
		} else {
			s.log.Error("Reserve failed", append(fields, zap.Error(err))...)
		}
		return nil, err
	}

	s.log.Info("Booking created", append(fields, zap.String("user_id", userID))...)
	s.publish(ctx, entity.BookingEventCreated, booking)

	return booking, nil
}

func (s *bookingService) reserveOnce(ctx context.Context, booking *entity.Booking) error {
	if s.locker != nil {
		key := lock.ResourceKey(booking.ResourceID())
		unlock, err := s.locker.Acquire(ctx, key)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("Failed to release resource lock", zap.Error(err), zap.String("key", key))
			}
		}()
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
		existing, err := tx.FindActiveOverlapping(ctx, booking.ResourceID(), booking.Interval())
		if err != nil {
			return err
		}

		var conflicting []uuid.UUID
		for _, b := range existing {
			// commit sebelumnya ternyata berhasil (hasil commit tidak diketahui)
			if b.ID() == booking.ID() {
				return nil
			}
			conflicting = append(conflicting, b.ID())
		}
		if len(conflicting) > 0 {
			return &ConflictError{ResourceID: booking.ResourceID(), ConflictingIDs: conflicting}
		}

		return tx.Insert(ctx, booking)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrOverlap):
		return fmt.Errorf("%w: %w", &ConflictError{ResourceID: booking.ResourceID()}, err)
	case errors.Is(err, repository.ErrBookingExists):
		// id ini hanya pernah dibuat di sini, jadi attempt sebelumnya sudah commit
		return nil
	default:
		return err
	}
}

// ==================== CANCEL ====================

func (s *bookingService) Cancel(ctx context.Context, bookingID string) (*entity.Booking, error) {
	id, err := parseBookingID(bookingID)
	if err != nil {
		s.log.Warn("Cancel on malformed booking ID", zap.String("booking_id", bookingID))
		return nil, err
	}

	fields := []zap.Field{zap.String("booking_id", id.String())}

	var (
		booking *entity.Booking
		changed bool
	)
	err = s.withRetry(ctx, "cancel", fields, func(ctx context.Context) error {
		booking, changed = nil, false

		return s.store.RunInTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
			found, err := tx.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if found == nil {
				return fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
			}

			if found.Cancel() {
				if err := tx.Update(ctx, found); err != nil {
					return err
				}
				changed = true
			}
			booking = found
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			s.log.Warn("Cancel on unknown booking", fields...)
		} else {
			s.log.Error("Cancel failed", append(fields, zap.Error(err))...)
		}
		return nil, err
	}

	if !changed {
		s.log.Info("Booking already cancelled", fields...)
		return booking, nil
	}

	s.log.Info("Booking cancelled", append(fields, zap.String("resource_id", booking.ResourceID()))...)
	s.publish(ctx, entity.BookingEventCancelled, booking)

	return booking, nil
}

// ==================== QUERIES ====================

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*entity.Booking, error) {
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.attemptContext(ctx)
	defer cancel()

	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
	}

	return booking, nil
}

// ListUserBookings returns one page of the user's bookings (newest first) and the total.
// A blank user id matches nothing.
func (s *bookingService) ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*entity.Booking, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return []*entity.Booking{}, 0, nil
	}

	ctx, cancel := s.attemptContext(ctx)
	defer cancel()

	bookings, err := s.store.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get user bookings",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, 0, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.store.CountByUserID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to count user bookings", zap.Error(err), zap.String("user_id", userID))
		return nil, 0, fmt.Errorf("count user bookings: %w", err)
	}

	s.log.Debug("User bookings retrieved",
		zap.String("user_id", userID),
		zap.Int("count", len(bookings)),
		zap.Int64("total", total),
	)

	return bookings, total, nil
}

// ==================== HELPERS ====================

// withRetry runs fn until it succeeds, fails with a non-transient error, or the attempt
// budget runs out. Exhaustion is reported as ErrUnavailable.
func (s *bookingService) withRetry(ctx context.Context, op string, fields []zap.Field, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err := s.runAttempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !isTransient(err) {
			return err
		}

		lastErr = err
		if attempt == s.cfg.MaxAttempts {
			break
		}

		delay := s.backoff(attempt)
		s.log.Debug("Transient store contention, retrying",
			append(fields,
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(err),
			)...,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.log.Warn("Retries exhausted",
		append(fields, zap.String("op", op), zap.Int("attempts", s.cfg.MaxAttempts), zap.Error(lastErr))...,
	)
	return fmt.Errorf("%w: %s gave up after %d attempts: %w", ErrUnavailable, op, s.cfg.MaxAttempts, lastErr)
}

func (s *bookingService) runAttempt(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := s.attemptContext(ctx)
	defer cancel()
	return fn(ctx)
}

func (s *bookingService) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OpTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.OpTimeout)
	}
	return context.WithCancel(ctx)
}

// backoff doubles from RetryBaseDelay up to RetryMaxDelay, then picks uniformly from the
// upper half so that concurrent losers spread out.
func (s *bookingService) backoff(attempt int) time.Duration {
	d := s.cfg.RetryBaseDelay << (attempt - 1)
	if d <= 0 || d > s.cfg.RetryMaxDelay {
		d = s.cfg.RetryMaxDelay
	}
	half := d / 2
	return half + rand.N(half+1)
}

// isTransient covers store contention, a busy resource lock, and an attempt that hit
// OpTimeout while the caller's context was still alive.
func isTransient(err error) bool {
	return errors.Is(err, repository.ErrTxConflict) ||
		errors.Is(err, lock.ErrNotAcquired) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *bookingService) publish(ctx context.Context, eventType entity.BookingEventType, booking *entity.Booking) {
	event := entity.NewBookingEvent(eventType, booking)
	if err := s.publisher.Publish(context.WithoutCancel(ctx), booking.ResourceID(), event); err != nil {
		s.log.Warn("Failed to publish booking event",
			zap.Error(err),
			zap.String("event", string(eventType)),
			zap.String("booking_id", booking.ID().String()),
		)
	}
}

// parseBookingID maps malformed ids to ErrBookingNotFound, no booking can carry them.
func parseBookingID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("booking %q: %w", raw, ErrBookingNotFound)
	}
	return id, nil
}
