package repository

import (
	"context"

	"resource-booking/internal/data/entity"

	"github.com/google/uuid"
)

// TxFunc is one unit of work. Returning an error rolls the whole unit back.
type TxFunc func(ctx context.Context, tx BookingTx) error

// BookingTx is the view of the store available inside a unit of work.
type BookingTx interface {
	// FindActiveOverlapping returns every CREATED booking on the resource whose interval
	// intersects iv (half-open predicate).
	FindActiveOverlapping(ctx context.Context, resourceID string, iv entity.Interval) ([]*entity.Booking, error)
	Insert(ctx context.Context, booking *entity.Booking) error
	// FindByID returns nil, nil when the booking does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// Update persists the booking's status change. Other fields are immutable.
	Update(ctx context.Context, booking *entity.Booking) error
}

// IntervalStore owns persisted bookings.
//
// RunInTx must execute fn atomically: either every write it made is committed or none is.
// When SerializableTx reports true the store also guarantees that two concurrent units of
// work cannot both commit an insert that breaks the no-overlap invariant; one of them fails
// with ErrTxConflict or ErrOverlap. When it reports false the caller must serialise
// check-then-insert per resource itself.
type IntervalStore interface {
	RunInTx(ctx context.Context, fn TxFunc) error
	SerializableTx() bool

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
}
