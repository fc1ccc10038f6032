package repository

import (
	"context"
	"errors"
	"fmt"

	"resource-booking/internal/data/entity"
	"resource-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// SQLSTATE codes the store translates into contract errors.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgExclusionViolation   = "23P01"
	pgUniqueViolation      = "23505"
)

const bookingColumns = `id, resource_id, user_id, start_time, end_time, status, created_at, updated_at`

// pgQuerier is the part of pgx shared by the pool and a transaction.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type postgresStore struct {
	db  database.PgxIface
	log *zap.Logger
}

// NewPostgresStore runs every unit of work in a SERIALIZABLE transaction. The
// bookings_no_overlap exclusion constraint backs the invariant at the storage level.
func NewPostgresStore(db database.PgxIface, log *zap.Logger) IntervalStore {
	return &postgresStore{
		db:  db,
		log: log.With(zap.String("repository", "booking"), zap.String("backend", BackendPostgres)),
	}
}

func (r *postgresStore) SerializableTx() bool { return true }

func (r *postgresStore) RunInTx(ctx context.Context, fn TxFunc) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return classifyPgError(fmt.Errorf("begin transaction: %w", err))
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.log.Warn("Failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(ctx, &postgresTx{q: tx, log: r.log}); err != nil {
		return classifyPgError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return classifyPgError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (r *postgresStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return findBookingByID(ctx, r.db, r.log, id, false)
}

func (r *postgresStore) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID, err)
	}
	defer rows.Close()

	return scanBookings(rows, r.log)
}

func (r *postgresStore) CountByUserID(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID, err)
	}

	return count, nil
}

type postgresTx struct {
	q   pgQuerier
	log *zap.Logger
}

func (t *postgresTx) FindActiveOverlapping(ctx context.Context, resourceID string, iv entity.Interval) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE resource_id = $1
		  AND status = $2
		  AND NOT (end_time <= $3 OR start_time >= $4)
		ORDER BY start_time
	`

	rows, err := t.q.Query(ctx, query, resourceID, entity.BookingStatusCreated, iv.Start(), iv.End())
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings on %s: %w", resourceID, err)
	}
	defer rows.Close()

	return scanBookings(rows, t.log)
}

func (t *postgresTx) Insert(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	rec := booking.Record()
	_, err := t.q.Exec(ctx, query,
		rec.ID,
		rec.ResourceID,
		rec.UserID,
		rec.StartTime,
		rec.EndTime,
		rec.Status,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking %s: %w", rec.ID, err)
	}

	return nil
}

func (t *postgresTx) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return findBookingByID(ctx, t.q, t.log, id, true)
}

func (t *postgresTx) Update(ctx context.Context, booking *entity.Booking) error {
	query := `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`

	rec := booking.Record()
	result, err := t.q.Exec(ctx, query, rec.ID, rec.Status, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update booking %s status to %s: %w", rec.ID, rec.Status, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", rec.ID)
	}

	return nil
}

func findBookingByID(ctx context.Context, q pgQuerier, log *zap.Logger, id uuid.UUID, forUpdate bool) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var rec entity.BookingRecord
	err := q.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.ResourceID,
		&rec.UserID,
		&rec.StartTime,
		&rec.EndTime,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return restoreRecord(rec, log)
}

func scanBookings(rows pgx.Rows, log *zap.Logger) ([]*entity.Booking, error) {
	bookings := []*entity.Booking{}
	for rows.Next() {
		var rec entity.BookingRecord
		err := rows.Scan(
			&rec.ID,
			&rec.ResourceID,
			&rec.UserID,
			&rec.StartTime,
			&rec.EndTime,
			&rec.Status,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}

		booking, err := restoreRecord(rec, log)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func restoreRecord(rec entity.BookingRecord, log *zap.Logger) (*entity.Booking, error) {
	booking, err := entity.RestoreBooking(rec)
	if err != nil {
		log.Error("Corrupt booking record", zap.Error(err), zap.String("booking_id", rec.ID.String()))
		return nil, fmt.Errorf("restore booking %s: %w", rec.ID, err)
	}
	return booking, nil
}

// classifyPgError maps SQLSTATE codes onto the store contract, keeping the original error
// in the chain.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %w", ErrTxConflict, err)
	case pgExclusionViolation:
		return fmt.Errorf("%w: %w", ErrOverlap, err)
	case pgUniqueViolation:
		if pgErr.ConstraintName == "bookings_pkey" {
			return fmt.Errorf("%w: %w", ErrBookingExists, err)
		}
		return fmt.Errorf("%w: %w", ErrOverlap, err)
	default:
		return err
	}
}
