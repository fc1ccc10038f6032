package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"resource-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memoryRow struct {
	record  entity.BookingRecord
	version uint64
}

// memoryStore keeps bookings in process memory. Transactions are optimistic: reads go to
// committed state, writes are buffered, and commit re-validates under the store mutex.
type memoryStore struct {
	mu         sync.RWMutex
	rows       map[uuid.UUID]*memoryRow
	byResource map[string][]uuid.UUID
	log        *zap.Logger
}

func NewMemoryStore(log *zap.Logger) IntervalStore {
	return &memoryStore{
		rows:       make(map[uuid.UUID]*memoryRow),
		byResource: make(map[string][]uuid.UUID),
		log:        log.With(zap.String("repository", "booking"), zap.String("backend", BackendMemory)),
	}
}

func (s *memoryStore) SerializableTx() bool { return true }

func (s *memoryStore) RunInTx(ctx context.Context, fn TxFunc) error {
	tx := &memoryTx{
		store:   s,
		reads:   make(map[uuid.UUID]uint64),
		updates: make(map[uuid.UUID]entity.BookingRecord),
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.commit(tx)
}

func (s *memoryStore) commit(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, version := range tx.reads {
		if _, updated := tx.updates[id]; !updated {
			continue
		}
		row, ok := s.rows[id]
		if !ok || row.version != version {
			return fmt.Errorf("booking %s changed during transaction: %w", id, ErrTxConflict)
		}
	}

	for i, rec := range tx.inserts {
		if _, exists := s.rows[rec.ID]; exists {
			return fmt.Errorf("insert booking %s: %w", rec.ID, ErrBookingExists)
		}
		candidate, err := entity.NewInterval(rec.StartTime, rec.EndTime)
		if err != nil {
			return err
		}
		if rec.Status.IsActive() {
			if s.activeOverlapLocked(rec.ResourceID, candidate) {
				return fmt.Errorf("insert booking %s on %s: %w", rec.ID, rec.ResourceID, ErrOverlap)
			}
			for _, earlier := range tx.inserts[:i] {
				if earlier.ResourceID == rec.ResourceID && earlier.Status.IsActive() &&
					overlapsRecord(earlier, candidate) {
					return fmt.Errorf("insert booking %s on %s: %w", rec.ID, rec.ResourceID, ErrOverlap)
				}
			}
		}
	}

	for _, rec := range tx.inserts {
		s.rows[rec.ID] = &memoryRow{record: rec, version: 1}
		s.byResource[rec.ResourceID] = append(s.byResource[rec.ResourceID], rec.ID)
	}
	for id, rec := range tx.updates {
		row := s.rows[id]
		row.record.Status = rec.Status
		row.record.UpdatedAt = rec.UpdatedAt
		row.version++
	}

	return nil
}

func (s *memoryStore) activeOverlapLocked(resourceID string, iv entity.Interval) bool {
	for _, id := range s.byResource[resourceID] {
		rec := s.rows[id].record
		if rec.Status.IsActive() && overlapsRecord(rec, iv) {
			return true
		}
	}
	return false
}

func overlapsRecord(rec entity.BookingRecord, iv entity.Interval) bool {
	return rec.EndTime.After(iv.Start()) && rec.StartTime.Before(iv.End())
}

func (s *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	s.mu.RLock()
	row, ok := s.rows[id]
	var rec entity.BookingRecord
	if ok {
		rec = row.record
	}
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return s.restore(rec)
}

func (s *memoryStore) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Booking, error) {
	s.mu.RLock()
	var records []entity.BookingRecord
	for _, row := range s.rows {
		if row.record.UserID == userID {
			records = append(records, row.record)
		}
	}
	s.mu.RUnlock()

	// Sama seperti query SQL: terbaru dulu
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.String() > records[j].ID.String()
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if offset >= len(records) {
		return []*entity.Booking{}, nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	bookings := make([]*entity.Booking, 0, len(records))
	for _, rec := range records {
		b, err := s.restore(rec)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (s *memoryStore) CountByUserID(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, row := range s.rows {
		if row.record.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) restore(rec entity.BookingRecord) (*entity.Booking, error) {
	b, err := entity.RestoreBooking(rec)
	if err != nil {
		s.log.Error("Corrupt booking record", zap.Error(err), zap.String("booking_id", rec.ID.String()))
		return nil, fmt.Errorf("restore booking %s: %w", rec.ID, err)
	}
	return b, nil
}

type memoryTx struct {
	store   *memoryStore
	reads   map[uuid.UUID]uint64
	inserts []entity.BookingRecord
	updates map[uuid.UUID]entity.BookingRecord
}

func (tx *memoryTx) FindActiveOverlapping(ctx context.Context, resourceID string, iv entity.Interval) ([]*entity.Booking, error) {
	var records []entity.BookingRecord

	tx.store.mu.RLock()
	for _, id := range tx.store.byResource[resourceID] {
		rec := tx.store.rows[id].record
		if pending, ok := tx.updates[id]; ok {
			rec = pending
		}
		if rec.Status.IsActive() && overlapsRecord(rec, iv) {
			records = append(records, rec)
		}
	}
	tx.store.mu.RUnlock()

	for _, rec := range tx.inserts {
		if rec.ResourceID == resourceID && rec.Status.IsActive() && overlapsRecord(rec, iv) {
			records = append(records, rec)
		}
	}

	bookings := make([]*entity.Booking, 0, len(records))
	for _, rec := range records {
		b, err := tx.store.restore(rec)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (tx *memoryTx) Insert(ctx context.Context, booking *entity.Booking) error {
	rec := booking.Record()
	for _, pending := range tx.inserts {
		if pending.ID == rec.ID {
			return fmt.Errorf("insert booking %s: %w", rec.ID, ErrBookingExists)
		}
	}
	tx.inserts = append(tx.inserts, rec)
	return nil
}

func (tx *memoryTx) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	if rec, ok := tx.updates[id]; ok {
		return tx.store.restore(rec)
	}
	for _, rec := range tx.inserts {
		if rec.ID == id {
			return tx.store.restore(rec)
		}
	}

	tx.store.mu.RLock()
	row, ok := tx.store.rows[id]
	var rec entity.BookingRecord
	if ok {
		rec = row.record
		if _, seen := tx.reads[id]; !seen {
			tx.reads[id] = row.version
		}
	}
	tx.store.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return tx.store.restore(rec)
}

func (tx *memoryTx) Update(ctx context.Context, booking *entity.Booking) error {
	rec := booking.Record()

	for i, pending := range tx.inserts {
		if pending.ID == rec.ID {
			tx.inserts[i].Status = rec.Status
			tx.inserts[i].UpdatedAt = rec.UpdatedAt
			return nil
		}
	}

	tx.store.mu.RLock()
	row, ok := tx.store.rows[rec.ID]
	if ok {
		if _, seen := tx.reads[rec.ID]; !seen {
			tx.reads[rec.ID] = row.version
		}
	}
	tx.store.mu.RUnlock()

	if !ok {
		return fmt.Errorf("booking %s not found", rec.ID)
	}
	tx.updates[rec.ID] = rec
	return nil
}
