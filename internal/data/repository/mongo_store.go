package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resource-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const (
	BookingsCollection = "bookings"

	activeSlotIndex    = "bookings_active_slot"
	mongoWriteConflict = 112
)

type mongoBooking struct {
	ID         string    `bson:"_id"`
	ResourceID string    `bson:"resource_id"`
	UserID     string    `bson:"user_id"`
	StartTime  time.Time `bson:"start_time"`
	EndTime    time.Time `bson:"end_time"`
	Status     string    `bson:"status"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toMongoBooking(b *entity.Booking) mongoBooking {
	rec := b.Record()
	return mongoBooking{
		ID:         rec.ID.String(),
		ResourceID: rec.ResourceID,
		UserID:     rec.UserID,
		StartTime:  rec.StartTime,
		EndTime:    rec.EndTime,
		Status:     string(rec.Status),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func (d mongoBooking) record() (entity.BookingRecord, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return entity.BookingRecord{}, fmt.Errorf("%w: bad id %q", entity.ErrInvalidBooking, d.ID)
	}
	return entity.BookingRecord{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        id,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		ResourceID: d.ResourceID,
		UserID:     d.UserID,
		StartTime:  d.StartTime,
		EndTime:    d.EndTime,
		Status:     entity.BookingStatus(d.Status),
	}, nil
}

type mongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *zap.Logger
}

// NewMongoStore wraps each unit of work in a multi-document transaction. Snapshot reads do
// not see range conflicts between concurrent inserts, so the store reports
// SerializableTx() == false and the engine serialises Reserve per resource.
func NewMongoStore(db *mongo.Database, log *zap.Logger) IntervalStore {
	return &mongoStore{
		client:     db.Client(),
		collection: db.Collection(BookingsCollection),
		log:        log.With(zap.String("repository", "booking"), zap.String("backend", BackendMongo)),
	}
}

// EnsureMongoIndexes creates the partial unique index that rejects two active bookings for
// the exact same slot, plus the lookup indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "resource_id", Value: 1}, {Key: "start_time", Value: 1}, {Key: "end_time", Value: 1}},
			Options: options.Index().
				SetName(activeSlotIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(entity.BookingStatusCreated)}),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("bookings_user_created"),
		},
	}

	if _, err := db.Collection(BookingsCollection).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create booking indexes: %w", err)
	}
	return nil
}

func (r *mongoStore) SerializableTx() bool { return false }

// RunInTx commits manually instead of using Session.WithTransaction, which retries
// transient errors on its own for up to two minutes.
func (r *mongoStore) RunInTx(ctx context.Context, fn TxFunc) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	err = mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
		if err := session.StartTransaction(txnOpts); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}

		if err := fn(sessCtx, &mongoTx{collection: r.collection, log: r.log}); err != nil {
			if abortErr := session.AbortTransaction(context.WithoutCancel(sessCtx)); abortErr != nil {
				r.log.Warn("Failed to abort transaction", zap.Error(abortErr))
			}
			return err
		}

		if err := session.CommitTransaction(sessCtx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})

	return classifyMongoError(err)
}

func (r *mongoStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return findMongoBooking(ctx, r.collection, r.log, id)
}

func (r *mongoStore) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	return decodeMongoBookings(ctx, cursor, r.log)
}

func (r *mongoStore) CountByUserID(ctx context.Context, userID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.log.Error("Failed to count bookings by user ID", zap.Error(err), zap.String("user_id", userID))
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID, err)
	}
	return count, nil
}

type mongoTx struct {
	collection *mongo.Collection
	log        *zap.Logger
}

func (t *mongoTx) FindActiveOverlapping(ctx context.Context, resourceID string, iv entity.Interval) ([]*entity.Booking, error) {
	filter := bson.M{
		"resource_id": resourceID,
		"status":      string(entity.BookingStatusCreated),
		"start_time":  bson.M{"$lt": iv.End()},
		"end_time":    bson.M{"$gt": iv.Start()},
	}

	cursor, err := t.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings on %s: %w", resourceID, err)
	}
	defer cursor.Close(ctx)

	return decodeMongoBookings(ctx, cursor, t.log)
}

func (t *mongoTx) Insert(ctx context.Context, booking *entity.Booking) error {
	if _, err := t.collection.InsertOne(ctx, toMongoBooking(booking)); err != nil {
		return fmt.Errorf("create booking %s: %w", booking.ID(), err)
	}
	return nil
}

func (t *mongoTx) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return findMongoBooking(ctx, t.collection, t.log, id)
}

func (t *mongoTx) Update(ctx context.Context, booking *entity.Booking) error {
	rec := booking.Record()
	update := bson.M{
		"$set": bson.M{
			"status":     string(rec.Status),
			"updated_at": rec.UpdatedAt,
		},
	}

	result, err := t.collection.UpdateOne(ctx, bson.M{"_id": rec.ID.String()}, update)
	if err != nil {
		return fmt.Errorf("update booking %s status to %s: %w", rec.ID, rec.Status, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("booking %s not found", rec.ID)
	}
	return nil
}

func findMongoBooking(ctx context.Context, collection *mongo.Collection, log *zap.Logger, id uuid.UUID) (*entity.Booking, error) {
	var doc mongoBooking
	err := collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		log.Error("Failed to find booking by ID", zap.Error(err), zap.String("booking_id", id.String()))
		return nil, fmt.Errorf("find booking by ID %s: %w", id, err)
	}

	rec, err := doc.record()
	if err != nil {
		return nil, err
	}
	return restoreRecord(rec, log)
}

func decodeMongoBookings(ctx context.Context, cursor *mongo.Cursor, log *zap.Logger) ([]*entity.Booking, error) {
	var docs []mongoBooking
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]*entity.Booking, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.record()
		if err != nil {
			return nil, err
		}
		booking, err := restoreRecord(rec, log)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func classifyMongoError(err error) error {
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), activeSlotIndex) {
			return fmt.Errorf("%w: %w", ErrOverlap, err)
		}
		return fmt.Errorf("%w: %w", ErrBookingExists, err)
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.HasErrorLabel("TransientTransactionError") ||
			serverErr.HasErrorLabel("UnknownTransactionCommitResult") ||
			serverErr.HasErrorCode(mongoWriteConflict) {
			return fmt.Errorf("%w: %w", ErrTxConflict, err)
		}
	}

	return err
}
