package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingerrors "roomly/internal/bookings/errors"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/model"
)

const (
	BookingCollectionName  = "Bookings"
	CountersCollectionName = "Counters"

	bookingSequenceName = "booking_id"
)

type BookingRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, b *model.Booking) error
	FindByID(ctx context.Context, id int64) (*model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	UpdateStatus(ctx context.Context, id int64, status model.Status) error
	FindApprovedForRoom(ctx context.Context, roomID string, start, end time.Time) ([]model.Booking, error)
	FindApprovedForUsers(ctx context.Context, userIDs []string, start, end time.Time) ([]model.Booking, error)
	FindRejectedOverlapping(ctx context.Context, start, end time.Time) ([]model.Booking, error)
	FindInRange(ctx context.Context, start, end time.Time, participantID string) ([]model.Booking, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	counters   *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(BookingCollectionName),
		counters:   db.Collection(CountersCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it is a session
// context; wrapping a session context would break transaction semantics.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// NextID increments and returns the booking ID sequence. IDs are
// monotonically increasing, so sorting by _id recovers creation order.
func (r *mongoBookingRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": bookingSequenceName}
	update := bson.M{"$inc": bson.M{"value": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var seq struct {
		Value int64 `bson:"value"`
	}
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&seq); err != nil {
		return 0, fmt.Errorf("failed to allocate booking ID: %w", err)
	}
	return seq.Value, nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	b.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var b model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", bookingerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &b, nil
}

func (r *mongoBookingRepository) Update(ctx context.Context, b *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %d", bookingerrors.ErrNotFound, b.ID)
	}
	return nil
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": status}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %d", bookingerrors.ErrNotFound, id)
	}
	return nil
}

// overlapFilter matches bookings whose [start_time, end_time) range
// intersects [start, end). Touching boundaries do not match.
func overlapFilter(start, end time.Time) bson.M {
	return bson.M{
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}
}

func (r *mongoBookingRepository) FindApprovedForRoom(ctx context.Context, roomID string, start, end time.Time) ([]model.Booking, error) {
	filter := overlapFilter(start, end)
	filter["room_id"] = roomID
	filter["status"] = model.StatusApproved
	return r.find(ctx, filter, nil)
}

func (r *mongoBookingRepository) FindApprovedForUsers(ctx context.Context, userIDs []string, start, end time.Time) ([]model.Booking, error) {
	filter := overlapFilter(start, end)
	filter["status"] = model.StatusApproved
	filter["$or"] = bson.A{
		bson.M{"requester_id": bson.M{"$in": userIDs}},
		bson.M{"attendee_ids": bson.M{"$in": userIDs}},
	}
	return r.find(ctx, filter, nil)
}

// FindRejectedOverlapping returns rejected bookings in any room whose
// range intersects the window, oldest booking first. A rejection may
// have been caused by a requester or attendee clash with the freed
// booking, so the scan is not limited to the freed room.
func (r *mongoBookingRepository) FindRejectedOverlapping(ctx context.Context, start, end time.Time) ([]model.Booking, error) {
	filter := overlapFilter(start, end)
	filter["status"] = model.StatusRejected
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return r.find(ctx, filter, opts)
}

// FindInRange returns non-cancelled bookings intersecting the window.
// A non-empty participantID restricts results to bookings that user
// requested or attends.
func (r *mongoBookingRepository) FindInRange(ctx context.Context, start, end time.Time, participantID string) ([]model.Booking, error) {
	filter := overlapFilter(start, end)
	filter["status"] = bson.M{"$ne": model.StatusCancelled}
	if participantID != "" {
		filter["$or"] = bson.A{
			bson.M{"requester_id": participantID},
			bson.M{"attendee_ids": participantID},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.collection.Find(ctx, filter, opts)
	} else {
		cursor, err = r.collection.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
