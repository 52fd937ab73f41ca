package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	bookingerrors "roomly/internal/bookings/errors"
	"roomly/pkg/config"
	"roomly/pkg/model"
)

const RoomLockCollectionName = "Room_locks"

// RoomLockRepository manages advisory lock documents serializing writes
// per room. Acquisition is a plain insert; the unique _id makes it
// atomic across concurrent writers.
type RoomLockRepository interface {
	Acquire(ctx context.Context, roomID string, ttl time.Duration) (*model.RoomLock, error)
	Release(ctx context.Context, roomID string) error
	ReleaseExpired(ctx context.Context, roomID string) (bool, error)
}

type mongoRoomLockRepository struct {
	collection *mongo.Collection
}

func NewMongoRoomLockRepository(cfg *config.Config) RoomLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomLockRepository{
		collection: db.Collection(RoomLockCollectionName),
	}
}

func LockID(roomID string) string {
	return "room_lock_" + roomID
}

// Acquire inserts the lock document for the room. A duplicate key error
// means another writer holds the lock; that is reported as
// ErrLockNotAcquired so callers can retry.
func (r *mongoRoomLockRepository) Acquire(ctx context.Context, roomID string, ttl time.Duration) (*model.RoomLock, error) {
	now := time.Now().UTC()
	lock := &model.RoomLock{
		ID:        LockID(roomID),
		RoomID:    roomID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookingerrors.ErrLockNotAcquired
		}
		return nil, fmt.Errorf("failed to acquire room lock: %w", err)
	}
	return lock, nil
}

func (r *mongoRoomLockRepository) Release(ctx context.Context, roomID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": LockID(roomID)}); err != nil {
		return fmt.Errorf("failed to release room lock: %w", err)
	}
	return nil
}

// ReleaseExpired removes the room's lock only if its holder let it
// expire. Returns true when a stale lock was cleared.
func (r *mongoRoomLockRepository) ReleaseExpired(ctx context.Context, roomID string) (bool, error) {
	filter := bson.M{
		"_id":        LockID(roomID),
		"expires_at": bson.M{"$lt": time.Now().UTC()},
	}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to clear expired room lock: %w", err)
	}
	return result.DeletedCount > 0, nil
}
