package model

import "time"

// RoomLock is an advisory lock document serializing writes against a single
// room's booking set. The unique _id makes acquisition atomic; ExpiresAt
// bounds the damage of a crashed holder.
type RoomLock struct {
	ID        string    `bson:"_id" json:"id"`
	RoomID    string    `bson:"room_id" json:"room_id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
