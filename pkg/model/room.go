package model

import "time"

// Room is a bookable meeting room. Rooms are provisioned out of band;
// the scheduler only checks that a referenced room exists.
type Room struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Capacity  int       `json:"capacity" bson:"capacity"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
