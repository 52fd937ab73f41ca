package model

import (
	"sort"
	"time"
)

// Booking is a reservation of a room for a half-open time range
// [StartTime, EndTime). The requester is always part of AttendeeIDs.
type Booking struct {
	ID          int64     `json:"id" bson:"_id"`
	RoomID      string    `json:"room_id" bson:"room_id"`
	RequesterID string    `json:"requester_id" bson:"requester_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	StartTime   time.Time `json:"start_time" bson:"start_time"`
	EndTime     time.Time `json:"end_time" bson:"end_time"`
	BookedDate  time.Time `json:"booked_date" bson:"booked_date"`
	Status      Status    `json:"status" bson:"status"`
	AttendeeIDs []string  `json:"attendee_ids" bson:"attendee_ids"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// BookingRequest is the inbound payload for create and update operations.
// The requester identity is passed separately by the caller, never taken
// from ambient state.
type BookingRequest struct {
	RoomID      string    `json:"room_id" validate:"required"`
	Title       string    `json:"title" validate:"required,min=1,max=200"`
	Description string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	BookedDate  time.Time `json:"booked_date" validate:"required"`
	AttendeeIDs []string  `json:"attendee_ids" validate:"omitempty,max=200,dive,required"`
}

// Identity is the caller's resolved identity for a scheduler operation.
type Identity struct {
	UserID string
	Admin  bool
}

// Participants returns the deduplicated attendee set of the request with
// the requester included, sorted for deterministic persistence.
func (r *BookingRequest) Participants(requesterID string) []string {
	seen := make(map[string]struct{}, len(r.AttendeeIDs)+1)
	out := make([]string, 0, len(r.AttendeeIDs)+1)
	for _, id := range append([]string{requesterID}, r.AttendeeIDs...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
