package conflict

import (
	"context"
	"time"

	"roomly/pkg/model"
)

// Conflict reasons reported to callers and carried on rejection events.
const (
	ReasonRoomBooked        = "Room is already booked in this time range"
	ReasonRequesterBusy     = "Requester has another meeting in this time range"
	ReasonAttendeesConflict = "One or more attendees have conflicting meetings"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Bookings that touch at a boundary do not
// overlap: a meeting ending at 11:00 does not conflict with one
// starting at 11:00.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aEnd.After(bStart) && aStart.Before(bEnd)
}

// Candidate describes a booking attempt to be checked against the
// approved schedule. ExcludeID removes the booking's own record from
// consideration when re-validating an update; zero means no exclusion.
type Candidate struct {
	RoomID      string
	RequesterID string
	AttendeeIDs []string
	StartTime   time.Time
	EndTime     time.Time
	ExcludeID   int64
}

// Result is the outcome of a conflict check. Dimension is "room",
// "requester" or "attendee" when Valid is false.
type Result struct {
	Valid     bool
	Dimension string
	Reason    string
}

// Store is the read surface the detector needs. Both queries return
// only approved bookings; cancelled and rejected records never block
// anyone.
type Store interface {
	FindApprovedForRoom(ctx context.Context, roomID string, start, end time.Time) ([]model.Booking, error)
	FindApprovedForUsers(ctx context.Context, userIDs []string, start, end time.Time) ([]model.Booking, error)
}

type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// Check validates a candidate against three dimensions in a fixed
// order: room availability, then the requester's own schedule, then
// every attendee's schedule. The first failing dimension wins and its
// reason is returned.
func (d *Detector) Check(ctx context.Context, c Candidate) (Result, error) {
	roomBookings, err := d.store.FindApprovedForRoom(ctx, c.RoomID, c.StartTime, c.EndTime)
	if err != nil {
		return Result{}, err
	}
	for _, b := range roomBookings {
		if b.ID == c.ExcludeID {
			continue
		}
		if Overlaps(c.StartTime, c.EndTime, b.StartTime, b.EndTime) {
			return Result{Dimension: "room", Reason: ReasonRoomBooked}, nil
		}
	}

	requesterBookings, err := d.store.FindApprovedForUsers(ctx, []string{c.RequesterID}, c.StartTime, c.EndTime)
	if err != nil {
		return Result{}, err
	}
	for _, b := range requesterBookings {
		if b.ID == c.ExcludeID {
			continue
		}
		if Overlaps(c.StartTime, c.EndTime, b.StartTime, b.EndTime) {
			return Result{Dimension: "requester", Reason: ReasonRequesterBusy}, nil
		}
	}

	attendees := othersOnly(c.AttendeeIDs, c.RequesterID)
	if len(attendees) > 0 {
		attendeeBookings, err := d.store.FindApprovedForUsers(ctx, attendees, c.StartTime, c.EndTime)
		if err != nil {
			return Result{}, err
		}
		for _, b := range attendeeBookings {
			if b.ID == c.ExcludeID {
				continue
			}
			if Overlaps(c.StartTime, c.EndTime, b.StartTime, b.EndTime) {
				return Result{Dimension: "attendee", Reason: ReasonAttendeesConflict}, nil
			}
		}
	}

	return Result{Valid: true}, nil
}

// othersOnly drops the requester from the attendee list so their
// schedule is not checked twice.
func othersOnly(attendeeIDs []string, requesterID string) []string {
	out := make([]string, 0, len(attendeeIDs))
	for _, id := range attendeeIDs {
		if id != requesterID {
			out = append(out, id)
		}
	}
	return out
}
