package conflict

import (
	"context"
	"testing"
	"time"

	"roomly/pkg/model"
)

type fakeStore struct {
	byRoom map[string][]model.Booking
	byUser map[string][]model.Booking
}

func (s *fakeStore) FindApprovedForRoom(_ context.Context, roomID string, _, _ time.Time) ([]model.Booking, error) {
	return s.byRoom[roomID], nil
}

func (s *fakeStore) FindApprovedForUsers(_ context.Context, userIDs []string, _, _ time.Time) ([]model.Booking, error) {
	var out []model.Booking
	seen := map[int64]bool{}
	for _, id := range userIDs {
		for _, b := range s.byUser[id] {
			if !seen[b.ID] {
				seen[b.ID] = true
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func at(hour, min int) time.Time {
	return time.Date(2026, 9, 14, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		aStart   time.Time
		aEnd     time.Time
		bStart   time.Time
		bEnd     time.Time
		expected bool
	}{
		{"identical ranges", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"partial overlap", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"contained range", at(10, 0), at(12, 0), at(10, 30), at(11, 0), true},
		{"touching boundaries", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"touching boundaries reversed", at(11, 0), at(12, 0), at(10, 0), at(11, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(14, 0), at(15, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd)
			if got != tt.expected {
				t.Errorf("Overlaps() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDetector_Check(t *testing.T) {
	roomMeeting := model.Booking{
		ID: 1, RoomID: "room-a", RequesterID: "carol",
		StartTime: at(10, 0), EndTime: at(11, 0), Status: model.StatusApproved,
	}
	aliceMeeting := model.Booking{
		ID: 2, RoomID: "room-b", RequesterID: "alice",
		StartTime: at(10, 0), EndTime: at(11, 0), Status: model.StatusApproved,
	}
	bobMeeting := model.Booking{
		ID: 3, RoomID: "room-c", RequesterID: "dave",
		AttendeeIDs: []string{"bob", "dave"},
		StartTime:   at(10, 30), EndTime: at(11, 30), Status: model.StatusApproved,
	}

	store := &fakeStore{
		byRoom: map[string][]model.Booking{"room-a": {roomMeeting}},
		byUser: map[string][]model.Booking{
			"alice": {aliceMeeting},
			"bob":   {bobMeeting},
		},
	}
	detector := NewDetector(store)

	tests := []struct {
		name      string
		candidate Candidate
		valid     bool
		dimension string
		reason    string
	}{
		{
			name: "room conflict",
			candidate: Candidate{
				RoomID: "room-a", RequesterID: "eve",
				StartTime: at(10, 30), EndTime: at(11, 30),
			},
			dimension: "room",
			reason:    ReasonRoomBooked,
		},
		{
			name: "requester conflict",
			candidate: Candidate{
				RoomID: "room-d", RequesterID: "alice",
				StartTime: at(10, 0), EndTime: at(11, 0),
			},
			dimension: "requester",
			reason:    ReasonRequesterBusy,
		},
		{
			name: "attendee conflict across rooms",
			candidate: Candidate{
				RoomID: "room-d", RequesterID: "eve",
				AttendeeIDs: []string{"bob"},
				StartTime:   at(10, 0), EndTime: at(11, 0),
			},
			dimension: "attendee",
			reason:    ReasonAttendeesConflict,
		},
		{
			name: "room conflict reported before attendee conflict",
			candidate: Candidate{
				RoomID: "room-a", RequesterID: "eve",
				AttendeeIDs: []string{"bob"},
				StartTime:   at(10, 0), EndTime: at(11, 0),
			},
			dimension: "room",
			reason:    ReasonRoomBooked,
		},
		{
			name: "touching boundaries are free",
			candidate: Candidate{
				RoomID: "room-a", RequesterID: "alice",
				AttendeeIDs: []string{"bob"},
				StartTime:   at(11, 30), EndTime: at(12, 30),
			},
			valid: true,
		},
		{
			name: "exclusion skips own record",
			candidate: Candidate{
				RoomID: "room-a", RequesterID: "eve",
				StartTime: at(10, 0), EndTime: at(11, 0),
				ExcludeID: 1,
			},
			valid: true,
		},
		{
			name: "no conflicts at all",
			candidate: Candidate{
				RoomID: "room-d", RequesterID: "eve",
				AttendeeIDs: []string{"frank"},
				StartTime:   at(14, 0), EndTime: at(15, 0),
			},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detector.Check(context.Background(), tt.candidate)
			if err != nil {
				t.Fatalf("Check() returned error: %v", err)
			}
			if got.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v", got.Valid, tt.valid)
			}
			if got.Dimension != tt.dimension {
				t.Errorf("Dimension = %q, want %q", got.Dimension, tt.dimension)
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.reason)
			}
		})
	}
}
