package event

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"roomly/pkg/model"
)

func TestNewSnapshot_CarriesAllNotificationFields(t *testing.T) {
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	b := &model.Booking{
		ID:          1,
		RoomID:      "room-a",
		RequesterID: "alice",
		Title:       "standup",
		Description: "daily sync",
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		Status:      model.StatusApproved,
		AttendeeIDs: []string{"alice", "bob"},
	}

	snap := NewSnapshot(b)

	if snap.Description != "daily sync" {
		t.Errorf("expected description %q, got %q", "daily sync", snap.Description)
	}
	if len(snap.AttendeeIDs) != 2 || snap.AttendeeIDs[0] != "alice" || snap.AttendeeIDs[1] != "bob" {
		t.Errorf("expected attendees [alice bob], got %v", snap.AttendeeIDs)
	}

	// The snapshot is a copy; mutating the booking must not reach it.
	b.AttendeeIDs[0] = "mallory"
	if snap.AttendeeIDs[0] != "alice" {
		t.Error("snapshot attendee set aliases the booking's slice")
	}
}

func TestEventPayload_IncludesDescriptionAndAttendees(t *testing.T) {
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	ev := Event{
		Type: TypeApproved,
		Booking: NewSnapshot(&model.Booking{
			ID:          1,
			RoomID:      "room-a",
			RequesterID: "alice",
			Title:       "standup",
			Description: "daily sync",
			StartTime:   start,
			EndTime:     start.Add(30 * time.Minute),
			Status:      model.StatusApproved,
			AttendeeIDs: []string{"alice", "bob"},
		}),
		OccurredAt: start,
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	payload := string(raw)
	if !strings.Contains(payload, `"description":"daily sync"`) {
		t.Errorf("payload missing description: %s", payload)
	}
	if !strings.Contains(payload, `"attendee_ids":["alice","bob"]`) {
		t.Errorf("payload missing attendee set: %s", payload)
	}
}
