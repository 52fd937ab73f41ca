package validator

import (
	"strings"
	"testing"
	"time"

	"roomly/pkg/logger"
	"roomly/pkg/model"
)

func TestValidate(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := NewBookingValidator(logger.Discard())

	valid := func() *model.BookingRequest {
		return &model.BookingRequest{
			RoomID:      "room-a",
			Title:       "Sprint planning",
			StartTime:   now.Add(time.Hour),
			EndTime:     now.Add(2 * time.Hour),
			BookedDate:  now,
			AttendeeIDs: []string{"bob"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(req *model.BookingRequest)
		wantErr string
	}{
		{
			name:   "valid request",
			mutate: func(*model.BookingRequest) {},
		},
		{
			name:    "missing room",
			mutate:  func(r *model.BookingRequest) { r.RoomID = "" },
			wantErr: "RoomID is required",
		},
		{
			name:    "missing title",
			mutate:  func(r *model.BookingRequest) { r.Title = "" },
			wantErr: "Title is required",
		},
		{
			name:    "title too long",
			mutate:  func(r *model.BookingRequest) { r.Title = strings.Repeat("a", 201) },
			wantErr: "Title must be at most 200",
		},
		{
			name:    "end before start",
			mutate:  func(r *model.BookingRequest) { r.EndTime = r.StartTime.Add(-time.Minute) },
			wantErr: "EndTime must be after StartTime",
		},
		{
			name:    "end equals start",
			mutate:  func(r *model.BookingRequest) { r.EndTime = r.StartTime },
			wantErr: "EndTime must be after StartTime",
		},
		{
			name: "start in the past",
			mutate: func(r *model.BookingRequest) {
				r.StartTime = now.Add(-time.Hour)
				r.EndTime = now.Add(time.Hour)
			},
			wantErr: "start_time cannot be in the past",
		},
		{
			name:    "empty attendee entry",
			mutate:  func(r *model.BookingRequest) { r.AttendeeIDs = []string{"bob", ""} },
			wantErr: "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			err := v.Validate(req, now)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidate_StartExactlyNow(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	v := NewBookingValidator(logger.Discard())

	req := &model.BookingRequest{
		RoomID:     "room-a",
		Title:      "Standup",
		StartTime:  now,
		EndTime:    now.Add(time.Hour),
		BookedDate: now,
	}
	if err := v.Validate(req, now); err != nil {
		t.Errorf("a booking starting exactly now is valid, got %v", err)
	}
}
