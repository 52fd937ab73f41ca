package service

import (
	"context"
	"strconv"

	"roomly/internal/bookings/conflict"
	"roomly/internal/bookings/event"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

// cascade runs inside the cancel transaction, after the cancelled
// booking's status write. It scans every Rejected booking overlapping
// the freed window in ID order and promotes each one whose conflicts
// are gone. The scan is greedy and single-pass: earlier promotions are
// visible to later candidates through the transaction, and no approved
// booking is ever revoked to make room for a candidate.
func (s *schedulerService) cascade(ctx context.Context, freed *model.Booking) ([]event.Event, int, error) {
	candidates, err := s.repo.FindRejectedOverlapping(ctx, freed.StartTime, freed.EndTime)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to scan rejected bookings", err)
	}

	var events []event.Event
	promoted := 0

	for i := range candidates {
		candidate := candidates[i]

		// The freed room's lock is already held. A candidate in another
		// room needs that room's lock; if it is busy the candidate is
		// skipped this pass rather than blocking the cancel.
		otherRoom := candidate.RoomID != freed.RoomID
		if otherRoom {
			if !s.tryAcquireRoomLock(ctx, candidate.RoomID) {
				s.cfg.Log.Debug("Skipping cascade candidate, room lock busy",
					"id", candidate.ID, "room_id", candidate.RoomID)
				continue
			}
		}

		promotedCandidate, candidateEvents, err := s.promoteIfClear(ctx, &candidate)
		if otherRoom {
			s.releaseRoomLock(ctx, candidate.RoomID)
		}
		if err != nil {
			return nil, 0, err
		}
		if promotedCandidate {
			promoted++
			events = append(events, candidateEvents...)
		}
	}

	return events, promoted, nil
}

// promoteIfClear re-runs the full detector for one cascade candidate
// and approves it when no conflict remains.
func (s *schedulerService) promoteIfClear(ctx context.Context, candidate *model.Booking) (bool, []event.Event, error) {
	result, err := s.detector.Check(ctx, conflict.Candidate{
		RoomID:      candidate.RoomID,
		RequesterID: candidate.RequesterID,
		AttendeeIDs: candidate.AttendeeIDs,
		StartTime:   candidate.StartTime,
		EndTime:     candidate.EndTime,
		ExcludeID:   candidate.ID,
	})
	if err != nil {
		return false, nil, apperrors.Internal("Failed to re-evaluate rejected booking", err)
	}
	if !result.Valid {
		return false, nil, nil
	}

	if err := s.repo.UpdateStatus(ctx, candidate.ID, model.StatusApproved); err != nil {
		return false, nil, apperrors.Internal("Failed to promote rejected booking", err)
	}
	candidate.Status = model.StatusApproved

	s.cfg.Log.Info("Promoted rejected booking",
		"id", candidate.ID,
		"room_id", candidate.RoomID,
		"start_time", candidate.StartTime,
	)
	return true, s.decisionEvents(candidate, ""), nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
