package service

import (
	"context"
	"errors"
	"time"

	"roomly/internal/bookings/conflict"
	bookingerrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/event"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/validator"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
	"roomly/pkg/sanitizer"
)

// Decision is the outcome of a create or update. A rejected booking is
// a successful operation whose Approved flag is false; errors are
// reserved for invalid input, missing records and infrastructure
// failures.
type Decision struct {
	Booking  *model.Booking
	Approved bool
	Reason   string
}

type Scheduler interface {
	Create(ctx context.Context, caller model.Identity, req *model.BookingRequest) (*Decision, error)
	Update(ctx context.Context, caller model.Identity, id int64, req *model.BookingRequest) (*Decision, error)
	Cancel(ctx context.Context, caller model.Identity, id int64) error
	FindInRange(ctx context.Context, caller model.Identity, start, end time.Time) ([]model.Booking, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
}

type schedulerService struct {
	repo      repository.BookingRepository
	roomRepo  repository.RoomRepository
	lockRepo  repository.RoomLockRepository
	detector  *conflict.Detector
	validator *validator.BookingValidator
	publisher event.Publisher
	cfg       *config.Config

	// now is injectable so clock-dependent rules are deterministic
	// under test.
	now func() time.Time
}

func NewScheduler(
	repo repository.BookingRepository,
	roomRepo repository.RoomRepository,
	lockRepo repository.RoomLockRepository,
	bookingValidator *validator.BookingValidator,
	publisher event.Publisher,
	cfg *config.Config,
) Scheduler {
	return &schedulerService{
		repo:      repo,
		roomRepo:  roomRepo,
		lockRepo:  lockRepo,
		detector:  conflict.NewDetector(repo),
		validator: bookingValidator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *schedulerService) Create(ctx context.Context, caller model.Identity, req *model.BookingRequest) (*Decision, error) {
	if caller.UserID == "" {
		return nil, apperrors.InvalidInput("Caller identity is required")
	}
	s.sanitize(req)
	if err := s.validator.Validate(req, s.now()); err != nil {
		return nil, apperrors.Validation("Invalid booking input", map[string]any{"error": err.Error()})
	}
	if err := s.checkRoomExists(ctx, req.RoomID); err != nil {
		return nil, err
	}

	if err := s.acquireRoomLock(ctx, req.RoomID); err != nil {
		return nil, err
	}
	defer s.releaseRoomLock(ctx, req.RoomID)

	var booking *model.Booking
	var result conflict.Result
	var events []event.Event

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		id, err := s.repo.NextID(txCtx)
		if err != nil {
			return apperrors.Internal("Failed to allocate booking ID", err)
		}

		attendees := req.Participants(caller.UserID)
		result, err = s.detector.Check(txCtx, conflict.Candidate{
			RoomID:      req.RoomID,
			RequesterID: caller.UserID,
			AttendeeIDs: attendees,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
		})
		if err != nil {
			return apperrors.Internal("Failed to evaluate booking conflicts", err)
		}

		status := model.StatusApproved
		if !result.Valid {
			status = model.StatusRejected
		}
		booking = &model.Booking{
			ID:          id,
			RoomID:      req.RoomID,
			RequesterID: caller.UserID,
			Title:       req.Title,
			Description: req.Description,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			BookedDate:  req.BookedDate,
			Status:      status,
			AttendeeIDs: attendees,
		}
		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}

		events = s.decisionEvents(booking, result.Reason)
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "room_id", req.RoomID, "error", err)
		return nil, err
	}

	s.publish(ctx, events)
	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"status", booking.Status,
		"start_time", booking.StartTime,
	)
	return &Decision{Booking: booking, Approved: result.Valid, Reason: result.Reason}, nil
}

func (s *schedulerService) Update(ctx context.Context, caller model.Identity, id int64, req *model.BookingRequest) (*Decision, error) {
	if id <= 0 {
		return nil, apperrors.InvalidInput("Invalid booking ID")
	}
	s.sanitize(req)
	if err := s.validator.Validate(req, s.now()); err != nil {
		return nil, apperrors.Validation("Invalid booking input", map[string]any{"error": err.Error()})
	}

	existing, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && existing.RequesterID != caller.UserID {
		return nil, apperrors.Forbidden("Only the requester may modify this booking")
	}
	if existing.Status == model.StatusCancelled {
		return nil, apperrors.Conflict("Cannot modify a cancelled booking")
	}
	if req.RoomID != existing.RoomID {
		if err := s.checkRoomExists(ctx, req.RoomID); err != nil {
			return nil, err
		}
	}

	if err := s.acquireRoomLock(ctx, req.RoomID); err != nil {
		return nil, err
	}
	defer s.releaseRoomLock(ctx, req.RoomID)

	var updated *model.Booking
	var result conflict.Result
	var events []event.Event

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		attendees := req.Participants(existing.RequesterID)
		result, err = s.detector.Check(txCtx, conflict.Candidate{
			RoomID:      req.RoomID,
			RequesterID: existing.RequesterID,
			AttendeeIDs: attendees,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			ExcludeID:   id,
		})
		if err != nil {
			return apperrors.Internal("Failed to evaluate booking conflicts", err)
		}

		major := req.Title != existing.Title ||
			req.Description != existing.Description ||
			req.RoomID != existing.RoomID ||
			!req.StartTime.Equal(existing.StartTime) ||
			!req.EndTime.Equal(existing.EndTime)

		next := *existing
		next.RoomID = req.RoomID
		next.Title = req.Title
		next.Description = req.Description
		next.StartTime = req.StartTime
		next.EndTime = req.EndTime
		next.BookedDate = req.BookedDate
		next.AttendeeIDs = attendees
		next.Status = model.StatusApproved
		if !result.Valid {
			next.Status = model.StatusRejected
		}

		if err := s.repo.Update(txCtx, &next); err != nil {
			if errors.Is(err, bookingerrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", formatID(id))
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		updated = &next

		events = s.updateEvents(existing, updated, result.Valid, major)
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	s.publish(ctx, events)
	s.cfg.Log.Info("Booking updated", "id", id, "status", updated.Status)
	return &Decision{Booking: updated, Approved: result.Valid, Reason: result.Reason}, nil
}

func (s *schedulerService) Cancel(ctx context.Context, caller model.Identity, id int64) error {
	if id <= 0 {
		return apperrors.InvalidInput("Invalid booking ID")
	}

	existing, err := s.findBooking(ctx, id)
	if err != nil {
		return err
	}
	if !caller.Admin && existing.RequesterID != caller.UserID {
		return apperrors.Forbidden("Only the requester may cancel this booking")
	}
	if !existing.Status.CanTransitionTo(model.StatusCancelled) {
		return apperrors.Conflict("Booking cannot be cancelled from status " + string(existing.Status))
	}

	if err := s.acquireRoomLock(ctx, existing.RoomID); err != nil {
		return err
	}
	defer s.releaseRoomLock(ctx, existing.RoomID)

	var events []event.Event
	var promoted int

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateStatus(txCtx, id, model.StatusCancelled); err != nil {
			if errors.Is(err, bookingerrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", formatID(id))
			}
			return apperrors.Internal("Failed to cancel booking", err)
		}
		cancelled := *existing
		cancelled.Status = model.StatusCancelled
		events = s.cancelEvents(&cancelled)

		cascadeEvents, n, err := s.cascade(txCtx, existing)
		if err != nil {
			return err
		}
		events = append(events, cascadeEvents...)
		promoted = n
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return err
	}

	s.publish(ctx, events)
	s.cfg.Log.Info("Booking cancelled", "id", id, "promoted", promoted)
	return nil
}

// FindInRange returns non-cancelled bookings intersecting the window.
// Non-admin callers see only bookings they request or attend.
func (s *schedulerService) FindInRange(ctx context.Context, caller model.Identity, start, end time.Time) ([]model.Booking, error) {
	if caller.UserID == "" {
		return nil, apperrors.InvalidInput("Caller identity is required")
	}
	if !end.After(start) {
		return nil, apperrors.InvalidInput("End of range must be after its start")
	}

	participantID := caller.UserID
	if caller.Admin {
		participantID = ""
	}
	bookings, err := s.repo.FindInRange(ctx, start, end, participantID)
	if err != nil {
		s.cfg.Log.Error("Failed to query bookings in range", "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

func (s *schedulerService) ListRooms(ctx context.Context) ([]model.Room, error) {
	rooms, err := s.roomRepo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}
	return rooms, nil
}

// --- Helpers ---

func (s *schedulerService) sanitize(req *model.BookingRequest) {
	req.Title = sanitizer.NormalizeTitle(req.Title)
	req.Description = sanitizer.NormalizeDescription(req.Description)
}

func (s *schedulerService) findBooking(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", formatID(id))
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *schedulerService) checkRoomExists(ctx context.Context, roomID string) error {
	exists, err := s.roomRepo.Exists(ctx, roomID)
	if err != nil {
		return apperrors.Internal("Failed to check room existence", err)
	}
	if !exists {
		return apperrors.NotFoundWithID("Room", roomID)
	}
	return nil
}

// acquireRoomLock waits for the room's advisory lock with bounded
// retries, clearing stale locks left by crashed holders along the way.
func (s *schedulerService) acquireRoomLock(ctx context.Context, roomID string) error {
	deadline := time.Now().Add(s.cfg.RoomLockWaitTimeout)

	for {
		if time.Now().After(deadline) {
			return apperrors.Timeout("Timed out waiting for room lock")
		}

		_, err := s.lockRepo.Acquire(ctx, roomID, s.cfg.RoomLockTTL)
		if err == nil {
			return nil
		}
		if !errors.Is(err, bookingerrors.ErrLockNotAcquired) {
			return apperrors.Internal("Failed to acquire room lock", err)
		}

		if cleared, clearErr := s.lockRepo.ReleaseExpired(ctx, roomID); clearErr == nil && cleared {
			s.cfg.Log.Warn("Cleared stale room lock", "room_id", roomID)
			continue
		}
		select {
		case <-ctx.Done():
			return apperrors.Timeout("Request cancelled while waiting for room lock")
		case <-time.After(s.cfg.RoomLockRetryInterval):
		}
	}
}

// tryAcquireRoomLock is the single-attempt variant used by the cascade
// when a candidate lives in another room.
func (s *schedulerService) tryAcquireRoomLock(ctx context.Context, roomID string) bool {
	if _, err := s.lockRepo.Acquire(ctx, roomID, s.cfg.RoomLockTTL); err == nil {
		return true
	}
	if cleared, err := s.lockRepo.ReleaseExpired(ctx, roomID); err == nil && cleared {
		_, err := s.lockRepo.Acquire(ctx, roomID, s.cfg.RoomLockTTL)
		return err == nil
	}
	return false
}

func (s *schedulerService) releaseRoomLock(ctx context.Context, roomID string) {
	if err := s.lockRepo.Release(ctx, roomID); err != nil {
		s.cfg.Log.Warn("Failed to release room lock", "room_id", roomID, "error", err)
	}
}

// publish delivers lifecycle events after the transaction committed.
// Failures are logged and swallowed: notification delivery must never
// undo a committed decision.
func (s *schedulerService) publish(ctx context.Context, events []event.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		s.cfg.Log.Error("Failed to publish booking events", "count", len(events), "error", err)
	}
}

func (s *schedulerService) decisionEvents(b *model.Booking, reason string) []event.Event {
	now := s.now().UTC()
	snapshot := event.NewSnapshot(b)

	if b.Status == model.StatusRejected {
		return []event.Event{{
			Type:       event.TypeRejected,
			Booking:    snapshot,
			Reason:     reason,
			OccurredAt: now,
		}}
	}

	events := []event.Event{{
		Type:       event.TypeApproved,
		Booking:    snapshot,
		OccurredAt: now,
	}}
	for _, attendeeID := range b.AttendeeIDs {
		if attendeeID == b.RequesterID {
			continue
		}
		events = append(events, event.Event{
			Type:       event.TypeInvite,
			Booking:    snapshot,
			AttendeeID: attendeeID,
			OccurredAt: now,
		})
	}
	return events
}

// updateEvents follows the notification scoping rules for updates:
// invites go only to newly added attendees, the updated event goes to
// previously-present attendees and only on a major change, and a
// conflicting update reports the generic room reason.
func (s *schedulerService) updateEvents(old, updated *model.Booking, approved, major bool) []event.Event {
	now := s.now().UTC()
	snapshot := event.NewSnapshot(updated)

	if !approved {
		return []event.Event{{
			Type:       event.TypeRejected,
			Booking:    snapshot,
			Reason:     conflict.ReasonRoomBooked,
			OccurredAt: now,
		}}
	}

	previous := make(map[string]bool, len(old.AttendeeIDs))
	for _, id := range old.AttendeeIDs {
		previous[id] = true
	}

	events := []event.Event{{
		Type:       event.TypeApproved,
		Booking:    snapshot,
		OccurredAt: now,
	}}

	var unchanged []string
	for _, attendeeID := range updated.AttendeeIDs {
		if attendeeID == updated.RequesterID {
			continue
		}
		if previous[attendeeID] {
			unchanged = append(unchanged, attendeeID)
			continue
		}
		events = append(events, event.Event{
			Type:       event.TypeInvite,
			Booking:    snapshot,
			AttendeeID: attendeeID,
			OccurredAt: now,
		})
	}

	if major && len(unchanged) > 0 {
		events = append(events, event.Event{
			Type:       event.TypeUpdated,
			Booking:    snapshot,
			Attendees:  unchanged,
			OccurredAt: now,
		})
	}
	return events
}

func (s *schedulerService) cancelEvents(b *model.Booking) []event.Event {
	now := s.now().UTC()
	snapshot := event.NewSnapshot(b)

	events := []event.Event{{
		Type:       event.TypeCancelledRequester,
		Booking:    snapshot,
		OccurredAt: now,
	}}

	var others []string
	for _, attendeeID := range b.AttendeeIDs {
		if attendeeID != b.RequesterID {
			others = append(others, attendeeID)
		}
	}
	if len(others) > 0 {
		events = append(events, event.Event{
			Type:       event.TypeCancelledAttendees,
			Booking:    snapshot,
			Attendees:  others,
			OccurredAt: now,
		})
	}
	return events
}
