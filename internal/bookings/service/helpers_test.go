package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"roomly/internal/bookings/conflict"
	bookingerrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/event"
	"roomly/internal/bookings/validator"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

// fakeBookingRepo is an in-memory BookingRepository. ExecuteTransaction
// snapshots state before running the function and restores it on error,
// mirroring the rollback behavior the service relies on.
type fakeBookingRepo struct {
	bookings map[int64]model.Booking
	seq      int64

	failCreate error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[int64]model.Booking)}
}

func (r *fakeBookingRepo) seed(b model.Booking) {
	r.bookings[b.ID] = b
	if b.ID > r.seq {
		r.seq = b.ID
	}
}

func (r *fakeBookingRepo) NextID(context.Context) (int64, error) {
	r.seq++
	return r.seq, nil
}

func (r *fakeBookingRepo) Create(_ context.Context, b *model.Booking) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	b.CreatedAt = time.Now().UTC()
	r.bookings[b.ID] = *b
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id int64) (*model.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", bookingerrors.ErrNotFound, id)
	}
	copied := b
	return &copied, nil
}

func (r *fakeBookingRepo) Update(_ context.Context, b *model.Booking) error {
	if _, ok := r.bookings[b.ID]; !ok {
		return fmt.Errorf("%w: %d", bookingerrors.ErrNotFound, b.ID)
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id int64, status model.Status) error {
	b, ok := r.bookings[id]
	if !ok {
		return fmt.Errorf("%w: %d", bookingerrors.ErrNotFound, id)
	}
	b.Status = status
	r.bookings[id] = b
	return nil
}

func (r *fakeBookingRepo) FindApprovedForRoom(_ context.Context, roomID string, start, end time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range r.sorted() {
		if b.RoomID == roomID && b.Status == model.StatusApproved && conflict.Overlaps(start, end, b.StartTime, b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindApprovedForUsers(_ context.Context, userIDs []string, start, end time.Time) ([]model.Booking, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []model.Booking
	for _, b := range r.sorted() {
		if b.Status != model.StatusApproved || !conflict.Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		if wanted[b.RequesterID] {
			out = append(out, b)
			continue
		}
		for _, a := range b.AttendeeIDs {
			if wanted[a] {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindRejectedOverlapping(_ context.Context, start, end time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range r.sorted() {
		if b.Status == model.StatusRejected && conflict.Overlaps(start, end, b.StartTime, b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindInRange(_ context.Context, start, end time.Time, participantID string) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range r.sorted() {
		if b.Status == model.StatusCancelled || !conflict.Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		if participantID == "" {
			out = append(out, b)
			continue
		}
		if b.RequesterID == participantID {
			out = append(out, b)
			continue
		}
		for _, a := range b.AttendeeIDs {
			if a == participantID {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	snapshot := make(map[int64]model.Booking, len(r.bookings))
	for id, b := range r.bookings {
		snapshot[id] = b
	}
	seq := r.seq

	if err := fn(ctx); err != nil {
		r.bookings = snapshot
		r.seq = seq
		return err
	}
	return nil
}

// sorted keeps iteration deterministic, ID ascending like the real
// _id-sorted queries.
func (r *fakeBookingRepo) sorted() []model.Booking {
	ids := make([]int64, 0, len(r.bookings))
	for id := range r.bookings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.Booking, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.bookings[id])
	}
	return out
}

type fakeRoomRepo struct {
	rooms map[string]bool
}

func newFakeRoomRepo(roomIDs ...string) *fakeRoomRepo {
	rooms := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		rooms[id] = true
	}
	return &fakeRoomRepo{rooms: rooms}
}

func (r *fakeRoomRepo) Exists(_ context.Context, roomID string) (bool, error) {
	return r.rooms[roomID], nil
}

func (r *fakeRoomRepo) FindAll(context.Context) ([]model.Room, error) {
	var out []model.Room
	for id := range r.rooms {
		out = append(out, model.Room{ID: id})
	}
	return out, nil
}

// fakeLockRepo tracks held advisory locks in memory with the same
// acquire-if-absent semantics as the unique-index insert it stands in
// for. Rooms listed in busy simulate a lock held by another writer.
type fakeLockRepo struct {
	mu   sync.Mutex
	held map[string]bool
	busy map[string]bool

	acquired []string
	released []string
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{
		held: make(map[string]bool),
		busy: make(map[string]bool),
	}
}

func (r *fakeLockRepo) Acquire(_ context.Context, roomID string, ttl time.Duration) (*model.RoomLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy[roomID] || r.held[roomID] {
		return nil, bookingerrors.ErrLockNotAcquired
	}
	r.held[roomID] = true
	r.acquired = append(r.acquired, roomID)
	return &model.RoomLock{ID: "room_lock_" + roomID, RoomID: roomID, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (r *fakeLockRepo) Release(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, roomID)
	r.released = append(r.released, roomID)
	return nil
}

func (r *fakeLockRepo) ReleaseExpired(context.Context, string) (bool, error) {
	return false, nil
}

// capturingPublisher records published events; failWith makes every
// publish fail without affecting what was recorded.
type capturingPublisher struct {
	events   []event.Event
	failWith error
}

func (p *capturingPublisher) Publish(_ context.Context, events []event.Event) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) byType(eventType string) []event.Event {
	var out []event.Event
	for _, ev := range p.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

var testNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

// hour returns a time the given number of hours after the test clock.
func hour(n int) time.Time {
	return testNow.Add(time.Duration(n) * time.Hour)
}

type testEnv struct {
	repo      *fakeBookingRepo
	rooms     *fakeRoomRepo
	locks     *fakeLockRepo
	publisher *capturingPublisher
	scheduler *schedulerService
}

func newTestEnv(roomIDs ...string) *testEnv {
	repo := newFakeBookingRepo()
	rooms := newFakeRoomRepo(roomIDs...)
	locks := newFakeLockRepo()
	publisher := &capturingPublisher{}

	cfg := &config.Config{
		RoomLockTTL:           time.Second,
		RoomLockWaitTimeout:   50 * time.Millisecond,
		RoomLockRetryInterval: 5 * time.Millisecond,
		Log:                   logger.Discard(),
	}

	scheduler := &schedulerService{
		repo:      repo,
		roomRepo:  rooms,
		lockRepo:  locks,
		detector:  conflict.NewDetector(repo),
		validator: validator.NewBookingValidator(cfg.Log),
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return testNow },
	}

	return &testEnv{
		repo:      repo,
		rooms:     rooms,
		locks:     locks,
		publisher: publisher,
		scheduler: scheduler,
	}
}

func request(roomID string, start, end time.Time, attendees ...string) *model.BookingRequest {
	return &model.BookingRequest{
		RoomID:      roomID,
		Title:       "Sprint planning",
		StartTime:   start,
		EndTime:     end,
		BookedDate:  testNow,
		AttendeeIDs: attendees,
	}
}

var errStorage = errors.New("storage unavailable")
