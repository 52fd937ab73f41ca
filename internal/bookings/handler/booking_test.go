package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"roomly/internal/bookings/service"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

type mockScheduler struct {
	createFunc func(ctx context.Context, caller model.Identity, req *model.BookingRequest) (*service.Decision, error)
	updateFunc func(ctx context.Context, caller model.Identity, id int64, req *model.BookingRequest) (*service.Decision, error)
	cancelFunc func(ctx context.Context, caller model.Identity, id int64) error
	findFunc   func(ctx context.Context, caller model.Identity, start, end time.Time) ([]model.Booking, error)
	roomsFunc  func(ctx context.Context) ([]model.Room, error)
}

func (m *mockScheduler) Create(ctx context.Context, caller model.Identity, req *model.BookingRequest) (*service.Decision, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, caller, req)
	}
	return &service.Decision{Booking: &model.Booking{ID: 1}, Approved: true}, nil
}

func (m *mockScheduler) Update(ctx context.Context, caller model.Identity, id int64, req *model.BookingRequest) (*service.Decision, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, caller, id, req)
	}
	return &service.Decision{Booking: &model.Booking{ID: id}, Approved: true}, nil
}

func (m *mockScheduler) Cancel(ctx context.Context, caller model.Identity, id int64) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, caller, id)
	}
	return nil
}

func (m *mockScheduler) FindInRange(ctx context.Context, caller model.Identity, start, end time.Time) ([]model.Booking, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, caller, start, end)
	}
	return nil, nil
}

func (m *mockScheduler) ListRooms(ctx context.Context) ([]model.Room, error) {
	if m.roomsFunc != nil {
		return m.roomsFunc(ctx)
	}
	return nil, nil
}

func newRouter(s service.Scheduler) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(s, logger.Discard()).RegisterRoutes(router)
	return router
}

const body = `{"room_id":"room-a","title":"Standup","start_time":"2026-09-14T10:00:00Z","end_time":"2026-09-14T11:00:00Z","booked_date":"2026-09-14T00:00:00Z"}`

func TestCreate_RequiresIdentityHeader(t *testing.T) {
	router := newRouter(&mockScheduler{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestCreate_PassesIdentityAndReturnsDecision(t *testing.T) {
	var gotCaller model.Identity
	mock := &mockScheduler{
		createFunc: func(_ context.Context, caller model.Identity, req *model.BookingRequest) (*service.Decision, error) {
			gotCaller = caller
			return &service.Decision{
				Booking:  &model.Booking{ID: 7, RoomID: req.RoomID, Status: model.StatusApproved},
				Approved: true,
			}, nil
		},
	}
	router := newRouter(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set(HeaderUserID, "alice")
	req.Header.Set(HeaderUserRole, "admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if gotCaller.UserID != "alice" || !gotCaller.Admin {
		t.Errorf("expected admin identity for alice, got %+v", gotCaller)
	}

	var resp struct {
		Data DecisionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Data.Booking.ID != 7 || !resp.Data.Approved {
		t.Errorf("unexpected decision payload: %+v", resp.Data)
	}
}

func TestCreate_RejectedDecisionIsStillCreated(t *testing.T) {
	mock := &mockScheduler{
		createFunc: func(_ context.Context, _ model.Identity, _ *model.BookingRequest) (*service.Decision, error) {
			return &service.Decision{
				Booking:  &model.Booking{ID: 8, Status: model.StatusRejected},
				Approved: false,
				Reason:   "Room is already booked in this time range",
			}, nil
		},
	}
	router := newRouter(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("a rejected decision is still a successful create, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Room is already booked") {
		t.Errorf("expected reason in body, got %s", rec.Body.String())
	}
}

func TestCreate_InvalidBody(t *testing.T) {
	router := newRouter(&mockScheduler{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{not json"))
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"not found", apperrors.NotFoundWithID("Booking", "9"), http.StatusNotFound},
		{"forbidden", apperrors.Forbidden("Only the requester may cancel this booking"), http.StatusForbidden},
		{"conflict", apperrors.Conflict("Booking cannot be cancelled from status Cancelled"), http.StatusConflict},
		{"timeout", apperrors.Timeout("Timed out waiting for room lock"), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockScheduler{
				cancelFunc: func(context.Context, model.Identity, int64) error {
					return tt.serviceErr
				},
			}
			router := newRouter(mock)

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/9", nil)
			req.Header.Set(HeaderUserID, "alice")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestCancel_Success(t *testing.T) {
	router := newRouter(&mockScheduler{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/3", nil)
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestCancel_InvalidID(t *testing.T) {
	router := newRouter(&mockScheduler{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/abc", nil)
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestFindInRange_ParsesWindow(t *testing.T) {
	var gotStart, gotEnd time.Time
	mock := &mockScheduler{
		findFunc: func(_ context.Context, _ model.Identity, start, end time.Time) ([]model.Booking, error) {
			gotStart, gotEnd = start, end
			return []model.Booking{{ID: 1}}, nil
		},
	}
	router := newRouter(mock)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/bookings/range?start=2026-09-14T00:00:00Z&end=2026-09-15T00:00:00Z", nil)
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if gotStart.IsZero() || !gotEnd.After(gotStart) {
		t.Errorf("window not parsed, got %v – %v", gotStart, gotEnd)
	}
}

func TestFindInRange_MissingParams(t *testing.T) {
	router := newRouter(&mockScheduler{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/range?start=2026-09-14T00:00:00Z", nil)
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestListRooms(t *testing.T) {
	mock := &mockScheduler{
		roomsFunc: func(context.Context) ([]model.Room, error) {
			return []model.Room{{ID: "room-a", Name: "Aurora", Capacity: 8}}, nil
		},
	}
	router := newRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []model.Room `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "room-a" {
		t.Errorf("unexpected rooms payload: %+v", resp.Data)
	}
}
