package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"roomly/internal/bookings/service"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

// Identity headers. Authentication happens upstream; the gateway
// forwards the resolved identity explicitly.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	RoleAdmin = "admin"
)

type BookingHandler struct {
	service service.Scheduler
	log     *logger.Logger
}

func NewBookingHandler(service service.Scheduler, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// DecisionResponse is the outcome payload for create and update. A
// rejected booking is still a 2xx response; Approved tells the caller
// which way the decision went.
type DecisionResponse struct {
	Booking  *model.Booking `json:"booking"`
	Approved bool           `json:"approved"`
	Reason   string         `json:"reason,omitempty"`
}

func identityFrom(r *http.Request) (model.Identity, error) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		return model.Identity{}, apperrors.InvalidInput("Missing " + HeaderUserID + " header")
	}
	return model.Identity{
		UserID: userID,
		Admin:  r.Header.Get(HeaderUserRole) == RoleAdmin,
	}, nil
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := identityFrom(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	decision, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, DecisionResponse{
		Booking:  decision.Booking,
		Approved: decision.Approved,
		Reason:   decision.Reason,
	}); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identityFrom(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	id, err := parseID(ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	decision, err := h.service.Update(r.Context(), caller, id, &req)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, DecisionResponse{
		Booking:  decision.Booking,
		Approved: decision.Approved,
		Reason:   decision.Reason,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := identityFrom(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	id, err := parseID(ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := h.service.Cancel(r.Context(), caller, id); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) FindInRange(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := identityFrom(r)
	if err != nil {
		h.writeError(w, "FindInRange", err)
		return
	}

	query := r.URL.Query()
	start, err := parseTime(query.Get("start"), "start")
	if err != nil {
		h.writeError(w, "FindInRange", err)
		return
	}
	end, err := parseTime(query.Get("end"), "end")
	if err != nil {
		h.writeError(w, "FindInRange", err)
		return
	}

	bookings, err := h.service.FindInRange(r.Context(), caller, start, end)
	if err != nil {
		h.writeError(w, "FindInRange", err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "FindInRange", "error", err)
	}
}

func (h *BookingHandler) ListRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.writeError(w, "ListRooms", err)
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}

	if err := httputil.WriteSuccess(w, rooms); err != nil {
		h.log.Error("failed to write success response", "handler", "ListRooms", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.PATCH("/api/v1/bookings/id/:id", h.Update)
	router.DELETE("/api/v1/bookings/id/:id", h.Cancel)
	router.GET("/api/v1/bookings/range", h.FindInRange)
	router.GET("/api/v1/rooms", h.ListRooms)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("Invalid booking ID: %s", raw))
	}
	return id, nil
}

func parseTime(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("Missing %s parameter", name))
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("Invalid %s parameter, want RFC3339: %s", name, raw))
	}
	return t, nil
}
