package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/services/site-service/internal/booking"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

// BookingHandler exposes the booking wizard as server-held sessions. Add
// sessions are public; edit and view sessions require an admin session.
type BookingHandler struct {
	svc    *booking.Service
	appts  AppointmentStore
	avail  *AvailabilityHandler
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, appts AppointmentStore, avail *AvailabilityHandler, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, appts: appts, avail: avail, logger: logger}
}

type sessionResponse struct {
	Session booking.Snapshot `json:"session"`
}

type sessionErrorResponse struct {
	Error   string            `json:"error"`
	Field   string            `json:"field,omitempty"`
	Session *booking.Snapshot `json:"session,omitempty"`
}

type startRequest struct {
	Mode          booking.ModeKind `json:"mode"`
	AppointmentID string           `json:"appointmentId"`
}

func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	var mode booking.Mode
	switch req.Mode {
	case "", booking.KindAdd:
		mode = booking.AddMode{}
	case booking.KindEdit, booking.KindView:
		if !requireAdmin(w, r) {
			return
		}
		if strings.TrimSpace(req.AppointmentID) == "" {
			httpx.WriteFieldError(w, http.StatusBadRequest, "Missing required fields", "appointmentId")
			return
		}
		a, err := h.appts.Get(r.Context(), req.AppointmentID)
		if err != nil {
			writeError(w, r, h.logger, err, "Appointment not found", "Failed to start booking session")
			return
		}
		if req.Mode == booking.KindEdit {
			mode = booking.EditMode{Appointment: a}
		} else {
			mode = booking.ViewMode{Appointment: a}
		}
	default:
		httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid mode", "mode")
		return
	}

	snap, err := h.svc.Start(r.Context(), mode)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to start booking session")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{Session: snap})
}

// authorize refuses edit and view sessions to anonymous callers. It reports
// whether the request may continue.
func (h *BookingHandler) authorize(w http.ResponseWriter, r *http.Request, id string) bool {
	kind, err := h.svc.Mode(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return false
	}
	if kind == booking.KindAdd {
		return true
	}
	return requireAdmin(w, r)
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	c, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	if c.Role != auth.RoleAdmin {
		httpx.WriteError(w, http.StatusForbidden, "Forbidden")
		return false
	}
	return true
}

func (h *BookingHandler) respond(w http.ResponseWriter, r *http.Request, snap booking.Snapshot, err error) {
	if err != nil {
		h.fail(w, r, err, &snap)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Session: snap})
}

func (h *BookingHandler) fail(w http.ResponseWriter, r *http.Request, err error, snap *booking.Snapshot) {
	if snap != nil && snap.ID == "" {
		snap = nil
	}
	body := sessionErrorResponse{Session: snap}
	status := http.StatusInternalServerError

	var submitErr *booking.SubmitError
	if errors.As(err, &submitErr) {
		body.Error = "Failed to save appointment. Please try again."
		if snap != nil && snap.Error != "" {
			body.Error = snap.Error
		}
		if v, ok := model.AsValidation(submitErr.Err); ok {
			status, body.Field = http.StatusBadRequest, v.Field
		} else if errors.Is(submitErr.Err, model.ErrNotFound) {
			status = http.StatusNotFound
		} else {
			h.logger.Error("booking submit failed", "err", err, "session_id", chi.URLParam(r, "id"))
		}
		httpx.WriteJSON(w, status, body)
		return
	}

	if v, ok := model.AsValidation(err); ok {
		status, body.Error, body.Field = http.StatusBadRequest, v.Message, v.Field
	} else {
		switch {
		case errors.Is(err, model.ErrNotFound):
			status, body.Error = http.StatusNotFound, "Booking session not found"
		case errors.Is(err, model.ErrInvalidState):
			status, body.Error = http.StatusConflict, "Action not allowed in the current step"
		default:
			h.logger.Error("booking session failed", "err", err, "session_id", chi.URLParam(r, "id"))
			body.Error = "Booking session failed"
		}
	}
	httpx.WriteJSON(w, status, body)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	snap, err := h.svc.Get(r.Context(), id)
	h.respond(w, r, snap, err)
}

type dateRequest struct {
	Date string `json:"date"`
}

func (h *BookingHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	var req dateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid date", "date")
		return
	}
	view, err := h.avail.View(r.Context(), date, date)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to load availability")
		return
	}
	snap, err := h.svc.SelectDate(r.Context(), id, date, view)
	h.respond(w, r, snap, err)
}

type slotRequest struct {
	Slot string `json:"slot"`
}

func (h *BookingHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	var req slotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	cur, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if cur.Date == nil {
		h.fail(w, r, model.ErrInvalidState, &cur)
		return
	}
	view, err := h.avail.View(r.Context(), *cur.Date, *cur.Date)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to load availability")
		return
	}
	snap, err := h.svc.SelectSlot(r.Context(), id, req.Slot, view)
	h.respond(w, r, snap, err)
}

func (h *BookingHandler) Next(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	snap, err := h.svc.Next(r.Context(), id)
	h.respond(w, r, snap, err)
}

func (h *BookingHandler) Back(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	snap, err := h.svc.Back(r.Context(), id)
	h.respond(w, r, snap, err)
}

func (h *BookingHandler) SetDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	var d booking.Details
	if err := httpx.DecodeJSON(r, &d); err != nil {
		writeBadJSON(w)
		return
	}
	snap, err := h.svc.SetDetails(r.Context(), id, d)
	h.respond(w, r, snap, err)
}

func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	snap, err := h.svc.Submit(r.Context(), id)
	h.respond(w, r, snap, err)
}

func (h *BookingHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	snap, err := h.svc.Close(r.Context(), id)
	h.respond(w, r, snap, err)
}
