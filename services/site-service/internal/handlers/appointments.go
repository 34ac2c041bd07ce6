package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type AppointmentHandler struct {
	store    AppointmentStore
	logger   *slog.Logger
	observer Observer
}

func NewAppointmentHandler(store AppointmentStore, logger *slog.Logger, observer Observer) *AppointmentHandler {
	if observer == nil {
		observer = nopObserver{}
	}
	return &AppointmentHandler{store: store, logger: logger, observer: observer}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	var f storage.Filter
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid date", "date")
			return
		}
		f.Date = &d
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			writeError(w, r, h.logger, err, "", "Failed to fetch appointments")
			return
		}
		f.Status = st
	}

	appts, err := h.store.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to fetch appointments")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err, "Appointment not found", "Failed to fetch appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointment": a})
}

// Create is public: the booking widget posts here. Status in the body is
// ignored.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var d model.Draft
	if err := httpx.DecodeJSON(r, &d); err != nil {
		writeBadJSON(w)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	res, err := h.store.CreateIdempotent(r.Context(), key, d)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to create appointment")
		return
	}
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	} else {
		h.observer.ObserveAppointmentWrite("create")
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Appointment created successfully",
		"id":      res.ID,
	})
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var d model.Draft
	if err := httpx.DecodeJSON(r, &d); err != nil {
		writeBadJSON(w)
		return
	}
	a, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, r, h.logger, err, "Appointment not found", "Failed to update appointment")
		return
	}
	h.observer.ObserveAppointmentWrite("update")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Appointment updated successfully",
		"appointment": a,
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus changes only the status. Repeating the same status succeeds
// with changed=false.
func (h *AppointmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Missing required fields", "status")
		return
	}
	st, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to update appointment")
		return
	}
	a, changed, err := h.store.SetStatus(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		writeError(w, r, h.logger, err, "Appointment not found", "Failed to update appointment")
		return
	}
	if changed {
		h.observer.ObserveAppointmentWrite("status")
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Appointment status updated successfully",
		"changed":     changed,
		"appointment": a,
	})
}
