package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/services/site-service/internal/availability"
	"github.com/seiflawfirm/site/services/site-service/internal/calendar"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
)

const monthLayout = "2006-01"

// AvailabilityHandler serves the public calendar. Responses carry only
// classifications and slot labels, never appointment details.
type AvailabilityHandler struct {
	appts   AppointmentStore
	blocked BlockedDateStore
	source  availability.Source
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

func NewAvailabilityHandler(appts AppointmentStore, blocked BlockedDateStore, source availability.Source, loc *time.Location, logger *slog.Logger) *AvailabilityHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityHandler{appts: appts, blocked: blocked, source: source, loc: loc, now: time.Now, logger: logger}
}

// View loads the policy and the appointments between from and to, both
// inclusive, and binds them to a classifier for today.
func (h *AvailabilityHandler) View(ctx context.Context, from, to model.Date) (availability.View, error) {
	p, err := h.source.Policy(ctx)
	if err != nil {
		return availability.View{}, err
	}
	appts, err := h.appts.List(ctx, storage.Filter{From: &from, To: &to})
	if err != nil {
		return availability.View{}, err
	}
	return h.classifier(p).With(appts), nil
}

func (h *AvailabilityHandler) classifier(p availability.Policy) *availability.Classifier {
	return availability.NewClassifier(p, availability.Today(h.now(), h.loc))
}

type monthResponse struct {
	Month     string             `json:"month"`
	Today     model.Date         `json:"today"`
	CanGoBack bool               `json:"canGoBack"`
	Prev      string             `json:"prev"`
	Next      string             `json:"next"`
	Days      []availability.Day `json:"days"`
}

func (h *AvailabilityHandler) Month(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	ref := calendar.FirstOfMonth(now)
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		t, err := time.ParseInLocation(monthLayout, raw, h.loc)
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid month", "month")
			return
		}
		ref = t
	}

	grid := calendar.BuildMonthGrid(ref)
	from, to := model.DateOf(grid[0]), model.DateOf(grid[len(grid)-1])
	p, err := h.source.Policy(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to load availability")
		return
	}
	appts, err := h.appts.List(r.Context(), storage.Filter{From: &from, To: &to})
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to load availability")
		return
	}
	c := h.classifier(p)
	httpx.WriteJSON(w, http.StatusOK, monthResponse{
		Month:     ref.Format(monthLayout),
		Today:     c.Today(),
		CanGoBack: calendar.CanGoBack(ref, calendar.Midnight(now)),
		Prev:      calendar.PrevMonth(ref).Format(monthLayout),
		Next:      calendar.NextMonth(ref).Format(monthLayout),
		Days:      c.Month(ref, appts),
	})
}

type slotItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type slotsResponse struct {
	Date   model.Date          `json:"date"`
	Status availability.Status `json:"status"`
	Slots  []slotItem          `json:"slots"`
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid date", "date")
		return
	}
	view, err := h.View(r.Context(), date, date)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to load availability")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		Date:   date,
		Status: view.Classify(date),
		Slots:  slotItems(view.AvailableSlots(date)),
	})
}

func slotItems(slots []availability.Slot) []slotItem {
	out := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotItem{Value: string(s), Label: s.Label()})
	}
	return out
}

func (h *AvailabilityHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	blocked, err := h.blocked.ListBlocked(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to fetch blocked dates")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"blockedDates": blocked})
}

type blockRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (h *AvailabilityHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid date", "date")
		return
	}
	if err := h.blocked.Add(r.Context(), date, strings.TrimSpace(req.Reason)); err != nil {
		writeError(w, r, h.logger, err, "", "Failed to block date")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Date blocked successfully"})
}

func (h *AvailabilityHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	date, err := model.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid date", "date")
		return
	}
	if err := h.blocked.Remove(r.Context(), date); err != nil {
		writeError(w, r, h.logger, err, "Blocked date not found", "Failed to unblock date")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Date unblocked successfully"})
}
