// Package booking drives the date, time, details and confirmation flow
// shared by the public booking widget and the admin appointment editor.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/seiflawfirm/site/services/site-service/internal/availability"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

type State string

const (
	SelectingDate   State = "selecting_date"
	SelectingTime   State = "selecting_time"
	EnteringDetails State = "entering_details"
	Submitting      State = "submitting"
	Confirmed       State = "confirmed"
	Failed          State = "error"
)

// ConfirmationDisplay is how long an add-mode confirmation stays visible
// before the session resets.
const ConfirmationDisplay = 2 * time.Second

// Availability answers date and slot questions against live appointments.
type Availability interface {
	Classify(date model.Date) availability.Status
	AvailableSlots(date model.Date) []availability.Slot
}

// Store persists the outcome of a submitted session.
type Store interface {
	Create(ctx context.Context, d model.Draft) (string, error)
	Update(ctx context.Context, id string, d model.Draft) (model.Appointment, error)
}

type Details struct {
	ClientName string       `json:"clientName"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Service    string       `json:"service"`
	Notes      string       `json:"notes"`
	Status     model.Status `json:"status,omitempty"`
	// Date and Time are only honoured in edit mode.
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

// Record is the persisted form of a session.
type Record struct {
	ID            string             `json:"id"`
	Mode          ModeKind           `json:"mode"`
	Appointment   *model.Appointment `json:"appointment,omitempty"`
	State         State              `json:"state"`
	Date          *model.Date        `json:"date,omitempty"`
	Slot          string             `json:"slot,omitempty"`
	Details       Details            `json:"details"`
	LastError     string             `json:"lastError,omitempty"`
	AppointmentID string             `json:"appointmentId,omitempty"`
	ConfirmedAt   time.Time          `json:"confirmedAt,omitempty"`
	Closed        bool               `json:"closed"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// TransitionFunc observes every state change.
type TransitionFunc func(from, to State)

// Session is one user's pass through the booking flow. It is not safe for
// concurrent use; the Service serialises access per id.
type Session struct {
	rec     Record
	mode    Mode
	now     func() time.Time
	observe TransitionFunc
}

// NewSession starts a session in mode. Edit and view sessions open on the
// details step with date and time taken from the record.
func NewSession(id string, mode Mode, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{mode: mode, now: now}
	s.rec = Record{ID: id, Mode: mode.Kind(), CreatedAt: now()}
	s.reset()
	return s
}

// Restore rebuilds a session loaded from a SessionStore.
func Restore(rec Record, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{rec: rec, mode: modeFor(rec.Mode, rec.Appointment), now: now}
}

func (s *Session) OnTransition(fn TransitionFunc) { s.observe = fn }
func (s *Session) ID() string                     { return s.rec.ID }
func (s *Session) Mode() Mode                     { return s.mode }

// Record returns the persisted form, applying any pending auto-reset first.
func (s *Session) Record() Record {
	s.expire()
	return s.rec
}

func (s *Session) State() State {
	s.expire()
	return s.rec.State
}

func (s *Session) reset() {
	appt := s.mode.Record()
	s.rec.Appointment = appt
	s.rec.Details = Details{}
	s.rec.Date = nil
	s.rec.Slot = ""
	s.rec.LastError = ""
	s.rec.ConfirmedAt = time.Time{}
	s.rec.AppointmentID = ""
	if appt == nil {
		s.rec.State = SelectingDate
		return
	}
	date := appt.Date
	s.rec.Date = &date
	s.rec.Slot = appt.Time
	s.rec.AppointmentID = appt.ID
	s.rec.Details = Details{
		ClientName: appt.ClientName,
		Email:      appt.Email,
		Phone:      appt.Phone,
		Service:    appt.Service,
		Notes:      appt.Notes,
		Status:     appt.Status,
		Date:       appt.Date.String(),
		Time:       appt.Time,
	}
	s.rec.State = EnteringDetails
}

// expire resets a confirmed add-mode session once the confirmation has been
// shown long enough, and marks it closed for the host UI.
func (s *Session) expire() {
	if s.rec.State != Confirmed || s.mode.Kind() != KindAdd {
		return
	}
	if s.now().Before(s.rec.ConfirmedAt.Add(ConfirmationDisplay)) {
		return
	}
	s.transition(SelectingDate)
	s.reset()
	s.rec.Closed = true
}

func (s *Session) transition(to State) {
	from := s.rec.State
	s.rec.State = to
	if s.observe != nil && from != to {
		s.observe(from, to)
	}
}

func (s *Session) require(states ...State) error {
	s.expire()
	for _, st := range states {
		if s.rec.State == st {
			return nil
		}
	}
	return model.ErrInvalidState
}

// SelectDate picks a day. Unavailable days are refused without changing
// state; any earlier slot choice is cleared.
func (s *Session) SelectDate(date model.Date, avail Availability) error {
	if s.mode.Kind() != KindAdd {
		return model.ErrInvalidState
	}
	if err := s.require(SelectingDate, SelectingTime); err != nil {
		return err
	}
	if avail.Classify(date) == availability.Unavailable {
		return &model.ValidationError{Field: string(FieldDate), Message: "Date is not available"}
	}
	s.rec.Closed = false
	s.rec.Date = &date
	s.rec.Slot = ""
	s.transition(SelectingTime)
	return nil
}

// SelectSlot picks one of the open slots on the chosen date.
func (s *Session) SelectSlot(raw string, avail Availability) error {
	if s.mode.Kind() != KindAdd {
		return model.ErrInvalidState
	}
	if err := s.require(SelectingTime); err != nil {
		return err
	}
	slot, ok := availability.ParseSlot(raw)
	if !ok {
		return &model.ValidationError{Field: string(FieldTime), Message: "Unknown time slot"}
	}
	for _, open := range avail.AvailableSlots(*s.rec.Date) {
		if open == slot {
			s.rec.Slot = string(slot)
			return nil
		}
	}
	return &model.ValidationError{Field: string(FieldTime), Message: "Time slot is not available"}
}

// Next moves from time selection to the details form once both a date and a
// slot are chosen.
func (s *Session) Next() error {
	if err := s.require(SelectingTime); err != nil {
		return err
	}
	if s.rec.Date == nil || s.rec.Slot == "" {
		return &model.ValidationError{Field: string(FieldTime), Message: "Please select a date and time"}
	}
	s.transition(EnteringDetails)
	return nil
}

// Back returns to the previous step in add mode.
func (s *Session) Back() error {
	if s.mode.Kind() != KindAdd {
		return model.ErrInvalidState
	}
	if err := s.require(SelectingTime, EnteringDetails); err != nil {
		return err
	}
	if s.rec.State == SelectingTime {
		s.rec.Slot = ""
		s.transition(SelectingDate)
		return nil
	}
	s.transition(SelectingTime)
	return nil
}

// SetDetails applies the fields the mode allows to change and ignores the rest.
func (s *Session) SetDetails(d Details) error {
	if err := s.require(EnteringDetails); err != nil {
		return err
	}
	cfg := s.mode.Fields()
	if !cfg.CanSubmit {
		return model.ErrInvalidState
	}
	cur := &s.rec.Details
	set := func(f Field, dst *string, v string) {
		if cfg.CanEdit(f) {
			*dst = strings.TrimSpace(v)
		}
	}
	set(FieldClientName, &cur.ClientName, d.ClientName)
	set(FieldEmail, &cur.Email, d.Email)
	set(FieldPhone, &cur.Phone, d.Phone)
	set(FieldService, &cur.Service, d.Service)
	set(FieldNotes, &cur.Notes, d.Notes)
	set(FieldDate, &cur.Date, d.Date)
	set(FieldTime, &cur.Time, d.Time)
	if cfg.CanEdit(FieldStatus) && d.Status != "" {
		st, err := model.ParseStatus(string(d.Status))
		if err != nil {
			return err
		}
		cur.Status = st
	}
	return nil
}

// Submit validates the form and writes it to store. A store failure passes
// through the error state and lands back on the details form with the
// message kept and the entered data intact.
func (s *Session) Submit(ctx context.Context, store Store) error {
	if !s.mode.Fields().CanSubmit {
		return model.ErrInvalidState
	}
	if err := s.require(EnteringDetails); err != nil {
		return err
	}
	d := s.rec.Details
	switch {
	case strings.TrimSpace(d.ClientName) == "":
		return model.Required(string(FieldClientName))
	case strings.TrimSpace(d.Email) == "":
		return model.Required(string(FieldEmail))
	case strings.TrimSpace(d.Service) == "":
		return model.Required(string(FieldService))
	}

	s.rec.LastError = ""
	s.transition(Submitting)
	err := s.persist(ctx, store)
	if err != nil {
		s.rec.LastError = userMessage(err)
		s.transition(Failed)
		s.transition(EnteringDetails)
		return &SubmitError{Err: err}
	}
	s.rec.ConfirmedAt = s.now()
	s.rec.Closed = false
	s.transition(Confirmed)
	return nil
}

func (s *Session) persist(ctx context.Context, store Store) error {
	d := s.rec.Details
	draft := model.Draft{
		ClientName: d.ClientName,
		Email:      d.Email,
		Phone:      d.Phone,
		Service:    d.Service,
		Notes:      d.Notes,
	}
	if s.mode.Kind() == KindAdd {
		draft.Date = s.rec.Date.String()
		draft.Time = s.rec.Slot
		id, err := store.Create(ctx, draft)
		if err != nil {
			return err
		}
		s.rec.AppointmentID = id
		return nil
	}

	draft.Date = d.Date
	draft.Time = d.Time
	draft.Status = string(d.Status)
	updated, err := store.Update(ctx, s.rec.AppointmentID, draft)
	if err != nil {
		return err
	}
	s.rec.Appointment = &updated
	s.mode = modeFor(s.mode.Kind(), &updated)
	return nil
}

// Close ends the session and reports that the host UI may dismiss it.
func (s *Session) Close() {
	s.expire()
	s.rec.Closed = true
}

// SubmitError wraps a store failure seen by Submit.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return "submit failed: " + e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }

func userMessage(err error) string {
	if v, ok := model.AsValidation(err); ok {
		return v.Message
	}
	if errors.Is(err, model.ErrNotFound) {
		return "Appointment not found"
	}
	return "Failed to save appointment. Please try again."
}
