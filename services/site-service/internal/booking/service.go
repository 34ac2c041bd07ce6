package booking

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seiflawfirm/site/services/site-service/internal/availability"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

// Snapshot is the client-facing view of a session.
type Snapshot struct {
	ID            string      `json:"id"`
	Mode          ModeKind    `json:"mode"`
	State         State       `json:"state"`
	Date          *model.Date `json:"date,omitempty"`
	Slot          string      `json:"slot,omitempty"`
	SlotLabel     string      `json:"slotLabel,omitempty"`
	Details       Details     `json:"details"`
	Error         string      `json:"error,omitempty"`
	AppointmentID string      `json:"appointmentId,omitempty"`
	CanGoNext     bool        `json:"canGoNext"`
	Closed        bool        `json:"closed"`
	Fields        FieldConfig `json:"fields"`
}

func (s *Session) Snapshot() Snapshot {
	rec := s.Record()
	snap := Snapshot{
		ID:            rec.ID,
		Mode:          rec.Mode,
		State:         rec.State,
		Date:          rec.Date,
		Slot:          rec.Slot,
		Details:       rec.Details,
		Error:         rec.LastError,
		AppointmentID: rec.AppointmentID,
		CanGoNext:     rec.State == SelectingTime && rec.Date != nil && rec.Slot != "",
		Closed:        rec.Closed,
		Fields:        s.mode.Fields(),
	}
	if rec.Slot != "" {
		snap.SlotLabel = availability.Slot(rec.Slot).Label()
	}
	return snap
}

type ServiceOption func(*Service)

// WithClock replaces time.Now; tests use it to step past the confirmation delay.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithObserver receives every transition with the session's mode.
func WithObserver(fn func(mode ModeKind, from, to State)) ServiceOption {
	return func(s *Service) { s.observe = fn }
}

// WithWriteObserver is told about every appointment a session writes:
// "create" for add mode, "update" for edit mode.
func WithWriteObserver(fn func(operation string)) ServiceOption {
	return func(s *Service) { s.onWrite = fn }
}

// Service loads, mutates and saves sessions, one operation per session at a
// time.
type Service struct {
	sessions SessionStore
	store    Store
	now      func() time.Time
	observe  func(mode ModeKind, from, to State)
	onWrite  func(operation string)
	newID    func() string
	locks    [64]sync.Mutex
}

func NewService(sessions SessionStore, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		sessions: sessions,
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Start(ctx context.Context, mode Mode) (Snapshot, error) {
	sess := NewSession(s.newID(), mode, s.now)
	if err := s.sessions.Save(ctx, sess.Record()); err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Service) Get(ctx context.Context, id string) (Snapshot, error) {
	return s.apply(ctx, id, func(*Session) error { return nil })
}

func (s *Service) SelectDate(ctx context.Context, id string, date model.Date, avail Availability) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error { return sess.SelectDate(date, avail) })
}

func (s *Service) SelectSlot(ctx context.Context, id, slot string, avail Availability) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error { return sess.SelectSlot(slot, avail) })
}

func (s *Service) Next(ctx context.Context, id string) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error { return sess.Next() })
}

func (s *Service) Back(ctx context.Context, id string) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error { return sess.Back() })
}

func (s *Service) SetDetails(ctx context.Context, id string, d Details) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error { return sess.SetDetails(d) })
}

func (s *Service) Submit(ctx context.Context, id string) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error {
		if err := sess.Submit(ctx, s.store); err != nil {
			return err
		}
		if s.onWrite != nil {
			op := "update"
			if sess.Mode().Kind() == KindAdd {
				op = "create"
			}
			s.onWrite(op)
		}
		return nil
	})
}

// Close discards the session and returns its final view.
func (s *Service) Close(ctx context.Context, id string) (Snapshot, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.sessions.Load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	sess := Restore(rec, s.now)
	sess.Close()
	if err := s.sessions.Delete(ctx, id); err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Mode reports the mode of a stored session without changing it.
func (s *Service) Mode(ctx context.Context, id string) (ModeKind, error) {
	rec, err := s.sessions.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.Mode, nil
}

// apply saves the session even when fn fails, since a failed submit still
// moves the session through the error state.
func (s *Service) apply(ctx context.Context, id string, fn func(*Session) error) (Snapshot, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.sessions.Load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	sess := Restore(rec, s.now)
	if s.observe != nil {
		kind := sess.Mode().Kind()
		sess.OnTransition(func(from, to State) { s.observe(kind, from, to) })
	}
	opErr := fn(sess)
	if err := s.sessions.Save(ctx, sess.Record()); err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), opErr
}

func (s *Service) lock(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}
