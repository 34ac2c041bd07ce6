package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/seiflawfirm/site/libs/email"
	"github.com/seiflawfirm/site/libs/kafkax"
	"github.com/seiflawfirm/site/services/notification-service/internal/reminders"
	"github.com/seiflawfirm/site/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type fakeSender struct {
	sent []email.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, m email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSender) ProviderID() string { return "fake" }

type memStore struct {
	rows []storage.Notification
}

func (s *memStore) Insert(_ context.Context, n storage.Notification) (bool, error) {
	s.rows = append(s.rows, n)
	return true, nil
}

func (s *memStore) Sent(_ context.Context, eventID, kind string) (bool, error) {
	for _, r := range s.rows {
		if r.EventID == eventID && r.Kind == kind && r.Status == storage.StatusSent {
			return true, nil
		}
	}
	return false, nil
}

func event(t *testing.T, id, topic string, payload any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{
		Topic:   topic,
		Value:   b,
		Headers: kafkax.EventMeta{EventID: id, EventType: topic}.Headers(),
	}
}

func newNotifier(sender email.Sender, store Store) *Notifier {
	return New(sender, store, "office@seiflawfirm.com", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func requested() appointmentRequested {
	return appointmentRequested{
		AppointmentID: "a-1",
		ClientName:    "Jane Doe",
		Email:         "jane@example.com",
		Date:          "2025-03-27",
		Time:          "11:00",
		Service:       "Business Law",
		Notes:         "Contract review",
	}
}

func TestRequestedSendsFirmAndClientEmails(t *testing.T) {
	sender := &fakeSender{}
	store := &memStore{}
	var observed []string
	n := newNotifier(sender, store)
	n.observe = func(kind, status string) { observed = append(observed, kind+":"+status) }

	if err := n.Handle(context.Background(), event(t, "e1", TopicAppointmentRequested, requested())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d messages", len(sender.sent))
	}
	firm, ack := sender.sent[0], sender.sent[1]
	if firm.To != "office@seiflawfirm.com" || firm.ReplyTo != "jane@example.com" {
		t.Fatalf("firm message routing: %+v", firm)
	}
	if firm.Subject != "New appointment request from Jane Doe" {
		t.Fatalf("firm subject = %q", firm.Subject)
	}
	if !strings.Contains(firm.Text, "Thursday, March 27, 2025 at 11:00 AM") || !strings.Contains(firm.Text, "Contract review") {
		t.Fatalf("firm text = %q", firm.Text)
	}
	if ack.To != "jane@example.com" || ack.Subject != "We received your appointment request" {
		t.Fatalf("ack = %+v", ack)
	}
	if len(observed) != 2 || observed[0] != "firm_request:sent" || observed[1] != "client_ack:sent" {
		t.Fatalf("observed = %v", observed)
	}

	if err := n.Handle(context.Background(), event(t, "e1", TopicAppointmentRequested, requested())); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("replay re-sent: %d", len(sender.sent))
	}
}

func TestStatusChangedOnlyNotifiesConfirmAndCancel(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(sender, &memStore{})
	base := appointmentStatusChanged{AppointmentID: "a-1", ClientName: "Jane", Email: "jane@example.com", Date: "2025-03-27", Time: "11:00", Service: "Property Law"}

	pending := base
	pending.From, pending.To = "confirmed", "pending"
	if err := n.Handle(context.Background(), event(t, "e1", TopicAppointmentStatusChanged, pending)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("pending must not notify")
	}

	confirmed := base
	confirmed.From, confirmed.To = "pending", "confirmed"
	if err := n.Handle(context.Background(), event(t, "e2", TopicAppointmentStatusChanged, confirmed)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	cancelled := base
	cancelled.From, cancelled.To = "confirmed", "cancelled"
	if err := n.Handle(context.Background(), event(t, "e3", TopicAppointmentStatusChanged, cancelled)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d", len(sender.sent))
	}
	if sender.sent[0].Subject != "Your appointment is confirmed" || sender.sent[1].Subject != "Your appointment has been cancelled" {
		t.Fatalf("subjects = %q / %q", sender.sent[0].Subject, sender.sent[1].Subject)
	}
}

func TestFailuresAreRecorded(t *testing.T) {
	store := &memStore{}
	n := newNotifier(&fakeSender{err: errors.New("smtp down")}, store)

	err := n.Handle(context.Background(), event(t, "e1", TopicAppointmentRequested, requested()))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.rows) != 2 {
		t.Fatalf("rows = %d", len(store.rows))
	}
	for _, r := range store.rows {
		if r.Status != storage.StatusFailed || r.Error != "smtp down" || r.Provider != "fake" {
			t.Fatalf("row = %+v", r)
		}
	}
}

func TestDisabledSenderIsSkipped(t *testing.T) {
	store := &memStore{}
	n := newNotifier(email.Disabled{}, store)

	if err := n.Handle(context.Background(), event(t, "e1", TopicAppointmentRequested, requested())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.rows) != 2 || store.rows[0].Status != storage.StatusSkipped {
		t.Fatalf("rows = %+v", store.rows)
	}
}

func TestMalformedAndUnknownEventsAreDropped(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(sender, &memStore{})
	bad := kafka.Message{
		Topic:   TopicAppointmentRequested,
		Value:   []byte("{"),
		Headers: kafkax.EventMeta{EventID: "e1", EventType: TopicAppointmentRequested}.Headers(),
	}
	if err := n.Handle(context.Background(), bad); err != nil {
		t.Fatalf("malformed: %v", err)
	}
	if err := n.Handle(context.Background(), event(t, "e2", "other.topic", map[string]string{})); err != nil {
		t.Fatalf("unknown: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing should be sent")
	}
}

func TestWhen(t *testing.T) {
	cases := map[[2]string]string{
		{"2025-03-27", "14:00"}:     "Thursday, March 27, 2025 at 2:00 PM",
		{"2025-03-27", "afternoon"}: "Thursday, March 27, 2025 at afternoon",
		{"soon", ""}:                "soon",
	}
	for in, want := range cases {
		if got := when(in[0], in[1]); got != want {
			t.Fatalf("when(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

type fakeScheduler struct {
	scheduled []reminders.Job
	cancelled []string
}

func (s *fakeScheduler) Schedule(_ context.Context, j reminders.Job) error {
	s.scheduled = append(s.scheduled, j)
	return nil
}

func (s *fakeScheduler) Cancel(_ context.Context, id string) error {
	s.cancelled = append(s.cancelled, id)
	return nil
}

func TestStatusChangesArmAndCancelReminders(t *testing.T) {
	sched := &fakeScheduler{}
	n := New(&fakeSender{}, &memStore{}, "office@seiflawfirm.com", slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithReminders(sched, time.UTC, 24*time.Hour))
	n.now = func() time.Time { return time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC) }

	e := appointmentStatusChanged{AppointmentID: "a-1", ClientName: "Jane", Email: "jane@example.com", Date: "2025-03-27", Time: "11:00", Service: "Business Law", From: "pending", To: "confirmed"}
	if err := n.Handle(context.Background(), event(t, "e1", TopicAppointmentStatusChanged, e)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sched.scheduled) != 1 {
		t.Fatalf("scheduled = %v", sched.scheduled)
	}
	if want := time.Date(2025, 3, 26, 11, 0, 0, 0, time.UTC); !sched.scheduled[0].RemindAt.Equal(want) {
		t.Fatalf("remind at = %s, want %s", sched.scheduled[0].RemindAt, want)
	}

	e.From, e.To = "confirmed", "cancelled"
	if err := n.Handle(context.Background(), event(t, "e2", TopicAppointmentStatusChanged, e)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sched.cancelled) != 1 || sched.cancelled[0] != "a-1" {
		t.Fatalf("cancelled = %v", sched.cancelled)
	}
}

func TestReminderMessage(t *testing.T) {
	m := ReminderMessage(reminders.Job{ClientName: "Jane", Email: "jane@example.com", Service: "Corporate Law", CurrentDate: "2025-03-27", CurrentTime: "15:00"})
	if m.To != "jane@example.com" || !strings.Contains(m.Text, "Thursday, March 27, 2025 at 3:00 PM") {
		t.Fatalf("message = %+v", m)
	}
}
