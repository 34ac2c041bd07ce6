// Package notify turns appointment events into emails for the firm and the
// client, recording every attempt.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seiflawfirm/site/libs/email"
	"github.com/seiflawfirm/site/libs/kafkax"
	"github.com/seiflawfirm/site/services/notification-service/internal/reminders"
	"github.com/seiflawfirm/site/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

const (
	KindFirmRequest  = "firm_request"
	KindClientAck    = "client_ack"
	KindClientStatus = "client_status"
)

type Store interface {
	Insert(ctx context.Context, n storage.Notification) (bool, error)
	Sent(ctx context.Context, eventID, kind string) (bool, error)
}

type ReminderScheduler interface {
	Schedule(ctx context.Context, job reminders.Job) error
	Cancel(ctx context.Context, appointmentID string) error
}

type Notifier struct {
	sender    email.Sender
	store     Store
	firmInbox string
	logger    *slog.Logger
	observe   func(kind, status string)

	reminders ReminderScheduler
	loc       *time.Location
	lead      time.Duration
	now       func() time.Time
}

type Option func(*Notifier)

// WithObserver is called once per recorded attempt.
func WithObserver(fn func(kind, status string)) Option {
	return func(n *Notifier) { n.observe = fn }
}

// WithReminders arms a reminder lead before each confirmed appointment,
// reading appointment times in loc.
func WithReminders(s ReminderScheduler, loc *time.Location, lead time.Duration) Option {
	return func(n *Notifier) {
		n.reminders = s
		n.loc = loc
		n.lead = lead
	}
}

func New(sender email.Sender, store Store, firmInbox string, logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{sender: sender, store: store, firmInbox: firmInbox, logger: logger, loc: time.UTC, lead: 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Handle is a consumer.Handler. Malformed payloads are logged and dropped;
// the returned error reports the first failed delivery.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	switch meta.EventType {
	case TopicAppointmentRequested:
		var e appointmentRequested
		if err := json.Unmarshal(msg.Value, &e); err != nil || e.AppointmentID == "" {
			n.logger.Error("invalid appointment.requested payload", "err", err, "event_id", meta.EventID)
			return nil
		}
		firmErr := n.deliver(ctx, meta.EventID, e.AppointmentID, KindFirmRequest, firmRequestMessage(n.firmInbox, e))
		var ackErr error
		if email.ValidAddress(e.Email) {
			ackErr = n.deliver(ctx, meta.EventID, e.AppointmentID, KindClientAck, clientAckMessage(e))
		}
		return errors.Join(firmErr, ackErr)
	case TopicAppointmentStatusChanged:
		var e appointmentStatusChanged
		if err := json.Unmarshal(msg.Value, &e); err != nil || e.AppointmentID == "" {
			n.logger.Error("invalid appointment.status_changed payload", "err", err, "event_id", meta.EventID)
			return nil
		}
		remindErr := n.syncReminder(ctx, e)
		m, ok := clientStatusMessage(e)
		if !ok || !email.ValidAddress(e.Email) {
			return remindErr
		}
		return errors.Join(remindErr, n.deliver(ctx, meta.EventID, e.AppointmentID, KindClientStatus, m))
	default:
		n.logger.Warn("unhandled event type", "event_type", meta.EventType, "event_id", meta.EventID)
		return nil
	}
}

func (n *Notifier) syncReminder(ctx context.Context, e appointmentStatusChanged) error {
	if n.reminders == nil {
		return nil
	}
	if e.To != "confirmed" {
		if err := n.reminders.Cancel(ctx, e.AppointmentID); err != nil {
			return fmt.Errorf("cancel reminder: %w", err)
		}
		return nil
	}
	at, ok := reminders.RemindAt(e.Date, e.Time, n.loc, n.lead, n.now())
	if !ok || !email.ValidAddress(e.Email) {
		return nil
	}
	err := n.reminders.Schedule(ctx, reminders.Job{
		AppointmentID: e.AppointmentID,
		ClientName:    e.ClientName,
		Email:         e.Email,
		Service:       e.Service,
		RemindAt:      at,
	})
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, eventID, appointmentID, kind string, msg email.Message) error {
	sent, err := n.store.Sent(ctx, eventID, kind)
	if err != nil {
		return fmt.Errorf("check %s: %w", kind, err)
	}
	if sent {
		return nil
	}

	rec := storage.Notification{
		EventID:       eventID,
		AppointmentID: appointmentID,
		Kind:          kind,
		Recipient:     msg.To,
		Provider:      n.sender.ProviderID(),
		Status:        storage.StatusSent,
	}
	sendErr := n.sender.Send(ctx, msg)
	switch {
	case errors.Is(sendErr, email.ErrDisabled):
		rec.Status = storage.StatusSkipped
		sendErr = nil
	case sendErr != nil:
		rec.Status = storage.StatusFailed
		rec.Error = sendErr.Error()
	}

	if _, err := n.store.Insert(ctx, rec); err != nil {
		return fmt.Errorf("record %s: %w", kind, err)
	}
	if n.observe != nil {
		n.observe(kind, rec.Status)
	}
	n.logger.Info("notification processed",
		"appointment_id", appointmentID,
		"kind", kind,
		"status", rec.Status,
		"provider", rec.Provider,
	)
	if sendErr != nil {
		return fmt.Errorf("send %s: %w", kind, sendErr)
	}
	return nil
}
