package storage

import (
	"context"

	"github.com/seiflawfirm/site/libs/db"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Notification is one delivery attempt of one kind of email for one event.
type Notification struct {
	EventID       string
	AppointmentID string
	Kind          string
	Recipient     string
	Provider      string
	Status        string
	Error         string
}

type Repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Insert records n, overwriting an earlier failed attempt for the same event
// and kind. A delivery already marked sent is kept and reported as false.
func (r *Repository) Insert(ctx context.Context, n Notification) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO notifications (event_id, appointment_id, kind, recipient, provider, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		ON CONFLICT (event_id, kind) DO UPDATE
		SET provider = EXCLUDED.provider, status = EXCLUDED.status, error = EXCLUDED.error, created_at = now()
		WHERE notifications.status <> 'sent'
	`, n.EventID, n.AppointmentID, n.Kind, n.Recipient, n.Provider, n.Status, n.Error)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Sent reports whether kind was already delivered for eventID.
func (r *Repository) Sent(ctx context.Context, eventID, kind string) (bool, error) {
	var sent bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM notifications WHERE event_id = $1 AND kind = $2 AND status = 'sent')
	`, eventID, kind).Scan(&sent)
	return sent, err
}
