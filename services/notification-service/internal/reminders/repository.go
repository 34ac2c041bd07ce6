// Package reminders schedules and sends the day-before email for confirmed
// appointments.
package reminders

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/seiflawfirm/site/libs/db"
	otelx "github.com/seiflawfirm/site/libs/otel"
)

const (
	statusPending   = "pending"
	statusSent      = "sent"
	statusCancelled = "cancelled"
	statusFailed    = "failed"
)

type Job struct {
	ID            int64
	AppointmentID string
	ClientName    string
	Email         string
	Service       string
	RemindAt      time.Time
	Traceparent   string
	Tracestate    string
	Attempts      int
	MaxAttempts   int

	// Live appointment state read at fetch time.
	CurrentStatus string
	CurrentDate   string
	CurrentTime   string
}

type Repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Schedule creates or reschedules the reminder for job.AppointmentID and
// re-arms it if it had been cancelled.
func (r *Repository) Schedule(ctx context.Context, job Job) error {
	trace := otelx.CaptureTrace(ctx)
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_reminders (appointment_id, client_name, email, service, remind_at, next_run_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		ON CONFLICT (appointment_id) DO UPDATE
		SET client_name = EXCLUDED.client_name, email = EXCLUDED.email, service = EXCLUDED.service,
			remind_at = EXCLUDED.remind_at, next_run_at = EXCLUDED.remind_at,
			traceparent = EXCLUDED.traceparent, tracestate = EXCLUDED.tracestate,
			status = 'pending', attempts = 0, last_error = NULL, updated_at = now()
		WHERE appointment_reminders.status <> 'sent'
	`, job.AppointmentID, job.ClientName, job.Email, job.Service, job.RemindAt, trace.Traceparent, trace.Tracestate)
	return err
}

// Cancel stops a pending reminder. Missing reminders are not an error.
func (r *Repository) Cancel(ctx context.Context, appointmentID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE appointment_reminders
		SET status = 'cancelled', updated_at = now()
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	return err
}

// FetchDue locks due reminders together with the appointment as it is now.
func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Job, error) {
	rows, err := tx.Query(ctx, `
		SELECT j.id, j.appointment_id, j.client_name, j.email, j.service, j.remind_at,
			j.traceparent, j.tracestate, j.attempts, j.max_attempts,
			COALESCE(a.status, ''), COALESCE(to_char(a.appointment_date, 'YYYY-MM-DD'), ''), COALESCE(a.appointment_time, '')
		FROM appointment_reminders j
		LEFT JOIN appointments a ON a.id::text = j.appointment_id
		WHERE j.status = 'pending' AND j.next_run_at <= now()
		ORDER BY j.next_run_at
		LIMIT $1
		FOR UPDATE OF j SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.AppointmentID, &j.ClientName, &j.Email, &j.Service, &j.RemindAt,
			&j.Traceparent, &j.Tracestate, &j.Attempts, &j.MaxAttempts,
			&j.CurrentStatus, &j.CurrentDate, &j.CurrentTime); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *Repository) MarkDone(ctx context.Context, tx pgx.Tx, ids []int64, status string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE appointment_reminders
		SET status = $2, updated_at = now()
		WHERE id = ANY($1)
	`, ids, status)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, maxAttempts int, nextRunAt time.Time, lastError string) error {
	status := statusPending
	if attempts >= maxAttempts {
		status = statusFailed
	}
	_, err := tx.Exec(ctx, `
		UPDATE appointment_reminders
		SET attempts = $2,
		    status = $3,
		    next_run_at = $4,
		    last_error = $5,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, status, nextRunAt, lastError)
	return err
}

// RemindAt is lead before the appointment's start in loc. A start that has
// already passed reports false; a reminder time in the past is moved to now.
func RemindAt(date, clock string, loc *time.Location, lead time.Duration, now time.Time) (time.Time, bool) {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		day, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return time.Time{}, false
		}
		start = day.Add(9 * time.Hour)
	}
	if !start.After(now) {
		return time.Time{}, false
	}
	at := start.Add(-lead)
	if at.Before(now) {
		at = now
	}
	return at.UTC(), true
}
