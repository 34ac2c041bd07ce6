package reminders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/libs/email"
	otelx "github.com/seiflawfirm/site/libs/otel"
	"github.com/seiflawfirm/site/services/notification-service/internal/storage"
)

const KindReminder = "client_reminder"

type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) (bool, error)
}

// Composer renders the email for a due reminder using the live appointment
// date and time.
type Composer func(j Job) email.Message

type Worker struct {
	db        db.Querier
	repo      *Repository
	sender    email.Sender
	recorder  Recorder
	compose   Composer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	backoff   time.Duration
	lead      time.Duration
	loc       *time.Location
	now       func() time.Time
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
	Lead      time.Duration
	Location  *time.Location
}

func NewWorker(q db.Querier, repo *Repository, sender email.Sender, recorder Recorder, compose Composer, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Minute
	}
	if cfg.Lead <= 0 {
		cfg.Lead = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Worker{
		db:        q,
		repo:      repo,
		sender:    sender,
		recorder:  recorder,
		compose:   compose,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
		lead:      cfg.Lead,
		loc:       cfg.Location,
		now:       time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

// ProcessBatch sends every due reminder whose appointment is still
// confirmed and upcoming, and returns how many were sent.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	jobs, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, tx.Commit(ctx)
	}

	now := w.now()
	var sent, cancelled []int64
	for _, job := range jobs {
		jobCtx := otelx.TraceRef{Traceparent: job.Traceparent, Tracestate: job.Tracestate}.Resume(ctx)
		if job.CurrentStatus != "confirmed" {
			cancelled = append(cancelled, job.ID)
			continue
		}
		at, upcoming := RemindAt(job.CurrentDate, job.CurrentTime, w.loc, w.lead, now)
		if !upcoming {
			cancelled = append(cancelled, job.ID)
			continue
		}
		if at.After(now.Add(w.interval)) {
			// Rescheduled to a later date since the reminder was armed.
			if err := w.postpone(ctx, tx, job.ID, at); err != nil {
				return 0, err
			}
			continue
		}
		if err := w.send(jobCtx, job); err != nil {
			attempts := job.Attempts + 1
			w.logger.Error("reminder send failed", "err", err, "appointment_id", job.AppointmentID, "attempts", attempts)
			if err := w.repo.MarkFailed(ctx, tx, job.ID, attempts, job.MaxAttempts, now.UTC().Add(w.backoff), err.Error()); err != nil {
				return 0, err
			}
			continue
		}
		sent = append(sent, job.ID)
	}

	if err := w.repo.MarkDone(ctx, tx, sent, statusSent); err != nil {
		return 0, err
	}
	if err := w.repo.MarkDone(ctx, tx, cancelled, statusCancelled); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(sent), nil
}

func (w *Worker) send(ctx context.Context, job Job) error {
	msg := w.compose(job)
	rec := storage.Notification{
		EventID:       "reminder:" + job.AppointmentID + ":" + job.CurrentDate,
		AppointmentID: job.AppointmentID,
		Kind:          KindReminder,
		Recipient:     msg.To,
		Provider:      w.sender.ProviderID(),
		Status:        storage.StatusSent,
	}
	err := w.sender.Send(ctx, msg)
	switch {
	case errors.Is(err, email.ErrDisabled):
		rec.Status = storage.StatusSkipped
		err = nil
	case err != nil:
		rec.Status = storage.StatusFailed
		rec.Error = err.Error()
	}
	if _, recErr := w.recorder.Insert(ctx, rec); recErr != nil {
		w.logger.Error("reminder record failed", "err", recErr, "appointment_id", job.AppointmentID)
	}
	return err
}

func (w *Worker) postpone(ctx context.Context, tx pgx.Tx, id int64, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointment_reminders SET next_run_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
	return err
}
