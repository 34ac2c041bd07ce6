package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/seiflawfirm/site/services/site-service/internal/outbox"
)

// ErrIdempotencyMismatch reports a reused Idempotency-Key with a different body.
var ErrIdempotencyMismatch = errors.New("idempotency key reused with a different request")

type AppointmentRepository struct {
	db     db.Querier
	outbox *outbox.Repository
	now    func() time.Time
}

func NewAppointmentRepository(q db.Querier, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{db: q, outbox: outboxRepo, now: time.Now}
}

// Filter narrows List. Zero fields match everything; From and To are inclusive.
type Filter struct {
	Date   *model.Date
	Status model.Status
	From   *model.Date
	To     *model.Date
}

const appointmentColumns = `id::text, client_name, email, COALESCE(phone, ''), appointment_date,
	appointment_time, service, COALESCE(notes, ''), status, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var date time.Time
	var status string
	if err := row.Scan(&a.ID, &a.ClientName, &a.Email, &a.Phone, &date, &a.Time, &a.Service, &a.Notes, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Appointment{}, err
	}
	a.Date = model.DateOf(date)
	a.Status = model.Status(status)
	return a, nil
}

// List returns appointments ordered by date, then time.
func (r *AppointmentRepository) List(ctx context.Context, f Filter) ([]model.Appointment, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Date != nil {
		add("appointment_date = $%d", f.Date.In(time.UTC))
	}
	if f.From != nil {
		add("appointment_date >= $%d", f.From.In(time.UTC))
	}
	if f.To != nil {
		add("appointment_date <= $%d", f.To.In(time.UTC))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	sql := "SELECT " + appointmentColumns + " FROM appointments"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY appointment_date ASC, appointment_time ASC"

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, model.ErrNotFound
	}
	a, err := scanAppointment(r.db.QueryRow(ctx, "SELECT "+appointmentColumns+" FROM appointments WHERE id = $1", id))
	if db.IsNotFound(err) {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, err
}

// Create stores a booking request as pending.
func (r *AppointmentRepository) Create(ctx context.Context, d model.Draft) (string, error) {
	res, err := r.CreateIdempotent(ctx, "", d)
	return res.ID, err
}

type CreateResult struct {
	ID       string
	Replayed bool
}

// CreateIdempotent is Create keyed by an Idempotency-Key. Repeating a key with
// the same body returns the first appointment id without creating another.
// The status in d is ignored: new appointments are always pending.
func (r *AppointmentRepository) CreateIdempotent(ctx context.Context, key string, d model.Draft) (CreateResult, error) {
	d = d.Normalize()
	date, err := d.Validate()
	if err != nil {
		return CreateResult{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return CreateResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if key != "" {
		existing, err := lockIdempotencyKey(ctx, tx, key, requestHash(d))
		if err != nil {
			return CreateResult{}, err
		}
		if existing != "" {
			return CreateResult{ID: existing, Replayed: true}, tx.Commit(ctx)
		}
	}

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(client_name, email, phone, appointment_date, appointment_time, service, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id::text
	`, d.ClientName, d.Email, d.Phone, date.In(time.UTC), d.Time, d.Service, d.Notes).Scan(&id)
	if err != nil {
		return CreateResult{}, err
	}

	evt, err := outbox.NewEvent(id, outbox.TopicAppointmentRequested, outbox.AppointmentRequested{
		AppointmentID: id,
		ClientName:    d.ClientName,
		Email:         d.Email,
		Phone:         d.Phone,
		Date:          date.String(),
		Time:          d.Time,
		Service:       d.Service,
		Notes:         d.Notes,
		RequestedAt:   r.now().UTC(),
	})
	if err != nil {
		return CreateResult{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return CreateResult{}, err
	}

	if key != "" {
		if _, err := tx.Exec(ctx, `
			UPDATE appointment_idempotency_keys
			SET appointment_id = $2, updated_at = now()
			WHERE idempotency_key = $1
		`, key, id); err != nil {
			return CreateResult{}, err
		}
	}
	return CreateResult{ID: id}, tx.Commit(ctx)
}

// lockIdempotencyKey claims key and returns the appointment already created
// under it, if any.
func lockIdempotencyKey(ctx context.Context, tx pgx.Tx, key, hash string) (string, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment_idempotency_keys (idempotency_key, request_hash)
		VALUES ($1, $2)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key, hash); err != nil {
		return "", err
	}
	var appointmentID, storedHash string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(appointment_id::text, ''), request_hash
		FROM appointment_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&appointmentID, &storedHash)
	if err != nil {
		return "", err
	}
	if storedHash != hash {
		return "", ErrIdempotencyMismatch
	}
	return appointmentID, nil
}

func requestHash(d model.Draft) string {
	d.Status = ""
	b, _ := json.Marshal(d)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Update replaces every field of the appointment, status included.
func (r *AppointmentRepository) Update(ctx context.Context, id string, d model.Draft) (model.Appointment, error) {
	d = d.Normalize()
	date, err := d.Validate()
	if err != nil {
		return model.Appointment{}, err
	}
	if d.Status == "" {
		return model.Appointment{}, model.Required("status")
	}
	status, err := model.ParseStatus(d.Status)
	if err != nil {
		return model.Appointment{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, model.ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous string
	err = tx.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
	if db.IsNotFound(err) {
		return model.Appointment{}, model.ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET client_name = $2, email = $3, phone = $4, appointment_date = $5, appointment_time = $6,
			service = $7, notes = $8, status = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, d.ClientName, d.Email, d.Phone, date.In(time.UTC), d.Time, d.Service, d.Notes, string(status)))
	if err != nil {
		return model.Appointment{}, err
	}

	if model.Status(previous) != status {
		if err := r.statusChanged(ctx, tx, updated, model.Status(previous)); err != nil {
			return model.Appointment{}, err
		}
	}
	return updated, tx.Commit(ctx)
}

// SetStatus changes only the status. Re-applying the current status is a
// no-op and reports changed=false.
func (r *AppointmentRepository) SetStatus(ctx context.Context, id string, status model.Status) (model.Appointment, bool, error) {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return model.Appointment{}, false, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, false, model.ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanAppointment(tx.QueryRow(ctx, "SELECT "+appointmentColumns+" FROM appointments WHERE id = $1 FOR UPDATE", id))
	if db.IsNotFound(err) {
		return model.Appointment{}, false, model.ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	if current.Status == status {
		return current, false, tx.Commit(ctx)
	}

	var updatedAt time.Time
	if err := tx.QueryRow(ctx, `
		UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1 RETURNING updated_at
	`, id, string(status)).Scan(&updatedAt); err != nil {
		return model.Appointment{}, false, err
	}
	previous := current.Status
	current.Status = status
	current.UpdatedAt = updatedAt
	if err := r.statusChanged(ctx, tx, current, previous); err != nil {
		return model.Appointment{}, false, err
	}
	return current, true, tx.Commit(ctx)
}

func (r *AppointmentRepository) statusChanged(ctx context.Context, tx pgx.Tx, a model.Appointment, from model.Status) error {
	evt, err := outbox.NewEvent(a.ID, outbox.TopicAppointmentStatusChanged, outbox.AppointmentStatusChanged{
		AppointmentID: a.ID,
		ClientName:    a.ClientName,
		Email:         a.Email,
		Date:          a.Date.String(),
		Time:          a.Time,
		Service:       a.Service,
		From:          string(from),
		To:            string(a.Status),
		ChangedAt:     r.now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, evt)
}
