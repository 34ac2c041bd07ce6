package storage

import (
	"context"
	"time"

	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

type BlockedDate struct {
	Date      model.Date `json:"date"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// BlockedDateRepository holds the dates an administrator has closed for
// bookings.
type BlockedDateRepository struct {
	db db.Querier
}

func NewBlockedDateRepository(q db.Querier) *BlockedDateRepository {
	return &BlockedDateRepository{db: q}
}

func (r *BlockedDateRepository) ListBlocked(ctx context.Context) ([]BlockedDate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT blocked_date, COALESCE(reason, ''), created_at
		FROM blocked_dates
		ORDER BY blocked_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BlockedDate{}
	for rows.Next() {
		var b BlockedDate
		var date time.Time
		if err := rows.Scan(&date, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Date = model.DateOf(date)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBlockedDates satisfies availability.BlockedDateStore.
func (r *BlockedDateRepository) ListBlockedDates(ctx context.Context) ([]model.Date, error) {
	blocked, err := r.ListBlocked(ctx)
	if err != nil {
		return nil, err
	}
	dates := make([]model.Date, 0, len(blocked))
	for _, b := range blocked {
		dates = append(dates, b.Date)
	}
	return dates, nil
}

// Add blocks date. Blocking an already blocked date updates its reason.
func (r *BlockedDateRepository) Add(ctx context.Context, date model.Date, reason string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO blocked_dates (blocked_date, reason)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (blocked_date) DO UPDATE SET reason = EXCLUDED.reason
	`, date.In(time.UTC), reason)
	return err
}

func (r *BlockedDateRepository) Remove(ctx context.Context, date model.Date) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blocked_dates WHERE blocked_date = $1`, date.In(time.UTC))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
