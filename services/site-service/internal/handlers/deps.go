package handlers

import (
	"context"
	"io"

	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
)

// AppointmentStore is the part of storage.AppointmentRepository the
// handlers use.
type AppointmentStore interface {
	List(ctx context.Context, f storage.Filter) ([]model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	CreateIdempotent(ctx context.Context, key string, d model.Draft) (storage.CreateResult, error)
	Update(ctx context.Context, id string, d model.Draft) (model.Appointment, error)
	SetStatus(ctx context.Context, id string, status model.Status) (model.Appointment, bool, error)
}

type BlockedDateStore interface {
	ListBlocked(ctx context.Context) ([]storage.BlockedDate, error)
	Add(ctx context.Context, date model.Date, reason string) error
	Remove(ctx context.Context, date model.Date) error
}

type BlogStore interface {
	List(ctx context.Context, f storage.PostFilter) ([]model.BlogPost, int, error)
	GetPublishedBySlug(ctx context.Context, slug string) (model.BlogPost, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, in storage.PostInput, authorID string) (string, error)
	Update(ctx context.Context, slugOrID string, in storage.PostInput) error
	Delete(ctx context.Context, slugOrID string) error
	SetCover(ctx context.Context, slugOrID, url string) error
}

type AdminStore interface {
	ByUsername(ctx context.Context, username string) (model.Admin, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// CoverUploader stores a cover image and returns its public URL.
type CoverUploader interface {
	Upload(ctx context.Context, contentType string, r io.Reader, size int64) (string, error)
}

// Observer receives business counters; *metrics.Metrics satisfies it.
type Observer interface {
	ObserveAppointmentWrite(operation string)
	ObserveEmail(kind string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveAppointmentWrite(string) {}
func (nopObserver) ObserveEmail(string, error)     {}
