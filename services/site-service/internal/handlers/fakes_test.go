package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/email"
	"github.com/seiflawfirm/site/services/site-service/internal/availability"
	"github.com/seiflawfirm/site/services/site-service/internal/booking"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-bytes"

var testNow = time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAppointments struct {
	mu    sync.Mutex
	items map[string]model.Appointment
	keys  map[string]string
	seq   int
}

func newFakeAppointments(appts ...model.Appointment) *fakeAppointments {
	f := &fakeAppointments{items: map[string]model.Appointment{}, keys: map[string]string{}}
	for _, a := range appts {
		f.items[a.ID] = a
	}
	return f
}

func (f *fakeAppointments) List(_ context.Context, flt storage.Filter) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range f.items {
		if flt.Date != nil && a.Date != *flt.Date {
			continue
		}
		if flt.From != nil && a.Date.Before(*flt.From) {
			continue
		}
		if flt.To != nil && flt.To.Before(a.Date) {
			continue
		}
		if flt.Status != "" && a.Status != flt.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (f *fakeAppointments) Get(_ context.Context, id string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (f *fakeAppointments) Create(ctx context.Context, d model.Draft) (string, error) {
	res, err := f.CreateIdempotent(ctx, "", d)
	return res.ID, err
}

func (f *fakeAppointments) CreateIdempotent(_ context.Context, key string, d model.Draft) (storage.CreateResult, error) {
	d = d.Normalize()
	date, err := d.Validate()
	if err != nil {
		return storage.CreateResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.keys[key]; ok && key != "" {
		return storage.CreateResult{ID: id, Replayed: true}, nil
	}
	f.seq++
	id := fmt.Sprintf("appt-%d", f.seq)
	f.items[id] = model.Appointment{
		ID: id, ClientName: d.ClientName, Email: d.Email, Phone: d.Phone, Date: date,
		Time: d.Time, Service: d.Service, Notes: d.Notes, Status: model.StatusPending,
	}
	if key != "" {
		f.keys[key] = id
	}
	return storage.CreateResult{ID: id}, nil
}

func (f *fakeAppointments) Update(_ context.Context, id string, d model.Draft) (model.Appointment, error) {
	d = d.Normalize()
	date, err := d.Validate()
	if err != nil {
		return model.Appointment{}, err
	}
	if d.Status == "" {
		return model.Appointment{}, model.Required("status")
	}
	st, err := model.ParseStatus(d.Status)
	if err != nil {
		return model.Appointment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	a.ClientName, a.Email, a.Phone, a.Date, a.Time = d.ClientName, d.Email, d.Phone, date, d.Time
	a.Service, a.Notes, a.Status = d.Service, d.Notes, st
	f.items[id] = a
	return a, nil
}

func (f *fakeAppointments) SetStatus(_ context.Context, id string, st model.Status) (model.Appointment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return model.Appointment{}, false, model.ErrNotFound
	}
	if a.Status == st {
		return a, false, nil
	}
	a.Status = st
	f.items[id] = a
	return a, true, nil
}

type fakeBlocked struct {
	dates map[model.Date]string
}

func (f *fakeBlocked) ListBlocked(context.Context) ([]storage.BlockedDate, error) {
	out := []storage.BlockedDate{}
	for d, reason := range f.dates {
		out = append(out, storage.BlockedDate{Date: d, Reason: reason})
	}
	return out, nil
}

func (f *fakeBlocked) ListBlockedDates(context.Context) ([]model.Date, error) {
	out := []model.Date{}
	for d := range f.dates {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeBlocked) Add(_ context.Context, d model.Date, reason string) error {
	f.dates[d] = reason
	return nil
}

func (f *fakeBlocked) Remove(_ context.Context, d model.Date) error {
	if _, ok := f.dates[d]; !ok {
		return model.ErrNotFound
	}
	delete(f.dates, d)
	return nil
}

type fakeBlog struct {
	lastFilter storage.PostFilter
	posts      map[string]model.BlogPost
	created    []storage.PostInput
}

func (f *fakeBlog) List(_ context.Context, flt storage.PostFilter) ([]model.BlogPost, int, error) {
	f.lastFilter = flt
	out := []model.BlogPost{}
	for _, p := range f.posts {
		if !flt.IncludeDrafts && p.Status != model.PostPublished {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeBlog) GetPublishedBySlug(_ context.Context, slug string) (model.BlogPost, error) {
	p, ok := f.posts[slug]
	if !ok || p.Status != model.PostPublished {
		return model.BlogPost{}, model.ErrNotFound
	}
	return p, nil
}

func (f *fakeBlog) Categories(context.Context) ([]model.Category, error) {
	return []model.Category{{ID: "c-1", Name: "Business Law", Slug: "business-law"}}, nil
}

func (f *fakeBlog) Create(_ context.Context, in storage.PostInput, _ string) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", model.Required("title")
	}
	if in.Category != "Business Law" {
		return "", &model.ValidationError{Field: "category", Message: "Invalid category"}
	}
	f.created = append(f.created, in)
	return "p-new", nil
}

func (f *fakeBlog) Update(_ context.Context, slugOrID string, _ storage.PostInput) error {
	if _, ok := f.posts[slugOrID]; !ok {
		return model.ErrNotFound
	}
	return nil
}

func (f *fakeBlog) Delete(_ context.Context, slugOrID string) error {
	if _, ok := f.posts[slugOrID]; !ok {
		return model.ErrNotFound
	}
	delete(f.posts, slugOrID)
	return nil
}

func (f *fakeBlog) SetCover(context.Context, string, string) error { return nil }

type fakeAdmins struct {
	admin     model.Admin
	lastLogin string
}

func (f *fakeAdmins) ByUsername(_ context.Context, username string) (model.Admin, error) {
	if strings.TrimSpace(username) != f.admin.Username {
		return model.Admin{}, model.ErrNotFound
	}
	return f.admin, nil
}

func (f *fakeAdmins) UpdateLastLogin(_ context.Context, id string) error {
	f.lastLogin = id
	return nil
}

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

type testEnv struct {
	api     API
	router  http.Handler
	issuer  *auth.Issuer
	appts   *fakeAppointments
	blocked *fakeBlocked
	blog    *fakeBlog
	admins  *fakeAdmins
	sender  *fakeSender
}

func newTestEnv(t *testing.T, appts ...model.Appointment) *testEnv {
	t.Helper()
	issuer, err := auth.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)

	env := &testEnv{
		issuer:  issuer,
		appts:   newFakeAppointments(appts...),
		blocked: &fakeBlocked{dates: map[model.Date]string{}},
		blog: &fakeBlog{posts: map[string]model.BlogPost{
			"hello": {ID: "p-1", Slug: "hello", Title: "Hello", Status: model.PostPublished},
			"wip":   {ID: "p-2", Slug: "wip", Title: "Work in progress", Status: model.PostDraft},
		}},
		admins: &fakeAdmins{admin: model.Admin{ID: "a-1", Username: "admin", PasswordHash: hash, Role: "admin", Active: true}},
		sender: &fakeSender{},
	}
	logger := discardLogger()
	source := availability.NewStoreSource(availability.DefaultPolicy(), env.blocked)
	avail := NewAvailabilityHandler(env.appts, env.blocked, source, time.UTC, logger)
	avail.now = func() time.Time { return testNow }
	clock := func() time.Time { return testNow }
	svc := booking.NewService(booking.NewMemoryStore(booking.DefaultSessionTTL, clock), env.appts, booking.WithClock(clock))

	api := API{
		Appointments: NewAppointmentHandler(env.appts, logger, nil),
		Availability: avail,
		Booking:      NewBookingHandler(svc, env.appts, avail, logger),
		Blog:         NewBlogHandler(env.blog, nil, logger),
		Contact:      NewContactHandler(env.sender, "office@seiflawfirm.com", logger, nil),
		Auth:         NewAuthHandler(env.admins, issuer, false, logger),
	}
	env.api = api
	r := chi.NewRouter()
	api.Mount(r, issuer)
	env.router = r
	return env
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, _, err := e.issuer.Sign("a-1", "admin", "admin")
	require.NoError(t, err)
	return tok
}

// do sends body as JSON; a non-empty token is sent as a Bearer header.
func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func mustDate(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}
