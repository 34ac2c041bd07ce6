package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/httpx"
)

// API groups the handlers mounted under /api.
type API struct {
	Appointments *AppointmentHandler
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	Blog         *BlogHandler
	Contact      *ContactHandler
	Auth         *AuthHandler
	// PublicWriteLimit guards the anonymous write endpoints. Nil disables it.
	PublicWriteLimit httpx.Middleware
}

// Mount registers the API on r. Routes marked public still pass through
// issuer.Optional so handlers can tell signed-in admins apart.
func (a API) Mount(r chi.Router, issuer *auth.Issuer) {
	limit := a.PublicWriteLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	adminOnly := auth.RequireRole(auth.RoleAdmin)
	editors := auth.RequireRole(auth.RoleAdmin, auth.RoleEditor)
	r.Route("/api", func(r chi.Router) {
		r.Use(issuer.Optional)

		r.Route("/appointments", func(r chi.Router) {
			r.With(limit).Post("/", a.Appointments.Create)
			r.Group(func(r chi.Router) {
				r.Use(issuer.Require, adminOnly)
				r.Get("/", a.Appointments.List)
				r.Get("/{id}", a.Appointments.Get)
				r.Put("/{id}", a.Appointments.Update)
				r.Patch("/{id}/status", a.Appointments.SetStatus)
			})
		})

		r.Route("/availability", func(r chi.Router) {
			r.Get("/", a.Availability.Month)
			r.Get("/slots", a.Availability.Slots)
			r.Group(func(r chi.Router) {
				r.Use(issuer.Require, adminOnly)
				r.Get("/blocked", a.Availability.ListBlocked)
				r.Post("/blocked", a.Availability.Block)
				r.Delete("/blocked/{date}", a.Availability.Unblock)
			})
		})

		r.Route("/booking/sessions", func(r chi.Router) {
			r.With(limit).Post("/", a.Booking.Start)
			r.Get("/{id}", a.Booking.Get)
			r.Delete("/{id}", a.Booking.Close)
			r.Post("/{id}/date", a.Booking.SelectDate)
			r.Post("/{id}/slot", a.Booking.SelectSlot)
			r.Post("/{id}/next", a.Booking.Next)
			r.Post("/{id}/back", a.Booking.Back)
			r.Post("/{id}/details", a.Booking.SetDetails)
			r.Post("/{id}/submit", a.Booking.Submit)
		})

		r.Route("/blog", func(r chi.Router) {
			r.Get("/", a.Blog.List)
			r.Get("/categories", a.Blog.Categories)
			r.Get("/{slug}", a.Blog.Get)
			r.Group(func(r chi.Router) {
				r.Use(issuer.Require, editors)
				r.Post("/", a.Blog.Create)
				r.Post("/covers", a.Blog.UploadCover)
				r.Put("/{slug}", a.Blog.Update)
				r.Delete("/{slug}", a.Blog.Delete)
			})
		})

		r.With(limit).Post("/contact", a.Contact.Send)

		r.Route("/auth", func(r chi.Router) {
			r.With(limit).Post("/login", a.Auth.Login)
			r.Post("/logout", a.Auth.Logout)
			r.With(issuer.Require).Get("/me", a.Auth.Me)
		})
	})
}
