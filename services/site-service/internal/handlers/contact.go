package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/seiflawfirm/site/libs/email"
	"github.com/seiflawfirm/site/libs/httpx"
)

type ContactHandler struct {
	sender   email.Sender
	to       string
	logger   *slog.Logger
	observer Observer
}

// NewContactHandler sends every submission to the firm inbox at to.
func NewContactHandler(sender email.Sender, to string, logger *slog.Logger, observer Observer) *ContactHandler {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ContactHandler{sender: sender, to: to, logger: logger, observer: observer}
}

type contactRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Service   string `json:"service"`
}

func (c contactRequest) normalize() contactRequest {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Subject = strings.TrimSpace(c.Subject)
	c.Message = strings.TrimSpace(c.Message)
	c.Service = strings.TrimSpace(c.Service)
	return c
}

func (c contactRequest) body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(c.FirstName+" "+c.LastName))
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	if c.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	}
	if c.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", c.Service)
	}
	if c.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", c.Subject)
	}
	fmt.Fprintf(&b, "\n%s\n", c.Message)
	return b.String()
}

// Send forwards the form to the firm with the submitter as reply-to. Nothing
// is stored.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	req = req.normalize()
	switch {
	case req.FirstName == "":
		httpx.WriteFieldError(w, http.StatusBadRequest, "Missing required fields", "firstName")
		return
	case req.Email == "":
		httpx.WriteFieldError(w, http.StatusBadRequest, "Missing required fields", "email")
		return
	case req.Message == "":
		httpx.WriteFieldError(w, http.StatusBadRequest, "Missing required fields", "message")
		return
	}
	if !email.ValidAddress(req.Email) {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid email address", "email")
		return
	}

	err := h.sender.Send(r.Context(), email.Message{
		To:      h.to,
		ReplyTo: req.Email,
		Subject: strings.TrimSpace("New Contact Form Submission from " + req.FirstName + " " + req.LastName),
		Text:    req.body(),
	})
	h.observer.ObserveEmail("contact", err)
	if err != nil {
		if errors.Is(err, email.ErrDisabled) {
			h.logger.Warn("contact form received while email is disabled")
		} else {
			h.logger.Error("contact email failed", "err", err, "provider", h.sender.ProviderID())
		}
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to send email")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Email sent successfully"})
}
