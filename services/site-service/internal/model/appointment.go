package model

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format for appointment dates.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	default:
		return "", &ValidationError{Field: "status", Message: "Invalid status"}
	}
}

// Appointment is a persisted booking request. Time holds a slot value such as
// "09:00"; legacy rows may carry free text that is displayed as-is.
type Appointment struct {
	ID         string    `json:"id"`
	ClientName string    `json:"clientName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Date       Date      `json:"date"`
	Time       string    `json:"time"`
	Service    string    `json:"service"`
	Notes      string    `json:"notes"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Draft is the caller-supplied part of an appointment. Status is ignored on
// create.
type Draft struct {
	ClientName string `json:"clientName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Service    string `json:"service"`
	Notes      string `json:"notes"`
	Status     string `json:"status,omitempty"`
}

func (d Draft) Normalize() Draft {
	d.ClientName = strings.TrimSpace(d.ClientName)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Date = strings.TrimSpace(d.Date)
	d.Time = canonicalTime(d.Time)
	d.Service = strings.TrimSpace(d.Service)
	d.Notes = strings.TrimSpace(d.Notes)
	d.Status = strings.TrimSpace(d.Status)
	return d
}

// Validate checks the fields required on every create and update. The
// first missing field is reported.
func (d Draft) Validate() (Date, error) {
	d = d.Normalize()
	switch {
	case d.ClientName == "":
		return Date{}, Required("clientName")
	case d.Email == "":
		return Date{}, Required("email")
	case d.Date == "":
		return Date{}, Required("date")
	case d.Time == "":
		return Date{}, Required("time")
	case d.Service == "":
		return Date{}, Required("service")
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Message: "Invalid date"}
	}
	return date, nil
}

// Counts reports whether the appointment occupies its slot.
func (a Appointment) Counts() bool {
	return a.Status != StatusCancelled
}

// ServiceOptions are the practice areas offered on the booking form.
var ServiceOptions = []string{
	"Business Law",
	"Property Law",
	"Intellectual Property",
	"Corporate Law",
	"Other",
}
