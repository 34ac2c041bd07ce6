package notify

import "time"

const (
	TopicAppointmentRequested     = "site.appointment.requested.v1"
	TopicAppointmentStatusChanged = "site.appointment.status_changed.v1"
)

// Topics lists every topic the notifier understands.
var Topics = []string{TopicAppointmentRequested, TopicAppointmentStatusChanged}

type appointmentRequested struct {
	AppointmentID string    `json:"appointment_id"`
	ClientName    string    `json:"client_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Service       string    `json:"service"`
	Notes         string    `json:"notes"`
	RequestedAt   time.Time `json:"requested_at"`
}

type appointmentStatusChanged struct {
	AppointmentID string    `json:"appointment_id"`
	ClientName    string    `json:"client_name"`
	Email         string    `json:"email"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Service       string    `json:"service"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedAt     time.Time `json:"changed_at"`
}
