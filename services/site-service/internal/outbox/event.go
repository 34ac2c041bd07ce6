package outbox

import (
	"encoding/json"
	"time"
)

// Topics carry one event type each; the topic name is the event type.
const (
	TopicAppointmentRequested     = "site.appointment.requested.v1"
	TopicAppointmentStatusChanged = "site.appointment.status_changed.v1"
)

// Event is the envelope written to outbox_events in the same transaction as
// the change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentRequested is published when a booking is submitted.
type AppointmentRequested struct {
	AppointmentID string    `json:"appointment_id"`
	ClientName    string    `json:"client_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Service       string    `json:"service"`
	Notes         string    `json:"notes,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

// AppointmentStatusChanged is published only when the status actually moves.
type AppointmentStatusChanged struct {
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

func NewEvent(aggregateID, eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
