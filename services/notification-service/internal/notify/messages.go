package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/seiflawfirm/site/libs/email"
	"github.com/seiflawfirm/site/services/notification-service/internal/reminders"
)

// when renders "2025-03-27" and "11:00" as "Thursday, March 27, 2025 at
// 11:00 AM". Values that do not parse are shown unchanged.
func when(date, clock string) string {
	day := date
	if d, err := time.Parse(time.DateOnly, date); err == nil {
		day = d.Format("Monday, January 2, 2006")
	}
	at := clock
	if t, err := time.Parse("15:04", clock); err == nil {
		at = t.Format("3:04 PM")
	}
	if at == "" {
		return day
	}
	return day + " at " + at
}

func paragraphs(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(l), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func firmRequestMessage(to string, e appointmentRequested) email.Message {
	lines := []string{
		"A new appointment request was submitted on the website.",
		fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s", e.ClientName, e.Email, orDash(e.Phone)),
		fmt.Sprintf("Service: %s\nRequested time: %s", e.Service, when(e.Date, e.Time)),
	}
	if strings.TrimSpace(e.Notes) != "" {
		lines = append(lines, "Notes:\n"+e.Notes)
	}
	return email.Message{
		To:      to,
		ReplyTo: e.Email,
		Subject: "New appointment request from " + e.ClientName,
		Text:    strings.Join(lines, "\n\n"),
		HTML:    paragraphs(lines...),
	}
}

func clientAckMessage(e appointmentRequested) email.Message {
	lines := []string{
		"Dear " + e.ClientName + ",",
		fmt.Sprintf("Thank you for your request for a %s consultation on %s.", e.Service, when(e.Date, e.Time)),
		"Our office will review it and confirm by email shortly.",
		"Seif Law Firm",
	}
	return email.Message{
		To:      e.Email,
		ToName:  e.ClientName,
		Subject: "We received your appointment request",
		Text:    strings.Join(lines, "\n\n"),
		HTML:    paragraphs(lines...),
	}
}

func clientStatusMessage(e appointmentStatusChanged) (email.Message, bool) {
	var subject, body string
	switch e.To {
	case "confirmed":
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf("Your %s consultation on %s is confirmed. We look forward to meeting you.", e.Service, when(e.Date, e.Time))
	case "cancelled":
		subject = "Your appointment has been cancelled"
		body = fmt.Sprintf("Your %s consultation on %s has been cancelled. Please contact us to arrange a new time.", e.Service, when(e.Date, e.Time))
	default:
		return email.Message{}, false
	}
	lines := []string{"Dear " + e.ClientName + ",", body, "Seif Law Firm"}
	return email.Message{
		To:      e.Email,
		ToName:  e.ClientName,
		Subject: subject,
		Text:    strings.Join(lines, "\n\n"),
		HTML:    paragraphs(lines...),
	}, true
}

// ReminderMessage is the day-before email; it uses the appointment's
// current date and time.
func ReminderMessage(j reminders.Job) email.Message {
	lines := []string{
		"Dear " + j.ClientName + ",",
		fmt.Sprintf("This is a reminder of your %s consultation on %s.", j.Service, when(j.CurrentDate, j.CurrentTime)),
		"If you can no longer attend, please reply to this email so we can offer the time to another client.",
		"Seif Law Firm",
	}
	return email.Message{
		To:      j.Email,
		ToName:  j.ClientName,
		Subject: "Reminder: your appointment with Seif Law Firm",
		Text:    strings.Join(lines, "\n\n"),
		HTML:    paragraphs(lines...),
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
