// Package availability decides which days and hours the firm can be booked.
package availability

import (
	"time"

	"github.com/seiflawfirm/site/services/site-service/internal/calendar"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

type Status string

const (
	Unavailable     Status = "unavailable"
	FullyBooked     Status = "fully_booked"
	PartiallyBooked Status = "partially_booked"
	Available       Status = "available"
)

// Classifier evaluates a Policy relative to a fixed "today". It holds no
// appointment state; callers pass the live list on every call.
type Classifier struct {
	today     model.Date
	threshold int
	blocked   map[model.Date]struct{}
	partial   map[model.Date]struct{}
	simulated map[Slot]struct{}
	simulate  bool
}

func NewClassifier(p Policy, today model.Date) *Classifier {
	c := &Classifier{
		today:     today,
		threshold: p.FullyBookedThreshold,
		blocked:   toSet(p.BlockedDates),
		partial:   toSet(p.PartiallyBookedDates),
		simulated: map[Slot]struct{}{},
		simulate:  p.SimulatePartialBookings,
	}
	if c.threshold <= 0 {
		c.threshold = DefaultFullyBookedThreshold
	}
	for _, s := range p.SimulatedTakenSlots {
		c.simulated[s] = struct{}{}
	}
	return c
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) model.Date {
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOf(now.In(loc))
}

func (c *Classifier) Today() model.Date { return c.today }

// Classify applies the rules in order, first match wins: unavailable,
// fully booked, partially booked, available.
func (c *Classifier) Classify(date model.Date, appts []model.Appointment) Status {
	if c.closed(date) {
		return Unavailable
	}
	n := len(onDate(date, appts))
	switch {
	case n >= c.threshold:
		return FullyBooked
	case n >= 1:
		return PartiallyBooked
	}
	if _, ok := c.partial[date]; ok {
		return PartiallyBooked
	}
	return Available
}

// AvailableSlots lists the open slots for date in vocabulary order. Closed
// dates offer nothing; a fully booked date still offers its untaken slots.
func (c *Classifier) AvailableSlots(date model.Date, appts []model.Appointment) []Slot {
	if c.Classify(date, appts) == Unavailable {
		return []Slot{}
	}
	taken := map[Slot]struct{}{}
	booked := onDate(date, appts)
	if len(booked) > 0 {
		for _, a := range booked {
			if s, ok := ParseSlot(a.Time); ok {
				taken[s] = struct{}{}
			}
		}
	} else if _, curated := c.partial[date]; curated && c.simulate {
		taken = c.simulated
	}

	out := make([]Slot, 0, len(Slots))
	for _, s := range Slots {
		if _, ok := taken[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Day is one calendar cell with its classification.
type Day struct {
	Date    model.Date `json:"date"`
	InMonth bool       `json:"inMonth"`
	Status  Status     `json:"status"`
}

// Month classifies every cell of ref's month grid.
func (c *Classifier) Month(ref time.Time, appts []model.Appointment) []Day {
	grid := calendar.BuildMonthGrid(ref)
	days := make([]Day, 0, len(grid))
	for _, d := range grid {
		date := model.DateOf(d)
		days = append(days, Day{
			Date:    date,
			InMonth: calendar.SameMonth(d, ref),
			Status:  c.Classify(date, appts),
		})
	}
	return days
}

func (c *Classifier) closed(date model.Date) bool {
	if date.Before(c.today) {
		return true
	}
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	_, blocked := c.blocked[date]
	return blocked
}

func onDate(date model.Date, appts []model.Appointment) []model.Appointment {
	var out []model.Appointment
	for _, a := range appts {
		if a.Date == date && a.Counts() {
			out = append(out, a)
		}
	}
	return out
}

func toSet(dates []model.Date) map[model.Date]struct{} {
	set := make(map[model.Date]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// View pairs a classifier with one fetched appointment list.
type View struct {
	c     *Classifier
	appts []model.Appointment
}

func (c *Classifier) With(appts []model.Appointment) View {
	return View{c: c, appts: appts}
}

func (v View) Classify(date model.Date) Status       { return v.c.Classify(date, v.appts) }
func (v View) AvailableSlots(date model.Date) []Slot { return v.c.AvailableSlots(date, v.appts) }
