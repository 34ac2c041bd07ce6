// Package calendar builds Monday-first month grids for the booking calendar.
package calendar

import "time"

// BuildMonthGrid returns every day shown for ref's month: from the Monday on
// or before the 1st through the Sunday on or after the last day, ascending
// and at midnight in ref's location.
func BuildMonthGrid(ref time.Time) []time.Time {
	first := FirstOfMonth(ref)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -daysSinceMonday(first.Weekday()))
	end := last.AddDate(0, 0, 6-daysSinceMonday(last.Weekday()))

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func NextMonth(ref time.Time) time.Time {
	return FirstOfMonth(ref).AddDate(0, 1, 0)
}

func PrevMonth(ref time.Time) time.Time {
	return FirstOfMonth(ref).AddDate(0, -1, 0)
}

// CanGoBack reports whether the month before ref still has a day on or after
// today.
func CanGoBack(ref, today time.Time) bool {
	lastOfPrev := FirstOfMonth(ref).AddDate(0, 0, -1)
	t := Midnight(today.In(ref.Location()))
	return !lastOfPrev.Before(t)
}

func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func daysSinceMonday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
