package calendar

import "time"

// Navigator tracks the month on display. Prev is a no-op once the previous
// month is entirely in the past.
type Navigator struct {
	ref   time.Time
	today time.Time
}

func NewNavigator(ref, today time.Time) *Navigator {
	return &Navigator{ref: FirstOfMonth(ref), today: today}
}

func (n *Navigator) Month() time.Time  { return n.ref }
func (n *Navigator) Grid() []time.Time { return BuildMonthGrid(n.ref) }
func (n *Navigator) CanGoBack() bool   { return CanGoBack(n.ref, n.today) }
func (n *Navigator) Next()             { n.ref = NextMonth(n.ref) }

func (n *Navigator) Prev() bool {
	if !n.CanGoBack() {
		return false
	}
	n.ref = PrevMonth(n.ref)
	return true
}
