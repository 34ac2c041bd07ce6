package availability

import (
	"fmt"

	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

// Slot is a bookable hour in 24h "HH:MM" form.
type Slot string

// Slots is the fixed, ordered slot vocabulary.
var Slots = []Slot{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}

// Label renders the slot for display, e.g. "01:00 PM".
func (s Slot) Label() string {
	h, m, ok := model.SplitClock(string(s))
	if !ok {
		return string(s)
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, m, suffix)
}

func (s Slot) index() int {
	for i, v := range Slots {
		if v == s {
			return i
		}
	}
	return -1
}

// ParseSlot maps "09:00", "9:00", "09:00 AM" or "01:00 PM" onto the
// vocabulary. Values outside it are custom or legacy and report false.
func ParseSlot(raw string) (Slot, bool) {
	clock, ok := model.ParseClock(raw)
	if !ok {
		return "", false
	}
	s := Slot(clock)
	if s.index() < 0 {
		return "", false
	}
	return s, true
}
