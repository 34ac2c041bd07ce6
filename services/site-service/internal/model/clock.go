package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock reads "9:00", "09:00", "09:00 AM" or "01:00 PM" and returns the
// 24h "HH:MM" form, which sorts chronologically as text.
func ParseClock(raw string) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return "", false
	}
	meridiem := ""
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(v, suffix) {
			meridiem = suffix
			v = strings.TrimSpace(strings.TrimSuffix(v, suffix))
			break
		}
	}
	h, m, ok := SplitClock(v)
	if !ok {
		return "", false
	}
	if meridiem != "" {
		if h < 1 || h > 12 {
			return "", false
		}
		h %= 12
		if meridiem == "PM" {
			h += 12
		}
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

// SplitClock splits a 24h "H:MM" value into hour and minute.
func SplitClock(v string) (int, int, bool) {
	hs, ms, found := strings.Cut(v, ":")
	if !found {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 || len(ms) != 2 {
		return 0, 0, false
	}
	return h, m, true
}

// canonicalTime rewrites recognised clock values to "HH:MM". Free text such
// as "Morning" is kept for legacy rows.
func canonicalTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if c, ok := ParseClock(raw); ok {
		return c
	}
	return raw
}
