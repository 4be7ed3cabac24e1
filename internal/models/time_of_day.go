package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date, e.g. 22:00.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%d:%02d", t.Hour, t.Minute)
}

// Next returns the first instant strictly after now at this time of day, in
// now's location.
func (t TimeOfDay) Next(now time.Time) time.Time {
	y, mo, d := now.Date()
	at := time.Date(y, mo, d, t.Hour, t.Minute, 0, 0, now.Location())
	if !at.After(now) {
		at = time.Date(y, mo, d+1, t.Hour, t.Minute, 0, 0, now.Location())
	}
	return at
}
