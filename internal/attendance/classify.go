package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Status is the attendance state of one attendee for one session.
type Status string

const (
	StatusOnTime     Status = "on-time"
	StatusLate       Status = "late"
	StatusAbsent     Status = "absent"
	StatusOutOfHours Status = "out-of-hours"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusOnTime, StatusLate, StatusAbsent, StatusOutOfHours}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOnTime, StatusLate, StatusAbsent, StatusOutOfHours:
		return true
	}
	return false
}

// ParseStatus accepts the canonical names, their snake_case forms and
// "all" or "" (meaning no status filter, returned as "").
func ParseStatus(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" || v == "all" {
		return "", nil
	}
	s := Status(strings.ReplaceAll(v, "_", "-"))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Classify places a check-in instant within the session window.
// The cutoff instant itself counts as late. Absent is never returned.
func Classify(t time.Time, w SessionWindow) Status {
	switch {
	case t.Before(w.Start) || t.After(w.End):
		return StatusOutOfHours
	case t.Before(w.OnTimeCutoff):
		return StatusOnTime
	default:
		return StatusLate
	}
}
