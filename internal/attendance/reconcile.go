package attendance

import (
	"encoding/json"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Attendee is one member of the class roster.
type Attendee struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// FullName joins first and last name.
func (a Attendee) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// CheckInEvent is a single scan. A zero OccurredAt marks a missing or
// unreadable timestamp.
type CheckInEvent struct {
	ID         string    `json:"id,omitempty"`
	AttendeeID string    `json:"attendee_id"`
	DeviceID   string    `json:"device_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Record is the reconciled state of one roster attendee.
// Event is nil exactly when Status is StatusAbsent.
type Record struct {
	Attendee Attendee      `json:"attendee"`
	Event    *CheckInEvent `json:"event"`
	Status   Status        `json:"status"`
}

// Key identifies the record within a report. Stable across runs.
func (r Record) Key() string {
	return r.Attendee.ID
}

// MarshalJSON adds the record key so clients can index rows by it.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		Key string `json:"key"`
		plain
	}{Key: r.Key(), plain: plain(r)})
}

// Reconcile produces one record per roster attendee for date, in roster
// order. Only on-time and late check-ins on date count as presence; the
// first such event per attendee in input order is the one reported.
func Reconcile(s Schedule, roster []Attendee, events []CheckInEvent, date civil.Date) []Record {
	window := s.WindowFor(date)

	selected := make(map[string]CheckInEvent)
	for _, evt := range events {
		if !onDate(s, evt, date) {
			continue
		}
		if st := Classify(evt.OccurredAt, window); st != StatusOnTime && st != StatusLate {
			continue
		}
		if _, seen := selected[evt.AttendeeID]; !seen {
			selected[evt.AttendeeID] = evt
		}
	}

	records := make([]Record, 0, len(roster))
	for _, a := range roster {
		evt, ok := selected[a.ID]
		if !ok {
			records = append(records, Record{Attendee: a, Status: StatusAbsent})
			continue
		}
		records = append(records, Record{
			Attendee: a,
			Event:    &evt,
			Status:   Classify(evt.OccurredAt, window),
		})
	}
	return records
}

func onDate(s Schedule, evt CheckInEvent, date civil.Date) bool {
	if evt.OccurredAt.IsZero() {
		return false
	}
	return s.DateOf(evt.OccurredAt) == date
}
