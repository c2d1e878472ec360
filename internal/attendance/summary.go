package attendance

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"golang.org/x/text/cases"
)

// Filter narrows a reconciled list for the log-listing view.
// Empty fields match everything.
type Filter struct {
	Query  string
	Status Status
}

// FilterRecords keeps records matching f, preserving order. The query is a
// case-insensitive substring match against "first last".
func FilterRecords(records []Record, f Filter) []Record {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(f.Query))

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(r.Attendee.FullName()), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Activity is one raw check-in shown on the dashboard feed.
type Activity struct {
	Attendee Attendee     `json:"attendee"`
	Event    CheckInEvent `json:"event"`
	Status   Status       `json:"status"`
}

// Summary backs the dashboard.
type Summary struct {
	Date   civil.Date `json:"date"`
	Total  int        `json:"total"`
	OnTime int        `json:"on_time"`
	Late   int        `json:"late"`
	Absent int        `json:"absent"`
	Recent []Activity `json:"recent"`
}

// Summarize counts reconciled statuses for date and lists up to recent of
// the newest check-ins of that date, out-of-hours scans included.
func Summarize(s Schedule, roster []Attendee, events []CheckInEvent, date civil.Date, recent int) Summary {
	records := Reconcile(s, roster, events, date)
	sum := Summary{Date: date, Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case StatusOnTime:
			sum.OnTime++
		case StatusLate:
			sum.Late++
		case StatusAbsent:
			sum.Absent++
		}
	}
	sum.Recent = Activities(s, roster, events, date)
	if recent < 0 {
		recent = 0
	}
	if len(sum.Recent) > recent {
		sum.Recent = sum.Recent[:recent]
	}
	return sum
}

// Activities lists every check-in of date whose attendee is on the roster,
// newest first, each classified on its own. Out-of-hours scans and repeat
// scans are included.
func Activities(s Schedule, roster []Attendee, events []CheckInEvent, date civil.Date) []Activity {
	byID := make(map[string]Attendee, len(roster))
	for _, a := range roster {
		byID[a.ID] = a
	}

	acts := []Activity{}
	window := s.WindowFor(date)
	for _, evt := range events {
		if !onDate(s, evt, date) {
			continue
		}
		a, ok := byID[evt.AttendeeID]
		if !ok {
			continue
		}
		acts = append(acts, Activity{Attendee: a, Event: evt, Status: Classify(evt.OccurredAt, window)})
	}

	sort.SliceStable(acts, func(i, j int) bool {
		return acts[i].Event.OccurredAt.After(acts[j].Event.OccurredAt)
	})
	return acts
}
