package attendance

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// SessionWindow holds the absolute instants bounding one class session.
// Start <= OnTimeCutoff <= End.
type SessionWindow struct {
	Start        time.Time `json:"start"`
	OnTimeCutoff time.Time `json:"on_time_cutoff"`
	End          time.Time `json:"end"`
}

// Schedule is the wall-clock definition of the daily session in its
// reference timezone. Every view derives its windows from here.
type Schedule struct {
	Location     *time.Location
	Start        civil.Time
	OnTimeCutoff civil.Time
	End          civil.Time
}

// DefaultSchedule returns the 13:00 / 13:30 / 16:00 session in loc.
func DefaultSchedule(loc *time.Location) Schedule {
	return Schedule{
		Location:     loc,
		Start:        civil.Time{Hour: 13},
		OnTimeCutoff: civil.Time{Hour: 13, Minute: 30},
		End:          civil.Time{Hour: 16},
	}
}

// Validate checks the clock values and their ordering.
func (s Schedule) Validate() error {
	if s.Location == nil {
		return errors.New("schedule location required")
	}
	for name, t := range map[string]civil.Time{"start": s.Start, "on-time cutoff": s.OnTimeCutoff, "end": s.End} {
		if !t.IsValid() {
			return fmt.Errorf("schedule %s %q is not a valid clock time", name, t)
		}
	}
	if sinceMidnight(s.Start) > sinceMidnight(s.OnTimeCutoff) {
		return fmt.Errorf("schedule start %s is after on-time cutoff %s", s.Start, s.OnTimeCutoff)
	}
	if sinceMidnight(s.OnTimeCutoff) > sinceMidnight(s.End) {
		return fmt.Errorf("schedule on-time cutoff %s is after end %s", s.OnTimeCutoff, s.End)
	}
	return nil
}

// WindowFor returns the session instants for date in the reference timezone.
func (s Schedule) WindowFor(date civil.Date) SessionWindow {
	loc := s.location()
	return SessionWindow{
		Start:        at(date, s.Start, loc),
		OnTimeCutoff: at(date, s.OnTimeCutoff, loc),
		End:          at(date, s.End, loc),
	}
}

// DateOf returns the calendar date of t as seen in the reference timezone.
func (s Schedule) DateOf(t time.Time) civil.Date {
	return civil.DateOf(t.In(s.location()))
}

// DayBounds returns the half-open instant range [from, to) covering date.
func (s Schedule) DayBounds(date civil.Date) (from, to time.Time) {
	loc := s.location()
	return date.In(loc), date.AddDays(1).In(loc)
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func at(d civil.Date, t civil.Time, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second, t.Nanosecond, loc)
}

func sinceMidnight(t civil.Time) time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Nanosecond)
}
