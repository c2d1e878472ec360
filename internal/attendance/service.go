package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/metrics"
	"rollcall/internal/queue"
)

var (
	ErrAttendeeRequired = errors.New("attendee id required")
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrAttendeeExists   = errors.New("attendee already registered")
	ErrInvalidAttendee  = errors.New("attendee id, first name and last name are required")
	ErrAlreadyCheckedIn = errors.New("attendee already checked in for this date")
)

// Store is the data-access collaborator. Implementations return
// ErrAttendeeExists and ErrAttendeeNotFound where noted.
type Store interface {
	ListAttendees(ctx context.Context) ([]Attendee, error)
	// GetAttendee returns nil, nil when the attendee does not exist.
	GetAttendee(ctx context.Context, id string) (*Attendee, error)
	CreateAttendee(ctx context.Context, a Attendee) (Attendee, error)
	DeleteAttendee(ctx context.Context, id string) error
	// ListCheckIns returns events with from <= occurred_at < to in
	// insertion order.
	ListCheckIns(ctx context.Context, from, to time.Time) ([]CheckInEvent, error)
	// InsertCheckIn stores evt as the attendee's check-in for date. The
	// check and the write are atomic; a second check-in for the same
	// attendee and date returns ErrAlreadyCheckedIn.
	InsertCheckIn(ctx context.Context, evt CheckInEvent, date civil.Date) (CheckInEvent, error)
}

// Publisher receives accepted check-ins for asynchronous processing.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service joins the store with the reconciliation engine.
type Service struct {
	store     Store
	schedule  Schedule
	publisher Publisher
	now       func() time.Time
}

// NewService creates a service. publisher may be nil.
func NewService(store Store, schedule Schedule, publisher Publisher) *Service {
	return &Service{store: store, schedule: schedule, publisher: publisher, now: time.Now}
}

// Schedule returns the session schedule in use.
func (s *Service) Schedule() Schedule { return s.schedule }

// Today is the current date in the reference timezone.
func (s *Service) Today() civil.Date {
	return s.schedule.DateOf(s.now())
}

// Snapshot fetches the roster and the check-ins of date concurrently. Both
// must succeed; a failure of either fails the call.
func (s *Service) Snapshot(ctx context.Context, date civil.Date) ([]Attendee, []CheckInEvent, error) {
	from, to := s.schedule.DayBounds(date)

	var (
		roster []Attendee
		events []CheckInEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if roster, err = s.store.ListAttendees(gctx); err != nil {
			return fmt.Errorf("fetch roster: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if events, err = s.store.ListCheckIns(gctx, from, to); err != nil {
			return fmt.Errorf("fetch check-ins: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return roster, events, nil
}

// Report returns the reconciled roster for date narrowed by f.
func (s *Service) Report(ctx context.Context, date civil.Date, f Filter) ([]Record, error) {
	roster, events, err := s.Snapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	records := Reconcile(s.schedule, roster, events, date)
	metrics.ObserveReconcile(started, len(roster))
	return FilterRecords(records, f), nil
}

// Dashboard returns the status counts and recent feed for date.
func (s *Service) Dashboard(ctx context.Context, date civil.Date, recent int) (Summary, error) {
	roster, events, err := s.Snapshot(ctx, date)
	if err != nil {
		return Summary{}, err
	}
	started := time.Now()
	sum := Summarize(s.schedule, roster, events, date, recent)
	metrics.ObserveReconcile(started, len(roster))
	return sum, nil
}

// Logs returns every roster check-in of date, newest first.
func (s *Service) Logs(ctx context.Context, date civil.Date) ([]Activity, error) {
	roster, events, err := s.Snapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	return Activities(s.schedule, roster, events, date), nil
}

// CheckIn records a scan for a registered attendee. A zero at means now.
// Only one check-in per attendee per reference-timezone date is stored.
func (s *Service) CheckIn(ctx context.Context, attendeeID, deviceID string, at time.Time) (CheckInEvent, error) {
	attendeeID = strings.TrimSpace(attendeeID)
	if attendeeID == "" {
		return CheckInEvent{}, ErrAttendeeRequired
	}
	if at.IsZero() {
		at = s.now()
	}

	a, err := s.store.GetAttendee(ctx, attendeeID)
	if err != nil {
		metrics.CheckIn("error")
		return CheckInEvent{}, fmt.Errorf("lookup attendee: %w", err)
	}
	if a == nil {
		metrics.CheckIn("unknown")
		return CheckInEvent{}, ErrAttendeeNotFound
	}

	evt, err := s.store.InsertCheckIn(ctx, CheckInEvent{
		AttendeeID: attendeeID,
		DeviceID:   deviceID,
		OccurredAt: at.UTC(),
	}, s.schedule.DateOf(at))
	switch {
	case errors.Is(err, ErrAlreadyCheckedIn):
		metrics.CheckIn("duplicate")
		return CheckInEvent{}, err
	case err != nil:
		metrics.CheckIn("error")
		return CheckInEvent{}, fmt.Errorf("insert check-in: %w", err)
	}
	metrics.CheckIn("accepted")

	if s.publisher != nil {
		msg, err := queue.NewMessage(queue.TypeCheckIn, evt)
		if err == nil {
			err = s.publisher.Publish(ctx, msg)
		}
		if err != nil {
			slog.Warn("check-in publish failed", "event_id", evt.ID, "error", err)
		}
	}
	return evt, nil
}

// Attendees returns the full roster.
func (s *Service) Attendees(ctx context.Context) ([]Attendee, error) {
	return s.store.ListAttendees(ctx)
}

// Register adds an attendee to the roster.
func (s *Service) Register(ctx context.Context, a Attendee) (Attendee, error) {
	a.ID = strings.TrimSpace(a.ID)
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.TrimSpace(a.Email)
	if a.ID == "" || a.FirstName == "" || a.LastName == "" {
		return Attendee{}, ErrInvalidAttendee
	}
	return s.store.CreateAttendee(ctx, a)
}

// Remove deletes an attendee. Their past check-ins are kept.
func (s *Service) Remove(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrAttendeeRequired
	}
	return s.store.DeleteAttendee(ctx, id)
}
