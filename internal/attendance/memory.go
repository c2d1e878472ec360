package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// MemoryStore is a process-local Store for dev runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	attendees map[string]Attendee
	checkIns  []CheckInEvent
	// checkedIn marks attendee/date pairs that already have a check-in.
	checkedIn map[dayKey]bool
}

type dayKey struct {
	attendeeID string
	date       civil.Date
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attendees: make(map[string]Attendee), checkedIn: make(map[dayKey]bool)}
}

func (m *MemoryStore) ListAttendees(ctx context.Context) ([]Attendee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roster := make([]Attendee, 0, len(m.attendees))
	for _, a := range m.attendees {
		roster = append(roster, a)
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })
	return roster, nil
}

func (m *MemoryStore) GetAttendee(ctx context.Context, id string) (*Attendee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attendees[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryStore) CreateAttendee(ctx context.Context, a Attendee) (Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attendees[a.ID]; ok {
		return Attendee{}, ErrAttendeeExists
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.attendees[a.ID] = a
	return a, nil
}

func (m *MemoryStore) DeleteAttendee(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attendees[id]; !ok {
		return ErrAttendeeNotFound
	}
	delete(m.attendees, id)
	return nil
}

func (m *MemoryStore) ListCheckIns(ctx context.Context, from, to time.Time) ([]CheckInEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []CheckInEvent
	for _, evt := range m.checkIns {
		if within(evt.OccurredAt, from, to) {
			events = append(events, evt)
		}
	}
	return events, nil
}

func (m *MemoryStore) InsertCheckIn(ctx context.Context, evt CheckInEvent, date civil.Date) (CheckInEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dayKey{attendeeID: evt.AttendeeID, date: date}
	if m.checkedIn[key] {
		return CheckInEvent{}, ErrAlreadyCheckedIn
	}
	m.checkedIn[key] = true
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	m.checkIns = append(m.checkIns, evt)
	return evt, nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
