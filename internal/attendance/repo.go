package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repository persists the roster and check-ins in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListAttendees returns the roster ordered by id.
func (r *Repository) ListAttendees(ctx context.Context) ([]Attendee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, created_at
		FROM attendees
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []Attendee
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.CreatedAt); err != nil {
			return nil, err
		}
		roster = append(roster, a)
	}
	return roster, rows.Err()
}

// GetAttendee returns a single attendee by id.
func (r *Repository) GetAttendee(ctx context.Context, id string) (*Attendee, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, created_at
		FROM attendees WHERE id = $1
	`, id)
	var a Attendee
	if err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CreateAttendee inserts a roster entry.
func (r *Repository) CreateAttendee(ctx context.Context, a Attendee) (Attendee, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendees (id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, a.ID, a.FirstName, a.LastName, a.Email)
	if err := row.Scan(&a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Attendee{}, ErrAttendeeExists
		}
		return Attendee{}, err
	}
	return a, nil
}

// DeleteAttendee removes a roster entry.
func (r *Repository) DeleteAttendee(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAttendeeNotFound
	}
	return nil
}

// ListCheckIns returns events in [from, to) in insertion order.
func (r *Repository) ListCheckIns(ctx context.Context, from, to time.Time) ([]CheckInEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, attendee_id, device_id, occurred_at
		FROM checkins
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY created_at, id
	`, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []CheckInEvent
	for rows.Next() {
		var (
			evt        CheckInEvent
			occurredAt sql.NullInt64
		)
		if err := rows.Scan(&evt.ID, &evt.AttendeeID, &evt.DeviceID, &occurredAt); err != nil {
			return nil, err
		}
		evt.OccurredAt = unixTime(occurredAt)
		events = append(events, evt)
	}
	return events, rows.Err()
}

// InsertCheckIn writes a new event, assigning an id when missing. The
// unique (attendee_id, checkin_date) index rejects a second one for date.
func (r *Repository) InsertCheckIn(ctx context.Context, evt CheckInEvent, date civil.Date) (CheckInEvent, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkins (id, attendee_id, device_id, occurred_at, checkin_date)
		VALUES ($1, $2, $3, $4, $5::date)
	`, evt.ID, evt.AttendeeID, evt.DeviceID, evt.OccurredAt.Unix(), date.String())
	if err != nil {
		if isUniqueViolation(err) {
			return CheckInEvent{}, ErrAlreadyCheckedIn
		}
		return CheckInEvent{}, err
	}
	return evt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// unixTime maps a stored unix-seconds value to an instant. NULL and
// non-positive values become the zero time.
func unixTime(v sql.NullInt64) time.Time {
	if !v.Valid || v.Int64 <= 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}
