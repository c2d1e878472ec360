package store

import (
	"context"
	"fmt"
)

// occurred_at is unix seconds; NULL means the scan carried no usable time.
const schema = `
CREATE TABLE IF NOT EXISTS attendees (
	id          TEXT PRIMARY KEY,
	first_name  TEXT NOT NULL,
	last_name   TEXT NOT NULL,
	email       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS checkins (
	id           UUID PRIMARY KEY,
	attendee_id  TEXT NOT NULL,
	device_id    TEXT NOT NULL DEFAULT '',
	occurred_at  BIGINT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- one check-in per attendee per reference-timezone date
ALTER TABLE checkins ADD COLUMN IF NOT EXISTS checkin_date DATE;
CREATE UNIQUE INDEX IF NOT EXISTS ux_checkins_attendee_date ON checkins (attendee_id, checkin_date);

CREATE INDEX IF NOT EXISTS idx_checkins_occurred ON checkins (occurred_at);
`

// Migrate creates the tables when they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
