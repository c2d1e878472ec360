package worker

import (
	"context"
	"log/slog"

	"rollcall/internal/attendance"
	"rollcall/internal/metrics"
	"rollcall/internal/queue"
)

// Classifier consumes check-in messages and classifies each one against
// the session schedule.
type Classifier struct {
	schedule attendance.Schedule
	// observe is called for every classified event.
	observe func(attendance.CheckInEvent, attendance.Status)
}

// New creates a classifier reporting to metrics and the log.
func New(schedule attendance.Schedule) *Classifier {
	return &Classifier{schedule: schedule, observe: record}
}

// Run processes messages from q until ctx is done.
func (w *Classifier) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != queue.TypeCheckIn {
			slog.Debug("skipping message", "type", msg.Type)
			continue
		}
		w.Process(msg)
	}
	return ctx.Err()
}

// Process classifies a single check-in message. Malformed messages are
// logged and dropped.
func (w *Classifier) Process(msg queue.Message) {
	var evt attendance.CheckInEvent
	if err := msg.Decode(&evt); err != nil {
		slog.Warn("undecodable check-in", "error", err)
		return
	}
	if evt.OccurredAt.IsZero() {
		slog.Warn("check-in without timestamp", "event_id", evt.ID, "attendee_id", evt.AttendeeID)
		return
	}

	date := w.schedule.DateOf(evt.OccurredAt)
	w.observe(evt, attendance.Classify(evt.OccurredAt, w.schedule.WindowFor(date)))
}

func record(evt attendance.CheckInEvent, status attendance.Status) {
	metrics.Classified(string(status))
	slog.Info("check-in classified",
		"event_id", evt.ID,
		"attendee_id", evt.AttendeeID,
		"device_id", evt.DeviceID,
		"occurred_at", evt.OccurredAt,
		"status", status,
	)
}
