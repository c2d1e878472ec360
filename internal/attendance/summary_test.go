package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRecords(t *testing.T) {
	records := reconcile(CheckInEvent{AttendeeID: "S1", OccurredAt: bkk(13, 10, 0)})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"S1", "S2"}},
		{"status", Filter{Status: StatusAbsent}, []string{"S2"}},
		{"first name case-insensitive", Filter{Query: "somCHAI"}, []string{"S1"}},
		{"across first and last", Filter{Query: "malee suk"}, []string{"S2"}},
		{"surrounding spaces", Filter{Query: "  jaidee "}, []string{"S1"}},
		{"query and status", Filter{Query: "malee", Status: StatusOnTime}, []string{}},
		{"no match", Filter{Query: "nobody"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, r := range FilterRecords(records, tt.filter) {
				got = append(got, r.Attendee.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterRecordsThaiNames(t *testing.T) {
	records := []Record{{Attendee: Attendee{ID: "T1", FirstName: "สมชาย", LastName: "ใจดี"}, Status: StatusAbsent}}
	assert.Len(t, FilterRecords(records, Filter{Query: "ใจดี"}), 1)
}

func TestSummarize(t *testing.T) {
	events := []CheckInEvent{
		{ID: "e1", AttendeeID: "S1", OccurredAt: bkk(13, 10, 0)},
		{ID: "e2", AttendeeID: "S1", OccurredAt: bkk(13, 40, 0)},
		{ID: "e3", AttendeeID: "S2", OccurredAt: bkk(17, 0, 0)},
		{ID: "e4", AttendeeID: "S9", OccurredAt: bkk(13, 20, 0)},
		{ID: "e5", AttendeeID: "S2", OccurredAt: bkk(13, 5, 0).AddDate(0, 0, -1)},
	}
	sum := Summarize(DefaultSchedule(ict), roster, events, testDate, 5)

	assert.Equal(t, testDate, sum.Date)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.OnTime, "duplicate scans count once")
	assert.Equal(t, 0, sum.Late)
	assert.Equal(t, 1, sum.Absent, "out-of-hours scan leaves S2 absent")

	require.Len(t, sum.Recent, 3, "unknown attendees and other dates excluded")
	assert.Equal(t, "e3", sum.Recent[0].Event.ID)
	assert.Equal(t, StatusOutOfHours, sum.Recent[0].Status)
	assert.Equal(t, "e2", sum.Recent[1].Event.ID)
	assert.Equal(t, StatusLate, sum.Recent[1].Status)
	assert.Equal(t, "e1", sum.Recent[2].Event.ID)
	assert.Equal(t, "Somchai", sum.Recent[2].Attendee.FirstName)
}

func TestSummarizeCountsMatchReconcile(t *testing.T) {
	events := []CheckInEvent{
		{AttendeeID: "S1", OccurredAt: bkk(13, 45, 0)},
		{AttendeeID: "S2", OccurredAt: bkk(13, 0, 0)},
	}
	sum := Summarize(DefaultSchedule(ict), roster, events, testDate, 0)
	counts := map[Status]int{}
	for _, r := range reconcile(events...) {
		counts[r.Status]++
	}
	assert.Equal(t, counts[StatusOnTime], sum.OnTime)
	assert.Equal(t, counts[StatusLate], sum.Late)
	assert.Equal(t, counts[StatusAbsent], sum.Absent)
	assert.Empty(t, sum.Recent)
}

func TestSummarizeRecentLimit(t *testing.T) {
	var events []CheckInEvent
	for i := 0; i < 10; i++ {
		events = append(events, CheckInEvent{AttendeeID: "S1", OccurredAt: bkk(13, i, 0)})
	}
	sum := Summarize(DefaultSchedule(ict), roster, events, testDate, 3)
	require.Len(t, sum.Recent, 3)
	assert.True(t, sum.Recent[0].Event.OccurredAt.Equal(bkk(13, 9, 0)))
	assert.True(t, sum.Recent[2].Event.OccurredAt.Equal(bkk(13, 7, 0)))
}

func TestActivitiesUnlimited(t *testing.T) {
	var events []CheckInEvent
	for i := 0; i < 12; i++ {
		events = append(events, CheckInEvent{AttendeeID: "S2", OccurredAt: bkk(13, 0, 0).Add(time.Duration(i) * 20 * time.Minute)})
	}
	events = append(events, CheckInEvent{AttendeeID: "S9", OccurredAt: bkk(13, 0, 0)})

	acts := Activities(DefaultSchedule(ict), roster, events, testDate)
	require.Len(t, acts, 12)
	assert.True(t, acts[0].Event.OccurredAt.Equal(bkk(16, 40, 0)))
	assert.Equal(t, StatusOutOfHours, acts[0].Status)
	assert.Equal(t, StatusOnTime, acts[11].Status)
	for i := 1; i < len(acts); i++ {
		assert.False(t, acts[i].Event.OccurredAt.After(acts[i-1].Event.OccurredAt))
	}
}
