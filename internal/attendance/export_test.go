package attendance

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func parseReport(t *testing.T, doc []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(doc, []byte("\xEF\xBB\xBF")), "report must start with a UTF-8 BOM")
	rows, err := csv.NewReader(bytes.NewReader(doc[3:])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestFormat(t *testing.T) {
	records := reconcile(CheckInEvent{AttendeeID: "S1", OccurredAt: bkk(13, 10, 5)})
	doc := NewReportFormatter(ict, EnglishLabels).Format(records)

	rows := parseReport(t, doc)
	require.Len(t, rows, len(roster)+1)
	assert.Equal(t, EnglishLabels.Columns, rows[0])
	assert.Equal(t, []string{"S1", "Somchai", "Jaidee", "13:10:05", "On time"}, rows[1])
	assert.Equal(t, []string{"S2", "Malee", "Suksai", AbsentTime, "Absent"}, rows[2])
	assert.True(t, strings.HasSuffix(string(doc), "\r\n"))
}

func TestFormatTimeInReferenceZone(t *testing.T) {
	records := reconcile(CheckInEvent{AttendeeID: "S2", OccurredAt: bkk(14, 0, 0).UTC()})
	rows := parseReport(t, NewReportFormatter(ict, EnglishLabels).Format(records))
	assert.Equal(t, "14:00:00", rows[2][3])
	assert.Equal(t, "Late", rows[2][4])
}

func TestFormatQuotesFields(t *testing.T) {
	records := []Record{{
		Attendee: Attendee{ID: "S3", FirstName: `Anna, "Jr"`, LastName: "O'Neil"},
		Status:   StatusAbsent,
	}}
	doc := NewReportFormatter(ict, EnglishLabels).Format(records)

	assert.Contains(t, string(doc), `"Anna, ""Jr"""`)
	rows := parseReport(t, doc)
	assert.Equal(t, `Anna, "Jr"`, rows[1][1])
}

func TestFormatThaiLabels(t *testing.T) {
	records := reconcile(CheckInEvent{AttendeeID: "S1", OccurredAt: bkk(13, 40, 0)})
	rows := parseReport(t, NewReportFormatter(ict, ThaiLabels).Format(records))
	assert.Equal(t, "รหัสนักศึกษา", rows[0][0])
	assert.Equal(t, "สาย", rows[1][4])
	assert.Equal(t, "ขาด", rows[2][4])
}

func TestFormatEmpty(t *testing.T) {
	rows := parseReport(t, ReportFormatter{}.Format(nil))
	assert.Equal(t, [][]string{EnglishLabels.Columns}, rows)
}

func TestRoundTripRowCount(t *testing.T) {
	big := make([]Attendee, 0, 50)
	for i := 0; i < 50; i++ {
		big = append(big, Attendee{ID: string(rune('A'+i%26)) + strings.Repeat("x", i), FirstName: "F", LastName: "L"})
	}
	records := Reconcile(DefaultSchedule(ict), big, nil, testDate)
	rows := parseReport(t, NewReportFormatter(ict, EnglishLabels).Format(records))
	require.Len(t, rows, len(big)+1)
	for _, row := range rows[1:] {
		assert.Equal(t, AbsentTime, row[3])
	}
}

func TestWriteXLSX(t *testing.T) {
	records := reconcile(CheckInEvent{AttendeeID: "S1", OccurredAt: bkk(13, 10, 0)})
	var buf bytes.Buffer
	require.NoError(t, NewReportFormatter(ict, EnglishLabels).WriteXLSX(&buf, records))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"S1", "Somchai", "Jaidee", "13:10:00", "On time"}, rows[1])
	assert.Equal(t, AbsentTime, rows[2][3])
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "report-attendance-2025-03-14.csv", ReportFilename(testDate, "csv"))
	assert.Equal(t, "report-attendance-2025-03-14.xlsx", ReportFilename(testDate, ".xlsx"))
}

func TestLabelsFor(t *testing.T) {
	l, err := LabelsFor("TH")
	require.NoError(t, err)
	assert.Equal(t, ThaiLabels.Columns, l.Columns)
	_, err = LabelsFor("de")
	assert.Error(t, err)
}
