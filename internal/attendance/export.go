package attendance

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"
)

const (
	// byteOrderMark lets spreadsheet tools detect UTF-8.
	byteOrderMark = "\uFEFF"

	// AbsentTime is written in the time column when there is no check-in.
	AbsentTime = "---"

	reportTimeLayout = "15:04:05"
	reportSheet      = "Attendance"
)

// Labels holds the human-readable text of a report.
type Labels struct {
	Columns  []string
	Statuses map[Status]string
}

var (
	EnglishLabels = Labels{
		Columns: []string{"Attendee ID", "First name", "Last name", "Check-in time", "Status"},
		Statuses: map[Status]string{
			StatusOnTime:     "On time",
			StatusLate:       "Late",
			StatusAbsent:     "Absent",
			StatusOutOfHours: "Out of hours",
		},
	}
	ThaiLabels = Labels{
		Columns: []string{"รหัสนักศึกษา", "ชื่อ", "นามสกุล", "เวลาที่เช็คชื่อ", "สถานะ"},
		Statuses: map[Status]string{
			StatusOnTime:     "ตรงเวลา",
			StatusLate:       "สาย",
			StatusAbsent:     "ขาด",
			StatusOutOfHours: "นอกเวลาเรียน",
		},
	}
)

// LabelsFor returns the label set for a language code ("en" or "th").
func LabelsFor(lang string) (Labels, error) {
	switch strings.ToLower(lang) {
	case "", "en":
		return EnglishLabels, nil
	case "th":
		return ThaiLabels, nil
	}
	return Labels{}, fmt.Errorf("unsupported report language %q", lang)
}

// ReportFormatter renders reconciled records as a downloadable table.
type ReportFormatter struct {
	Location *time.Location
	Labels   Labels
}

// NewReportFormatter builds a formatter printing times in loc.
func NewReportFormatter(loc *time.Location, labels Labels) ReportFormatter {
	return ReportFormatter{Location: loc, Labels: labels}
}

// Format returns a BOM-prefixed CSV document: a header row followed by one
// row per record.
func (f ReportFormatter) Format(records []Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(byteOrderMark)

	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	// writes to a bytes.Buffer cannot fail
	_ = w.WriteAll(f.rows(records))
	return buf.Bytes()
}

// WriteXLSX writes the same table as Format as a single-sheet workbook.
func (f ReportFormatter) WriteXLSX(w io.Writer, records []Record) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, row := range f.rows(records) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(reportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (f ReportFormatter) rows(records []Record) [][]string {
	labels := f.Labels
	if len(labels.Columns) == 0 {
		labels = EnglishLabels
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, labels.Columns)
	for _, r := range records {
		checkedIn := AbsentTime
		if r.Event != nil {
			checkedIn = r.Event.OccurredAt.In(loc).Format(reportTimeLayout)
		}
		label, ok := labels.Statuses[r.Status]
		if !ok {
			label = string(r.Status)
		}
		rows = append(rows, []string{r.Attendee.ID, r.Attendee.FirstName, r.Attendee.LastName, checkedIn, label})
	}
	return rows
}

// ReportFilename names the report file for date, e.g.
// report-attendance-2025-03-14.csv.
func ReportFilename(date civil.Date, ext string) string {
	return fmt.Sprintf("report-attendance-%s.%s", date, strings.TrimPrefix(ext, "."))
}
