// Package export writes an owner's visit schedule as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

// SheetName is the worksheet holding the schedule.
const SheetName = "Schedule"

// Header is the first row of the schedule sheet.
var Header = []string{
	"Date",
	"Start",
	"End",
	"Type",
	"Capacity",
	"Booked",
	"Available",
	"Visits",
	"Notes",
}

var columnWidths = []float64{12, 8, 8, 12, 10, 8, 10, 30, 30}

// WriteSchedule writes one row per slot, ordered by date and start time.
// The Visits column summarizes booked visits by status.
func WriteSchedule(w io.Writer, p *property.Property, slots []*slot.VisitSlot, visits []*visit.Visit) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing workbook: %w", closeErr)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: "Visit schedule: " + p.Label()}); err != nil {
		return fmt.Errorf("setting document properties: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(Header))
	if err != nil {
		return fmt.Errorf("converting column number: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("converting column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	bySlot := make(map[string][]*visit.Visit)
	for _, v := range visits {
		bySlot[v.SlotID] = append(bySlot[v.SlotID], v)
	}

	row := 2
	for _, g := range slot.GroupByDate(slots) {
		for _, s := range g.Slots {
			values := []any{
				s.Date,
				s.StartTime,
				s.EndTime,
				s.Kind(),
				s.MaxCapacity,
				s.CurrentBookings,
				yesNo(s.IsAvailable),
				summarize(bySlot[s.ID]),
				s.Notes,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return fmt.Errorf("converting coordinates: %w", err)
			}
			if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// summarize renders visit counts by status, e.g. "cancelled: 1, scheduled: 2".
func summarize(visits []*visit.Visit) string {
	if len(visits) == 0 {
		return ""
	}
	counts := make(map[visit.Status]int)
	for _, v := range visits {
		counts[v.Status]++
	}
	parts := make([]string, 0, len(counts))
	for status, n := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", status, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
