package slot

import (
	"fmt"
	"strconv"
	"time"
)

// Draft is an editable slot row. Rows carrying an ID update the persisted
// slot on save; rows without one are inserted.
type Draft struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Date         string `json:"date" yaml:"date"`
	StartTime    string `json:"start_time" yaml:"start_time"`
	EndTime      string `json:"end_time" yaml:"end_time"`
	MaxCapacity  int    `json:"max_capacity" yaml:"max_capacity"`
	IsGroupVisit bool   `json:"is_group_visit" yaml:"is_group_visit"`
	IsAvailable  bool   `json:"is_available" yaml:"is_available"`
	Notes        string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// DraftOf returns an editable copy of a persisted slot.
func DraftOf(s *VisitSlot) Draft {
	return Draft{
		ID:           s.ID,
		Date:         s.Date,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		MaxCapacity:  s.MaxCapacity,
		IsGroupVisit: s.IsGroupVisit,
		IsAvailable:  s.IsAvailable,
		Notes:        s.Notes,
	}
}

// Editable field names accepted by UpdateSlot.
const (
	FieldDate         = "date"
	FieldStartTime    = "start_time"
	FieldEndTime      = "end_time"
	FieldMaxCapacity  = "max_capacity"
	FieldIsGroupVisit = "is_group_visit"
	FieldIsAvailable  = "is_available"
	FieldNotes        = "notes"
)

// Editor holds slot rows while an owner edits them. Nothing is validated
// until the rows are saved.
type Editor struct {
	rows []Draft
	loc  *time.Location
	now  func() time.Time
}

// NewEditor returns an editor seeded with existing slots.
func NewEditor(existing []*VisitSlot, loc *time.Location) *Editor {
	if loc == nil {
		loc = time.Local
	}
	e := &Editor{loc: loc, now: time.Now}
	for _, s := range existing {
		e.rows = append(e.rows, DraftOf(s))
	}
	return e
}

// AddSlot appends a default row: today, 09:00 to 09:30, one individual place.
func (e *Editor) AddSlot() int {
	e.rows = append(e.rows, Draft{
		Date:        e.now().In(e.loc).Format(dateLayout),
		StartTime:   "09:00",
		EndTime:     "09:30",
		MaxCapacity: 1,
		IsAvailable: true,
	})
	return len(e.rows) - 1
}

// UpdateSlot sets one field of the row at index, coercing value to the
// field's type.
func (e *Editor) UpdateSlot(index int, field, value string) error {
	if err := e.checkIndex(index); err != nil {
		return err
	}
	row := &e.rows[index]
	switch field {
	case FieldDate:
		row.Date = value
	case FieldStartTime:
		row.StartTime = value
	case FieldEndTime:
		row.EndTime = value
	case FieldMaxCapacity:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			n = 1
		}
		row.MaxCapacity = n
	case FieldIsGroupVisit:
		row.IsGroupVisit = parseBool(value)
	case FieldIsAvailable:
		row.IsAvailable = parseBool(value)
	case FieldNotes:
		row.Notes = value
	default:
		return fmt.Errorf("unknown slot field %q", field)
	}
	return nil
}

// RemoveSlot deletes the row at index.
func (e *Editor) RemoveSlot(index int) error {
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.rows = append(e.rows[:index], e.rows[index+1:]...)
	return nil
}

// Append adds rows, e.g. from Generate.
func (e *Editor) Append(rows ...Draft) {
	e.rows = append(e.rows, rows...)
}

// Slots returns a snapshot of the rows.
func (e *Editor) Slots() []Draft {
	out := make([]Draft, len(e.rows))
	copy(out, e.rows)
	return out
}

// Len returns the number of rows.
func (e *Editor) Len() int { return len(e.rows) }

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.rows) {
		return fmt.Errorf("slot index %d out of range (%d rows)", index, len(e.rows))
	}
	return nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
