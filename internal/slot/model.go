// Package slot provides bookable visit time windows: the slot model,
// time-of-day filtering, date grouping, the slot editor and data access.
package slot

import (
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	ErrNotFound    = errors.New("visit slot not found")
	ErrFull        = errors.New("visit slot is full")
	ErrUnavailable = errors.New("visit slot is not available")
	ErrHasBookings = errors.New("visit slot has bookings")
	ErrInvalid     = errors.New("invalid visit slot")

	// ErrCapacityBelowBookings is returned when an edit would leave
	// current_bookings above max_capacity.
	ErrCapacityBelowBookings = errors.New("max capacity is below current bookings")
	// ErrBookedSlotMoved is returned when an edit changes the date or times
	// of a slot that visitors have booked.
	ErrBookedSlotMoved = errors.New("visit slot with bookings cannot be moved")
	ErrNoBookings      = errors.New("visit slot has no bookings")
)

// VisitSlot is a bookable time window for a property.
type VisitSlot struct {
	ID              string    `json:"id"`
	PropertyID      int64     `json:"property_id"`
	Date            string    `json:"date"`       // YYYY-MM-DD
	StartTime       string    `json:"start_time"` // HH:MM
	EndTime         string    `json:"end_time"`   // HH:MM
	MaxCapacity     int       `json:"max_capacity"`
	CurrentBookings int       `json:"current_bookings"`
	IsGroupVisit    bool      `json:"is_group_visit"`
	IsAvailable     bool      `json:"is_available"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Start returns the slot's start instant in loc.
func (s *VisitSlot) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+clockLayout, s.Date+" "+s.StartTime, loc)
}

// Remaining returns how many more bookings the slot accepts.
func (s *VisitSlot) Remaining() int {
	if n := s.MaxCapacity - s.CurrentBookings; n > 0 {
		return n
	}
	return 0
}

// Bookable reports whether the slot can take a booking at now: it is marked
// available, has spare capacity and starts in the future.
func (s *VisitSlot) Bookable(now time.Time, loc *time.Location) bool {
	if !s.IsAvailable || s.CurrentBookings >= s.MaxCapacity {
		return false
	}
	start, err := s.Start(loc)
	if err != nil {
		return false
	}
	return start.After(now)
}

// Kind returns "group" or "individual".
func (s *VisitSlot) Kind() string {
	if s.IsGroupVisit {
		return string(KindGroup)
	}
	return string(KindIndividual)
}

// NormalizeClock parses "9:00", "09:00" or "09:00:00" and returns "09:00".
func NormalizeClock(s string) (string, error) {
	for _, layout := range []string{clockLayout, "15:04:05", "3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clockLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time %q (use HH:MM)", s)
}

// FilterBookable returns the slots that are bookable at now.
func FilterBookable(slots []*VisitSlot, now time.Time, loc *time.Location) []*VisitSlot {
	out := make([]*VisitSlot, 0, len(slots))
	for _, s := range slots {
		if s.Bookable(now, loc) {
			out = append(out, s)
		}
	}
	return out
}
