// Package visit provides the booked visit domain model and data access.
package visit

import (
	"errors"
	"time"
)

// Status is the outcome of a booked visit.
type Status string

const (
	Scheduled Status = "scheduled"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
	NoShow    Status = "no_show"
)

// ValidStatuses is the set of allowed visit statuses.
var ValidStatuses = []Status{Scheduled, Completed, Cancelled, NoShow}

var (
	ErrNotFound = errors.New("visit not found")
	// ErrNotScheduled is returned when updating a visit that already has an outcome.
	ErrNotScheduled = errors.New("visit is no longer scheduled")
)

// IsValid checks if a visit status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the visit status.
func (s Status) Label() string {
	switch s {
	case Scheduled:
		return "Scheduled"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	case NoShow:
		return "No-show"
	default:
		return string(s)
	}
}

// Visit is a tenant's booking of one visit slot.
type Visit struct {
	ID            string    `json:"id"`
	SlotID        string    `json:"slot_id"`
	ApplicationID string    `json:"application_id"`
	VisitorID     string    `json:"visitor_id"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
