// Package application tracks rental applications and their lifecycle from
// submission through visit scheduling to the owner's decision.
package application

import (
	"errors"
	"fmt"
)

// Status is an application lifecycle state.
type Status string

const (
	Pending        Status = "pending"
	Approved       Status = "approved"
	Rejected       Status = "rejected"
	VisitProposed  Status = "visit_proposed"
	VisitScheduled Status = "visit_scheduled"
	VisitCompleted Status = "visit_completed"
	Selected       Status = "selected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{Pending, Approved, Rejected, VisitProposed, VisitScheduled, VisitCompleted, Selected}

var (
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStaleStatus means the application changed status after it was read.
	ErrStaleStatus = errors.New("application status changed concurrently")
	ErrDuplicate   = errors.New("tenant already applied to this property")
)

// transitions is the legal state machine. visit_scheduled may fall back to
// visit_proposed when the booked visit is cancelled.
var transitions = map[Status][]Status{
	Pending:        {Approved, Rejected, VisitProposed},
	VisitProposed:  {VisitScheduled},
	VisitScheduled: {VisitCompleted, VisitProposed},
	VisitCompleted: {Selected, Rejected},
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid application status %q", s)
	}
	return st, nil
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from s in one step.
func (s Status) Next() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Label returns a human-readable label.
func (s Status) Label() string {
	switch s {
	case Pending:
		return "Pending"
	case Approved:
		return "Approved"
	case Rejected:
		return "Rejected"
	case VisitProposed:
		return "Visit proposed"
	case VisitScheduled:
		return "Visit scheduled"
	case VisitCompleted:
		return "Visit completed"
	case Selected:
		return "Selected"
	default:
		return string(s)
	}
}

// CanTransition reports whether from → to is legal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition for an illegal pair.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}
	return nil
}
