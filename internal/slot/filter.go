package slot

import (
	"fmt"
	"sort"
)

// TimeOfDay is the bucket a slot falls into by start time.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // before 12:00
	Afternoon TimeOfDay = "afternoon" // 12:00 to 16:59
	Evening   TimeOfDay = "evening"   // 17:00 and later
)

// Bucket boundaries, inclusive lower bounds.
const (
	afternoonStart = "12:00"
	eveningStart   = "17:00"
)

// BucketOf returns the time-of-day bucket for a start time. Every start time
// maps to exactly one bucket.
func BucketOf(startTime string) TimeOfDay {
	clock, err := NormalizeClock(startTime)
	if err != nil {
		clock = startTime
	}
	switch {
	case clock < afternoonStart:
		return Morning
	case clock < eveningStart:
		return Afternoon
	default:
		return Evening
	}
}

// Kind selects individual or group visits.
type Kind string

const (
	KindAll        Kind = "all"
	KindIndividual Kind = "individual"
	KindGroup      Kind = "group"
)

// TimeAll disables time-of-day filtering.
const TimeAll TimeOfDay = "all"

// Filter narrows a slot list by time of day and visit kind.
// Zero values mean "all".
type Filter struct {
	Time TimeOfDay `json:"time"`
	Kind Kind      `json:"type"`
}

// ParseFilter builds a Filter from query-string values.
func ParseFilter(timeOfDay, kind string) (Filter, error) {
	f := Filter{Time: TimeOfDay(timeOfDay), Kind: Kind(kind)}
	switch f.Time {
	case "", TimeAll, Morning, Afternoon, Evening:
	default:
		return Filter{}, fmt.Errorf("%w: time filter %q (all, morning, afternoon, evening)", ErrInvalid, timeOfDay)
	}
	switch f.Kind {
	case "", KindAll, KindIndividual, KindGroup:
	default:
		return Filter{}, fmt.Errorf("%w: type filter %q (all, individual, group)", ErrInvalid, kind)
	}
	return f, nil
}

// Match reports whether s passes the filter.
func (f Filter) Match(s *VisitSlot) bool {
	if f.Time != "" && f.Time != TimeAll && BucketOf(s.StartTime) != f.Time {
		return false
	}
	switch f.Kind {
	case KindIndividual:
		return !s.IsGroupVisit
	case KindGroup:
		return s.IsGroupVisit
	}
	return true
}

// Apply returns the slots matching f, preserving order.
func (f Filter) Apply(slots []*VisitSlot) []*VisitSlot {
	out := make([]*VisitSlot, 0, len(slots))
	for _, s := range slots {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

// expandedGroups is how many leading date groups are shown expanded.
const expandedGroups = 3

// DateGroup is the slots sharing one calendar date.
type DateGroup struct {
	Date     string       `json:"date"`
	Expanded bool         `json:"expanded"`
	Slots    []*VisitSlot `json:"slots"`
}

// GroupByDate partitions slots by date. Groups are ordered by date and slots
// within a group by start time, then id. The first three
// groups are marked expanded.
func GroupByDate(slots []*VisitSlot) []DateGroup {
	sorted := make([]*VisitSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].ID < sorted[j].ID
	})

	groups := make([]DateGroup, 0)
	for _, s := range sorted {
		if n := len(groups); n > 0 && groups[n-1].Date == s.Date {
			groups[n-1].Slots = append(groups[n-1].Slots, s)
			continue
		}
		groups = append(groups, DateGroup{
			Date:     s.Date,
			Expanded: len(groups) < expandedGroups,
			Slots:    []*VisitSlot{s},
		})
	}
	return groups
}
