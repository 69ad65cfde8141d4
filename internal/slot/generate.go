package slot

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxGenerateDays  = 92
	maxGenerateSlots = 1000
)

// GenerateOptions describes a recurring availability window.
type GenerateOptions struct {
	From     string // first date, YYYY-MM-DD
	To       string // last date, inclusive
	DayStart string // HH:MM
	DayEnd   string // HH:MM
	Duration time.Duration
	Capacity int
	Group    bool
	Weekdays []time.Weekday // empty means every day
}

// Generate cuts each selected date's [DayStart, DayEnd) window into
// back-to-back slots of Duration. A trailing piece shorter than Duration is
// dropped. Nothing is persisted.
func Generate(opts GenerateOptions) ([]Draft, error) {
	from, err := time.Parse(dateLayout, opts.From)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid from date %q", ErrInvalid, opts.From)
	}
	to, err := time.Parse(dateLayout, opts.To)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid to date %q", ErrInvalid, opts.To)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to date is before from date", ErrInvalid)
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxGenerateDays {
		return nil, fmt.Errorf("%w: range of %d days exceeds %d", ErrInvalid, days, maxGenerateDays)
	}

	dayStart, err := time.Parse(clockLayout, opts.DayStart)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid day start %q", ErrInvalid, opts.DayStart)
	}
	dayEnd, err := time.Parse(clockLayout, opts.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid day end %q", ErrInvalid, opts.DayEnd)
	}
	if !dayEnd.After(dayStart) {
		return nil, fmt.Errorf("%w: day end must be after day start", ErrInvalid)
	}
	if opts.Duration < time.Minute {
		return nil, fmt.Errorf("%w: duration must be at least one minute", ErrInvalid)
	}

	capacity := opts.Capacity
	if capacity < 1 {
		capacity = 1
	}

	weekdays := make(map[time.Weekday]bool, len(opts.Weekdays))
	for _, d := range opts.Weekdays {
		weekdays[d] = true
	}

	var drafts []Draft
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if len(weekdays) > 0 && !weekdays[day.Weekday()] {
			continue
		}
		for start := dayStart; !start.Add(opts.Duration).After(dayEnd); start = start.Add(opts.Duration) {
			if len(drafts) == maxGenerateSlots {
				return nil, fmt.Errorf("%w: more than %d slots requested", ErrInvalid, maxGenerateSlots)
			}
			drafts = append(drafts, Draft{
				Date:         day.Format(dateLayout),
				StartTime:    start.Format(clockLayout),
				EndTime:      start.Add(opts.Duration).Format(clockLayout),
				MaxCapacity:  capacity,
				IsGroupVisit: opts.Group,
				IsAvailable:  true,
			})
		}
	}
	return drafts, nil
}

// ParseWeekdays parses short or long English day names ("mon", "Tuesday").
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalid, name)
		}
		out = append(out, d)
	}
	return out, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}
