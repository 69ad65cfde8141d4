package slot

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidationError lists every problem found in a set of drafts.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid visit slots: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validate checks each draft and rejects overlapping ranges on the same
// date. It returns the drafts with times normalized to HH:MM. Rows are
// numbered from 1 in problem messages.
func Validate(drafts []Draft) ([]Draft, error) {
	out := make([]Draft, len(drafts))
	var problems []string
	seen := make(map[string]int)

	for i, d := range drafts {
		row := i + 1
		if d.ID != "" {
			if prev, ok := seen[d.ID]; ok {
				problems = append(problems, fmt.Sprintf("slot %d: duplicate id (also slot %d)", row, prev))
			}
			seen[d.ID] = row
		}
		if _, err := time.Parse(dateLayout, d.Date); err != nil {
			problems = append(problems, fmt.Sprintf("slot %d: invalid date %q (use YYYY-MM-DD)", row, d.Date))
		}
		start, startErr := NormalizeClock(d.StartTime)
		if startErr != nil {
			problems = append(problems, fmt.Sprintf("slot %d: invalid start time %q", row, d.StartTime))
		}
		end, endErr := NormalizeClock(d.EndTime)
		if endErr != nil {
			problems = append(problems, fmt.Sprintf("slot %d: invalid end time %q", row, d.EndTime))
		}
		if startErr == nil && endErr == nil && end <= start {
			problems = append(problems, fmt.Sprintf("slot %d: end time must be after start time", row))
		}
		if d.MaxCapacity < 1 {
			problems = append(problems, fmt.Sprintf("slot %d: capacity must be at least 1", row))
		}
		d.StartTime, d.EndTime = start, end
		out[i] = d
	}

	if len(problems) == 0 {
		problems = append(problems, overlaps(out)...)
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return out, nil
}

// overlaps reports pairs of drafts whose ranges intersect on the same date.
// Back-to-back ranges (one ends when the next starts) do not overlap.
func overlaps(drafts []Draft) []string {
	idx := make([]int, len(drafts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := drafts[idx[a]], drafts[idx[b]]
		if da.Date != db.Date {
			return da.Date < db.Date
		}
		return da.StartTime < db.StartTime
	})

	var problems []string
	for k := 1; k < len(idx); k++ {
		// Any overlap implies one between neighbours in start order.
		prev, cur := idx[k-1], idx[k]
		if drafts[prev].Date != drafts[cur].Date {
			continue
		}
		if drafts[cur].StartTime < drafts[prev].EndTime {
			problems = append(problems, fmt.Sprintf("slots %d and %d overlap on %s",
				min(prev, cur)+1, max(prev, cur)+1, drafts[cur].Date))
		}
		if drafts[prev].EndTime > drafts[cur].EndTime {
			idx[k] = prev
		}
	}
	return problems
}
