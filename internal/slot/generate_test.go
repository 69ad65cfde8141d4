package slot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	drafts, err := Generate(GenerateOptions{
		From:     "2025-01-10", // Friday
		To:       "2025-01-13", // Monday
		DayStart: "09:00",
		DayEnd:   "10:15",
		Duration: 30 * time.Minute,
		Capacity: 3,
		Group:    true,
		Weekdays: []time.Weekday{time.Friday, time.Monday},
	})
	require.NoError(t, err)

	require.Len(t, drafts, 4)
	assert.Equal(t, Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 3, IsGroupVisit: true, IsAvailable: true}, drafts[0])
	assert.Equal(t, "09:30", drafts[1].StartTime)
	assert.Equal(t, "10:00", drafts[1].EndTime)
	assert.Equal(t, "2025-01-13", drafts[2].Date)

	_, err = Validate(drafts)
	assert.NoError(t, err)
}

func TestGenerateDefaults(t *testing.T) {
	drafts, err := Generate(GenerateOptions{
		From: "2025-01-10", To: "2025-01-10",
		DayStart: "18:00", DayEnd: "19:00",
		Duration: time.Hour,
	})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, 1, drafts[0].MaxCapacity)
	assert.False(t, drafts[0].IsGroupVisit)
}

func TestGenerateErrors(t *testing.T) {
	base := GenerateOptions{From: "2025-01-10", To: "2025-01-12", DayStart: "09:00", DayEnd: "12:00", Duration: 30 * time.Minute}

	tests := []struct {
		name   string
		mutate func(o *GenerateOptions)
	}{
		{"bad from", func(o *GenerateOptions) { o.From = "tomorrow" }},
		{"to before from", func(o *GenerateOptions) { o.To = "2025-01-01" }},
		{"range too long", func(o *GenerateOptions) { o.To = "2025-12-31" }},
		{"bad day start", func(o *GenerateOptions) { o.DayStart = "9am" }},
		{"empty window", func(o *GenerateOptions) { o.DayEnd = "09:00" }},
		{"zero duration", func(o *GenerateOptions) { o.Duration = 0 }},
		{"too many slots", func(o *GenerateOptions) {
			o.To = "2025-03-31"
			o.DayStart, o.DayEnd, o.Duration = "00:00", "23:59", 10*time.Minute
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.mutate(&o)
			_, err := Generate(o)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"mon", "Wednesday", " SAT "})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Saturday}, days)

	_, err = ParseWeekdays([]string{"someday"})
	assert.Error(t, err)
}
