package application

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	legal := map[Status][]Status{
		Pending:        {Approved, Rejected, VisitProposed},
		VisitProposed:  {VisitScheduled},
		VisitScheduled: {VisitCompleted, VisitProposed},
		VisitCompleted: {Selected, Rejected},
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := false
			for _, s := range legal[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s → %s", from, to)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	require.NoError(t, CheckTransition(Pending, VisitProposed))

	err := CheckTransition(Pending, VisitScheduled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "pending → visit_scheduled")
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, Selected.IsTerminal())
	assert.True(t, Rejected.IsTerminal())
	assert.True(t, Approved.IsTerminal())
	assert.False(t, Pending.IsTerminal())
	assert.False(t, VisitScheduled.IsTerminal())
}

func TestNextIsCopy(t *testing.T) {
	next := Pending.Next()
	require.Len(t, next, 3)
	next[0] = Selected
	assert.Equal(t, Approved, Pending.Next()[0])
}

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
		assert.NotEmpty(t, s.Label())
	}

	_, err := ParseStatus("archived")
	assert.Error(t, err)
}
