// Package streak computes consecutive-day check-in runs.
package streak

import (
	"time"

	"github.com/dakshkumar96/Reclaim/internal/clock"
)

// State is the streak of one (user, challenge) pair.
type State struct {
	Current    int
	Longest    int
	LastActive time.Time
}

// Apply returns the state after a check-in on today. prev is nil for the first
// check-in. Both today and prev.LastActive are calendar days from clock.Calendar.
//
// A check-in on the day after LastActive extends the run; on the same day it
// changes nothing; after a gap, or on a day before LastActive, the run restarts
// at 1. Longest never decreases.
func Apply(prev *State, today time.Time) State {
	if prev == nil {
		return State{Current: 1, Longest: 1, LastActive: today}
	}

	next := *prev
	switch gap := clock.DaysBetween(prev.LastActive, today); {
	case gap == 0:
		return next
	case gap == 1:
		next.Current++
	default:
		next.Current = 1
	}

	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	next.LastActive = today
	return next
}

// Replay folds Apply over days in order.
func Replay(days []time.Time) *State {
	var state *State
	for _, day := range days {
		next := Apply(state, day)
		state = &next
	}
	return state
}
