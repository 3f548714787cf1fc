// Package common provides shared timing helpers.
package common

import (
	"fmt"
	"time"
)

// Timer measures a run and the laps inside it, such as relaxation passes.
type Timer struct {
	start    time.Time
	lap      time.Time
	name     string
	laps     []time.Duration
	duration time.Duration
	now      func() time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return NewNamedTimer("")
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return newTimer(name, time.Now)
}

func newTimer(name string, now func() time.Time) *Timer {
	t := now()
	return &Timer{name: name, start: t, lap: t, now: now}
}

// Lap records and returns the time since the previous lap (or the start).
func (t *Timer) Lap() time.Duration {
	n := t.now()
	d := n.Sub(t.lap)
	t.lap = n
	t.laps = append(t.laps, d)
	return d
}

// Laps returns a copy of every recorded lap.
func (t *Timer) Laps() []time.Duration {
	return append([]time.Duration(nil), t.laps...)
}

// Stop stops the timer and returns the total elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = t.now().Sub(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v (%d laps)", t.name, t.duration, len(t.laps))
	}
	return fmt.Sprintf("%v (%d laps)", t.duration, len(t.laps))
}
