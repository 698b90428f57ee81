package models

import (
	"fmt"
	"strings"
	"time"
)

// MinutesPerDay bounds a same-day course window.
const MinutesPerDay = 24 * 60

// Clock is a wall-clock time of day expressed in minutes since midnight.
type Clock int

var clockLayouts = []string{"15:04", "15:04:05"}

// ParseClock accepts "HH:mm" and the "HH:mm:ss" form returned by Postgres time columns.
func ParseClock(raw string) (Clock, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:mm", raw)
}

// Add returns the clock shifted by the given minutes. The result is not wrapped at midnight.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// String renders the clock as HH:mm.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a half-open [Start, End) interval on a single day.
type Window struct {
	Start Clock
	End   Clock
}

// Overlaps reports whether both windows share an interior point. Windows that only touch do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}
