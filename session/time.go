package session

import (
	"fmt"
	"time"
)

// VODTimestamp returns a human-readable elapsed-time string from stream
// start, e.g. "01h23m45s", used to locate a moment in the recorded broadcast.
// Naive callers may hold a zero-location start; everything is normalized to
// UTC before subtraction.
func VODTimestamp(start, now time.Time) string {
	delta := now.UTC().Sub(start.UTC())
	if delta < 0 {
		delta = 0
	}
	total := int(delta.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02dh%02dm%02ds", hours, minutes, seconds)
}

// FormatDuration renders a stream duration as "{h}h {m}m", or just "{m}m"
// when under an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Minutes())
	hours := total / 60
	minutes := total % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
