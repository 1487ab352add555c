package session

import (
	"testing"
	"time"
)

func TestVODTimestamp(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		now  time.Time
		want string
	}{
		{start, "00h00m00s"},
		{start.Add(45 * time.Second), "00h00m45s"},
		{start.Add(5*time.Minute + 3*time.Second), "00h05m03s"},
		{start.Add(time.Hour + 23*time.Minute + 45*time.Second), "01h23m45s"},
		{start.Add(12*time.Hour + 34*time.Minute + 56*time.Second), "12h34m56s"},
		// Clock skew never produces a negative timestamp.
		{start.Add(-time.Minute), "00h00m00s"},
	}
	for _, c := range cases {
		if got := VODTimestamp(start, c.now); got != c.want {
			t.Errorf("VODTimestamp(+%v) = %q, want %q", c.now.Sub(start), got, c.want)
		}
	}
}

func TestVODTimestampMixedLocations(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Second).In(loc)
	if got := VODTimestamp(start, now); got != "00h01m30s" {
		t.Fatalf("VODTimestamp across zones = %q, want 00h01m30s", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m"},
		{42 * time.Second, "0m"},
		{5 * time.Minute, "5m"},
		{59 * time.Minute, "59m"},
		{time.Hour, "1h 0m"},
		{3*time.Hour + 27*time.Minute, "3h 27m"},
		{-time.Minute, "0m"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
