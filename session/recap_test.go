package session

import (
	"strings"
	"testing"
)

func TestRecapSummaryMinimal(t *testing.T) {
	r := &Recap{Duration: "45m"}
	if got := r.Summary(); got != "Stream lasted 45m" {
		t.Fatalf("Summary() = %q", got)
	}
}

func TestRecapSummaryFull(t *testing.T) {
	r := &Recap{
		Duration:    "2h 10m",
		PeakViewers: 31,
		Attempts: []ProblemAttempt{
			{Title: "1. Two Sum", Difficulty: "Easy", VODTimestamp: "00h12m00s"},
			{Title: "42. Trapping Rain Water", Difficulty: "Hard"},
		},
		Projects: []ProjectLog{
			{Title: "boneless-couch", VODTimestamp: "01h00m00s"},
		},
	}
	got := r.Summary()
	for _, want := range []string{
		"Stream lasted 2h 10m · peak 31 viewers",
		"Problems:",
		"• 1. Two Sum (Easy) @ 00h12m00s",
		"• 42. Trapping Rain Water (Hard)",
		"Projects:",
		"• boneless-couch @ 01h00m00s",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q in:\n%s", want, got)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("Summary() has trailing newline")
	}
}
