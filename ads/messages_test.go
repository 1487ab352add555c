package ads

import (
	"strings"
	"testing"
)

func TestPickAdMessageMembership(t *testing.T) {
	static := make(map[string]bool, len(staticPool))
	for _, m := range staticPool {
		static[m] = true
	}

	// Random choice: sample until every outcome class is observed.
	sawSilent, sawStatic := false, false
	for i := 0; i < 500 && !(sawSilent && sawStatic); i++ {
		msg := PickAdMessage(nil)
		switch {
		case msg == "":
			sawSilent = true
		case static[msg]:
			sawStatic = true
		default:
			t.Fatalf("PickAdMessage(nil) returned unknown message %q", msg)
		}
	}
	if !sawSilent || !sawStatic {
		t.Fatalf("expected both silent and static outcomes (silent=%v static=%v)", sawSilent, sawStatic)
	}
}

func TestPickAdMessageWithLatestVideo(t *testing.T) {
	latest := &LatestVideo{Title: "Ep 42", URL: "https://youtu.be/abc"}
	sawPromo := false
	for i := 0; i < 2000 && !sawPromo; i++ {
		msg := PickAdMessage(latest)
		if strings.Contains(msg, latest.URL) {
			if !strings.Contains(msg, latest.Title) {
				t.Fatalf("promo message missing title: %q", msg)
			}
			sawPromo = true
		}
	}
	if !sawPromo {
		t.Fatal("promo message for latest video never selected")
	}
}

func TestPickReturnMessage(t *testing.T) {
	pool := make(map[string]bool, len(returnPool))
	for _, m := range returnPool {
		pool[m] = true
	}
	for i := 0; i < 50; i++ {
		if msg := PickReturnMessage(); !pool[msg] {
			t.Fatalf("PickReturnMessage() = %q, not in the return pool", msg)
		}
	}
}
