package ads

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 30},
		{15, 30},
		{29, 30},
		{30, 30},
		{31, 30},
		{59, 30},
		{60, 60},
		{89, 60},
		{90, 90},
		{119, 90},
		{120, 120},
		{150, 150},
		{179, 150},
		{180, 180},
		{181, 180},
		{3600, 180},
	}
	for _, c := range cases {
		if got := Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestClampAlwaysAllowed(t *testing.T) {
	allowed := map[int]bool{30: true, 60: true, 90: true, 120: true, 150: true, 180: true}
	for s := -10; s <= 400; s++ {
		got := Clamp(s)
		if !allowed[got] {
			t.Fatalf("Clamp(%d) = %d, not an accepted duration", s, got)
		}
		if s >= 30 && got > s {
			t.Fatalf("Clamp(%d) = %d, exceeds requested length", s, got)
		}
	}
}

func TestMaxDuration(t *testing.T) {
	if got := MaxDuration(); got != 180 {
		t.Fatalf("MaxDuration() = %d, want 180", got)
	}
}
