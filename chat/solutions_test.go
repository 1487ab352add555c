package chat

import (
	"testing"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

func TestSolutionURLDetection(t *testing.T) {
	cases := []struct {
		name     string
		msg      string
		wantSlug string
		match    bool
	}{
		{
			name:     "slugged submission link",
			msg:      "just solved it! https://leetcode.com/problems/two-sum/submissions/1234567890",
			wantSlug: "two-sum",
			match:    true,
		},
		{
			name:     "slugged link with trailing slash",
			msg:      "https://leetcode.com/problems/longest-common-subsequence/submissions/42/",
			wantSlug: "longest-common-subsequence",
			match:    true,
		},
		{
			name:  "bare detail link",
			msg:   "my solution: https://leetcode.com/submissions/detail/987654321/",
			match: true,
		},
		{
			name:  "problem page without submission",
			msg:   "https://leetcode.com/problems/two-sum/",
			match: false,
		},
		{
			name:  "no link at all",
			msg:   "solved two-sum in O(n)!",
			match: false,
		},
		{
			name:  "unrelated url",
			msg:   "check https://example.com/problems/two-sum/submissions/1",
			match: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := lcSubmissionSlug.FindStringSubmatch(c.msg)
			bare := lcSubmissionBare.MatchString(c.msg)
			matched := m != nil || bare
			if matched != c.match {
				t.Fatalf("matched = %v, want %v", matched, c.match)
			}
			if c.wantSlug != "" {
				if m == nil {
					t.Fatal("expected slugged match")
				}
				if m[1] != c.wantSlug {
					t.Fatalf("slug = %q, want %q", m[1], c.wantSlug)
				}
			}
		})
	}
}

func TestSolutionURLExtraction(t *testing.T) {
	msg := "gg https://leetcode.com/problems/two-sum/submissions/123 that was fun"
	url := urlPattern.FindString(msg)
	if url != "https://leetcode.com/problems/two-sum/submissions/123" {
		t.Fatalf("extracted url = %q", url)
	}
}

func TestIsPrivileged(t *testing.T) {
	cases := []struct {
		name   string
		badges map[string]int
		want   bool
	}{
		{"broadcaster", map[string]int{"broadcaster": 1}, true},
		{"moderator", map[string]int{"moderator": 1}, true},
		{"subscriber only", map[string]int{"subscriber": 12}, false},
		{"no badges", nil, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msg := twitch.PrivateMessage{User: twitch.User{Badges: c.badges}}
			if got := isPrivileged(msg); got != c.want {
				t.Fatalf("isPrivileged = %v, want %v", got, c.want)
			}
		})
	}
}

func TestCommandCooldownSpecs(t *testing.T) {
	// Command names all have a cooldown spec wired.
	for _, cmd := range []string{"commands", "newvideo", "lc", "project"} {
		if _, ok := cooldowns[cmd]; !ok {
			t.Errorf("command %q has no cooldown spec", cmd)
		}
	}
}
