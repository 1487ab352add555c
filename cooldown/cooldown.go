// Package cooldown rate-limits chat commands with in-memory timers. State is
// process-lifetime only: cooldowns are a UX throttle, not a security control,
// so losing them on restart is fine.
package cooldown

import (
	"sync"
	"time"
)

// Spec is the throttle for one command. Both timers must be clear for the
// command to proceed: the global one stops chat-wide spam regardless of who
// is asking, the per-user one stops a single viewer hammering it.
type Spec struct {
	Global  time.Duration
	PerUser time.Duration
}

// Gate tracks last-use times per command, globally and per user. Safe for
// concurrent use. Comparisons go through time.Since, which uses the
// monotonic reading, so wall-clock adjustments cannot skew them.
type Gate struct {
	mu         sync.Mutex
	globalLast map[string]time.Time
	userLast   map[string]map[string]time.Time
}

func NewGate() *Gate {
	return &Gate{
		globalLast: make(map[string]time.Time),
		userLast:   make(map[string]map[string]time.Time),
	}
}

// Check reports whether the command is on cooldown and should be silently
// blocked for this user.
func (g *Gate) Check(cmd, userID string, spec Spec) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.globalLast[cmd]; ok && time.Since(last) < spec.Global {
		return true
	}
	if last, ok := g.userLast[cmd][userID]; ok && time.Since(last) < spec.PerUser {
		return true
	}
	return false
}

// Record stamps the command as just used by this user.
func (g *Gate) Record(cmd, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.globalLast[cmd] = now
	if g.userLast[cmd] == nil {
		g.userLast[cmd] = make(map[string]time.Time)
	}
	g.userLast[cmd][userID] = now
}
