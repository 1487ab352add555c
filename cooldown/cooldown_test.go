package cooldown

import (
	"testing"
	"time"
)

func TestGateBlocksWithinPerUserWindow(t *testing.T) {
	g := NewGate()
	spec := Spec{Global: 0, PerUser: time.Hour}

	if g.Check("lc", "alice", spec) {
		t.Fatal("fresh gate blocked a command")
	}
	g.Record("lc", "alice")
	if !g.Check("lc", "alice", spec) {
		t.Fatal("command not blocked within per-user window")
	}
	// A different viewer is unaffected when the global window is zero.
	if g.Check("lc", "bob", spec) {
		t.Fatal("per-user cooldown leaked to another user")
	}
	// A different command is unaffected.
	if g.Check("project", "alice", spec) {
		t.Fatal("cooldown leaked to another command")
	}
}

func TestGateGlobalWindowBlocksEveryone(t *testing.T) {
	g := NewGate()
	spec := Spec{Global: time.Hour, PerUser: 0}

	g.Record("ad", "alice")
	if !g.Check("ad", "alice", spec) {
		t.Fatal("global cooldown did not block the original user")
	}
	if !g.Check("ad", "bob", spec) {
		t.Fatal("global cooldown did not block another user")
	}
}

func TestGateExpires(t *testing.T) {
	g := NewGate()
	spec := Spec{Global: 10 * time.Millisecond, PerUser: 10 * time.Millisecond}

	g.Record("commands", "alice")
	time.Sleep(20 * time.Millisecond)
	if g.Check("commands", "alice", spec) {
		t.Fatal("cooldown still active after both windows elapsed")
	}
}
