package guard

import (
	"errors"
	"testing"
)

func TestGuardBlocksReentry(t *testing.T) {
	g := New()
	if err := g.Enter("event-1"); err != nil {
		t.Fatalf("first enter failed: %v", err)
	}
	if err := g.Enter("event-1"); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}
	if err := g.Enter("event-2"); err != nil {
		t.Fatalf("independent resource should enter: %v", err)
	}
	g.Exit("event-1")
	if err := g.Enter("event-1"); err != nil {
		t.Fatalf("enter after exit failed: %v", err)
	}
}

func TestGuardExitIsIdempotent(t *testing.T) {
	g := New()
	g.Exit("never-entered")
	if err := g.Enter("never-entered"); err != nil {
		t.Fatalf("enter after spurious exit failed: %v", err)
	}
	g.Exit("never-entered")
	g.Exit("never-entered")
	if g.Held("never-entered") {
		t.Fatalf("resource should be released")
	}
}
