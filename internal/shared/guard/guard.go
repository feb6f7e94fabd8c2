package guard

import (
	"errors"
	"sync"
)

// ErrReentrantCall is returned when a resource is entered while a call chain
// already holds it. Fund-moving use cases treat this as a hard failure.
var ErrReentrantCall = errors.New("reentrant call detected")

// Guard is a per-resource exclusivity flag. Mutating use cases bracket their
// body with Enter/Exit so a nested call triggered mid-operation cannot
// re-enter the same resource before the first call completes.
type Guard struct {
	mu     sync.Mutex
	locked map[string]bool
}

func New() *Guard {
	return &Guard{
		locked: make(map[string]bool),
	}
}

// Enter sets the flag for resource and fails with ErrReentrantCall when the
// flag is already set. Callers must pair every successful Enter with Exit on
// all return paths.
func (g *Guard) Enter(resource string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked[resource] {
		return ErrReentrantCall
	}
	g.locked[resource] = true
	return nil
}

// Exit clears the flag for resource. Clearing an unset flag is a no-op so
// deferred exits on early-error paths stay safe.
func (g *Guard) Exit(resource string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locked, resource)
}

// Held reports whether resource is currently entered.
func (g *Guard) Held(resource string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked[resource]
}
