// Package guard serializes publishing jobs.
//
// Only one guarded operation runs at a time across all names, and a name that
// completed successfully is not run again until its cooldown has passed.
// State lives in memory only.
package guard

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum time between two successful runs of the same operation.
const DefaultCooldown = 5 * time.Minute

// Guard is the process-wide publishing lock with per-name cooldowns.
type Guard struct {
	mu       sync.Mutex
	busy     bool
	running  string
	lastDone map[string]time.Time

	cooldown time.Duration
	now      func() time.Time
}

// New creates a guard. cooldown <= 0 uses DefaultCooldown; nil now uses time.Now.
func New(cooldown time.Duration, now func() time.Time) *Guard {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Guard{
		lastDone: map[string]time.Time{},
		cooldown: cooldown,
		now:      now,
	}
}

// Do runs fn under the guard.
//
// It returns ran=false (and a nil error) when fn was skipped because another
// operation is running or name is still cooling down. The running flag is
// cleared even if fn panics.
func (g *Guard) Do(name string, fn func() error) (ran bool, err error) {
	if !g.acquire(name) {
		return false, nil
	}
	defer g.release()

	if err := fn(); err != nil {
		return true, err
	}
	g.mu.Lock()
	g.lastDone[name] = g.now()
	g.mu.Unlock()
	return true, nil
}

func (g *Guard) acquire(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	if last, ok := g.lastDone[name]; ok && g.now().Sub(last) < g.cooldown {
		return false
	}
	g.busy, g.running = true, name
	return true
}

func (g *Guard) release() {
	g.mu.Lock()
	g.busy, g.running = false, ""
	g.mu.Unlock()
}

// Running returns the name of the operation in flight, or "".
func (g *Guard) Running() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// LastDone returns when name last completed successfully.
func (g *Guard) LastDone(name string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.lastDone[name]
	return t, ok
}

// SetCooldown changes the cooldown for future calls.
func (g *Guard) SetCooldown(d time.Duration) {
	if d <= 0 {
		d = DefaultCooldown
	}
	g.mu.Lock()
	g.cooldown = d
	g.mu.Unlock()
}
