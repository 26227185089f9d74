// Package timers provides a single-concern timer handle.
//
// Each state machine concern (pause confirmation, interruption cooldown,
// restart backoff, sentence pause) owns exactly one Resettable, so cancelling
// that concern is one well-defined operation instead of a scattered set of
// stop calls.
package timers

import (
	"sync"
	"time"
)

// Resettable owns at most one pending timer. Scheduling replaces any pending
// timer, and a callback from a superseded schedule never fires.
//
// The zero value is ready to use.
type Resettable struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// Schedule arms the timer to run callback after delay, cancelling any
// previously pending callback. The callback runs on its own goroutine; callers
// that guard shared state must revalidate it inside the callback.
func (t *Resettable) Schedule(delay time.Duration, callback func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}

	t.generation++
	generation := t.generation
	t.timer = time.AfterFunc(delay, func() {
		if !t.claim(generation) {
			return
		}
		callback()
	})
}

// Cancel stops any pending callback. Cancelling an idle handle is a no-op.
func (t *Resettable) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.generation++
}

// Pending reports whether a callback is currently scheduled and unclaimed.
func (t *Resettable) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.timer != nil
}

// claim marks the scheduled callback as fired if it has not been superseded.
func (t *Resettable) claim(generation uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if generation != t.generation {
		return false
	}

	t.timer = nil
	return true
}
