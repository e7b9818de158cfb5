package party

import (
	"strings"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler is the engine's source of time. Callbacks run on their own
// goroutine and must take the engine lock themselves.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

// SystemScheduler returns a Scheduler backed by the time package.
func SystemScheduler() Scheduler {
	return systemScheduler{}
}

func (systemScheduler) Now() time.Time {
	return time.Now()
}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type timerEntry struct {
	gen   uint64
	timer Timer
}

// Timer keys are "<partyID>/<kind>[/<suffix>]" so every timer of a party can
// be cancelled in one sweep.
func timerKey(partyID string, parts ...string) string {
	return partyID + "/" + strings.Join(parts, "/")
}

// schedule arms fn under key, replacing any timer already armed under it.
// fn runs with e.mu held. A callback whose entry was cancelled or replaced
// before it acquired the lock does nothing. Callers must hold e.mu.
func (e *Engine) schedule(key string, d time.Duration, fn func()) {
	e.cancelTimer(key)

	e.timerSeq++
	gen := e.timerSeq
	entry := &timerEntry{gen: gen}
	e.timers[key] = entry

	entry.timer = e.sched.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		current, ok := e.timers[key]
		if !ok || current.gen != gen || e.closed {
			return
		}
		delete(e.timers, key)
		e.guard("timer "+key, fn)
	})
}

func (e *Engine) cancelTimer(key string) {
	if entry, ok := e.timers[key]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(e.timers, key)
	}
}

// cancelTimers stops every timer whose key starts with prefix.
func (e *Engine) cancelTimers(prefix string) {
	for key := range e.timers {
		if strings.HasPrefix(key, prefix) {
			e.cancelTimer(key)
		}
	}
}

func (e *Engine) cancelPartyTimers(partyID string) {
	e.cancelTimers(partyID + "/")
}
