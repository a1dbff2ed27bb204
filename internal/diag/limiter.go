// internal/diag/limiter.go
package diag

import (
	"time"

	"github.com/tamzrod/servo-bridge/internal/clock"
)

// EmitInterval is the minimum time between two emissions of one class.
const EmitInterval = 1000 * time.Millisecond

// WarnCounter tracks suppressed occurrences of one error class.
type WarnCounter struct {
	Count       uint64
	WindowStart time.Time
}

// Report is what the caller logs when ShouldEmit says yes.
type Report struct {
	Class   string
	Count   uint64        // occurrences in the window, this one included
	Elapsed time.Duration // since the previous emission (or first occurrence)
}

// Limiter throttles repeated warnings per error class.
// Not safe for concurrent use: it belongs to the dispatch loop.
type Limiter struct {
	clock    clock.Clock
	counters map[string]*WarnCounter
}

// NewLimiter returns an empty limiter.
func NewLimiter(c clock.Clock) *Limiter {
	if c == nil {
		c = clock.Real()
	}
	return &Limiter{
		clock:    c,
		counters: make(map[string]*WarnCounter),
	}
}

// ShouldEmit records one occurrence of class and reports whether the
// caller should log it now.
//
// Only elapsed time decides: the first occurrence of an unseen class
// opens a window at now and is suppressed like any other.
func (l *Limiter) ShouldEmit(class string) (Report, bool) {
	now := l.clock.Now()

	c, ok := l.counters[class]
	if !ok {
		c = &WarnCounter{WindowStart: now}
		l.counters[class] = c
	}

	c.Count++

	elapsed := now.Sub(c.WindowStart)
	if elapsed < EmitInterval {
		return Report{}, false
	}

	r := Report{Class: class, Count: c.Count, Elapsed: elapsed}
	c.Count = 0
	c.WindowStart = now
	return r, true
}

// Counter returns a copy of the counter for class.
func (l *Limiter) Counter(class string) (WarnCounter, bool) {
	c, ok := l.counters[class]
	if !ok {
		return WarnCounter{}, false
	}
	return *c, true
}
