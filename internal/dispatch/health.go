// internal/dispatch/health.go
package dispatch

import (
	"time"

	"github.com/tamzrod/servo-bridge/internal/clock"
	"github.com/tamzrod/servo-bridge/internal/connection"
	"github.com/tamzrod/servo-bridge/internal/status"
)

// healthTracker derives the status snapshot from event outcomes.
type healthTracker struct {
	clock      clock.Clock
	motorCount uint16

	health     uint16
	lastError  uint16
	errorSince time.Time // zero while healthy
}

func newHealthTracker(clk clock.Clock, motors int) *healthTracker {
	return &healthTracker{
		clock:      clk,
		motorCount: uint16(motors),
		health:     status.HealthUnknown,
	}
}

func (h *healthTracker) ok() {
	h.health = status.HealthOK
	h.errorSince = time.Time{}
}

// fail keeps the start of an ongoing error period.
func (h *healthTracker) fail(code uint16) {
	h.health = status.HealthError
	h.lastError = code
	if h.errorSince.IsZero() {
		h.errorSince = h.clock.Now()
	}
}

func (h *healthTracker) snapshot(link connection.State) status.Snapshot {
	return status.Snapshot{
		Health:         h.health,
		LastErrorCode:  h.lastError,
		SecondsInError: h.secondsInError(),
		LinkState:      linkCode(link),
		MotorCount:     h.motorCount,
	}
}

func (h *healthTracker) secondsInError() uint16 {
	if h.errorSince.IsZero() {
		return 0
	}
	secs := h.clock.Now().Sub(h.errorSince) / time.Second
	if secs > status.SecondsInErrorMax {
		return status.SecondsInErrorMax
	}
	return uint16(secs)
}

func linkCode(s connection.State) uint16 {
	switch s {
	case connection.Ready:
		return status.LinkReady
	case connection.Verifying:
		return status.LinkVerifying
	default:
		return status.LinkDisconnected
	}
}
