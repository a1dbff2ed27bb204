// internal/dispatch/dispatcher.go
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/tamzrod/servo-bridge/internal/bus"
	"github.com/tamzrod/servo-bridge/internal/clock"
	"github.com/tamzrod/servo-bridge/internal/config"
	"github.com/tamzrod/servo-bridge/internal/connection"
	"github.com/tamzrod/servo-bridge/internal/diag"
	"github.com/tamzrod/servo-bridge/internal/node"
	"github.com/tamzrod/servo-bridge/internal/status"
)

// Error classes handed to the limiter.
const (
	ClassGoal   = "goal_position_error"
	ClassStatus = "status_error"
	ClassMirror = "mirror_error"
)

// Publisher sends one output to the dataflow runtime.
type Publisher interface {
	Send(id string, v any) error
}

// Mirror receives observed state after each event. Optional.
type Mirror interface {
	WritePositions(values []float64) error
	WriteStatus(s status.Snapshot) error
}

// Dispatcher routes runtime events to bus transactions.
// It owns the bus handle; all methods run on the event loop.
type Dispatcher struct {
	motors []config.Motor
	ids    []uint8
	names  []string

	conn    *connection.Manager
	handle  bus.Handle
	limiter *diag.Limiter
	pub     Publisher
	mirror  Mirror
	health  *healthTracker
	logger  *slog.Logger
}

// New wires a dispatcher. handle may be nil when the first
// open+verify failed; the next failed event reconnects.
func New(motors []config.Motor, conn *connection.Manager, handle bus.Handle, pub Publisher, clk clock.Clock, logger *slog.Logger) (*Dispatcher, error) {
	if len(motors) == 0 {
		return nil, errors.New("dispatch: at least one motor required")
	}
	if conn == nil {
		return nil, errors.New("dispatch: connection manager required")
	}
	if pub == nil {
		return nil, errors.New("dispatch: publisher required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		motors:  motors,
		ids:     config.IDs(motors),
		names:   config.JointNames(motors),
		conn:    conn,
		handle:  handle,
		limiter: diag.NewLimiter(clk),
		pub:     pub,
		health:  newHealthTracker(clk, len(motors)),
		logger:  logger,
	}, nil
}

// SetMirror attaches a state mirror. Call before the event loop starts.
func (d *Dispatcher) SetMirror(m Mirror) {
	d.mirror = m
}

// Ready reports whether a verified handle is held.
func (d *Dispatcher) Ready() bool {
	return d.handle != nil
}

// HandleEvent implements node.Handler.
func (d *Dispatcher) HandleEvent(ev node.Event) node.Action {
	switch e := ev.(type) {
	case node.Input:
		switch e.ID {
		case node.InputGoalPosition:
			d.settle(ClassGoal, d.HandleGoal(e.Data))
		case node.InputPullPresentPosition:
			d.settle(ClassStatus, d.HandleStatusRequest())
		default:
			d.logger.Warn("unknown input", "id", e.ID)
		}
		return node.Continue

	case node.Stop:
		d.logger.Info("received stop")
		return node.Exit

	default:
		d.logger.Warn("unexpected event", "event", fmt.Sprintf("%#v", ev))
		return node.Continue
	}
}

// HandleGoal writes one goal vector, registry order, in one batched write.
func (d *Dispatcher) HandleGoal(payload []byte) error {
	goals, err := node.DecodeFloats(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if len(goals) != len(d.motors) {
		return fmt.Errorf("%w: got %d values for %d motors", ErrShapeMismatch, len(goals), len(d.motors))
	}
	for i, v := range goals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: goal %d (%s) is not finite", ErrShapeMismatch, i, d.names[i])
		}
	}
	if d.handle == nil {
		return ErrNotReady
	}

	if err := d.handle.SyncWritePositions(d.ids, goals); err != nil {
		return &TransportError{Op: "sync_write_goal_position", Err: err}
	}
	return nil
}

// HandleStatusRequest reads every position and publishes one record.
func (d *Dispatcher) HandleStatusRequest() error {
	if d.handle == nil {
		return ErrNotReady
	}

	raw, err := d.handle.SyncReadPositions(d.ids)
	if err != nil {
		return &TransportError{Op: "sync_read_present_position", Err: err}
	}
	if len(raw) != len(d.ids) {
		return &TransportError{
			Op:  "sync_read_present_position",
			Err: fmt.Errorf("got %d values for %d motors", len(raw), len(d.ids)),
		}
	}

	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = round2(v)
	}

	rec := node.StatusRecord{
		JointName: append([]string(nil), d.names...),
		Value:     values,
	}
	if err := d.pub.Send(node.OutputPresentPosition, rec); err != nil {
		return &TransportError{Op: "send_status", Err: err}
	}

	d.mirrorPositions(values)
	return nil
}

// Close releases the held handle.
func (d *Dispatcher) Close() error {
	if d.handle == nil {
		return nil
	}
	err := d.handle.Close()
	d.handle = nil
	return err
}

// settle is the single error path: rate-limited log, then one
// reconnection attempt. Success only updates health.
func (d *Dispatcher) settle(class string, err error) {
	if err == nil {
		d.health.ok()
		d.mirrorStatus()
		return
	}

	d.health.fail(errorCode(err))

	if r, emit := d.limiter.ShouldEmit(class); emit {
		d.logger.Warn("dispatch failed",
			"class", r.Class,
			"error", err,
			"count", r.Count,
			"elapsed", r.Elapsed,
		)
	}

	if d.handle != nil {
		if cerr := d.handle.Close(); cerr != nil {
			d.logger.Debug("close before reconnect", "error", cerr)
		}
	}
	d.handle = d.conn.ReopenWithBackoff()

	d.mirrorStatus()
}

func (d *Dispatcher) mirrorPositions(values []float64) {
	if d.mirror == nil {
		return
	}
	if err := d.mirror.WritePositions(values); err != nil {
		d.mirrorFailed(err)
	}
}

func (d *Dispatcher) mirrorStatus() {
	if d.mirror == nil {
		return
	}
	if err := d.mirror.WriteStatus(d.health.snapshot(d.conn.State())); err != nil {
		d.mirrorFailed(err)
	}
}

func (d *Dispatcher) mirrorFailed(err error) {
	if r, emit := d.limiter.ShouldEmit(ClassMirror); emit {
		d.logger.Warn("mirror write failed",
			"error", err,
			"count", r.Count,
			"elapsed", r.Elapsed,
		)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
