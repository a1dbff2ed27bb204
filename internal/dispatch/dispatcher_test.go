// internal/dispatch/dispatcher_test.go
package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/tamzrod/servo-bridge/internal/bus"
	"github.com/tamzrod/servo-bridge/internal/bus/bustest"
	"github.com/tamzrod/servo-bridge/internal/clock"
	"github.com/tamzrod/servo-bridge/internal/config"
	"github.com/tamzrod/servo-bridge/internal/connection"
	"github.com/tamzrod/servo-bridge/internal/node"
	"github.com/tamzrod/servo-bridge/internal/status"
)

var testMotors = []config.Motor{
	{JointName: "j1", MotorType: "sts3215", ID: 1},
	{JointName: "j2", MotorType: "sts3215", ID: 2},
}

// ---- fakes ----

type sent struct {
	id string
	v  any
}

type fakePublisher struct {
	out []sent
	err error
}

func (p *fakePublisher) Send(id string, v any) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, sent{id: id, v: v})
	return nil
}

type fakeMirror struct {
	positions [][]float64
	snapshots []status.Snapshot
	err       error
}

func (m *fakeMirror) WritePositions(values []float64) error {
	m.positions = append(m.positions, values)
	return m.err
}

func (m *fakeMirror) WriteStatus(s status.Snapshot) error {
	m.snapshots = append(m.snapshots, s)
	return m.err
}

type fixture struct {
	bus   *bustest.Bus
	clock *clock.FakeClock
	pub   *fakePublisher
	d     *Dispatcher
}

// newFixture builds a dispatcher over a fake bus where j1/j2 answer.
// connected=false starts without a handle.
func newFixture(t *testing.T, connected bool) *fixture {
	t.Helper()

	b := bustest.New(1, 2)
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mgr, err := connection.New(
		connection.Config{Endpoint: "/dev/ttyACM0", BaudRate: 1000000, Timeout: time.Second},
		testMotors, b, clk, logger,
	)
	if err != nil {
		t.Fatalf("connection.New() err=%v", err)
	}

	var h bus.Handle
	if connected {
		h = mgr.OpenAndVerify()
		if h == nil {
			t.Fatalf("initial open failed")
		}
	}

	pub := &fakePublisher{}
	d, err := New(testMotors, mgr, h, pub, clk, logger)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return &fixture{bus: b, clock: clk, pub: pub, d: d}
}

func goalPayload(t *testing.T, v ...float64) []byte {
	t.Helper()
	b, err := node.Marshal(v)
	if err != nil {
		t.Fatalf("marshal goal: %v", err)
	}
	return b
}

// ---- tests ----

func TestHandleGoal_ShapeMismatchIssuesNoTransaction(t *testing.T) {
	f := newFixture(t, true)

	err := f.d.HandleGoal(goalPayload(t, 0.5))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if f.bus.Transactions() != 0 {
		t.Fatalf("expected no transaction, got %d", f.bus.Transactions())
	}
}

func TestHandleGoal_ShapeCheckedBeforeReadiness(t *testing.T) {
	f := newFixture(t, false)

	if err := f.d.HandleGoal(goalPayload(t, 1, 2, 3)); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestHandleGoal_UndecodablePayloadIsShapeMismatch(t *testing.T) {
	f := newFixture(t, true)

	if err := f.d.HandleGoal([]byte{0xff}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if f.bus.Transactions() != 0 {
		t.Fatalf("expected no transaction")
	}
}

func TestHandleEvent_NotReadyReconnectsExactlyOnce(t *testing.T) {
	f := newFixture(t, false)

	act := f.d.HandleEvent(node.Input{ID: node.InputGoalPosition, Data: goalPayload(t, 0.5, -0.5)})
	if act != node.Continue {
		t.Fatalf("expected Continue")
	}

	if f.bus.Transactions() != 0 {
		t.Fatalf("expected no transaction, got %d", f.bus.Transactions())
	}
	if f.bus.Opens != 1 {
		t.Fatalf("expected exactly one reopen, got %d", f.bus.Opens)
	}
	if !f.d.Ready() {
		t.Fatalf("expected handle after successful reopen")
	}
}

func TestHandleGoal_NonFiniteIsShapeMismatch(t *testing.T) {
	f := newFixture(t, true)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := f.d.HandleGoal(goalPayload(t, 0.1, v)); !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("goal %v: expected ErrShapeMismatch, got %v", v, err)
		}
	}
	if f.bus.Transactions() != 0 {
		t.Fatalf("non-finite goals must not reach the bus, got %d transactions", f.bus.Transactions())
	}
}

func TestHandleEvent_StatusNotReadyReconnectsExactlyOnce(t *testing.T) {
	f := newFixture(t, false)

	act := f.d.HandleEvent(node.Input{ID: node.InputPullPresentPosition})
	if act != node.Continue {
		t.Fatalf("expected Continue")
	}

	if f.bus.Transactions() != 0 || len(f.pub.out) != 0 {
		t.Fatalf("not-ready status request must not read or publish")
	}
	if f.bus.Opens != 1 {
		t.Fatalf("expected exactly one reopen, got %d", f.bus.Opens)
	}
	sleeps := f.clock.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != connection.BackoffDelay {
		t.Fatalf("expected one 200ms sleep, got %v", sleeps)
	}
}

func TestHandleStatusRequest_NotReady(t *testing.T) {
	f := newFixture(t, false)

	if err := f.d.HandleStatusRequest(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if len(f.pub.out) != 0 {
		t.Fatalf("nothing must be published")
	}
}

func TestHandleStatusRequest_RoundsToTwoDecimals(t *testing.T) {
	f := newFixture(t, true)
	f.bus.Positions[1] = 1.2345
	f.bus.Positions[2] = -0.006

	if err := f.d.HandleStatusRequest(); err != nil {
		t.Fatalf("HandleStatusRequest() err=%v", err)
	}

	rec := f.pub.out[0].v.(node.StatusRecord)
	if rec.Value[0] != 1.23 {
		t.Fatalf("expected 1.23, got %v", rec.Value[0])
	}
	if rec.Value[1] != -0.01 {
		t.Fatalf("expected -0.01, got %v", rec.Value[1])
	}
}

func TestEndToEnd_GoalThenStatus(t *testing.T) {
	f := newFixture(t, true)

	f.d.HandleEvent(node.Input{ID: node.InputGoalPosition, Data: goalPayload(t, 0.5, -0.5)})

	if len(f.bus.Writes) != 1 {
		t.Fatalf("expected one batched write, got %d", len(f.bus.Writes))
	}
	w := f.bus.Writes[0]
	if len(w.IDs) != 2 || w.IDs[0] != 1 || w.IDs[1] != 2 {
		t.Fatalf("unexpected ids %v", w.IDs)
	}
	if w.Values[0] != 0.5 || w.Values[1] != -0.5 {
		t.Fatalf("unexpected values %v", w.Values)
	}

	f.bus.Positions[1] = 0.501
	f.bus.Positions[2] = -0.499
	f.d.HandleEvent(node.Input{ID: node.InputPullPresentPosition})

	if len(f.pub.out) != 1 || f.pub.out[0].id != node.OutputPresentPosition {
		t.Fatalf("expected one present_position output, got %+v", f.pub.out)
	}
	rec := f.pub.out[0].v.(node.StatusRecord)
	if rec.JointName[0] != "j1" || rec.JointName[1] != "j2" {
		t.Fatalf("unexpected joint names %v", rec.JointName)
	}
	if rec.Value[0] != 0.5 || rec.Value[1] != -0.5 {
		t.Fatalf("unexpected values %v", rec.Value)
	}

	// success path never reconnects
	if f.bus.Opens != 1 || len(f.clock.Sleeps()) != 0 {
		t.Fatalf("unexpected reconnect: opens=%d sleeps=%v", f.bus.Opens, f.clock.Sleeps())
	}
}

func TestHandleEvent_ConsecutiveFailuresBackOffEachTime(t *testing.T) {
	f := newFixture(t, true)
	f.bus.WriteErr = errors.New("io timeout")

	goal := node.Input{ID: node.InputGoalPosition, Data: goalPayload(t, 0.1, 0.2)}
	f.d.HandleEvent(goal)
	f.d.HandleEvent(goal)

	sleeps := f.clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != connection.BackoffDelay || sleeps[1] != connection.BackoffDelay {
		t.Fatalf("expected two 200ms sleeps, got %v", sleeps)
	}
	if f.bus.Opens != 3 {
		t.Fatalf("expected initial open plus two reopens, got %d", f.bus.Opens)
	}

	// every replaced handle was closed
	for i, h := range f.bus.Handles[:2] {
		if !h.IsClosed() {
			t.Fatalf("handle %d not closed before reconnect", i)
		}
	}
}

func TestHandleGoal_TransportErrorOp(t *testing.T) {
	f := newFixture(t, true)
	f.bus.WriteErr = errors.New("io timeout")

	err := f.d.HandleGoal(goalPayload(t, 0, 0))

	var te *TransportError
	if !errors.As(err, &te) || te.Op != "sync_write_goal_position" {
		t.Fatalf("expected TransportError(sync_write_goal_position), got %v", err)
	}
}

func TestHandleStatusRequest_PublishFailure(t *testing.T) {
	f := newFixture(t, true)
	f.pub.err = errors.New("runtime gone")

	err := f.d.HandleStatusRequest()

	var te *TransportError
	if !errors.As(err, &te) || te.Op != "send_status" {
		t.Fatalf("expected TransportError(send_status), got %v", err)
	}
}

func TestHandleEvent_StopUnknownInputAndUnexpected(t *testing.T) {
	f := newFixture(t, true)

	if act := f.d.HandleEvent(node.Input{ID: "tick"}); act != node.Continue {
		t.Fatalf("unknown input must continue")
	}
	if act := f.d.HandleEvent(node.Unknown{Type: "input_closed"}); act != node.Continue {
		t.Fatalf("unexpected event must continue")
	}
	if f.bus.Transactions() != 0 || f.bus.Opens != 1 {
		t.Fatalf("ignored events must not touch the bus")
	}
	if act := f.d.HandleEvent(node.Stop{}); act != node.Exit {
		t.Fatalf("stop must exit")
	}
}

func TestClose_ReleasesHandle(t *testing.T) {
	f := newFixture(t, true)

	if err := f.d.Close(); err != nil {
		t.Fatalf("Close() err=%v", err)
	}
	if !f.bus.Handles[0].IsClosed() || f.d.Ready() {
		t.Fatalf("handle not released")
	}
	if err := f.d.Close(); err != nil {
		t.Fatalf("second Close() err=%v", err)
	}
}

func TestMirror_ReceivesPositionsAndHealth(t *testing.T) {
	f := newFixture(t, true)
	m := &fakeMirror{}
	f.d.SetMirror(m)

	f.bus.Positions[1] = 0.25
	f.d.HandleEvent(node.Input{ID: node.InputPullPresentPosition})

	if len(m.positions) != 1 || m.positions[0][0] != 0.25 {
		t.Fatalf("unexpected mirrored positions %v", m.positions)
	}
	got := m.snapshots[len(m.snapshots)-1]
	if got.Health != status.HealthOK || got.LinkState != status.LinkReady || got.MotorCount != 2 {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	f.d.HandleEvent(node.Input{ID: node.InputGoalPosition, Data: goalPayload(t, 1)})
	got = m.snapshots[len(m.snapshots)-1]
	if got.Health != status.HealthError || got.LastErrorCode != status.ErrorShapeMismatch {
		t.Fatalf("unexpected snapshot after failure %+v", got)
	}
}

func TestMirror_SecondsInErrorAccumulates(t *testing.T) {
	f := newFixture(t, true)
	m := &fakeMirror{}
	f.d.SetMirror(m)
	f.bus.OpenErr = errors.New("no such device")
	f.bus.WriteErr = errors.New("io timeout")

	goal := node.Input{ID: node.InputGoalPosition, Data: goalPayload(t, 0, 0)}
	f.d.HandleEvent(goal) // transport error, reopen fails
	f.clock.Advance(5 * time.Second)
	f.d.HandleEvent(goal) // not ready

	got := m.snapshots[len(m.snapshots)-1]
	if got.LastErrorCode != status.ErrorNotReady {
		t.Fatalf("expected not-ready code, got %+v", got)
	}
	if got.LinkState != status.LinkDisconnected {
		t.Fatalf("expected disconnected link, got %+v", got)
	}
	// 200ms backoff + 5s advance + 200ms backoff
	if got.SecondsInError != 5 {
		t.Fatalf("expected 5 seconds in error, got %d", got.SecondsInError)
	}
}

func TestMirror_FailureNeverReconnects(t *testing.T) {
	f := newFixture(t, true)
	f.d.SetMirror(&fakeMirror{err: errors.New("plc down")})

	f.d.HandleEvent(node.Input{ID: node.InputPullPresentPosition})

	if f.bus.Opens != 1 || len(f.clock.Sleeps()) != 0 {
		t.Fatalf("mirror failure must not reconnect the bus")
	}
	if len(f.pub.out) != 1 {
		t.Fatalf("status must still be published")
	}
}
