// internal/connection/manager_test.go
package connection

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tamzrod/servo-bridge/internal/bus/bustest"
	"github.com/tamzrod/servo-bridge/internal/clock"
	"github.com/tamzrod/servo-bridge/internal/config"
)

var testMotors = []config.Motor{
	{JointName: "j1", MotorType: "sts3215", ID: 1},
	{JointName: "j2", MotorType: "sts3215", ID: 2},
}

func newTestManager(t *testing.T, b *bustest.Bus) (*Manager, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m, err := New(
		Config{Endpoint: "/dev/ttyACM0", BaudRate: 1000000, Timeout: time.Second},
		testMotors,
		b,
		clk,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return m, clk
}

func TestNew_RequiresMotors(t *testing.T) {
	_, err := New(Config{Endpoint: "/dev/ttyACM0"}, nil, bustest.New(), nil, nil)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestOpenAndVerify_Ready(t *testing.T) {
	b := bustest.New(1, 2)
	m, _ := newTestManager(t, b)

	h := m.OpenAndVerify()
	if h == nil {
		t.Fatalf("expected handle")
	}
	if m.State() != Ready {
		t.Fatalf("expected Ready, got %v", m.State())
	}
	if len(b.Pings) != 2 || b.Pings[0] != 1 || b.Pings[1] != 2 {
		t.Fatalf("expected pings [1 2], got %v", b.Pings)
	}
	if b.LastEndpoint != "/dev/ttyACM0" || b.LastBaud != 1000000 || b.LastTimeout != time.Second {
		t.Fatalf("settings not passed to driver: %s %d %v", b.LastEndpoint, b.LastBaud, b.LastTimeout)
	}
}

func TestOpenAndVerify_OpenFailure(t *testing.T) {
	b := bustest.New(1, 2)
	b.OpenErr = errors.New("no such device")
	m, _ := newTestManager(t, b)

	if h := m.OpenAndVerify(); h != nil {
		t.Fatalf("expected nil handle")
	}
	if m.State() != Disconnected {
		t.Fatalf("expected Disconnected, got %v", m.State())
	}
}

func TestOpenAndVerify_MissingServoDiscardsHandle(t *testing.T) {
	b := bustest.New(1) // id 2 absent
	m, _ := newTestManager(t, b)

	if h := m.OpenAndVerify(); h != nil {
		t.Fatalf("expected nil handle")
	}
	if m.State() != Disconnected {
		t.Fatalf("expected Disconnected, got %v", m.State())
	}
	if len(b.Handles) != 1 || !b.Handles[0].IsClosed() {
		t.Fatalf("opened handle must be closed after failed verification")
	}
}

func TestOpenAndVerify_PingErrorStopsVerification(t *testing.T) {
	b := bustest.New(1, 2)
	b.PingErr = errors.New("timeout")
	m, _ := newTestManager(t, b)

	if h := m.OpenAndVerify(); h != nil {
		t.Fatalf("expected nil handle")
	}
	if len(b.Pings) != 1 {
		t.Fatalf("verification must stop at the first error, got %d pings", len(b.Pings))
	}
}

func TestReopenWithBackoff_SleepsThenOpens(t *testing.T) {
	b := bustest.New(1, 2)
	m, clk := newTestManager(t, b)

	h := m.ReopenWithBackoff()
	if h == nil {
		t.Fatalf("expected handle")
	}

	sleeps := clk.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != BackoffDelay {
		t.Fatalf("expected one %v sleep, got %v", BackoffDelay, sleeps)
	}
	if b.Opens != 1 {
		t.Fatalf("expected one open, got %d", b.Opens)
	}
}

func TestBuild_InitialFailureIsNotFatal(t *testing.T) {
	b := bustest.New()
	b.OpenErr = errors.New("busy")

	s := config.Settings{Port: "/dev/ttyACM0", BaudRate: 1000000, TimeoutMs: 1000}
	m, h, err := Build(s, testMotors, b, clock.Fake(time.Time{}), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Build() err=%v", err)
	}
	if m == nil || h != nil {
		t.Fatalf("expected manager without handle")
	}
}
