// internal/connection/manager.go
package connection

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/servo-bridge/internal/bus"
	"github.com/tamzrod/servo-bridge/internal/clock"
	"github.com/tamzrod/servo-bridge/internal/config"
)

// BackoffDelay is the flat pause before every reconnection attempt.
const BackoffDelay = 200 * time.Millisecond

// State is the lifecycle of the bus link.
type State int

const (
	Disconnected State = iota
	Verifying
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Verifying:
		return "verifying"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the minimal runtime config the manager needs.
type Config struct {
	Endpoint string
	BaudRate uint32
	Timeout  time.Duration
}

// Manager opens and verifies bus links.
// It never keeps a handle: whoever receives one owns it.
type Manager struct {
	cfg    Config
	motors []config.Motor
	driver bus.Driver
	clock  clock.Clock
	logger *slog.Logger

	state State
}

// New creates a manager with immutable config.
func New(cfg Config, motors []config.Motor, driver bus.Driver, clk clock.Clock, logger *slog.Logger) (*Manager, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("connection: endpoint required")
	}
	if len(motors) == 0 {
		return nil, errors.New("connection: at least one motor required")
	}
	if driver == nil {
		return nil, errors.New("connection: driver required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		motors: motors,
		driver: driver,
		clock:  clk,
		logger: logger,
		state:  Disconnected,
	}, nil
}

// State returns the outcome of the last attempt.
func (m *Manager) State() State {
	return m.state
}

// OpenAndVerify opens the bus and pings every motor in registry order.
// Returns nil (Disconnected) on any failure; all failures are recoverable.
func (m *Manager) OpenAndVerify() bus.Handle {
	m.state = Disconnected

	h, err := m.driver.Open(m.cfg.Endpoint, m.cfg.BaudRate, m.cfg.Timeout)
	if err != nil {
		m.logger.Warn("[serial-open] failed", "port", m.cfg.Endpoint, "error", err)
		return nil
	}

	m.state = Verifying
	if err := m.pingAll(h); err != nil {
		m.logger.Warn("[ping] failed", "error", err)
		if cerr := h.Close(); cerr != nil {
			m.logger.Debug("close after failed ping", "error", cerr)
		}
		m.state = Disconnected
		return nil
	}

	m.logger.Info("Ping ok for all servos")
	m.state = Ready
	return h
}

// ReopenWithBackoff waits BackoffDelay, then runs OpenAndVerify once.
// No growth, no limit: the caller decides when to call again.
func (m *Manager) ReopenWithBackoff() bus.Handle {
	m.logger.Warn("[serial] retrying to reopen...")
	m.clock.Sleep(BackoffDelay)
	return m.OpenAndVerify()
}

func (m *Manager) pingAll(h bus.Handle) error {
	for _, motor := range m.motors {
		ok, err := h.Ping(motor.ID)
		if err != nil {
			return fmt.Errorf("ping error for id %d: %w", motor.ID, err)
		}
		if !ok {
			return fmt.Errorf("ping failed for id %d", motor.ID)
		}
		m.logger.Info("Ping ok", "joint", motor.JointName, "id", motor.ID)
	}
	return nil
}
