// internal/connection/builder.go
package connection

import (
	"log/slog"

	"github.com/tamzrod/servo-bridge/internal/bus"
	"github.com/tamzrod/servo-bridge/internal/clock"
	"github.com/tamzrod/servo-bridge/internal/config"
)

// Build constructs a Manager from settings and makes the first attempt.
// A failed first attempt is not fatal: the handle stays nil and the
// dispatcher reconnects on its first failed event.
func Build(s config.Settings, motors []config.Motor, driver bus.Driver, clk clock.Clock, logger *slog.Logger) (*Manager, bus.Handle, error) {
	m, err := New(
		Config{
			Endpoint: s.Port,
			BaudRate: s.BaudRate,
			Timeout:  s.Timeout(),
		},
		motors,
		driver,
		clk,
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	h := m.OpenAndVerify()

	m.logger.Info("──────── Ping Test ────────────────")
	if h != nil {
		m.logger.Info(" Serial ready and all servos responded to ping")
	} else {
		m.logger.Warn(" Ping failed; will retry on first operation")
	}
	m.logger.Info("────────────────────────────────────")

	return m, h, nil
}
