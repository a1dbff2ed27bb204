// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings is everything the node reads from its environment.
// Immutable after startup.
type Settings struct {
	ConfigPath string `env:"CONFIG_PATH" envDefault:"config/motor.json"`

	// ---- SERIAL BUS ----

	Port      string `env:"SERIAL_PORT" envDefault:"/dev/ttyACM0"`
	BaudRate  uint32 `env:"BAUDRATE" envDefault:"1000000"`
	TimeoutMs uint64 `env:"SERIAL_TIMEOUT_MS" envDefault:"1000"`

	// ---- DATAFLOW ----

	// Socket is a Unix socket to the dataflow runtime.
	// Empty means stdin/stdout.
	Socket string `env:"DATAFLOW_SOCKET"`

	// ---- LOGGING ----

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// ---- MIRROR (optional, opt-in) ----

	Mirror MirrorSettings `envPrefix:"MIRROR_"`

	DeviceName string `env:"DEVICE_NAME" envDefault:"servo-bridge"`
}

// MirrorSettings configures the Modbus state mirror.
// An empty Endpoint disables it.
type MirrorSettings struct {
	Endpoint        string `env:"ENDPOINT"`
	UnitID          uint8  `env:"UNIT_ID" envDefault:"1"`
	PositionAddress uint16 `env:"POSITION_ADDRESS" envDefault:"0"`
	StatusSlot      uint16 `env:"STATUS_SLOT" envDefault:"1"`
	TimeoutMs       int    `env:"TIMEOUT_MS" envDefault:"1000"`
}

// Timeout is the serial I/O timeout.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Enabled reports whether the mirror is configured.
func (m MirrorSettings) Enabled() bool {
	return m.Endpoint != ""
}

// LoadSettings reads Settings from the process environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("config: parse env: %w", err)
	}
	return s, nil
}
