// internal/config/display.go
package config

import (
	"fmt"
	"log/slog"
)

// LogSettings prints the startup configuration banner.
func LogSettings(logger *slog.Logger, s Settings) {
	logger.Info("──────── Node Configuration ────────")
	logger.Info(" Config file : " + s.ConfigPath)
	logger.Info(" Serial port : " + s.Port)
	logger.Info(fmt.Sprintf(" Baudrate    : %d", s.BaudRate))
	logger.Info(fmt.Sprintf(" Timeout     : %d ms", s.TimeoutMs))
	if s.Mirror.Enabled() {
		logger.Info(fmt.Sprintf(" Mirror      : %s (unit %d)", s.Mirror.Endpoint, s.Mirror.UnitID))
	}
}

// LogMotors prints the loaded registry.
func LogMotors(logger *slog.Logger, motors []Motor) {
	logger.Info("──────── Motor Configuration ───────")
	logger.Info(fmt.Sprintf(" Loaded %d motors:", len(motors)))
	for _, m := range motors {
		logger.Info(fmt.Sprintf(" • %-14s | id=%-3d type=%s", m.JointName, m.ID, m.MotorType))
	}
	logger.Info("────────────────────────────────────")
}
