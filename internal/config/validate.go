// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
)

// MaxBusID is the highest servo address on the bus (0xFE is broadcast).
const MaxBusID = 0xFD

// Validate checks settings correctness.
// It performs declarative validation only.
// It MUST NOT mutate settings.
func Validate(s Settings) error {
	if s.ConfigPath == "" {
		return errors.New("config: config path required")
	}
	if s.Port == "" {
		return errors.New("config: serial port required")
	}
	if s.BaudRate == 0 {
		return errors.New("config: baudrate must be > 0")
	}
	if s.TimeoutMs == 0 {
		return errors.New("config: serial timeout must be > 0")
	}

	// ------------------------------------------------------------
	// DEVICE NAME (ASCII only, mirrored into the status block)
	// ------------------------------------------------------------

	for i := 0; i < len(s.DeviceName); i++ {
		if s.DeviceName[i] > 0x7F {
			return errors.New("config: device_name must contain ASCII characters only")
		}
	}

	if s.Mirror.Enabled() && s.Mirror.TimeoutMs <= 0 {
		return errors.New("config: mirror timeout must be > 0")
	}

	return nil
}

// ValidateMotors checks the loaded registry.
// Bus ids must be unique: one batched write addresses each device once.
func ValidateMotors(motors []Motor) error {
	if len(motors) == 0 {
		return &Error{Msg: "no motors configured"}
	}

	owner := make(map[uint8]string, len(motors))
	for _, m := range motors {
		if prev, exists := owner[m.ID]; exists {
			return &Error{Msg: fmt.Sprintf(
				"bus id collision: id=%d used by joints %q and %q",
				m.ID,
				prev,
				m.JointName,
			)}
		}
		owner[m.ID] = m.JointName
	}

	return nil
}
