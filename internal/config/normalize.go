// internal/config/normalize.go
package config

import "github.com/tamzrod/servo-bridge/internal/status"

// Normalize applies post-validation normalization.
// It MUST be called only after Validate().
func Normalize(s *Settings) {
	if s == nil {
		return
	}

	// Device name is stored in the status block: truncate to its capacity.
	if len(s.DeviceName) > status.DeviceNameMaxChars {
		s.DeviceName = s.DeviceName[:status.DeviceNameMaxChars]
	}
}
