// internal/status/snapshot.go
package status

// Snapshot is exactly what the mirror is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	LinkState      uint16
	MotorCount     uint16
}
