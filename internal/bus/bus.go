// internal/bus/bus.go
package bus

import "time"

// Driver opens links to a multi-drop servo bus.
// One attempt per call: retry policy belongs to the caller.
type Driver interface {
	Open(endpoint string, baud uint32, timeout time.Duration) (Handle, error)
}

// Handle is an open bus link. Every call is a blocking transaction
// bounded by the I/O timeout given to Open.
//
// Positions are joint values in radians. ids and values are parallel:
// values[i] belongs to ids[i], and reads return values in ids order.
type Handle interface {
	// Ping reports whether a device answers at id.
	// false with a nil error means "not present".
	Ping(id uint8) (bool, error)

	SyncWritePositions(ids []uint8, values []float64) error
	SyncReadPositions(ids []uint8) ([]float64, error)

	Close() error
}
