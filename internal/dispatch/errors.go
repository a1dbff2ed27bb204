// internal/dispatch/errors.go
package dispatch

import (
	"errors"
	"fmt"

	"github.com/tamzrod/servo-bridge/internal/status"
)

var (
	// ErrShapeMismatch: the goal vector does not match the registry.
	ErrShapeMismatch = errors.New("dispatch: goal vector length does not match motor count")

	// ErrNotReady: no verified bus handle is held.
	ErrNotReady = errors.New("dispatch: bus not ready")
)

// TransportError is a failed bus transaction or output publish.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dispatch: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// errorCode maps a dispatch failure to its status block code.
func errorCode(err error) uint16 {
	switch {
	case err == nil:
		return status.ErrorNone
	case errors.Is(err, ErrShapeMismatch):
		return status.ErrorShapeMismatch
	case errors.Is(err, ErrNotReady):
		return status.ErrorNotReady
	default:
		return status.ErrorTransport
	}
}
