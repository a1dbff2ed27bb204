// internal/bus/feetech/errors.go
package feetech

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoResponse means nothing arrived before the I/O timeout.
	ErrNoResponse = errors.New("feetech: no response")

	// ErrShortRead means the reply stopped before the expected length.
	ErrShortRead = errors.New("feetech: short read")

	// ErrClosed is returned by calls on a closed handle.
	ErrClosed = errors.New("feetech: handle closed")
)

// StatusError is the error byte of a status packet.
type StatusError byte

const (
	ErrVoltage     StatusError = 1 << 0
	ErrAngleLimit  StatusError = 1 << 1
	ErrOverheat    StatusError = 1 << 2
	ErrRange       StatusError = 1 << 3
	ErrChecksum    StatusError = 1 << 4
	ErrOverload    StatusError = 1 << 5
	ErrInstruction StatusError = 1 << 6
)

func (e StatusError) Error() string {
	if e == 0 {
		return "no error"
	}
	names := []struct {
		flag StatusError
		name string
	}{
		{ErrVoltage, "voltage"},
		{ErrAngleLimit, "angle limit"},
		{ErrOverheat, "overheat"},
		{ErrRange, "range"},
		{ErrChecksum, "checksum"},
		{ErrOverload, "overload"},
		{ErrInstruction, "instruction"},
	}
	var set []string
	for _, n := range names {
		if e&n.flag != 0 {
			set = append(set, n.name)
		}
	}
	return "servo status: " + strings.Join(set, ", ")
}

// ServoError ties a failure to one servo.
type ServoError struct {
	ID  uint8
	Op  string
	Err error
}

func (e *ServoError) Error() string {
	return fmt.Sprintf("feetech: servo %d %s: %v", e.ID, e.Op, e.Err)
}

func (e *ServoError) Unwrap() error {
	return e.Err
}
