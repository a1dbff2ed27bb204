// internal/mirror/status_writer.go
package mirror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/servo-bridge/internal/status"
)

// statusWriter delivers node status snapshots into status memory.
// Delivery only: no interpretation of the snapshot.
type statusWriter struct {
	cli      registerClient
	unitID   uint8
	baseSlot uint16
	name     string

	needFull bool
	last     status.Snapshot
}

func newStatusWriter(cli registerClient, unitID uint8, baseSlot uint16, deviceName string) *statusWriter {
	return &statusWriter{
		cli:      cli,
		unitID:   unitID,
		baseSlot: baseSlot,
		name:     deviceName,
		needFull: true, // full re-assert on first write
	}
}

// write delivers s. The first call, and the first call after any
// failure, re-asserts the whole block; otherwise only changed slots go out.
func (sw *statusWriter) write(s status.Snapshot) error {
	if sw.cli == nil {
		return errors.New("status writer: missing client")
	}

	base := sw.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(sw.unitID, base, status.Encode(s, sw.name)); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = s
		return nil
	}

	slots := []struct {
		slot uint16
		name string
		old  *uint16
		new  uint16
	}{
		{status.SlotHealthCode, "health", &sw.last.Health, s.Health},
		{status.SlotLastErrorCode, "last_error", &sw.last.LastErrorCode, s.LastErrorCode},
		{status.SlotSecondsInError, "seconds_in_error", &sw.last.SecondsInError, s.SecondsInError},
		{status.SlotLinkState, "link_state", &sw.last.LinkState, s.LinkState},
		{status.SlotMotorCount, "motor_count", &sw.last.MotorCount, s.MotorCount},
	}

	var errs []string
	for _, sl := range slots {
		if *sl.old == sl.new {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.unitID, base+sl.slot, []uint16{sl.new}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", sl.slot, sl.name, err))
			continue
		}
		*sl.old = sl.new
	}

	if len(errs) > 0 {
		// Partial failure: re-assert the whole block on next write.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *statusWriter) baseAddr() uint16 {
	// Each block owns a fixed SlotsPerDevice range.
	return sw.baseSlot * status.SlotsPerDevice
}
