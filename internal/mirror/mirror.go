// internal/mirror/mirror.go
package mirror

import (
	"fmt"
	"math"
	"time"

	"github.com/tamzrod/servo-bridge/internal/config"
	"github.com/tamzrod/servo-bridge/internal/status"
)

// registerClient is the exact contract the mirror uses.
type registerClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Mirror copies observed actuator state into Modbus holding registers.
type Mirror struct {
	cli          registerClient
	unitID       uint8
	positionAddr uint16
	status       *statusWriter
}

func newMirror(cli registerClient, m config.MirrorSettings, deviceName string) *Mirror {
	return &Mirror{
		cli:          cli,
		unitID:       m.UnitID,
		positionAddr: m.PositionAddress,
		status:       newStatusWriter(cli, m.UnitID, m.StatusSlot, deviceName),
	}
}

// Build connects the mirror when it is enabled.
// Disabled returns a nil Mirror and a no-op closer.
func Build(s config.Settings) (*Mirror, func() error, error) {
	if !s.Mirror.Enabled() {
		return nil, func() error { return nil }, nil
	}

	ep, err := dialEndpoint(s.Mirror.Endpoint, time.Duration(s.Mirror.TimeoutMs)*time.Millisecond)
	if err != nil {
		return nil, nil, err
	}

	return newMirror(ep, s.Mirror, s.DeviceName), ep.Close, nil
}

// WritePositions writes one register per joint, registry order, as
// signed hundredths (two's complement, saturated to int16, NaN as 0).
func (m *Mirror) WritePositions(values []float64) error {
	regs := make([]uint16, len(values))
	for i, v := range values {
		regs[i] = uint16(hundredths(v))
	}
	if err := m.cli.WriteRegisters(m.unitID, m.positionAddr, regs); err != nil {
		return fmt.Errorf("mirror: positions: %w", err)
	}
	return nil
}

// WriteStatus delivers a node status snapshot.
func (m *Mirror) WriteStatus(s status.Snapshot) error {
	return m.status.write(s)
}

func hundredths(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	x := math.Round(v * 100)
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	if x < math.MinInt16 {
		return math.MinInt16
	}
	return int16(x)
}
