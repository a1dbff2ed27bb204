// internal/bus/bustest/fake.go
package bustest

import (
	"errors"
	"time"

	"github.com/tamzrod/servo-bridge/internal/bus"
)

// Write is one recorded sync write.
type Write struct {
	IDs    []uint8
	Values []float64
}

// Bus is a scriptable in-memory bus. Every Handle it opens shares the
// same devices and the same transaction log, so tests can inspect what
// reached "the wire" across reconnects.
type Bus struct {
	// Present lists the ids that answer a ping.
	Present map[uint8]bool

	// Positions is what SyncReadPositions returns, per id.
	Positions map[uint8]float64

	// Failure injection. Each field applies to every call until cleared.
	OpenErr  error
	PingErr  error
	WriteErr error
	ReadErr  error

	Opens   int
	Pings   []uint8
	Writes  []Write
	Reads   [][]uint8
	Closed  int
	Handles []*Handle

	LastEndpoint string
	LastBaud     uint32
	LastTimeout  time.Duration
}

// New returns a bus where every id in ids is present at position 0.
func New(ids ...uint8) *Bus {
	b := &Bus{
		Present:   make(map[uint8]bool),
		Positions: make(map[uint8]float64),
	}
	for _, id := range ids {
		b.Present[id] = true
		b.Positions[id] = 0
	}
	return b
}

// Open implements bus.Driver.
func (b *Bus) Open(endpoint string, baud uint32, timeout time.Duration) (bus.Handle, error) {
	b.Opens++
	b.LastEndpoint = endpoint
	b.LastBaud = baud
	b.LastTimeout = timeout
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	h := &Handle{bus: b}
	b.Handles = append(b.Handles, h)
	return h, nil
}

// Transactions counts batched reads and writes issued so far.
func (b *Bus) Transactions() int {
	return len(b.Writes) + len(b.Reads)
}

// Handle is one open link on a fake Bus.
type Handle struct {
	bus    *Bus
	closed bool
}

var errClosed = errors.New("bustest: handle closed")

func (h *Handle) Ping(id uint8) (bool, error) {
	if h.closed {
		return false, errClosed
	}
	h.bus.Pings = append(h.bus.Pings, id)
	if h.bus.PingErr != nil {
		return false, h.bus.PingErr
	}
	return h.bus.Present[id], nil
}

func (h *Handle) SyncWritePositions(ids []uint8, values []float64) error {
	if h.closed {
		return errClosed
	}
	h.bus.Writes = append(h.bus.Writes, Write{
		IDs:    append([]uint8(nil), ids...),
		Values: append([]float64(nil), values...),
	})
	return h.bus.WriteErr
}

func (h *Handle) SyncReadPositions(ids []uint8) ([]float64, error) {
	if h.closed {
		return nil, errClosed
	}
	h.bus.Reads = append(h.bus.Reads, append([]uint8(nil), ids...))
	if h.bus.ReadErr != nil {
		return nil, h.bus.ReadErr
	}
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = h.bus.Positions[id]
	}
	return out, nil
}

func (h *Handle) Close() error {
	if !h.closed {
		h.closed = true
		h.bus.Closed++
	}
	return nil
}

// IsClosed reports whether Close was called on h.
func (h *Handle) IsClosed() bool { return h.closed }
