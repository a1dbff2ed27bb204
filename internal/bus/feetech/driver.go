// internal/bus/feetech/driver.go
package feetech

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/goburrow/serial"

	"github.com/tamzrod/servo-bridge/internal/bus"
)

// Driver opens Feetech STS buses on a serial port (8N1).
type Driver struct{}

// Open implements bus.Driver. ONE attempt per call.
func (Driver) Open(endpoint string, baud uint32, timeout time.Duration) (bus.Handle, error) {
	if endpoint == "" {
		return nil, errors.New("feetech: serial port required")
	}

	port, err := serial.Open(&serial.Config{
		Address:  endpoint,
		BaudRate: int(baud),
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("feetech: open %s: %w", endpoint, err)
	}

	return newHandle(port, timeout), nil
}

// handle is one open serial link. Not safe for concurrent use.
type handle struct {
	port    io.ReadWriteCloser
	timeout time.Duration
	closed  bool
}

func newHandle(port io.ReadWriteCloser, timeout time.Duration) *handle {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &handle{port: port, timeout: timeout}
}

func (h *handle) Ping(id uint8) (bool, error) {
	if h.closed {
		return false, ErrClosed
	}
	if id > MaxID {
		return false, fmt.Errorf("feetech: invalid id %d", id)
	}

	if err := h.send(pingPacket(id)); err != nil {
		return false, &ServoError{ID: id, Op: "ping", Err: err}
	}

	raw, err := h.readFull(pingRespSize)
	if errors.Is(err, ErrNoResponse) {
		return false, nil
	}
	if err != nil {
		return false, &ServoError{ID: id, Op: "ping", Err: err}
	}

	pkt, _, err := decode(raw)
	if err != nil {
		return false, &ServoError{ID: id, Op: "ping", Err: err}
	}
	if pkt.ID != id {
		return false, &ServoError{ID: id, Op: "ping", Err: fmt.Errorf("reply from id %d", pkt.ID)}
	}

	// A reply with status flags still proves the device is on the bus.
	return true, nil
}

func (h *handle) SyncWritePositions(ids []uint8, values []float64) error {
	if h.closed {
		return ErrClosed
	}
	if len(ids) != len(values) {
		return fmt.Errorf("feetech: sync write: %d ids, %d values", len(ids), len(values))
	}

	words := make([]uint16, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ServoError{ID: ids[i], Op: "sync write", Err: fmt.Errorf("goal %v is not finite", v)}
		}
		words[i] = toSteps(v)
	}

	// Broadcast: no status packets come back.
	if err := h.send(syncWritePacket(regGoalPosition, ids, words)); err != nil {
		return fmt.Errorf("feetech: sync write: %w", err)
	}
	return nil
}

func (h *handle) SyncReadPositions(ids []uint8) ([]float64, error) {
	if h.closed {
		return nil, ErrClosed
	}

	if err := h.send(syncReadPacket(regPresentPosition, ids)); err != nil {
		return nil, fmt.Errorf("feetech: sync read: %w", err)
	}

	raw, err := h.readFull(len(ids) * (pingRespSize + int(positionSize)))
	if err != nil && !errors.Is(err, ErrNoResponse) && !errors.Is(err, ErrShortRead) {
		return nil, fmt.Errorf("feetech: sync read: %w", err)
	}

	byID := make(map[uint8]packet, len(ids))
	for _, pkt := range decodeAll(raw, len(ids)) {
		byID[pkt.ID] = pkt
	}

	out := make([]float64, len(ids))
	for i, id := range ids {
		pkt, ok := byID[id]
		if !ok {
			return nil, &ServoError{ID: id, Op: "sync read", Err: ErrNoResponse}
		}
		if pkt.Status != 0 {
			return nil, &ServoError{ID: id, Op: "sync read", Err: pkt.Status}
		}
		if len(pkt.Params) < int(positionSize) {
			return nil, &ServoError{ID: id, Op: "sync read", Err: errors.New("short reply")}
		}
		out[i] = fromSteps(byteOrder.Uint16(pkt.Params))
	}
	return out, nil
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.port.Close()
}

func (h *handle) send(pkt []byte) error {
	for len(pkt) > 0 {
		n, err := h.port.Write(pkt)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		pkt = pkt[n:]
	}
	return nil
}

// readFull reads want bytes or until the I/O timeout elapses.
// Nothing read is ErrNoResponse; a partial read returns what arrived
// together with ErrShortRead.
func (h *handle) readFull(want int) ([]byte, error) {
	buf := make([]byte, want)
	got := 0
	deadline := time.Now().Add(h.timeout)

	for got < want && time.Now().Before(deadline) {
		n, err := h.port.Read(buf[got:])
		got += n
		if err != nil && n == 0 {
			// serial timeouts and EOF on an idle line both land here
			time.Sleep(time.Millisecond)
		}
	}

	if got == 0 {
		return nil, ErrNoResponse
	}
	if got < want {
		return buf[:got], fmt.Errorf("%w: %d of %d bytes", ErrShortRead, got, want)
	}
	return buf, nil
}
