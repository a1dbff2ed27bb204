// internal/mirror/endpoint.go
package mirror

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const defaultTimeout = time.Second

// tcpEndpoint holds the single Modbus TCP link to the mirror target.
// Requests are serialized: the unit id lives on the shared handler.
type tcpEndpoint struct {
	addr string

	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// dialEndpoint connects once. goburrow re-dials by itself on the
// request after a broken connection.
func dialEndpoint(addr string, timeout time.Duration) (*tcpEndpoint, error) {
	if addr == "" {
		return nil, fmt.Errorf("mirror: endpoint address required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	handler := modbus.NewTCPClientHandler(addr)
	handler.Timeout = timeout
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("mirror: dial %s: %w", addr, err)
	}

	return &tcpEndpoint{
		addr:    addr,
		handler: handler,
		client:  modbus.NewClient(handler),
	}, nil
}

// WriteRegisters stores regs into holding registers starting at start
// on unit (function 16).
func (e *tcpEndpoint) WriteRegisters(unit uint8, start uint16, regs []uint16) error {
	payload := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(payload[2*i:], r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.handler.SlaveId = unit
	if _, err := e.client.WriteMultipleRegisters(start, uint16(len(regs)), payload); err != nil {
		return fmt.Errorf("mirror: %s unit %d write %d@%d: %w", e.addr, unit, len(regs), start, err)
	}
	return nil
}

func (e *tcpEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handler.Close()
}
