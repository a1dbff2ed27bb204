// internal/node/stream.go
package node

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Frame types on the wire.
const (
	frameInput  = "input"
	frameStop   = "stop"
	frameOutput = "output"
)

// frame is one item of the CBOR sequence exchanged with the runtime.
type frame struct {
	Type string `cbor:"type"`
	ID   string `cbor:"id,omitempty"`
	Data []byte `cbor:"data,omitempty"`
}

// Stream is a bidirectional CBOR sequence with the dataflow runtime.
// Recv is called from the event loop only; Close may be called from
// any goroutine to unblock it.
type Stream struct {
	dec    *cbor.Decoder
	enc    *cbor.Encoder
	closer io.Closer

	mu sync.Mutex // serializes Send
}

// NewStream frames events over r and outputs over w.
// closer (optional) is closed by Close.
func NewStream(r io.Reader, w io.Writer, closer io.Closer) *Stream {
	return &Stream{
		dec:    decMode.NewDecoder(r),
		enc:    encMode.NewEncoder(w),
		closer: closer,
	}
}

// Stdio returns a stream over stdin/stdout.
func Stdio() *Stream {
	return NewStream(os.Stdin, os.Stdout, os.Stdin)
}

// Dial connects to the runtime's Unix socket.
func Dial(path string) (*Stream, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("node: dial %s: %w", path, err)
	}
	return NewStream(conn, conn, conn), nil
}

// Recv blocks for the next event.
// Returns io.EOF when the runtime closes the stream cleanly.
func (s *Stream) Recv() (Event, error) {
	var f frame
	if err := s.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("node: decode frame: %w", err)
	}

	switch f.Type {
	case frameInput:
		return Input{ID: f.ID, Data: f.Data}, nil
	case frameStop:
		return Stop{}, nil
	default:
		return Unknown{Type: f.Type}, nil
	}
}

// Send publishes v as CBOR on output id.
func (s *Stream) Send(id string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("node: encode %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(frame{Type: frameOutput, ID: id, Data: data}); err != nil {
		return fmt.Errorf("node: send %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
