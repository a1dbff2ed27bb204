// internal/node/runner.go
package node

import (
	"context"
	"errors"
	"io"
)

// Source yields events one at a time.
type Source interface {
	Recv() (Event, error)
}

type received struct {
	ev  Event
	err error
}

// Run pulls events and hands each one to h, strictly in order.
// Returns nil on Exit or end of stream, ctx.Err() when ctx is done.
// Framing errors are returned: a broken CBOR sequence cannot be
// resynchronised.
//
// Recv runs on its own goroutine and is only asked for the next event
// after the previous one was handled. A Recv blocked on an fd that
// Close cannot interrupt (a blocking stdin) is abandoned on cancel.
func Run(ctx context.Context, src Source, h Handler) error {
	next := make(chan struct{})
	results := make(chan received)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-next:
			case <-done:
				return
			}
			ev, err := src.Recv()
			select {
			case results <- received{ev: ev, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case next <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		var r received
		select {
		case r = <-results:
		case <-ctx.Done():
			return ctx.Err()
		}

		if errors.Is(r.err, io.EOF) {
			return nil
		}
		if r.err != nil {
			return r.err
		}

		if h.HandleEvent(r.ev) == Exit {
			return nil
		}
	}
}
