package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/agentcore/pkg/domain"
)

var errOutboxClosed = errors.New("outbox closed")

// outbox is an unbounded FIFO between the session and the connection.
// Emit never blocks; run drains it from a single goroutine.
type outbox struct {
	mu     sync.Mutex
	queue  []domain.Event
	closed bool
	err    error
	ready  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{ready: make(chan struct{}, 1)}
}

// Emit implements ports.EventSink. It fails once the writer has failed,
// which the session treats as a transport fault.
func (o *outbox) Emit(_ context.Context, e domain.Event) error {
	o.mu.Lock()
	switch {
	case o.err != nil:
		err := o.err
		o.mu.Unlock()
		return err
	case o.closed:
		o.mu.Unlock()
		return errOutboxClosed
	}
	o.queue = append(o.queue, e)
	o.mu.Unlock()
	o.signal()
	return nil
}

// close lets run return once the queue is empty.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

// run sends queued events in order until the outbox is closed and drained,
// or a send fails.
func (o *outbox) run(ctx context.Context, conn Conn) error {
	for {
		o.mu.Lock()
		batch, closed := o.queue, o.closed
		o.queue = nil
		o.mu.Unlock()

		for _, e := range batch {
			if err := conn.Send(ctx, e); err != nil {
				o.mu.Lock()
				o.err = err
				o.queue = nil
				o.mu.Unlock()
				return err
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return nil
		}
		<-o.ready
	}
}
