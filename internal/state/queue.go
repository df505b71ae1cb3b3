package state

import (
	"context"
	"errors"
	"sync"
)

// WriteQueue serializes persistence writes in submission order so the session
// engine can fire-and-forget. History-before-stats ordering on completion
// falls out of submission order. Quota failures are reported through the
// callback (and the session continues); the engine never awaits a write.
type WriteQueue struct {
	ops chan queuedOp
	wg  sync.WaitGroup

	mu     sync.Mutex // guards closed and the send on ops
	closed bool
}

type queuedOp struct {
	fn func(context.Context) error
	cb func(error)
}

func NewWriteQueue(depth int) *WriteQueue {
	if depth <= 0 {
		depth = 64
	}
	q := &WriteQueue{
		ops: make(chan queuedOp, depth),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *WriteQueue) run() {
	defer q.wg.Done()
	for op := range q.ops {
		err := op.fn(context.Background())
		if op.cb != nil {
			op.cb(err)
		}
	}
}

var errQueueClosed = errors.New("write queue closed")

// Submit enqueues one write. cb may be nil. Writes submitted after Close are
// reported failed through the callback rather than silently dropped.
func (q *WriteQueue) Submit(fn func(context.Context) error, cb func(error)) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if cb != nil {
			cb(errQueueClosed)
		}
		return
	}
	q.ops <- queuedOp{fn: fn, cb: cb}
	q.mu.Unlock()
}

// Close drains pending writes and stops the worker. Close and Submit share the
// mutex so a Submit racing Close either lands before the channel closes or is
// rejected; it can never send on a closed channel.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ops)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
