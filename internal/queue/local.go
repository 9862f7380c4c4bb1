package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when sending to a closed LocalQueue.
var ErrClosed = errors.New("queue closed")

// LocalQueue is an in-process buffered queue for single-binary deployments.
type LocalQueue struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

// NewLocalQueue creates a queue holding up to size pending messages.
func NewLocalQueue(size int) *LocalQueue {
	if size <= 0 {
		size = 64
	}
	return &LocalQueue{ch: make(chan Message, size)}
}

// Send enqueues msg, blocking while the buffer is full.
func (q *LocalQueue) Send(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the receive side of the queue. It is closed by Close.
func (q *LocalQueue) Messages() <-chan Message {
	return q.ch
}

// Close stops accepting messages. Pending messages remain readable.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

var _ Client = (*LocalQueue)(nil)
