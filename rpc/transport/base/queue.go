package base

import (
	"github.com/eapache/queue"
	"sync"
)

// writeQueue is the bounded FIFO of encoded frames waiting to be written to
// one connection. The reader of the connection pushes, the writer pops.
type writeQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames *queue.Queue
	limit  int
	closed bool // no more pushes, the writer drains what is left
	failed bool // the writer is gone, pending frames are dropped
}

func newWriteQueue(limit int) *writeQueue {
	if limit < 1 {
		limit = 1
	}
	q := &writeQueue{
		frames: queue.New(),
		limit:  limit,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a frame. It blocks while the queue is full and returns false
// if the queue was closed or the writer failed.
func (q *writeQueue) push(frame []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.frames.Length() >= q.limit && !q.closed && !q.failed {
		q.cond.Wait()
	}
	if q.closed || q.failed {
		return false
	}

	q.frames.Add(frame)
	q.cond.Broadcast()
	return true
}

// popBatch blocks until frames are available and removes up to max of them
// in FIFO order. It returns false once the queue is closed and empty, or the
// writer failed.
func (q *writeQueue) popBatch(max int) ([][]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.frames.Length() == 0 && !q.closed && !q.failed {
		q.cond.Wait()
	}
	if q.failed || q.frames.Length() == 0 {
		return nil, false
	}

	n := q.frames.Length()
	if n > max {
		n = max
	}
	batch := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, q.frames.Remove().([]byte))
	}

	// wake a reader blocked on a full queue
	q.cond.Broadcast()
	return batch, true
}

// close stops accepting frames. Frames already queued are still handed out.
func (q *writeQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// fail drops all pending frames and releases every waiter
func (q *writeQueue) fail() {
	q.mu.Lock()
	q.failed = true
	for q.frames.Length() > 0 {
		q.frames.Remove()
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pending returns the number of queued frames
func (q *writeQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.frames.Length()
}
