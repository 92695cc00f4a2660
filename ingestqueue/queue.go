// Package ingestqueue implements the bounded-latency, unbounded-length
// FIFO shared between ingest producers and the one writer-thread
// consumer (spec.md §4.4). There is no direct teacher analogue for the
// condition-variable FIFO itself; the atomic-counter metrics style is
// adapted from friggdb's FindMetrics (friggdb.go), which tracks per-call
// counts with go.uber.org/atomic rather than bare ints.
package ingestqueue

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/pkg/errors"
)

// ErrClosed is returned by Push once the queue has been closed.
var ErrClosed = errors.New("ingestqueue: closed")

// Item is one enqueued ingest request.
type Item struct {
	SeriesID uint64
	Ts       int64
	Value    float64
	TagsJSON string
}

// Metrics are the lock-free counters callers may read concurrently with
// push/pop.
type Metrics struct {
	WaitNanosTotal  atomic.Int64
	HoldNanosTotal  atomic.Int64
	ContentionTotal atomic.Int64
	PopTotal        atomic.Int64
}

const popTimeout = 100 * time.Millisecond
const contentionThreshold = 1 * time.Microsecond

// Queue is a mutex + condition-variable bounded-latency FIFO.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []Item
	closed  bool
	Metrics Metrics
}

// New creates an open, empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item to the back of the queue and wakes one waiter. It
// fails with ErrClosed once Close has been called.
func (q *Queue) Push(item Item) error {
	waitStart := time.Now()
	q.mu.Lock()
	waited := time.Since(waitStart)
	if waited > contentionThreshold {
		q.Metrics.ContentionTotal.Add(1)
	}
	q.Metrics.WaitNanosTotal.Add(waited.Nanoseconds())

	holdStart := time.Now()
	defer func() {
		q.Metrics.HoldNanosTotal.Add(time.Since(holdStart).Nanoseconds())
		q.mu.Unlock()
	}()

	if q.closed {
		return ErrClosed
	}

	q.items = append(q.items, item)
	q.cond.Signal()
	return nil
}

// Pop removes and returns the item at the front of the queue. It blocks
// while the queue is empty and open, waking on a 100ms timeout to return
// (Item{}, false) so callers can re-check shutdown conditions. Once
// closed, Pop still drains any items pushed before Close, and only then
// starts returning (Item{}, false) immediately.
func (q *Queue) Pop() (Item, bool) {
	waitStart := time.Now()
	q.mu.Lock()
	waited := time.Since(waitStart)
	if waited > contentionThreshold {
		q.Metrics.ContentionTotal.Add(1)
	}
	q.Metrics.WaitNanosTotal.Add(waited.Nanoseconds())

	holdStart := time.Now()
	defer func() {
		q.Metrics.HoldNanosTotal.Add(time.Since(holdStart).Nanoseconds())
		q.mu.Unlock()
	}()

	if len(q.items) == 0 && !q.closed {
		q.waitWithTimeout(popTimeout)
	}

	if len(q.items) == 0 {
		return Item{}, false
	}

	item := q.items[0]
	q.items = q.items[1:]
	q.Metrics.PopTotal.Add(1)
	return item, true
}

// waitWithTimeout waits on the condition variable for at most d. Callers
// must hold q.mu; it is released for the duration of the wait and
// reacquired before returning, exactly like sync.Cond.Wait. A timer
// guarantees a wakeup even with no Push/Close, by broadcasting once d
// elapses.
func (q *Queue) waitWithTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	q.cond.Wait()
}

// Close marks the queue closed and wakes all waiters. Subsequent Push
// calls fail; Pop continues to drain remaining items, then returns
// (Item{}, false).
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Len is an instantaneous snapshot of the queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
