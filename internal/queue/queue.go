// Package queue provides a bounded, thread-safe FIFO hand-off queue.
//
// Bounded supports blocking Put/Get with optional timeouts, a one-shot Close
// that wakes every waiter, and a completion protocol (Complete/DrainWait) that
// lets a coordinator prove every item handed off through the queue has been
// fully processed downstream, not merely removed.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned when an operation is attempted on a closed queue, or
// when the queue is closed while the caller is waiting. Use errors.Is to test
// for it.
var ErrClosed = errors.New("queue is closed")

// Bounded is a fixed-capacity FIFO queue safe for concurrent use by any
// number of goroutines.
//
// Every successful Put increments an outstanding-work counter; callers
// acknowledge finished items with Complete. DrainWait blocks until the
// counter reaches zero, which means the queue is empty and every removed
// item has been acknowledged.
//
// Waiting is implemented with a generation channel: a chan struct{} that is
// closed and replaced under the queue mutex on every relevant state change.
// Waiters snapshot the channel, release the mutex, and select on the channel
// and a deadline timer; after any wake they reacquire the mutex and re-check
// their predicate, so spurious wakeups are harmless and timeouts are measured
// against a fixed deadline.
type Bounded[T any] struct {
	mu          sync.Mutex
	buf         []T
	head        int
	count       int
	outstanding int
	closed      bool

	// change is closed and remade on every enqueue, dequeue, drain, and
	// close. Snapshot it under mu before waiting on it.
	change chan struct{}
}

// New creates a Bounded queue holding at most capacity items.
// Capacity must be positive.
func New[T any](capacity int) (*Bounded[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("queue capacity must be positive, got %d", capacity)
	}

	return &Bounded[T]{
		buf:    make([]T, capacity),
		change: make(chan struct{}),
	}, nil
}

// Put enqueues item, blocking while the queue is full. It returns true when
// the item was enqueued, or false when timeout elapsed first. A non-positive
// timeout waits indefinitely.
//
// Put fails with ErrClosed if the queue is closed at call time or becomes
// closed while waiting. On success the outstanding counter is incremented;
// the matching Complete is owed by whoever finishes processing the item.
func (q *Bounded[T]) Put(item T, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return false, ErrClosed
		}

		if q.count < len(q.buf) {
			q.buf[(q.head+q.count)%len(q.buf)] = item
			q.count++
			q.outstanding++
			q.broadcast()
			q.mu.Unlock()
			return true, nil
		}

		ch := q.change
		q.mu.Unlock()
		if !await(ch, deadline) {
			return false, nil
		}
		q.mu.Lock()
	}
}

// Get removes and returns the oldest item, blocking while the queue is
// empty. The second return value is false when timeout elapsed with nothing
// available. A non-positive timeout waits indefinitely.
//
// Get fails with ErrClosed only once the queue is closed AND empty; a closed
// queue still yields the items it holds.
func (q *Bounded[T]) Get(timeout time.Duration) (T, bool, error) {
	var zero T
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	q.mu.Lock()
	for {
		if q.count > 0 {
			item := q.buf[q.head]
			q.buf[q.head] = zero
			q.head = (q.head + 1) % len(q.buf)
			q.count--
			q.broadcast()
			q.mu.Unlock()
			return item, true, nil
		}

		if q.closed {
			q.mu.Unlock()
			return zero, false, ErrClosed
		}

		ch := q.change
		q.mu.Unlock()
		if !await(ch, deadline) {
			return zero, false, nil
		}
		q.mu.Lock()
	}
}

// Complete acknowledges one previously enqueued item as fully processed.
// It must be called exactly once for every item removed by Get.
//
// Calling Complete more times than items were put is a programming error and
// panics, in the manner of a negative sync.WaitGroup counter.
func (q *Bounded[T]) Complete() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.outstanding == 0 {
		panic("queue: Complete called too many times")
	}

	q.outstanding--
	if q.outstanding == 0 {
		q.broadcast()
	}
}

// DrainWait blocks until the outstanding counter reaches zero: every item
// put into the queue has been removed and acknowledged via Complete.
//
// If the queue is closed while work is still outstanding, DrainWait returns
// ErrClosed rather than waiting on stragglers that may never acknowledge.
func (q *Bounded[T]) DrainWait() error {
	q.mu.Lock()
	for {
		if q.outstanding == 0 {
			q.mu.Unlock()
			return nil
		}

		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}

		ch := q.change
		q.mu.Unlock()
		<-ch
		q.mu.Lock()
	}
}

// Close transitions the queue to closed and wakes every goroutine blocked in
// Put, Get, or DrainWait so it can re-evaluate and fail or return per its
// contract. Close returns ErrClosed if the queue is already closed.
func (q *Bounded[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.closed = true
	q.broadcast()
	return nil
}

// Len returns the current number of items held in the queue.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity set at construction.
func (q *Bounded[T]) Cap() int {
	return len(q.buf)
}

// IsEmpty reports whether the queue holds no items.
func (q *Bounded[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

// IsFull reports whether the queue is at capacity.
func (q *Bounded[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == len(q.buf)
}

// Outstanding returns the number of items put but not yet acknowledged via
// Complete.
func (q *Bounded[T]) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

// IsClosed reports whether Close has been called.
func (q *Bounded[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// broadcast wakes every waiter by closing the current generation channel and
// installing a fresh one. Callers must hold q.mu.
func (q *Bounded[T]) broadcast() {
	close(q.change)
	q.change = make(chan struct{})
}

// await blocks until ch is closed or deadline passes. It returns false only
// when the deadline passed first. A zero deadline means no limit.
func await(ch <-chan struct{}, deadline time.Time) bool {
	if deadline.IsZero() {
		<-ch
		return true
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
