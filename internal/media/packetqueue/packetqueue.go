// Package packetqueue contains a bounded, blocking ring of reusable slots.
package packetqueue

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrInvalidCapacity = errors.New("packet queue: capacity must be at least 2")
	ErrClosed          = errors.New("packet queue: closed")
	ErrEndOfStream     = errors.New("packet queue: end of stream")
)

type slot[T any] struct {
	v   T
	eos bool
}

// Queue is a fixed-capacity circular buffer with one producer and one consumer.
// Slots are allocated once and reused in place. A queue of capacity N holds at
// most N-1 items, so a slot returned by Pop stays untouched by the producer
// until the consumer pops again.
type Queue[T any] struct {
	slots []slot[T]

	nextToWrite int
	nextToRead  int

	mutex  sync.Mutex
	cond   *sync.Cond
	closed atomic.Bool
	sealed bool
	ended  bool
}

func New[T any](capacity int, alloc func() T) (*Queue[T], error) {
	if capacity < 2 {
		return nil, ErrInvalidCapacity
	}

	q := &Queue[T]{
		slots: make([]slot[T], capacity),
	}

	for i := range capacity {
		q.slots[i].v = alloc()
	}

	q.cond = sync.NewCond(&q.mutex)
	return q, nil
}

// Push waits for a free slot and lets fill write into it while the queue lock is held.
func (q *Queue[T]) Push(fill func(slot T)) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	i, err := q.reserve()
	if err != nil {
		return err
	}

	q.slots[i].eos = false
	fill(q.slots[i].v)
	q.commit()

	return nil
}

// PushEndOfStream appends the terminal sentinel. Pushes after it fail with ErrClosed.
func (q *Queue[T]) PushEndOfStream() error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	i, err := q.reserve()
	if err != nil {
		return err
	}

	q.slots[i].eos = true
	q.sealed = true
	q.commit()

	return nil
}

func (q *Queue[T]) reserve() (int, error) {
	for {
		if q.closed.Load() || q.sealed {
			return 0, ErrClosed
		}

		next := (q.nextToWrite + 1) % len(q.slots)
		if next != q.nextToRead {
			return q.nextToWrite, nil
		}

		q.cond.Wait()
	}
}

func (q *Queue[T]) commit() {
	q.nextToWrite = (q.nextToWrite + 1) % len(q.slots)
	q.cond.Broadcast()
}

// Pop waits for the next item. The returned slot is valid until the next call to Pop or TryPop.
func (q *Queue[T]) Pop() (T, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for {
		if q.closed.Load() {
			var zero T
			return zero, ErrClosed
		}

		if q.ended {
			var zero T
			return zero, ErrEndOfStream
		}

		if q.nextToWrite != q.nextToRead {
			return q.take()
		}

		q.cond.Wait()
	}
}

// TryPop is the non-blocking variant of Pop. ok is false when the queue is empty.
func (q *Queue[T]) TryPop() (v T, ok bool, err error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	switch {
	case q.closed.Load():
		return v, false, ErrClosed

	case q.ended:
		return v, false, ErrEndOfStream

	case q.nextToWrite == q.nextToRead:
		return v, false, nil
	}

	v, err = q.take()
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

func (q *Queue[T]) take() (T, error) {
	s := &q.slots[q.nextToRead]

	q.nextToRead = (q.nextToRead + 1) % len(q.slots)
	q.cond.Broadcast()

	if s.eos {
		q.ended = true
		var zero T
		return zero, ErrEndOfStream
	}

	return s.v, nil
}

// Close wakes every blocked caller. Any further Push or Pop returns ErrClosed.
func (q *Queue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closed.Store(true)
	q.cond.Broadcast()
}

func (q *Queue[T]) Closed() bool {
	return q.closed.Load()
}

// Len returns the number of slots in flight, the sentinel included.
func (q *Queue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return (q.nextToWrite - q.nextToRead + len(q.slots)) % len(q.slots)
}

func (q *Queue[T]) Cap() int {
	return len(q.slots)
}

// Free hands every slot to release. The queue must not be used afterwards.
func (q *Queue[T]) Free(release func(T)) {
	q.Close()

	q.mutex.Lock()
	defer q.mutex.Unlock()

	for i := range q.slots {
		release(q.slots[i].v)
		var zero T
		q.slots[i].v = zero
	}
}
