// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"fmt"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/ringq/slab"
)

// Queue is a bounded multi-producer multi-consumer ring of element slots.
//
// Each slot is one atomic word holding a lap counter and a slab handle:
//
//	word = lap<<32 | handle    handle == 0: empty, else occupied
//
// Positions head and tail only grow; position p lives in slot p%capacity
// during lap p/capacity. A producer claims position tail by CAS-ing its slot
// from Empty(lap) to Occupied(lap, h) and then publishes tail+1. A consumer
// claims position head by CAS-ing the slot from Occupied(lap, h) to
// Empty(lap+1) and then publishes head+1. Because the lap is part of the
// word, a producer or consumer holding a stale position always fails its CAS.
//
// One slot stays free as the gap between tail and head, so at most
// capacity-1 elements are live.
//
// Element payloads live in a [slab.Pool]; Push copies the value in, Pop
// copies it out and frees the handle, Peek and ReadAt copy without
// removing.
type Queue[T any] struct {
	_        pad
	head     atomix.Uint64 // Next position to pop
	_        pad
	tail     atomix.Uint64 // Next position to push
	_        pad
	closed   atomix.Bool
	_        pad
	slots    []slot
	capacity uint64
	pool     *slab.Pool[T]
	ownsPool bool
	stats    queueStats
}

type slot struct {
	word atomix.Uint64
	_    padShort
}

const handleMask = 1<<32 - 1

func emptyWord(lap uint64) uint64 {
	return lap << 32
}

func fullWord(lap uint64, h slab.Handle) uint64 {
	return lap<<32 | uint64(h)
}

func wordLap(w uint64) uint64 {
	return w >> 32
}

func wordHandle(w uint64) slab.Handle {
	return slab.Handle(w & handleMask)
}

// lapOf returns the lap tag stored in slot words for position pos.
// Laps wrap at 32 bits.
func (q *Queue[T]) lapOf(pos uint64) uint64 {
	return (pos / q.capacity) & handleMask
}

type outcome uint8

const (
	done outcome = iota
	full         // Push: no free slot; Pop: no element
	contended    // Another goroutine won the slot
	allocFailed  // Push: slab could not provide storage
)

// Push adds v to the queue. Returns false if the queue is full, another
// producer won the slot, or element storage could not be allocated.
// False means "try again"; the queue state is unchanged.
func (q *Queue[T]) Push(v T) bool {
	return q.Enqueue(&v) == nil
}

// Enqueue copies *elem into the queue.
//
// Returns ErrWouldBlock if the queue is full or another producer won the
// slot, ErrClosed after Close, or an error wrapping the slab allocation
// failure. The queue state is unchanged on error.
func (q *Queue[T]) Enqueue(elem *T) error {
	if q.stats.clk == nil {
		_, err := q.enqueue(elem)
		return err
	}
	start := q.stats.clk.Now()
	o, err := q.enqueue(elem)
	q.stats.recordPush(q.stats.clk.Now()-start, o)
	return err
}

func (q *Queue[T]) enqueue(elem *T) (outcome, error) {
	if q.closed.LoadAcquire() {
		return allocFailed, ErrClosed
	}

	tail := q.tail.LoadAcquire()
	head := q.head.LoadAcquire()
	// head > tail means the tail load is stale.
	if head > tail || tail-head >= q.capacity-1 {
		return full, ErrWouldBlock
	}

	h, p, err := q.pool.Allocate()
	if err != nil {
		return allocFailed, fmt.Errorf("ringq: allocate element: %w", err)
	}
	*p = *elem

	lap := q.lapOf(tail)
	s := &q.slots[tail%q.capacity]
	if !s.word.CompareAndSwapAcqRel(emptyWord(lap), fullWord(lap, h)) {
		q.pool.Deallocate(h)
		return contended, ErrWouldBlock
	}
	q.tail.StoreRelease(tail + 1)
	return done, nil
}

// Pop removes and returns the oldest element. Returns false if the queue
// is empty or another consumer took the element first.
func (q *Queue[T]) Pop() (T, bool) {
	v, err := q.Dequeue()
	return v, err == nil
}

// Dequeue removes and returns the oldest element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty or another
// consumer won the slot. Each element is returned by exactly one call.
func (q *Queue[T]) Dequeue() (T, error) {
	if q.stats.clk == nil {
		v, _, err := q.dequeue()
		return v, err
	}
	start := q.stats.clk.Now()
	v, o, err := q.dequeue()
	q.stats.recordPop(q.stats.clk.Now()-start, o)
	return v, err
}

func (q *Queue[T]) dequeue() (T, outcome, error) {
	var zero T
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	if head >= tail {
		return zero, full, ErrWouldBlock
	}

	lap := q.lapOf(head)
	s := &q.slots[head%q.capacity]
	w := s.word.LoadAcquire()
	h := wordHandle(w)
	if h == slab.Nil || wordLap(w) != lap {
		return zero, contended, ErrWouldBlock
	}
	if !s.word.CompareAndSwapAcqRel(w, emptyWord((lap+1)&handleMask)) {
		return zero, contended, ErrWouldBlock
	}
	q.head.StoreRelease(head + 1)

	v := *q.pool.At(h)
	q.pool.Deallocate(h)
	return v, done, nil
}

// ReadAt returns a copy of the element offset positions after the head
// without removing it. Returns false if offset >= Cap() or the slot is
// empty. Repeated calls return the same value until the element is popped.
func (q *Queue[T]) ReadAt(offset uint64) (T, bool) {
	if offset >= q.capacity {
		var zero T
		if q.stats.clk != nil {
			q.stats.read.attempts.Add(1)
		}
		return zero, false
	}
	return q.Peek(q.head.LoadAcquire() + offset)
}

// Peek returns a copy of the element at absolute position pos without
// removing it. Returns false if pos has not been pushed yet or has already
// been popped.
//
// The slot word is checked before and after the copy, so an element that
// is popped (and its storage reused) during the copy is never returned.
func (q *Queue[T]) Peek(pos uint64) (T, bool) {
	if q.stats.clk == nil {
		return q.peek(pos)
	}
	start := q.stats.clk.Now()
	v, ok := q.peek(pos)
	q.stats.recordRead(q.stats.clk.Now()-start, ok)
	return v, ok
}

func (q *Queue[T]) peek(pos uint64) (T, bool) {
	var zero T
	s := &q.slots[pos%q.capacity]
	w := s.word.LoadAcquire()
	h := wordHandle(w)
	if h == slab.Nil || wordLap(w) != q.lapOf(pos) {
		return zero, false
	}
	v := *q.pool.At(h)
	// The copy is a plain load; keep it ordered before the recheck.
	atomix.BarrierAcquire()
	if s.word.LoadAcquire() != w {
		return zero, false
	}
	return v, true
}

// Head returns the position of the oldest element.
func (q *Queue[T]) Head() uint64 {
	return q.head.LoadAcquire()
}

// Tail returns the position the next element will be pushed to.
func (q *Queue[T]) Tail() uint64 {
	return q.tail.LoadAcquire()
}

// Cap returns the number of slots. At most Cap()-1 elements are live.
func (q *Queue[T]) Cap() int {
	return int(q.capacity)
}

// Pool returns the slab backing element storage.
func (q *Queue[T]) Pool() *slab.Pool[T] {
	return q.pool
}

// Close frees the elements still in the queue and, if the queue created
// its pool, closes the pool. Enqueue returns ErrClosed afterwards.
// Close must not run concurrently with other operations.
func (q *Queue[T]) Close() error {
	if q.closed.LoadAcquire() {
		return nil
	}
	q.closed.StoreRelease(true)

	for i := range q.slots {
		w := q.slots[i].word.LoadAcquire()
		if h := wordHandle(w); h != slab.Nil {
			q.slots[i].word.StoreRelease(emptyWord(wordLap(w)))
			q.pool.Deallocate(h)
		}
	}
	if q.ownsPool {
		return q.pool.Close()
	}
	return nil
}
