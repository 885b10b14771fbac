// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

// Enqueuer is the interface for adding elements.
//
// Enqueue is non-blocking. The queue stores a copy of *elem, so the
// caller may reuse elem after Enqueue returns. Returns ErrWouldBlock when
// the element cannot be added right now.
type Enqueuer[T any] interface {
	Enqueue(elem *T) error
}

// Dequeuer is the interface for removing elements.
//
// Dequeue is non-blocking. Returns (zero-value, ErrWouldBlock) when no
// element can be removed right now.
type Dequeuer[T any] interface {
	Dequeue() (T, error)
}

// Peeker is the interface for non-destructive reads by absolute position.
type Peeker[T any] interface {
	// Peek returns a copy of the element at pos, or false if there is
	// none (not yet pushed, or already popped).
	Peek(pos uint64) (T, bool)

	// Head returns the position of the oldest element still queued.
	Head() uint64
}

// Handler receives the elements an [Observer] reads.
//
// OnData runs on the observer's goroutine, one call at a time, in
// position order. Long-running handlers make the observer lag.
type Handler[T any] interface {
	OnData(v T)
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc[T any] func(v T)

// OnData calls f(v).
func (f HandlerFunc[T]) OnData(v T) {
	f(v)
}

var (
	_ Enqueuer[int] = (*Queue[int])(nil)
	_ Dequeuer[int] = (*Queue[int])(nil)
	_ Peeker[int]   = (*Queue[int])(nil)
)
