// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ringq provides a bounded lock-free ring queue with pooled element
// storage, non-destructive reads, and goroutine drivers that feed and watch
// a queue.
//
// # Quick Start
//
//	q := ringq.NewQueue[Sample](1024)
//	defer q.Close()
//
//	q.Push(Sample{Sequence: 1})
//	s, ok := q.Pop()
//
// The builder configures element storage and statistics:
//
//	q, err := ringq.Build[Sample](ringq.New(1024).
//	    BlockSize(4096).        // slab elements per block
//	    Backing(slab.Mmap).     // anonymous mappings instead of Go heap
//	    Stats(clock.Default())) // per-operation counters and latencies
//
// # Operations
//
// Every operation is non-blocking:
//
//	Push(v) / Enqueue(&v)  add at the tail; false / ErrWouldBlock if full or contended
//	Pop() / Dequeue()      remove from the head; false / ErrWouldBlock if empty or contended
//	ReadAt(offset)         copy the element offset slots after the head
//	Peek(pos)              copy the element at absolute position pos
//
// A failed Push or Pop leaves the queue unchanged; the caller retries.
// Each pushed element is returned by exactly one successful Pop.
//
// # Capacity
//
// Capacity is used as given. One slot separates tail from head, so a queue
// of capacity n holds at most n-1 elements:
//
//	q := ringq.NewQueue[int](4)
//	q.Push(1); q.Push(2); q.Push(3) // true, true, true
//	q.Push(4)                       // false: full
//	q.Pop()                         // 1, true
//	q.Push(4)                       // true
//
// Length is intentionally not provided because accurate counts in lock-free
// algorithms require expensive cross-core synchronization. Head and Tail
// return the cursors for monitoring.
//
// # Positions
//
// Head and tail are monotonic 64-bit positions. Position p lives in slot
// p%Cap() during lap p/Cap(); each slot word carries its lap, so an
// operation holding a stale position fails instead of touching a newer
// element. Peek takes an absolute position, which lets an observer keep
// its place while consumers pop.
//
// # Element Storage
//
// Elements are copied into a [slab.Pool]: fixed-size blocks that are never
// moved or freed before the pool closes, with a lock-free free list.
// Pointer-free element types may use anonymous mmap blocks; other types use
// the Go heap. Several queues may share one pool through [BuildWithPool].
//
// # Drivers
//
// [Producer] calls a generator and pushes its values from a dedicated
// goroutine, backing off exponentially while the queue is full and calling
// an optional [OnQueueFull] callback once per full episode. [Observer]
// reads elements by position without removing them and passes each to a
// [Handler]. Both lock their goroutine to an OS thread, can pin it to a CPU
// on Linux, and keep counters readable at any time:
//
//	p := ringq.NewProducer(q, gen, ringq.OnQueueFull(func() { log.Print("queue is full") }))
//	o := ringq.NewObserver[Sample](q, ringq.HandlerFunc[Sample](process), ringq.WithCPU(2))
//	p.Start()
//	o.Start()
//	defer p.Stop()
//	defer o.Stop()
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	ringq.IsWouldBlock(err)  // true if queue full/empty/contended
//	ringq.IsSemantic(err)    // true if control flow signal
//	ringq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Race Detection
//
// Slot words and cursors synchronize through atomix acquire/release
// operations, which the race detector does not track. It reports false
// positives on element accesses ordered by them, and on Peek copies that
// slot validation later discards. Concurrent tests are skipped when
// [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CAS retry spinning, and
// [golang.org/x/sys/unix] for thread affinity.
package ringq
