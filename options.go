// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"fmt"

	"code.hybscloud.com/ringq/clock"
	"code.hybscloud.com/ringq/slab"
)

// DefaultBlockSize is the number of elements per slab block when the
// builder does not set one.
const DefaultBlockSize = 1024

// Options configures queue creation.
type Options struct {
	// Number of slots; at most capacity-1 elements are live
	capacity int

	// Element storage
	blockSize int
	backing   slab.Backing

	// Statistics; nil disables them
	clock clock.Clock
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Queue with its own mmap-backed element pool and statistics
//	q, err := ringq.Build[Sample](ringq.New(1024).
//	    BlockSize(4096).
//	    Backing(slab.Mmap).
//	    Stats(clock.Default()))
//
//	// Queue sharing a caller-owned pool
//	pool, _ := slab.New[Sample](4096, slab.Auto)
//	q := ringq.BuildWithPool(ringq.New(1024), pool)
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity is used as given; it need not be a power of 2.
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("ringq: capacity must be >= 2")
	}
	return &Builder{opts: Options{
		capacity:  capacity,
		blockSize: DefaultBlockSize,
		backing:   slab.Auto,
	}}
}

// BlockSize sets the number of elements per slab block.
// Panics if n < 1.
func (b *Builder) BlockSize(n int) *Builder {
	if n < 1 {
		panic("ringq: block size must be >= 1")
	}
	b.opts.blockSize = n
	return b
}

// Backing selects where slab blocks come from. Default: [slab.Auto].
func (b *Builder) Backing(k slab.Backing) *Builder {
	b.opts.backing = k
	return b
}

// Stats enables per-operation statistics timed with c.
// A nil clock disables statistics, which is the default.
func (b *Builder) Stats(c clock.Clock) *Builder {
	b.opts.clock = c
	return b
}

// Capacity returns the configured number of slots.
func (b *Builder) Capacity() int {
	return b.opts.capacity
}

// Build creates a queue with its own element pool. Close releases the
// pool.
//
// Returns an error if the pool cannot be created, for example when
// [slab.Mmap] is requested for an element type containing pointers.
func Build[T any](b *Builder) (*Queue[T], error) {
	pool, err := slab.New[T](b.opts.blockSize, b.opts.backing)
	if err != nil {
		return nil, fmt.Errorf("ringq: create element pool: %w", err)
	}
	q := newQueue(b.opts, pool)
	q.ownsPool = true
	return q, nil
}

// BuildWithPool creates a queue storing elements in pool.
//
// Several queues may share one pool. The caller closes the pool after
// every queue using it is closed. BlockSize and Backing are ignored.
func BuildWithPool[T any](b *Builder, pool *slab.Pool[T]) *Queue[T] {
	if pool == nil {
		panic("ringq: nil pool")
	}
	return newQueue(b.opts, pool)
}

// NewQueue creates a queue with default options.
// Panics if capacity < 2 or the element pool cannot be created.
func NewQueue[T any](capacity int) *Queue[T] {
	q, err := Build[T](New(capacity))
	if err != nil {
		panic(err)
	}
	return q
}

func newQueue[T any](opts Options, pool *slab.Pool[T]) *Queue[T] {
	q := &Queue[T]{
		slots:    make([]slot, opts.capacity),
		capacity: uint64(opts.capacity),
		pool:     pool,
	}
	q.stats.clk = opts.clock
	q.stats.reset()
	return q
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
