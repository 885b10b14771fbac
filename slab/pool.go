// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Handle addresses one element of a Pool. The zero Handle is [Nil].
type Handle uint32

// Nil is the invalid handle.
const Nil Handle = 0

const (
	maxHandles = 1<<32 - 1
	handleMask = 1<<32 - 1
	tagInc     = 1 << 32

	// liveMark in an element link means the handle is allocated.
	liveMark = 1 << 63
)

// Pool is a block-based slot allocator for elements of type T.
//
// Handle h lives in block (h-1)/blockSize at index (h-1)%blockSize.
// Fresh handles come from a bump cursor, freed handles from a lock-free
// free-list. Every handle ever returned is either live or on the free-list.
type Pool[T any] struct {
	_      pad
	free   atomix.Uint64 // Free-list top: tag<<32 | handle
	_      pad
	bump   atomix.Uint64 // Fresh handles issued so far
	_      pad
	reused atomix.Uint64
	freed  atomix.Uint64
	lost   atomix.Uint64 // Bumped handles whose block failed to map
	_      pad

	table     atomic.Pointer[[]*block[T]] // Copy-on-grow block table
	mu        sync.Mutex                  // Serializes growth and Close
	closed    atomix.Bool
	blockSize uint64
	elemSize  uintptr
	backing   Backing
}

type block[T any] struct {
	items []T
	links []atomix.Uint64 // Free-list next handle, or liveMark
	mem   []byte          // Mapping backing items, nil for Heap
}

// New creates a pool with blockSize elements per block and maps the first
// block. Auto backing resolves to Mmap or Heap for T.
//
// Panics if blockSize < 1.
func New[T any](blockSize int, backing Backing) (*Pool[T], error) {
	if blockSize < 1 {
		panic("slab: block size must be >= 1")
	}
	elem := reflect.TypeFor[T]()
	resolved, err := resolveBacking(backing, elem)
	if err != nil {
		return nil, err
	}

	p := &Pool[T]{
		blockSize: uint64(blockSize),
		elemSize:  elem.Size(),
		backing:   resolved,
	}
	empty := []*block[T]{}
	p.table.Store(&empty)

	if err := p.grow(0); err != nil {
		return nil, err
	}
	return p, nil
}

// Allocate returns a zeroed element and its handle.
//
// Freed handles are reused first (most recently freed first). Otherwise
// the bump cursor advances, mapping a new block when the current one is
// exhausted. A mapping failure returns an error wrapping [ErrMapFailed].
func (p *Pool[T]) Allocate() (Handle, *T, error) {
	if p.closed.LoadAcquire() {
		return Nil, nil, ErrClosed
	}

	// Deallocate zeroed the element before publishing it.
	if h := p.pop(); h != Nil {
		p.link(h).StoreRelease(liveMark)
		p.reused.Add(1)
		return h, p.At(h), nil
	}

	n := p.bump.AddAcqRel(1)
	if n > maxHandles {
		return Nil, nil, ErrExhausted
	}
	if err := p.grow((n - 1) / p.blockSize); err != nil {
		// Handle n is never issued.
		p.lost.Add(1)
		return Nil, nil, err
	}

	h := Handle(n)
	p.link(h).StoreRelease(liveMark)
	return h, p.At(h), nil
}

// Deallocate zeroes the element in place and puts h on the free-list.
// The storage stays mapped until Close.
//
// Panics if h is Nil, was never issued, or is not live.
func (p *Pool[T]) Deallocate(h Handle) {
	if h == Nil || uint64(h) > p.bump.LoadAcquire() {
		panic("slab: invalid handle")
	}
	l := p.link(h)
	if !l.CompareAndSwapAcqRel(liveMark, 0) {
		panic("slab: deallocate of handle that is not live")
	}

	var zero T
	*p.At(h) = zero

	p.freed.Add(1)
	p.push(h, l)
}

// At returns the element addressed by h.
// The pointer stays valid until Close, including after Deallocate.
func (p *Pool[T]) At(h Handle) *T {
	b, i := p.locate(h)
	return &b.items[i]
}

func (p *Pool[T]) link(h Handle) *atomix.Uint64 {
	b, i := p.locate(h)
	return &b.links[i]
}

func (p *Pool[T]) locate(h Handle) (*block[T], uint64) {
	i := uint64(h) - 1
	tbl := *p.table.Load()
	return tbl[i/p.blockSize], i % p.blockSize
}

// grow maps blocks until block index idx exists.
func (p *Pool[T]) grow(idx uint64) error {
	if uint64(len(*p.table.Load())) > idx {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.LoadAcquire() {
		return ErrClosed
	}

	tbl := *p.table.Load()
	for uint64(len(tbl)) <= idx {
		b, err := p.newBlock()
		if err != nil {
			return err
		}
		next := append(slices.Clip(tbl), b)
		p.table.Store(&next)
		tbl = next
	}
	return nil
}

func (p *Pool[T]) newBlock() (*block[T], error) {
	n := int(p.blockSize)
	b := &block[T]{links: make([]atomix.Uint64, n)}

	if p.backing != Mmap {
		b.items = make([]T, n)
		return b, nil
	}

	size := n * int(p.elemSize)
	mem, err := mapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrMapFailed, size, err)
	}
	b.mem = mem
	b.items = unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(mem))), n)
	return b, nil
}

// Close releases every block. Handles and pointers obtained from the pool
// become invalid. Close is idempotent.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.LoadAcquire() {
		return nil
	}
	p.closed.StoreRelease(true)

	var errs []error
	for _, b := range *p.table.Load() {
		if b.mem != nil {
			errs = append(errs, unmap(b.mem))
		}
	}
	empty := []*block[T]{}
	p.table.Store(&empty)
	return errors.Join(errs...)
}

// Blocks returns the number of mapped blocks.
func (p *Pool[T]) Blocks() int {
	return len(*p.table.Load())
}

// BlockSize returns the number of elements per block.
func (p *Pool[T]) BlockSize() int {
	return int(p.blockSize)
}

// Backing returns the resolved backing (never Auto).
func (p *Pool[T]) Backing() Backing {
	return p.backing
}

// Stats is a point-in-time snapshot of pool counters.
// Fields are read independently and may be momentarily inconsistent
// under concurrent use.
type Stats struct {
	Backing   Backing
	Blocks    int
	BlockSize int
	Fresh     uint64 // Handles issued from block storage
	Reused    uint64 // Allocations served by the free-list
	Freed     uint64 // Deallocations
	Live      uint64 // Allocated and not yet freed
	Free      uint64 // Handles waiting on the free-list
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() Stats {
	reused := p.reused.Load()
	freed := p.freed.Load()
	fresh := sub(min(p.bump.Load(), maxHandles), p.lost.Load())
	return Stats{
		Backing:   p.backing,
		Blocks:    p.Blocks(),
		BlockSize: int(p.blockSize),
		Fresh:     fresh,
		Reused:    reused,
		Freed:     freed,
		Live:      sub(fresh+reused, freed),
		Free:      sub(freed, reused),
	}
}

// String formats the snapshot for humans.
func (s Stats) String() string {
	return fmt.Sprintf("backing=%s blocks=%d block_size=%d fresh=%d reused=%d freed=%d live=%d free=%d",
		s.Backing, s.Blocks, s.BlockSize, s.Fresh, s.Reused, s.Freed, s.Live, s.Free)
}

func sub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
