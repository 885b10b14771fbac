// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package slab provides a typed slot allocator for fixed-size elements.
//
// A Pool hands out Handles that address element storage inside large
// blocks. Blocks are mapped lazily when the bump cursor crosses into a new
// block and are released only when the pool is closed; individual elements
// are never returned to the operating system. Freed handles are kept on a
// lock-free free-list and reused before fresh storage is touched.
//
// # Quick Start
//
//	p, err := slab.New[Event](1024, slab.Auto)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	h, ev, err := p.Allocate()
//	if err != nil {
//	    return err // mapping failure or closed pool
//	}
//	ev.Seq = 1
//	...
//	p.Deallocate(h)
//
// # Backing Memory
//
//	slab.Heap  - blocks are Go slices; works for any element type
//	slab.Mmap  - blocks are anonymous private mappings; pointer-free types only
//	slab.Auto  - Mmap when allowed, otherwise Heap
//
// Mapped memory is invisible to the garbage collector, so element types
// containing pointers (including strings, slices, maps, interfaces) are
// rejected with [ErrNotMappable].
//
// # Handles
//
// A Handle is a 32-bit index, [Nil] is never returned by Allocate. Handles
// are stable for the pool lifetime, so they fit in a single atomic word
// next to other state (the ringq queue packs a handle and a lap counter
// into one 64-bit slot word).
//
// # Thread Safety
//
// Allocate, Deallocate and At are safe for concurrent use. The free-list is
// a tagged Treiber stack; block growth is serialized by a mutex on the
// slow path only. Close must not run concurrently with other calls.
package slab
