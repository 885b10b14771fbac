// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import "errors"

var (
	// ErrMapFailed indicates a new block could not be obtained.
	// The pool cannot make progress until memory becomes available.
	ErrMapFailed = errors.New("slab: block allocation failed")

	// ErrClosed is returned by Allocate after Close.
	ErrClosed = errors.New("slab: pool closed")

	// ErrExhausted is returned when the 32-bit handle space is used up.
	ErrExhausted = errors.New("slab: handle space exhausted")

	// ErrNotMappable is returned when Mmap backing is requested for an
	// element type that contains pointers or has zero size.
	ErrNotMappable = errors.New("slab: element type cannot live in mapped memory")

	// ErrMmapUnsupported is returned when Mmap backing is requested on a
	// platform without anonymous mappings.
	ErrMmapUnsupported = errors.New("slab: anonymous mappings not supported")
)
