// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import (
	"fmt"
	"reflect"
)

// Backing selects where block storage comes from.
type Backing uint8

const (
	// Auto uses Mmap when the platform and element type allow it, else Heap.
	Auto Backing = iota
	// Heap allocates blocks as Go slices.
	Heap
	// Mmap allocates blocks as anonymous private mappings.
	Mmap
)

// String returns the backing name.
func (b Backing) String() string {
	switch b {
	case Auto:
		return "auto"
	case Heap:
		return "heap"
	case Mmap:
		return "mmap"
	default:
		return fmt.Sprintf("backing(%d)", uint8(b))
	}
}

// ParseBacking parses "auto", "heap" or "mmap".
func ParseBacking(s string) (Backing, error) {
	switch s {
	case "auto", "":
		return Auto, nil
	case "heap":
		return Heap, nil
	case "mmap":
		return Mmap, nil
	default:
		return Auto, fmt.Errorf("slab: unknown backing %q", s)
	}
}

// resolveBacking maps Auto to a concrete backing and validates Mmap.
func resolveBacking(b Backing, elem reflect.Type) (Backing, error) {
	mappable := elem.Size() > 0 && pointerFree(elem)
	switch b {
	case Auto:
		if mmapSupported && mappable {
			return Mmap, nil
		}
		return Heap, nil
	case Heap:
		return Heap, nil
	case Mmap:
		if !mmapSupported {
			return Heap, ErrMmapUnsupported
		}
		if !mappable {
			return Heap, fmt.Errorf("%w: %s", ErrNotMappable, elem)
		}
		return Mmap, nil
	default:
		return Heap, fmt.Errorf("slab: unknown backing %d", uint8(b))
	}
}

// pointerFree reports whether values of t hold no Go pointers.
func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
