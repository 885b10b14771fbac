// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clock provides monotonic counter sources for statistics.
//
// A Clock returns raw ticks from Now and converts tick differences to
// nanoseconds with Nanoseconds. Ticks are only meaningful as differences
// taken from the same Clock. Clocks are used for latency accounting and
// never on a correctness path.
//
// Three sources are provided:
//
//	clock.System{}      // runtime monotonic clock, 1 tick = 1ns
//	clock.NewTSC()      // CPU cycle counter (RDTSC, CNTVCT_EL0)
//	clock.NewManual(1)  // deterministic clock for tests
//
// Default returns the cheapest source available on the running machine.
package clock

import (
	"sync"
	_ "unsafe" // for go:linkname
)

// Clock is a monotonic counter source.
type Clock interface {
	// Now returns the current counter value.
	Now() uint64

	// Nanoseconds converts a tick count to nanoseconds.
	Nanoseconds(ticks uint64) float64
}

// nanotime returns the runtime's monotonic time in nanoseconds.
// Cheaper than time.Now: no wall clock read, no time.Time construction.
//
//go:linkname nanotime runtime.nanotime
func nanotime() int64

// System reads the runtime monotonic clock. One tick is one nanosecond.
type System struct{}

// Now returns monotonic nanoseconds since an arbitrary epoch.
func (System) Now() uint64 {
	return uint64(nanotime())
}

// Nanoseconds returns ticks unchanged.
func (System) Nanoseconds(ticks uint64) float64 {
	return float64(ticks)
}

var (
	defaultOnce  sync.Once
	defaultClock Clock
)

// Default returns a TSC clock when the architecture supports it and System
// otherwise. The TSC is created once, on the first call.
func Default() Clock {
	defaultOnce.Do(func() {
		if c, err := NewTSC(); err == nil {
			defaultClock = c
			return
		}
		defaultClock = System{}
	})
	return defaultClock
}
