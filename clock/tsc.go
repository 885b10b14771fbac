// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package clock

import (
	"errors"
	"time"

	"code.hybscloud.com/ringq/internal/asm"
)

// ErrTSCUnsupported is returned when no cycle counter is available.
var ErrTSCUnsupported = errors.New("clock: no cycle counter on this architecture")

// CalibrationWindow is how long NewTSC samples the counter.
const CalibrationWindow = 10 * time.Millisecond

// TSC reads the CPU cycle counter: RDTSC on amd64, CNTVCT_EL0 on arm64.
//
// On arm64 the tick rate comes from CNTFRQ_EL0. On amd64 it is measured
// against the runtime monotonic clock at creation and may drift with
// frequency scaling on CPUs without an invariant TSC.
type TSC struct {
	nsPerTick float64
}

// NewTSC creates a TSC clock. The rate is read from the hardware where
// exposed, otherwise calibrated over CalibrationWindow.
func NewTSC() (*TSC, error) {
	if !asm.HasCounter {
		return nil, ErrTSCUnsupported
	}
	if hz := asm.CounterFrequency(); hz > 0 {
		return &TSC{nsPerTick: 1e9 / float64(hz)}, nil
	}
	ticksPerNs := CalibrateTSC(CalibrationWindow)
	if ticksPerNs <= 0 {
		return nil, ErrTSCUnsupported
	}
	return &TSC{nsPerTick: 1 / ticksPerNs}, nil
}

// NewTSCWithRate creates a TSC clock from a pre-measured rate in ticks per
// nanosecond (e.g. 3.0 for a 3GHz invariant TSC).
func NewTSCWithRate(ticksPerNs float64) (*TSC, error) {
	if !asm.HasCounter {
		return nil, ErrTSCUnsupported
	}
	if ticksPerNs <= 0 {
		return nil, errors.New("clock: TSC rate must be positive")
	}
	return &TSC{nsPerTick: 1 / ticksPerNs}, nil
}

// CalibrateTSC measures counter ticks per nanosecond over window.
// Returns 0 when the counter is unavailable.
func CalibrateTSC(window time.Duration) float64 {
	if !asm.HasCounter {
		return 0
	}
	asm.Counter()
	asm.Counter()

	t0 := nanotime()
	c0 := asm.Counter()
	time.Sleep(window)
	c1 := asm.Counter()
	t1 := nanotime()

	if t1 <= t0 || c1 <= c0 {
		return 0
	}
	return float64(c1-c0) / float64(t1-t0)
}

// Now returns the raw counter value.
func (c *TSC) Now() uint64 {
	return asm.Counter()
}

// Nanoseconds converts counter ticks to nanoseconds.
func (c *TSC) Nanoseconds(ticks uint64) float64 {
	return float64(ticks) * c.nsPerTick
}

// TicksPerNanosecond returns the calibrated rate.
func (c *TSC) TicksPerNanosecond() float64 {
	return 1 / c.nsPerTick
}
