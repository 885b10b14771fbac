// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package clock

import "code.hybscloud.com/atomix"

// Manual is a deterministic Clock for tests.
//
// Every Now call returns the current value and then advances it by step,
// so consecutive reads measure exactly step ticks. One tick is one
// nanosecond.
type Manual struct {
	now  atomix.Uint64
	step uint64
}

// NewManual creates a Manual clock starting at zero.
func NewManual(step uint64) *Manual {
	return &Manual{step: step}
}

// Now returns the current value and advances it by step.
func (m *Manual) Now() uint64 {
	return m.now.AddAcqRel(m.step) - m.step
}

// Advance moves the clock forward by ticks.
func (m *Manual) Advance(ticks uint64) {
	m.now.AddAcqRel(ticks)
}

// Nanoseconds returns ticks unchanged.
func (m *Manual) Nanoseconds(ticks uint64) float64 {
	return float64(ticks)
}
