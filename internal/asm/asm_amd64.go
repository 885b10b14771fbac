// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build amd64

package asm

// HasCounter reports whether Counter reads a real cycle counter.
const HasCounter = true

// Pause executes a single PAUSE instruction.
//
//go:noescape
func Pause()

// Counter returns the time stamp counter (RDTSC).
//
//go:noescape
func Counter() uint64

// CounterFrequency returns 0: the TSC rate is not architecturally exposed
// and must be calibrated.
func CounterFrequency() uint64 {
	return 0
}
