// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build arm64

package asm

// HasCounter reports whether Counter reads a real cycle counter.
const HasCounter = true

// Pause executes a single YIELD instruction.
//
//go:noescape
func Pause()

// Counter returns the virtual counter CNTVCT_EL0.
//
//go:noescape
func Counter() uint64

// CounterFrequency returns CNTFRQ_EL0, the virtual counter rate in Hz.
//
//go:noescape
func CounterFrequency() uint64
