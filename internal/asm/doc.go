// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package asm provides architecture-specific helpers for hot paths.
//
// Pause emits the CPU spin-wait hint (PAUSE on amd64, YIELD on arm64) and is
// a no-op elsewhere. Counter reads the cycle counter: the time stamp counter
// on amd64, CNTVCT_EL0 on arm64. CounterFrequency reports the counter rate
// where the hardware exposes it (CNTFRQ_EL0) and 0 otherwise. Both return 0
// where HasCounter is false.
package asm
