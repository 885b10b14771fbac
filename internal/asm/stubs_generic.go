// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !amd64 && !arm64

package asm

// HasCounter is false on architectures without a supported cycle counter.
const HasCounter = false

// Pause is a no-op on unsupported architectures.
func Pause() {}

// Counter is a stub for unsupported architectures and returns 0.
func Counter() uint64 {
	return 0
}

// CounterFrequency is a stub for unsupported architectures and returns 0.
func CounterFrequency() uint64 {
	return 0
}
