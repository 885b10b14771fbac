// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package asm_test

import (
	"runtime"
	"testing"

	"code.hybscloud.com/ringq/internal/asm"
)

func TestPause(t *testing.T) {
	for range 1024 {
		asm.Pause()
	}
}

func TestCounterMonotonic(t *testing.T) {
	if !asm.HasCounter {
		if got := asm.Counter(); got != 0 {
			t.Fatalf("Counter without hardware counter: got %d, want 0", got)
		}
		t.Skip("skip: no cycle counter on this architecture")
	}

	prev := asm.Counter()
	for i := range 1000 {
		now := asm.Counter()
		if now < prev {
			t.Fatalf("iteration %d: counter went backwards: %d < %d", i, now, prev)
		}
		prev = now
	}
}

func TestCounterFrequency(t *testing.T) {
	f := asm.CounterFrequency()
	switch runtime.GOARCH {
	case "arm64":
		if f == 0 {
			t.Fatalf("CounterFrequency: got 0 on arm64")
		}
	default:
		if f != 0 {
			t.Fatalf("CounterFrequency: got %d, want 0 on %s", f, runtime.GOARCH)
		}
	}
}
