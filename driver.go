// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"io"
	"log/slog"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/ringq/clock"
	"code.hybscloud.com/ringq/internal/asm"
)

// MaxBackoff is the largest number of pause hints a driver issues between
// two attempts.
const MaxBackoff = 1 << 14

// backoff spins with pause hints, doubling the count after each wait up to
// MaxBackoff. At the ceiling it also yields the processor.
type backoff struct {
	n uint32
}

func (b *backoff) wait() {
	if b.n == 0 {
		b.n = 1
	}
	for range b.n {
		asm.Pause()
	}
	if b.n < MaxBackoff {
		b.n <<= 1
		return
	}
	runtime.Gosched()
}

func (b *backoff) reset() {
	b.n = 1
}

// DriverOption configures a [Producer] or an [Observer].
type DriverOption func(*driverConfig)

type driverConfig struct {
	clock  clock.Clock
	cpu    int
	logger *slog.Logger
	onFull func()
	start  uint64
	hasPos bool
}

func newDriverConfig(opts []DriverOption) driverConfig {
	cfg := driverConfig{cpu: -1}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg
}

// WithClock enables latency statistics timed with c.
// Counts are kept regardless.
func WithClock(c clock.Clock) DriverOption {
	return func(cfg *driverConfig) { cfg.clock = c }
}

// WithCPU pins the driver goroutine's OS thread to cpu. A negative value
// (the default) leaves placement to the scheduler. Pinning is supported on
// Linux only; elsewhere the failure is logged and the driver runs unpinned.
func WithCPU(cpu int) DriverOption {
	return func(cfg *driverConfig) { cfg.cpu = cpu }
}

// WithLogger sets the logger for lifecycle events. Default: discard.
func WithLogger(l *slog.Logger) DriverOption {
	return func(cfg *driverConfig) { cfg.logger = l }
}

// OnQueueFull sets a callback the producer invokes once each time pushes
// start failing, not on every failed attempt. Observers ignore it.
func OnQueueFull(fn func()) DriverOption {
	return func(cfg *driverConfig) { cfg.onFull = fn }
}

// StartAt sets the position an observer reads first. Without it the
// observer starts at the queue head when first started. Producers ignore
// it.
func StartAt(pos uint64) DriverOption {
	return func(cfg *driverConfig) {
		cfg.start = pos
		cfg.hasPos = true
	}
}

// runner owns the lifecycle of one worker goroutine.
type runner struct {
	mu      sync.Mutex
	running atomix.Bool
	done    chan struct{}
}

// start launches loop on a goroutine locked to its OS thread.
// Returns false if the worker is already running.
func (r *runner) start(cfg *driverConfig, name string, loop func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return false
	}
	done := make(chan struct{})
	r.done = done
	r.running.StoreRelease(true)

	go func() {
		defer close(done)
		runtime.LockOSThread()
		pinned := false
		if cfg.cpu >= 0 {
			if err := pinThread(cfg.cpu); err != nil {
				cfg.logger.Warn("cpu pinning failed", "driver", name, "cpu", cfg.cpu, "error", err)
			} else {
				pinned = true
			}
		}
		// A pinned thread exits with the goroutine instead of returning
		// to the scheduler with a narrowed affinity mask.
		if !pinned {
			defer runtime.UnlockOSThread()
		}
		cfg.logger.Debug("driver started", "driver", name, "cpu", cfg.cpu, "pinned", pinned)
		loop()
		cfg.logger.Debug("driver stopped", "driver", name)
	}()
	return true
}

// stop clears the run flag and waits for the worker to return.
// Returns false if the worker was not running.
func (r *runner) stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	r.running.StoreRelease(false)
	<-r.done
	r.done = nil
	return true
}

func (r *runner) active() bool {
	return r.running.LoadAcquire()
}
