// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// Observer reads queue elements without removing them and hands each one
// to a [Handler], in position order, from a dedicated goroutine.
//
// The observer keeps its own cursor. On a miss it retries once at once,
// then backs off. If consumers popped past the cursor, the observer skips
// ahead to the queue head and counts the skipped positions as lagged.
// The cursor survives Stop and Start.
//
// Example:
//
//	o := ringq.NewObserver[Sample](q, ringq.HandlerFunc[Sample](func(s Sample) {
//	    fmt.Println(s.Sequence)
//	}))
//	o.Start()
//	defer o.Stop()
type Observer[T any] struct {
	q   Peeker[T]
	h   Handler[T]
	cfg driverConfig
	run runner

	cursor     atomix.Uint64
	positioned bool // Guarded by run.mu

	reads    atomix.Uint64
	hits     atomix.Uint64
	empty    atomix.Uint64
	backoffs atomix.Uint64
	lagged   atomix.Uint64
	latency  opCounters
}

// NewObserver creates a stopped observer delivering elements of q to h.
func NewObserver[T any](q Peeker[T], h Handler[T], opts ...DriverOption) *Observer[T] {
	if q == nil || h == nil {
		panic("ringq: observer needs a queue and a handler")
	}
	o := &Observer[T]{q: q, h: h, cfg: newDriverConfig(opts)}
	if o.cfg.hasPos {
		o.cursor.Store(o.cfg.start)
		o.positioned = true
	}
	o.latency.reset()
	return o
}

// Start launches the observer goroutine. No-op if already running.
// The first start without [StartAt] positions the cursor at the queue
// head.
func (o *Observer[T]) Start() {
	o.run.mu.Lock()
	if !o.positioned {
		o.cursor.StoreRelease(o.q.Head())
		o.positioned = true
	}
	o.run.mu.Unlock()
	o.run.start(&o.cfg, "observer", o.loop)
}

// Stop signals the observer and waits for its goroutine to exit.
// Safe to call more than once.
func (o *Observer[T]) Stop() {
	o.run.stop()
}

// Close stops the observer.
func (o *Observer[T]) Close() error {
	o.Stop()
	return nil
}

// Running reports whether the observer goroutine is active.
func (o *Observer[T]) Running() bool {
	return o.run.active()
}

// Cursor returns the next position the observer will read.
func (o *Observer[T]) Cursor() uint64 {
	return o.cursor.LoadAcquire()
}

func (o *Observer[T]) loop() {
	pos := o.cursor.LoadAcquire()
	b := backoff{n: 1}
	missed := false
	for o.run.active() {
		var start uint64
		if o.cfg.clock != nil {
			start = o.cfg.clock.Now()
		}
		o.reads.Add(1)
		v, ok := o.q.Peek(pos)
		if ok {
			if o.cfg.clock != nil {
				o.latency.record(o.cfg.clock.Now()-start, true)
			}
			o.h.OnData(v)
			o.hits.Add(1)
			pos++
			o.cursor.StoreRelease(pos)
			missed = false
			b.reset()
			continue
		}

		o.empty.Add(1)
		if !missed {
			missed = true
			continue
		}
		if head := o.q.Head(); pos < head {
			o.lagged.Add(head - pos)
			pos = head
			o.cursor.StoreRelease(pos)
			missed = false
			continue
		}
		o.backoffs.Add(1)
		b.wait()
	}
}

// ObserverStats is a snapshot of an observer's counters.
type ObserverStats struct {
	Reads    uint64  // Peek calls
	Hits     uint64  // Elements delivered to the handler
	Empty    uint64  // Peek calls that found nothing
	Backoffs uint64  // Backoff waits
	Lagged   uint64  // Positions skipped because consumers popped them first
	AvgNs    float64 // Mean latency of successful reads
	MaxNs    float64
	MinNs    float64
}

// HitRate returns delivered elements per read in [0, 1].
func (s ObserverStats) HitRate() float64 {
	if s.Reads == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Reads)
}

func (s ObserverStats) String() string {
	return fmt.Sprintf("observer: reads=%d hits=%d (%.2f%%) empty=%d backoffs=%d lagged=%d avg=%.1fns min=%.1fns max=%.1fns",
		s.Reads, s.Hits, 100*s.HitRate(), s.Empty, s.Backoffs, s.Lagged, s.AvgNs, s.MinNs, s.MaxNs)
}

// Stats returns a snapshot of the observer's counters.
func (o *Observer[T]) Stats() ObserverStats {
	lat := o.latency.snapshot(o.cfg.clock, o.latency.attempts.Load())
	return ObserverStats{
		Reads:    o.reads.Load(),
		Hits:     o.hits.Load(),
		Empty:    o.empty.Load(),
		Backoffs: o.backoffs.Load(),
		Lagged:   o.lagged.Load(),
		AvgNs:    lat.AvgNs,
		MaxNs:    lat.MaxNs,
		MinNs:    lat.MinNs,
	}
}

// ResetStats zeroes the observer's counters. The cursor is kept.
func (o *Observer[T]) ResetStats() {
	o.reads.Store(0)
	o.hits.Store(0)
	o.empty.Store(0)
	o.backoffs.Store(0)
	o.lagged.Store(0)
	o.latency.reset()
}
