// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// Producer pushes generated values into a queue from a dedicated goroutine.
//
// The loop calls gen, then retries the push with exponential backoff until
// it succeeds or the producer is stopped. A value still unpushed when the
// producer stops is dropped and counted.
//
// Example:
//
//	var seq uint64
//	p := ringq.NewProducer[Sample](q, func() Sample {
//	    seq++
//	    return Sample{Sequence: seq}
//	}, ringq.OnQueueFull(func() { log.Println("queue is full") }))
//	p.Start()
//	defer p.Stop()
type Producer[T any] struct {
	q   Enqueuer[T]
	gen func() T
	cfg driverConfig
	run runner

	// Worker-owned
	full     bool
	failOnce bool

	attempts   atomix.Uint64
	pushed     atomix.Uint64
	failed     atomix.Uint64
	fullEvents atomix.Uint64
	backoffs   atomix.Uint64
	dropped    atomix.Uint64
	latency    opCounters
}

// NewProducer creates a stopped producer pushing values from gen into q.
// gen runs on the producer goroutine only.
func NewProducer[T any](q Enqueuer[T], gen func() T, opts ...DriverOption) *Producer[T] {
	if q == nil || gen == nil {
		panic("ringq: producer needs a queue and a generator")
	}
	p := &Producer[T]{q: q, gen: gen, cfg: newDriverConfig(opts)}
	p.latency.reset()
	return p
}

// Start launches the producer goroutine. No-op if already running.
func (p *Producer[T]) Start() {
	p.run.start(&p.cfg, "producer", p.loop)
}

// Stop signals the producer and waits for its goroutine to exit.
// Safe to call more than once.
func (p *Producer[T]) Stop() {
	p.run.stop()
}

// Close stops the producer.
func (p *Producer[T]) Close() error {
	p.Stop()
	return nil
}

// Running reports whether the producer goroutine is active.
func (p *Producer[T]) Running() bool {
	return p.run.active()
}

func (p *Producer[T]) loop() {
	b := backoff{n: 1}
	for p.run.active() {
		v := p.gen()
		p.offer(&v, &b)
	}
}

// offer retries v until it is pushed or the producer stops.
func (p *Producer[T]) offer(v *T, b *backoff) {
	for {
		var start uint64
		if p.cfg.clock != nil {
			start = p.cfg.clock.Now()
		}
		p.attempts.Add(1)
		err := p.q.Enqueue(v)
		if err == nil {
			p.pushed.Add(1)
			if p.cfg.clock != nil {
				p.latency.record(p.cfg.clock.Now()-start, true)
			}
			p.full = false
			p.failOnce = false
			b.reset()
			return
		}

		p.failed.Add(1)
		if !p.full {
			p.full = true
			p.fullEvents.Add(1)
			if !IsWouldBlock(err) && !p.failOnce {
				p.failOnce = true
				p.cfg.logger.Warn("enqueue failed", "error", err)
			}
			if p.cfg.onFull != nil {
				p.cfg.onFull()
			}
		}
		p.backoffs.Add(1)
		b.wait()
		if !p.run.active() {
			p.dropped.Add(1)
			return
		}
	}
}

// ProducerStats is a snapshot of a producer's counters.
type ProducerStats struct {
	Attempts   uint64  // Enqueue calls
	Pushed     uint64  // Values pushed
	Failed     uint64  // Enqueue calls that failed
	FullEvents uint64  // Transitions from pushing to failing
	Backoffs   uint64  // Backoff waits
	Dropped    uint64  // Values abandoned at stop
	AvgNs      float64 // Mean latency of successful pushes
	MaxNs      float64
	MinNs      float64
}

// SuccessRate returns pushed values per attempt in [0, 1].
func (s ProducerStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Pushed) / float64(s.Attempts)
}

func (s ProducerStats) String() string {
	return fmt.Sprintf("producer: attempts=%d pushed=%d (%.2f%%) failed=%d full_events=%d backoffs=%d dropped=%d avg=%.1fns min=%.1fns max=%.1fns",
		s.Attempts, s.Pushed, 100*s.SuccessRate(), s.Failed, s.FullEvents, s.Backoffs, s.Dropped, s.AvgNs, s.MinNs, s.MaxNs)
}

// Stats returns a snapshot of the producer's counters.
func (p *Producer[T]) Stats() ProducerStats {
	lat := p.latency.snapshot(p.cfg.clock, p.latency.attempts.Load())
	return ProducerStats{
		Attempts:   p.attempts.Load(),
		Pushed:     p.pushed.Load(),
		Failed:     p.failed.Load(),
		FullEvents: p.fullEvents.Load(),
		Backoffs:   p.backoffs.Load(),
		Dropped:    p.dropped.Load(),
		AvgNs:      lat.AvgNs,
		MaxNs:      lat.MaxNs,
		MinNs:      lat.MinNs,
	}
}

// ResetStats zeroes the producer's counters.
func (p *Producer[T]) ResetStats() {
	p.attempts.Store(0)
	p.pushed.Store(0)
	p.failed.Store(0)
	p.fullEvents.Store(0)
	p.backoffs.Store(0)
	p.dropped.Store(0)
	p.latency.reset()
}
