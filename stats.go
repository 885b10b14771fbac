// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"fmt"
	"math"
	"strings"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/ringq/clock"
)

// opCounters accumulates the count and latency of one operation.
// Latency is in clock ticks.
type opCounters struct {
	attempts  atomix.Uint64
	successes atomix.Uint64
	ticks     atomix.Uint64
	maxTicks  atomix.Uint64
	minTicks  atomix.Uint64
}

func (c *opCounters) reset() {
	c.attempts.Store(0)
	c.successes.Store(0)
	c.ticks.Store(0)
	c.maxTicks.Store(0)
	c.minTicks.Store(math.MaxUint64)
}

func (c *opCounters) record(d uint64, ok bool) {
	c.attempts.Add(1)
	if ok {
		c.successes.Add(1)
	}
	c.observe(d)
}

func (c *opCounters) observe(d uint64) {
	c.ticks.Add(d)
	sw := spin.Wait{}
	for cur := c.maxTicks.LoadRelaxed(); d > cur; cur = c.maxTicks.LoadRelaxed() {
		if c.maxTicks.CompareAndSwapRelaxed(cur, d) {
			break
		}
		sw.Once()
	}
	sw.Reset()
	for cur := c.minTicks.LoadRelaxed(); d < cur; cur = c.minTicks.LoadRelaxed() {
		if c.minTicks.CompareAndSwapRelaxed(cur, d) {
			break
		}
		sw.Once()
	}
}

func (c *opCounters) snapshot(clk clock.Clock, samples uint64) OpStats {
	s := OpStats{
		Attempts:  c.attempts.Load(),
		Successes: c.successes.Load(),
	}
	if clk == nil || samples == 0 {
		return s
	}
	s.AvgNs = clk.Nanoseconds(c.ticks.Load()) / float64(samples)
	s.MaxNs = clk.Nanoseconds(c.maxTicks.Load())
	if lo := c.minTicks.Load(); lo != math.MaxUint64 {
		s.MinNs = clk.Nanoseconds(lo)
	}
	return s
}

// OpStats is a snapshot of one operation's counters.
// Latencies are zero when statistics are disabled.
type OpStats struct {
	Attempts  uint64
	Successes uint64
	AvgNs     float64
	MaxNs     float64
	MinNs     float64
}

// Misses returns attempts that did not succeed.
func (s OpStats) Misses() uint64 {
	if s.Successes > s.Attempts {
		return 0
	}
	return s.Attempts - s.Successes
}

// SuccessRate returns successes per attempt in [0, 1].
func (s OpStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

func (s OpStats) String() string {
	return fmt.Sprintf("attempts=%d ok=%d (%.2f%%) avg=%.1fns min=%.1fns max=%.1fns",
		s.Attempts, s.Successes, 100*s.SuccessRate(), s.AvgNs, s.MinNs, s.MaxNs)
}

// queueStats is disabled when clk is nil; nothing is counted then.
type queueStats struct {
	clk  clock.Clock
	push opCounters
	pop  opCounters
	read opCounters

	pushFull        atomix.Uint64
	pushContended   atomix.Uint64
	pushAllocFailed atomix.Uint64
	popEmpty        atomix.Uint64
	popContended    atomix.Uint64
}

func (s *queueStats) reset() {
	s.push.reset()
	s.pop.reset()
	s.read.reset()
	s.pushFull.Store(0)
	s.pushContended.Store(0)
	s.pushAllocFailed.Store(0)
	s.popEmpty.Store(0)
	s.popContended.Store(0)
}

func (s *queueStats) recordPush(d uint64, o outcome) {
	s.push.record(d, o == done)
	switch o {
	case full:
		s.pushFull.Add(1)
	case contended:
		s.pushContended.Add(1)
	case allocFailed:
		s.pushAllocFailed.Add(1)
	}
}

func (s *queueStats) recordPop(d uint64, o outcome) {
	s.pop.record(d, o == done)
	switch o {
	case full:
		s.popEmpty.Add(1)
	case contended:
		s.popContended.Add(1)
	}
}

func (s *queueStats) recordRead(d uint64, ok bool) {
	s.read.record(d, ok)
}

// QueueStats is a snapshot of a queue's operation counters.
type QueueStats struct {
	Enabled bool
	Push    OpStats
	Pop     OpStats
	Read    OpStats

	PushFull        uint64 // Push found no free slot
	PushContended   uint64 // Push lost the slot to another producer
	PushAllocFailed uint64 // Push could not get element storage
	PopEmpty        uint64 // Pop found no element
	PopContended    uint64 // Pop lost the element to another consumer
}

func (s QueueStats) String() string {
	if !s.Enabled {
		return "queue stats: disabled"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "push: %s full=%d contended=%d alloc_failed=%d\n",
		s.Push, s.PushFull, s.PushContended, s.PushAllocFailed)
	fmt.Fprintf(&b, "pop:  %s empty=%d contended=%d\n", s.Pop, s.PopEmpty, s.PopContended)
	fmt.Fprintf(&b, "read: %s", s.Read)
	return b.String()
}

// Stats returns a snapshot of the queue's counters. Counters are updated
// independently, so a snapshot taken under load is approximate.
func (q *Queue[T]) Stats() QueueStats {
	s := &q.stats
	if s.clk == nil {
		return QueueStats{}
	}
	return QueueStats{
		Enabled:         true,
		Push:            s.push.snapshot(s.clk, s.push.attempts.Load()),
		Pop:             s.pop.snapshot(s.clk, s.pop.attempts.Load()),
		Read:            s.read.snapshot(s.clk, s.read.attempts.Load()),
		PushFull:        s.pushFull.Load(),
		PushContended:   s.pushContended.Load(),
		PushAllocFailed: s.pushAllocFailed.Load(),
		PopEmpty:        s.popEmpty.Load(),
		PopContended:    s.popContended.Load(),
	}
}

// ResetStats zeroes the queue's counters.
func (q *Queue[T]) ResetStats() {
	q.stats.reset()
}

// StatsEnabled reports whether the queue records statistics.
func (q *Queue[T]) StatsEnabled() bool {
	return q.stats.clk != nil
}
