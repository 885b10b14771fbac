// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"

	"code.hybscloud.com/ringq"
	"code.hybscloud.com/ringq/clock"
	"code.hybscloud.com/ringq/metrics"
	"code.hybscloud.com/ringq/slab"
)

// sample is the element pushed through the queue.
type sample struct {
	Timestamp uint64
	Sequence  uint64
	Value     uint64
	Flags     [4]uint8
}

// generator hands out samples with one sequence shared by all producers.
type generator struct {
	seq atomix.Uint64
	clk clock.Clock
}

// next returns a generator function for one producer. Each producer owns
// its random source.
func (g *generator) next(seed uint64) func() sample {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() sample {
		s := sample{
			Timestamp: g.clk.Now(),
			Sequence:  g.seq.AddAcqRel(1) - 1,
			Value:     rng.Uint64(),
		}
		f := rng.Uint32()
		s.Flags = [4]uint8{uint8(f), uint8(f >> 8), uint8(f >> 16), uint8(f >> 24)}
		return s
	}
}

// harness wires the queue, the drivers and the consumers of one run.
type harness struct {
	cfg       *CLIConfig
	logger    *slog.Logger
	clk       clock.Clock
	q         *ringq.Queue[sample]
	gen       *generator
	producers []*ringq.Producer[sample]
	observers []*ringq.Observer[sample]
	collector *metrics.Collector

	fullEvents atomix.Uint64
	consumed   atomix.Uint64
	observed   []atomix.Uint64
	elapsed    time.Duration
}

func newHarness(cfg *CLIConfig, clk clock.Clock, logger *slog.Logger) (*harness, error) {
	backing, err := slab.ParseBacking(cfg.Backing)
	if err != nil {
		return nil, err
	}

	b := ringq.New(cfg.Capacity).BlockSize(cfg.BlockSize).Backing(backing)
	if cfg.Stats {
		b.Stats(clk)
	}
	q, err := ringq.Build[sample](b)
	if err != nil {
		return nil, fmt.Errorf("build queue: %w", err)
	}

	h := &harness{
		cfg:       cfg,
		logger:    logger,
		clk:       clk,
		q:         q,
		gen:       &generator{clk: clk},
		collector: metrics.NewCollector("ringq"),
		observed:  make([]atomix.Uint64, cfg.Observers),
	}
	h.collector.AddQueue("main", q)
	h.collector.AddPool("main", q.Pool())

	cpu := 0
	nextCPU := func() int {
		if !cfg.Pin {
			return -1
		}
		c := cpu % runtime.NumCPU()
		cpu++
		return c
	}

	for i := range cfg.Producers {
		opts := []ringq.DriverOption{
			ringq.WithCPU(nextCPU()),
			ringq.WithLogger(logger.With("producer", i)),
			ringq.OnQueueFull(h.onQueueFull),
		}
		if cfg.Stats {
			opts = append(opts, ringq.WithClock(clk))
		}
		p := ringq.NewProducer[sample](q, h.gen.next(uint64(i)+1), opts...)
		h.producers = append(h.producers, p)
		h.collector.AddProducer(fmt.Sprintf("producer-%d", i), p)
	}

	for i := range cfg.Observers {
		opts := []ringq.DriverOption{
			ringq.WithCPU(nextCPU()),
			ringq.WithLogger(logger.With("observer", i)),
		}
		if cfg.Stats {
			opts = append(opts, ringq.WithClock(clk))
		}
		count := &h.observed[i]
		o := ringq.NewObserver[sample](q, ringq.HandlerFunc[sample](func(sample) {
			count.Add(1)
		}), opts...)
		h.observers = append(h.observers, o)
		h.collector.AddObserver(fmt.Sprintf("observer-%d", i), o)
	}

	return h, nil
}

func (h *harness) onQueueFull() {
	n := h.fullEvents.AddAcqRel(1)
	if n == 1 {
		h.logger.Warn("queue is full", "capacity", h.q.Cap())
		return
	}
	h.logger.Debug("queue is full", "events", n)
}

// run starts every driver and consumer, waits for the configured duration
// or ctx, and stops them. Observers start first so they see the first
// element.
func (h *harness) run(ctx context.Context) error {
	h.logger.Info("run started",
		"capacity", h.cfg.Capacity,
		"backing", h.q.Pool().Backing(),
		"producers", len(h.producers),
		"observers", len(h.observers),
		"consumers", h.cfg.Consumers,
		"duration", h.cfg.Duration)

	start := time.Now()
	for _, o := range h.observers {
		o.Start()
	}
	for _, p := range h.producers {
		p.Start()
	}

	var stop atomix.Bool
	var wg sync.WaitGroup
	for range h.cfg.Consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.consume(&stop)
		}()
	}

	timer := time.NewTimer(h.cfg.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		h.logger.Info("interrupted", "cause", context.Cause(ctx))
	}

	for _, p := range h.producers {
		p.Stop()
	}
	stop.StoreRelease(true)
	wg.Wait()
	for _, o := range h.observers {
		o.Stop()
	}
	h.elapsed = time.Since(start)

	h.logger.Info("run finished", "elapsed", h.elapsed, "full_events", h.fullEvents.Load())
	return nil
}

func (h *harness) consume(stop *atomix.Bool) {
	backoff := iox.Backoff{}
	for !stop.LoadAcquire() {
		if _, err := h.q.Dequeue(); err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		h.consumed.Add(1)
	}
}

// report prints the statistics sections of a finished run.
func (h *harness) report(w io.Writer) {
	fmt.Fprintln(w, "=== Queue ===")
	fmt.Fprintf(w, "capacity=%d head=%d tail=%d\n", h.q.Cap(), h.q.Head(), h.q.Tail())
	fmt.Fprintln(w, h.q.Stats())

	fmt.Fprintln(w, "\n=== Producers ===")
	var pushed uint64
	for i, p := range h.producers {
		st := p.Stats()
		pushed += st.Pushed
		fmt.Fprintf(w, "%d: %s\n", i, st)
	}

	fmt.Fprintln(w, "\n=== Observers ===")
	for i, o := range h.observers {
		fmt.Fprintf(w, "%d: %s\n", i, o.Stats())
	}

	fmt.Fprintln(w, "\n=== Consumers ===")
	fmt.Fprintf(w, "consumers=%d consumed=%d\n", h.cfg.Consumers, h.consumed.Load())

	fmt.Fprintln(w, "\n=== Pool ===")
	fmt.Fprintln(w, h.q.Pool().Stats())

	secs := h.elapsed.Seconds()
	fmt.Fprintf(w, "\nTotal time: %v, pushed %d (%.0f/s), full events %d\n",
		h.elapsed.Round(time.Millisecond), pushed, float64(pushed)/max(secs, 1e-9), h.fullEvents.Load())
}

func (h *harness) close() error {
	return h.q.Close()
}
