// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports ringq queue, driver and slab statistics to
// Prometheus.
//
// A Collector holds named sources and reads their snapshots at scrape
// time, so nothing is added to the queue hot paths:
//
//	c := metrics.NewCollector("ringq")
//	c.AddQueue("main", q)
//	c.AddPool("main", q.Pool())
//	c.AddProducer("producer-0", p)
//	prometheus.MustRegister(c)
package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"code.hybscloud.com/ringq"
	"code.hybscloud.com/ringq/slab"
)

// QueueSource is implemented by *ringq.Queue[T] for any T.
type QueueSource interface {
	Stats() ringq.QueueStats
	Head() uint64
	Tail() uint64
	Cap() int
}

// ProducerSource is implemented by *ringq.Producer[T] for any T.
type ProducerSource interface {
	Stats() ringq.ProducerStats
}

// ObserverSource is implemented by *ringq.Observer[T] for any T.
type ObserverSource interface {
	Stats() ringq.ObserverStats
}

// PoolSource is implemented by *slab.Pool[T] for any T.
type PoolSource interface {
	Stats() slab.Stats
}

// Collector is a prometheus.Collector over registered sources.
// Sources may be added while the collector is registered.
type Collector struct {
	mu        sync.RWMutex
	queues    map[string]QueueSource
	producers map[string]ProducerSource
	observers map[string]ObserverSource
	pools     map[string]PoolSource

	queueCapacity *prometheus.Desc
	queueDepth    *prometheus.Desc
	queueOps      *prometheus.Desc
	queueLatency  *prometheus.Desc

	producerAttempts   *prometheus.Desc
	producerPushed     *prometheus.Desc
	producerFailed     *prometheus.Desc
	producerFullEvents *prometheus.Desc
	producerBackoffs   *prometheus.Desc
	producerDropped    *prometheus.Desc
	producerLatency    *prometheus.Desc

	observerReads    *prometheus.Desc
	observerHits     *prometheus.Desc
	observerEmpty    *prometheus.Desc
	observerBackoffs *prometheus.Desc
	observerLagged   *prometheus.Desc
	observerLatency  *prometheus.Desc

	poolBlocks *prometheus.Desc
	poolLive   *prometheus.Desc
	poolFree   *prometheus.Desc
	poolAllocs *prometheus.Desc
	poolFrees  *prometheus.Desc
}

// NewCollector creates an empty collector. Metric names are prefixed with
// namespace.
func NewCollector(namespace string) *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}
	return &Collector{
		queues:    make(map[string]QueueSource),
		producers: make(map[string]ProducerSource),
		observers: make(map[string]ObserverSource),
		pools:     make(map[string]PoolSource),

		queueCapacity: desc("queue", "capacity", "Number of queue slots.", "queue"),
		queueDepth:    desc("queue", "depth", "Elements between head and tail.", "queue"),
		queueOps:      desc("queue", "operations_total", "Queue operations by outcome.", "queue", "op", "result"),
		queueLatency:  desc("queue", "latency_seconds", "Queue operation latency.", "queue", "op", "stat"),

		producerAttempts:   desc("producer", "attempts_total", "Enqueue attempts.", "producer"),
		producerPushed:     desc("producer", "pushed_total", "Values pushed.", "producer"),
		producerFailed:     desc("producer", "failed_total", "Failed enqueue attempts.", "producer"),
		producerFullEvents: desc("producer", "full_events_total", "Transitions from pushing to failing.", "producer"),
		producerBackoffs:   desc("producer", "backoffs_total", "Backoff waits.", "producer"),
		producerDropped:    desc("producer", "dropped_total", "Values abandoned at stop.", "producer"),
		producerLatency:    desc("producer", "latency_seconds", "Latency of successful pushes.", "producer", "stat"),

		observerReads:    desc("observer", "reads_total", "Peek calls.", "observer"),
		observerHits:     desc("observer", "hits_total", "Elements delivered to the handler.", "observer"),
		observerEmpty:    desc("observer", "empty_total", "Peek calls that found nothing.", "observer"),
		observerBackoffs: desc("observer", "backoffs_total", "Backoff waits.", "observer"),
		observerLagged:   desc("observer", "lagged_total", "Positions skipped because consumers popped them first.", "observer"),
		observerLatency:  desc("observer", "latency_seconds", "Latency of successful reads.", "observer", "stat"),

		poolBlocks: desc("pool", "blocks", "Mapped slab blocks.", "pool", "backing"),
		poolLive:   desc("pool", "live_elements", "Allocated elements not yet freed.", "pool"),
		poolFree:   desc("pool", "free_elements", "Freed elements waiting for reuse.", "pool"),
		poolAllocs: desc("pool", "allocations_total", "Allocations by source.", "pool", "source"),
		poolFrees:  desc("pool", "frees_total", "Deallocations.", "pool"),
	}
}

// AddQueue registers q under name, replacing any queue with that name.
func (c *Collector) AddQueue(name string, q QueueSource) {
	c.mu.Lock()
	c.queues[name] = q
	c.mu.Unlock()
}

// AddProducer registers p under name.
func (c *Collector) AddProducer(name string, p ProducerSource) {
	c.mu.Lock()
	c.producers[name] = p
	c.mu.Unlock()
}

// AddObserver registers o under name.
func (c *Collector) AddObserver(name string, o ObserverSource) {
	c.mu.Lock()
	c.observers[name] = o
	c.mu.Unlock()
}

// AddPool registers p under name.
func (c *Collector) AddPool(name string, p PoolSource) {
	c.mu.Lock()
	c.pools[name] = p
	c.mu.Unlock()
}

// Remove drops every source registered under name.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	delete(c.queues, name)
	delete(c.producers, name)
	delete(c.observers, name)
	delete(c.pools, name)
	c.mu.Unlock()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.queueCapacity, c.queueDepth, c.queueOps, c.queueLatency,
		c.producerAttempts, c.producerPushed, c.producerFailed, c.producerFullEvents,
		c.producerBackoffs, c.producerDropped, c.producerLatency,
		c.observerReads, c.observerHits, c.observerEmpty, c.observerBackoffs,
		c.observerLagged, c.observerLatency,
		c.poolBlocks, c.poolLive, c.poolFree, c.poolAllocs, c.poolFrees,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, name := range sortedKeys(c.queues) {
		c.collectQueue(ch, name, c.queues[name])
	}
	for _, name := range sortedKeys(c.producers) {
		c.collectProducer(ch, name, c.producers[name].Stats())
	}
	for _, name := range sortedKeys(c.observers) {
		c.collectObserver(ch, name, c.observers[name].Stats())
	}
	for _, name := range sortedKeys(c.pools) {
		c.collectPool(ch, name, c.pools[name].Stats())
	}
}

func (c *Collector) collectQueue(ch chan<- prometheus.Metric, name string, q QueueSource) {
	// Tail first so a concurrent pop cannot make depth exceed capacity.
	tail := q.Tail()
	head := q.Head()
	var depth uint64
	if tail > head {
		depth = tail - head
	}
	ch <- prometheus.MustNewConstMetric(c.queueCapacity, prometheus.GaugeValue, float64(q.Cap()), name)
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(depth), name)

	st := q.Stats()
	if !st.Enabled {
		return
	}
	ops := []struct {
		op, result string
		n          uint64
	}{
		{"push", "ok", st.Push.Successes},
		{"push", "full", st.PushFull},
		{"push", "contended", st.PushContended},
		{"push", "alloc_failed", st.PushAllocFailed},
		{"pop", "ok", st.Pop.Successes},
		{"pop", "empty", st.PopEmpty},
		{"pop", "contended", st.PopContended},
		{"read", "ok", st.Read.Successes},
		{"read", "miss", st.Read.Misses()},
	}
	for _, o := range ops {
		ch <- prometheus.MustNewConstMetric(c.queueOps, prometheus.CounterValue, float64(o.n), name, o.op, o.result)
	}
	latency(ch, c.queueLatency, st.Push, name, "push")
	latency(ch, c.queueLatency, st.Pop, name, "pop")
	latency(ch, c.queueLatency, st.Read, name, "read")
}

func (c *Collector) collectProducer(ch chan<- prometheus.Metric, name string, st ringq.ProducerStats) {
	counter(ch, c.producerAttempts, st.Attempts, name)
	counter(ch, c.producerPushed, st.Pushed, name)
	counter(ch, c.producerFailed, st.Failed, name)
	counter(ch, c.producerFullEvents, st.FullEvents, name)
	counter(ch, c.producerBackoffs, st.Backoffs, name)
	counter(ch, c.producerDropped, st.Dropped, name)
	latency(ch, c.producerLatency, ringq.OpStats{AvgNs: st.AvgNs, MinNs: st.MinNs, MaxNs: st.MaxNs}, name)
}

func (c *Collector) collectObserver(ch chan<- prometheus.Metric, name string, st ringq.ObserverStats) {
	counter(ch, c.observerReads, st.Reads, name)
	counter(ch, c.observerHits, st.Hits, name)
	counter(ch, c.observerEmpty, st.Empty, name)
	counter(ch, c.observerBackoffs, st.Backoffs, name)
	counter(ch, c.observerLagged, st.Lagged, name)
	latency(ch, c.observerLatency, ringq.OpStats{AvgNs: st.AvgNs, MinNs: st.MinNs, MaxNs: st.MaxNs}, name)
}

func (c *Collector) collectPool(ch chan<- prometheus.Metric, name string, st slab.Stats) {
	ch <- prometheus.MustNewConstMetric(c.poolBlocks, prometheus.GaugeValue, float64(st.Blocks), name, st.Backing.String())
	ch <- prometheus.MustNewConstMetric(c.poolLive, prometheus.GaugeValue, float64(st.Live), name)
	ch <- prometheus.MustNewConstMetric(c.poolFree, prometheus.GaugeValue, float64(st.Free), name)
	ch <- prometheus.MustNewConstMetric(c.poolAllocs, prometheus.CounterValue, float64(st.Fresh), name, "fresh")
	ch <- prometheus.MustNewConstMetric(c.poolAllocs, prometheus.CounterValue, float64(st.Reused), name, "reused")
	counter(ch, c.poolFrees, st.Freed, name)
}

// latency emits avg, min and max in seconds.
func latency(ch chan<- prometheus.Metric, d *prometheus.Desc, s ringq.OpStats, labels ...string) {
	for _, v := range []struct {
		stat string
		ns   float64
	}{{"avg", s.AvgNs}, {"min", s.MinNs}, {"max", s.MaxNs}} {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v.ns/1e9, append(labels[:len(labels):len(labels)], v.stat)...)
	}
}

func counter(ch chan<- prometheus.Metric, d *prometheus.Desc, n uint64, name string) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(n), name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ prometheus.Collector = (*Collector)(nil)
