// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/ringq"
	"code.hybscloud.com/ringq/clock"
	"code.hybscloud.com/ringq/metrics"
	"code.hybscloud.com/ringq/slab"
)

func TestQueueGauges(t *testing.T) {
	q := ringq.NewQueue[int](8)
	defer q.Close()
	q.Push(1)
	q.Push(2)
	q.Push(3)
	q.Pop()

	c := metrics.NewCollector("ringq")
	c.AddQueue("main", q)

	expected := `
# HELP ringq_queue_capacity Number of queue slots.
# TYPE ringq_queue_capacity gauge
ringq_queue_capacity{queue="main"} 8
# HELP ringq_queue_depth Elements between head and tail.
# TYPE ringq_queue_depth gauge
ringq_queue_depth{queue="main"} 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "ringq_queue_capacity", "ringq_queue_depth")
	require.NoError(t, err)

	// Statistics disabled: no operation series
	assert.Equal(t, 0, testutil.CollectAndCount(c, "ringq_queue_operations_total"))
}

func TestQueueOperations(t *testing.T) {
	q, err := ringq.Build[int](ringq.New(3).Stats(clock.NewManual(1)))
	require.NoError(t, err)
	defer q.Close()

	q.Push(1)
	q.Push(2)
	q.Push(3) // full
	q.Pop()

	c := metrics.NewCollector("ringq")
	c.AddQueue("q", q)

	// push: ok, full, contended, alloc_failed; pop: ok, empty, contended; read: ok, miss
	assert.Equal(t, 9, testutil.CollectAndCount(c, "ringq_queue_operations_total"))
	// avg, min, max per op
	assert.Equal(t, 9, testutil.CollectAndCount(c, "ringq_queue_latency_seconds"))

	expected := `
# HELP ringq_queue_operations_total Queue operations by outcome.
# TYPE ringq_queue_operations_total counter
ringq_queue_operations_total{op="pop",queue="q",result="contended"} 0
ringq_queue_operations_total{op="pop",queue="q",result="empty"} 0
ringq_queue_operations_total{op="pop",queue="q",result="ok"} 1
ringq_queue_operations_total{op="push",queue="q",result="alloc_failed"} 0
ringq_queue_operations_total{op="push",queue="q",result="contended"} 0
ringq_queue_operations_total{op="push",queue="q",result="full"} 1
ringq_queue_operations_total{op="push",queue="q",result="ok"} 2
ringq_queue_operations_total{op="read",queue="q",result="miss"} 0
ringq_queue_operations_total{op="read",queue="q",result="ok"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "ringq_queue_operations_total"))
}

func TestPoolMetrics(t *testing.T) {
	pool, err := slab.New[int](2, slab.Heap)
	require.NoError(t, err)
	defer pool.Close()

	h1, _, err := pool.Allocate()
	require.NoError(t, err)
	_, _, err = pool.Allocate()
	require.NoError(t, err)
	_, _, err = pool.Allocate()
	require.NoError(t, err)
	pool.Deallocate(h1)

	c := metrics.NewCollector("ringq")
	c.AddPool("p", pool)

	expected := `
# HELP ringq_pool_blocks Mapped slab blocks.
# TYPE ringq_pool_blocks gauge
ringq_pool_blocks{backing="heap",pool="p"} 2
# HELP ringq_pool_live_elements Allocated elements not yet freed.
# TYPE ringq_pool_live_elements gauge
ringq_pool_live_elements{pool="p"} 2
# HELP ringq_pool_free_elements Freed elements waiting for reuse.
# TYPE ringq_pool_free_elements gauge
ringq_pool_free_elements{pool="p"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"ringq_pool_blocks", "ringq_pool_live_elements", "ringq_pool_free_elements"))
	assert.Equal(t, 2, testutil.CollectAndCount(c, "ringq_pool_allocations_total"))
}

func TestDriverMetrics(t *testing.T) {
	q := ringq.NewQueue[int](4)
	defer q.Close()

	p := ringq.NewProducer[int](q, func() int { return 1 })
	o := ringq.NewObserver[int](q, ringq.HandlerFunc[int](func(int) {}))

	c := metrics.NewCollector("ringq")
	c.AddProducer("p0", p)
	c.AddObserver("o0", o)

	assert.Equal(t, 1, testutil.CollectAndCount(c, "ringq_producer_pushed_total"))
	assert.Equal(t, 3, testutil.CollectAndCount(c, "ringq_producer_latency_seconds"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "ringq_observer_lagged_total"))

	c.Remove("p0")
	assert.Equal(t, 0, testutil.CollectAndCount(c, "ringq_producer_pushed_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "ringq_observer_hits_total"))
}

func TestRegistryGather(t *testing.T) {
	q := ringq.NewQueue[int](4)
	defer q.Close()

	c := metrics.NewCollector("bench")
	c.AddQueue("main", q)
	c.AddPool("main", q.Pool())

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["bench_queue_capacity"])
	assert.True(t, names["bench_pool_blocks"])
}
