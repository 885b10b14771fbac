// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"runtime"

	"code.hybscloud.com/ringq/clock"
	"code.hybscloud.com/ringq/slab"
)

// poolBenchResult compares n allocations and frees from a slab pool with
// the same through the Go heap.
type poolBenchResult struct {
	Ops     int
	Backing slab.Backing
	PoolNs  float64
	HeapNs  float64
}

func (r poolBenchResult) String() string {
	return fmt.Sprintf("pool (%s): %.2f ms for %d allocations and frees\nheap:        %.2f ms for %d allocations and frees",
		r.Backing, r.PoolNs/1e6, r.Ops, r.HeapNs/1e6, r.Ops)
}

// heapSink keeps heap allocations reachable until the benchmark frees them.
var heapSink []*sample

func benchPool(n int, blockSize int, backing slab.Backing, clk clock.Clock) (poolBenchResult, error) {
	pool, err := slab.New[sample](blockSize, backing)
	if err != nil {
		return poolBenchResult{}, fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	res := poolBenchResult{Ops: n, Backing: pool.Backing()}
	handles := make([]slab.Handle, 0, n)

	start := clk.Now()
	for i := range n {
		h, s, err := pool.Allocate()
		if err != nil {
			return res, fmt.Errorf("allocate %d: %w", i, err)
		}
		s.Sequence = uint64(i)
		handles = append(handles, h)
	}
	for _, h := range handles {
		pool.Deallocate(h)
	}
	res.PoolNs = clk.Nanoseconds(clk.Now() - start)

	runtime.GC()
	heapSink = make([]*sample, 0, n)
	start = clk.Now()
	for i := range n {
		heapSink = append(heapSink, &sample{Sequence: uint64(i)})
	}
	heapSink = heapSink[:0]
	runtime.GC()
	res.HeapNs = clk.Nanoseconds(clk.Now() - start)
	heapSink = nil

	return res, nil
}
