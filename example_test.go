// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq_test

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/ringq"
	"code.hybscloud.com/ringq/clock"
	"code.hybscloud.com/ringq/slab"
)

// ExampleNewQueue shows the capacity-1 bound and FIFO order.
func ExampleNewQueue() {
	q := ringq.NewQueue[int](4)
	defer q.Close()

	fmt.Println(q.Push(1), q.Push(2), q.Push(3), q.Push(4))
	v, ok := q.Pop()
	fmt.Println(v, ok)
	fmt.Println(q.Push(4))

	// Output:
	// true true true false
	// 1 true
	// true
}

// ExampleQueue_ReadAt shows non-destructive reads relative to the head.
func ExampleQueue_ReadAt() {
	q := ringq.NewQueue[string](8)
	defer q.Close()

	q.Push("a")
	q.Push("b")
	q.Push("c")

	for off := range uint64(4) {
		v, ok := q.ReadAt(off)
		fmt.Printf("%d: %q %v\n", off, v, ok)
	}

	// Output:
	// 0: "a" true
	// 1: "b" true
	// 2: "c" true
	// 3: "" false
}

// ExampleBuild shows a queue with its own block size and statistics.
func ExampleBuild() {
	type Tick struct {
		Sequence uint64
		Price    float64
	}

	q, err := ringq.Build[Tick](ringq.New(1024).
		BlockSize(256).
		Backing(slab.Heap).
		Stats(clock.NewManual(1)))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer q.Close()

	for i := range 300 {
		q.Push(Tick{Sequence: uint64(i), Price: 100})
	}
	fmt.Println("blocks:", q.Pool().Blocks())

	st := q.Stats()
	fmt.Println("pushes:", st.Push.Successes)

	// Output:
	// blocks: 2
	// pushes: 300
}

// ExampleBuildWithPool shows two queues sharing one element pool.
func ExampleBuildWithPool() {
	pool, err := slab.New[int](64, slab.Heap)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer pool.Close()

	in := ringq.BuildWithPool(ringq.New(16), pool)
	out := ringq.BuildWithPool(ringq.New(16), pool)

	for i := range 3 {
		in.Push(i)
	}
	// Move elements between queues
	for {
		v, ok := in.Pop()
		if !ok {
			break
		}
		out.Push(v * 10)
	}
	for {
		v, ok := out.Pop()
		if !ok {
			break
		}
		fmt.Println(v)
	}
	fmt.Println("live:", pool.Stats().Live)

	// Output:
	// 0
	// 10
	// 20
	// live: 0
}

// ExampleNewObserver shows an observer reading without consuming.
func ExampleNewObserver() {
	q := ringq.NewQueue[int](8)
	defer q.Close()
	for i := range 3 {
		q.Push(i * i)
	}

	var seen atomix.Int64
	o := ringq.NewObserver[int](q, ringq.HandlerFunc[int](func(v int) {
		fmt.Println("observed", v)
		seen.Add(1)
	}))
	o.Start()
	backoff := iox.Backoff{}
	for seen.Load() < 3 {
		backoff.Wait()
	}
	o.Stop()

	v, _ := q.Pop()
	fmt.Println("popped", v)

	// Output:
	// observed 0
	// observed 1
	// observed 4
	// popped 0
}

// ExampleNewProducer shows a producer filling a queue and reporting it
// full once.
func ExampleNewProducer() {
	q := ringq.NewQueue[int](4)
	defer q.Close()

	var full atomix.Bool
	n := 0
	p := ringq.NewProducer[int](q, func() int {
		n++
		return n
	}, ringq.OnQueueFull(func() {
		full.Store(true)
	}))
	p.Start()
	backoff := iox.Backoff{}
	for !full.Load() {
		backoff.Wait()
	}
	p.Stop()

	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		fmt.Println(v)
	}

	// Output:
	// 1
	// 2
	// 3
}
