// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/ringq"
)

// =============================================================================
// Test Helpers
// =============================================================================

// retryWithTimeout retries f until it returns true or timeout expires.
// Reports failure with the given message if timeout is reached.
func retryWithTimeout(t *testing.T, timeout time.Duration, f func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s", timeout, msg)
		}
		backoff.Wait()
	}
}

// waitForCount waits until counter reaches target or timeout expires.
func waitForCount(t *testing.T, timeout time.Duration, counter *atomix.Int64, target int64, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for counter.Load() < target {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s (got %d, want %d)", timeout, msg, counter.Load(), target)
		}
		backoff.Wait()
	}
}

// =============================================================================
// Ordering and Delivery
// =============================================================================

// TestFIFOSingleProducerSingleConsumer checks one producer and one
// consumer see strict FIFO order through many laps.
func TestFIFOSingleProducerSingleConsumer(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	const n = 100000
	q := ringq.NewQueue[int](64)
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := range n {
			for !q.Push(i) {
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	deadline := time.Now().Add(10 * time.Second)
	backoff := iox.Backoff{}
	for want := 0; want < n; {
		v, ok := q.Pop()
		if !ok {
			if time.Now().After(deadline) {
				t.Fatalf("timeout: consumed %d of %d", want, n)
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if v != want {
			t.Fatalf("Pop: got %d, want %d", v, want)
		}
		want++
	}
	wg.Wait()
}

// TestNoDoubleDelivery runs several producers and consumers and checks
// every value is consumed exactly once.
func TestNoDoubleDelivery(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	const (
		numP    = 4
		numC    = 4
		perProd = 20000
		total   = numP * perProd
		timeout = 15 * time.Second
	)
	q := ringq.NewQueue[int](128)
	defer q.Close()

	seen := make([]atomix.Int32, total)
	var consumed atomix.Int64
	var timedOut atomix.Bool
	var wg sync.WaitGroup

	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			deadline := time.Now().Add(timeout)
			backoff := iox.Backoff{}
			for i := range perProd {
				v := id*perProd + i
				for !q.Push(v) {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	for range numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(timeout)
			backoff := iox.Backoff{}
			for consumed.Load() < total {
				v, ok := q.Pop()
				if !ok {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				if v < 0 || v >= total {
					t.Errorf("value out of range: %d", v)
				} else {
					seen[v].Add(1)
				}
				consumed.Add(1)
			}
		}()
	}

	wg.Wait()
	if timedOut.Load() {
		t.Fatalf("timeout: consumed %d of %d", consumed.Load(), total)
	}
	for i := range seen {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("value %d consumed %d times", i, c)
		}
	}
	if st := q.Pool().Stats(); st.Live != 0 {
		t.Fatalf("Live after drain: got %d, want 0", st.Live)
	}
}

// TestCapacityUnderContention checks tail-head never exceeds capacity-1
// while producers and consumers race.
func TestCapacityUnderContention(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	const capacity = 8
	q := ringq.NewQueue[int](capacity)
	defer q.Close()

	var stop atomix.Bool
	var pushed atomix.Int64
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; !stop.Load(); i++ {
				if q.Push(i) {
					pushed.Add(1)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for !stop.Load() {
				q.Pop()
			}
		}()
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		// Tail first: a later head can only shrink the difference.
		tail := q.Tail()
		head := q.Head()
		if head <= tail && tail-head > capacity-1 {
			stop.Store(true)
			wg.Wait()
			t.Fatalf("tail-head = %d, want <= %d", tail-head, capacity-1)
		}
	}
	stop.Store(true)
	wg.Wait()
	waitForCount(t, time.Second, &pushed, 1, "no push succeeded")
}

// =============================================================================
// Non-Destructive Reads Under Contention
// =============================================================================

// checked carries a value and its complement so a torn copy is visible.
type checked struct {
	V    uint64
	NotV uint64
	Pad  [6]uint64
}

// TestPeekNeverTorn peeks while another goroutine pops and pushes, and
// checks every successful peek returns a whole element.
func TestPeekNeverTorn(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	q := ringq.NewQueue[checked](4)
	defer q.Close()

	var stop atomix.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); !stop.Load(); i++ {
			for !q.Push(checked{V: i, NotV: ^i}) && !stop.Load() {
				q.Pop()
			}
			q.Pop()
		}
	}()

	var hits int
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		head := q.Head()
		for pos := head; pos < head+3; pos++ {
			c, ok := q.Peek(pos)
			if !ok {
				continue
			}
			hits++
			if c.NotV != ^c.V {
				stop.Store(true)
				wg.Wait()
				t.Fatalf("torn element at %d: %+v", pos, c)
			}
		}
	}
	stop.Store(true)
	wg.Wait()
	t.Logf("peek hits: %d", hits)
}

// TestPeekMatchesPosition peeks while the slot under it is popped and
// refilled, and checks a successful peek never returns the element of
// another position or a recycled zero value.
func TestPeekMatchesPosition(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	q := ringq.NewQueue[checked](4)
	defer q.Close()

	var stop atomix.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			// Single pusher: Tail is the position of the next push
			pos := q.Tail()
			if !q.Push(checked{V: pos, NotV: ^pos}) {
				q.Pop()
				continue
			}
			if q.Tail()-q.Head() >= 2 {
				q.Pop()
			}
		}
	}()

	var hits int
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		head := q.Head()
		for pos := head; pos < head+3; pos++ {
			c, ok := q.Peek(pos)
			if !ok {
				continue
			}
			hits++
			if c.V != pos || c.NotV != ^pos {
				stop.Store(true)
				wg.Wait()
				t.Fatalf("Peek(%d): got element %+v", pos, c)
			}
		}
	}
	stop.Store(true)
	wg.Wait()
	t.Logf("peek hits: %d", hits)
}

// TestPeekStable checks repeated reads of a position return the same value
// until it is popped.
func TestPeekStable(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	q := ringq.NewQueue[int](16)
	defer q.Close()
	for i := range 10 {
		q.Push(1000 + i)
	}

	var wg sync.WaitGroup
	for r := range 4 {
		wg.Add(1)
		go func(pos uint64) {
			defer wg.Done()
			for range 10000 {
				v, ok := q.Peek(pos)
				if !ok || v != 1000+int(pos) {
					t.Errorf("Peek(%d): got (%d, %v)", pos, v, ok)
					return
				}
			}
		}(uint64(r + 5))
	}

	// Pop below the positions being read
	retryWithTimeout(t, time.Second, func() bool {
		v, ok := q.Pop()
		return ok && v == 1004
	}, "pop up to position 4")
	wg.Wait()
}
