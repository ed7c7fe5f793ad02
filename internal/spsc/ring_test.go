package spsc

import (
	"sync"
	"testing"
)

func TestPushPopOrder(t *testing.T) {
	r := New[int](8)
	for i := 0; i < 8; i++ {
		if !r.TryPush(i) {
			t.Fatalf("push %d failed on non-full ring", i)
		}
	}
	if r.TryPush(99) {
		t.Fatal("push succeeded on full ring")
	}
	for i := 0; i < 8; i++ {
		v, ok := r.TryPop()
		if !ok || v != i {
			t.Fatalf("pop %d: got (%d,%v)", i, v, ok)
		}
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("pop succeeded on empty ring")
	}
}

func TestCapacityRoundsUp(t *testing.T) {
	r := New[int](10000)
	if r.Cap() != 16384 {
		t.Fatalf("expected capacity 16384, got %d", r.Cap())
	}
	if got := New[int](0).Cap(); got != 1 {
		t.Fatalf("expected minimum capacity 1, got %d", got)
	}
}

func TestWrapAround(t *testing.T) {
	r := New[int](4)
	for round := 0; round < 100; round++ {
		if !r.TryPush(round) {
			t.Fatalf("push failed at round %d", round)
		}
		v, ok := r.TryPop()
		if !ok || v != round {
			t.Fatalf("round %d: got (%d,%v)", round, v, ok)
		}
	}
}

// One producer and one consumer hammer the ring; every value must arrive
// exactly once and in order.
func TestConcurrentSPSC(t *testing.T) {
	const total = 1 << 18
	r := New[uint64](1024)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(0); i < total; {
			if r.TryPush(i) {
				i++
			}
		}
	}()

	next := uint64(0)
	for next < total {
		v, ok := r.TryPop()
		if !ok {
			continue
		}
		if v != next {
			t.Fatalf("out of order: got %d, want %d", v, next)
		}
		next++
	}
	wg.Wait()
	if _, ok := r.TryPop(); ok {
		t.Fatal("ring not empty after drain")
	}
}
