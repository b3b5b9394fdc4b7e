package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	if !q.IsEmpty() {
		t.Fatal("new queue should be empty")
	}

	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}
	if q.Len() != 5 {
		t.Fatalf("expected len 5, got %d", q.Len())
	}

	if v, ok := q.Peek(); !ok || v != 0 {
		t.Errorf("Peek = %d,%v; want 0,true", v, ok)
	}

	for i := 0; i < 5; i++ {
		v, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue %d returned not ok", i)
		}
		if v != i {
			t.Errorf("Dequeue %d = %d", i, v)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue on empty queue returned ok")
	}
}

func TestQueueReadySignal(t *testing.T) {
	q := New[string]()

	select {
	case <-q.Ready():
		t.Fatal("ready fired on empty queue")
	default:
	}

	q.Enqueue("a")
	q.Enqueue("b")

	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready did not fire after enqueue")
	}
}

func TestQueueClear(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)
	q.Enqueue(2)

	if n := q.Clear(); n != 2 {
		t.Errorf("Clear returned %d, want 2", n)
	}
	if !q.IsEmpty() {
		t.Error("queue not empty after Clear")
	}
	select {
	case <-q.Ready():
		t.Error("ready signal survived Clear")
	default:
	}
}

// A producer and a consumer running at different speeds must see the same order.
func TestQueueConcurrentOrder(t *testing.T) {
	const n = 2000
	q := New[int]()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Enqueue(i)
			if i%97 == 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}()

	got := make([]int, 0, n)
	deadline := time.After(10 * time.Second)
	for len(got) < n {
		if v, ok := q.Dequeue(); ok {
			got = append(got, v)
			continue
		}
		select {
		case <-q.Ready():
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out after %d items", len(got))
		}
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("item %d = %d, order broken", i, v)
		}
	}
}
