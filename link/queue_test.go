package link_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openobs/obslink/link"
)

func TestQueue(t *testing.T) {
	t.Run("FIFO order for a burst of pushes", func(t *testing.T) {
		q := link.NewQueue()
		for i := 0; i < 1000; i++ {
			q.Push(fmt.Sprintf("DATA,%d", i))
		}
		if q.Len() != 1000 {
			t.Fatalf("expected depth 1000, got %d", q.Len())
		}

		for i := 0; i < 1000; i++ {
			s, ok := q.TryPop()
			if !ok {
				t.Fatalf("queue empty after %d pops", i)
			}
			if want := fmt.Sprintf("DATA,%d", i); s != want {
				t.Fatalf("pop %d: expected %q, got %q", i, want, s)
			}
		}
		if _, ok := q.TryPop(); ok {
			t.Error("expected empty queue")
		}
	})

	t.Run("Drain returns everything in order", func(t *testing.T) {
		q := link.NewQueue()
		q.Push("DATA,1")
		q.Push("DATA,2")

		got := q.Drain()
		if len(got) != 2 || got[0] != "DATA,1" || got[1] != "DATA,2" {
			t.Errorf("unexpected drain result %q", got)
		}
		if q.Len() != 0 {
			t.Errorf("expected empty queue after drain, got %d", q.Len())
		}
	})

	t.Run("Reset discards items", func(t *testing.T) {
		q := link.NewQueue()
		q.Push("DATA,1")
		q.Reset()
		if q.Len() != 0 {
			t.Errorf("expected empty queue after reset, got %d", q.Len())
		}
	})

	t.Run("Pop waits for a push", func(t *testing.T) {
		q := link.NewQueue()
		go func() {
			time.Sleep(10 * time.Millisecond)
			q.Push("DATA,late")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		s, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s != "DATA,late" {
			t.Errorf("unexpected item %q", s)
		}
	})

	t.Run("Pop honours context deadline", func(t *testing.T) {
		q := link.NewQueue()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := q.Pop(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("Concurrent producer and consumers see every item once", func(t *testing.T) {
		q := link.NewQueue()
		const total = 500

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var mu sync.Mutex
		seen := make(map[string]int)
		var wg sync.WaitGroup
		for w := 0; w < 3; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					s, err := q.Pop(ctx)
					if err != nil {
						return
					}
					mu.Lock()
					seen[s]++
					n := len(seen)
					mu.Unlock()
					if n == total {
						cancel()
					}
				}
			}()
		}

		for i := 0; i < total; i++ {
			q.Push(fmt.Sprintf("DATA,%d", i))
		}
		wg.Wait()

		if len(seen) != total {
			t.Fatalf("expected %d distinct items, got %d", total, len(seen))
		}
		for s, n := range seen {
			if n != 1 {
				t.Errorf("item %q delivered %d times", s, n)
			}
		}
	})
}
