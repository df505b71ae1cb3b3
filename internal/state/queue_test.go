package state

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestWriteQueuePreservesSubmissionOrder(t *testing.T) {
	q := NewWriteQueue(8)

	var (
		mu    sync.Mutex
		order []int
	)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		q.Submit(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}, func(error) { wg.Done() })
	}
	wg.Wait()
	q.Close()

	for i, got := range order {
		if got != i {
			t.Fatalf("expected submission order, got %v", order)
		}
	}
}

func TestWriteQueueReportsErrorsThroughCallback(t *testing.T) {
	q := NewWriteQueue(1)
	defer q.Close()

	boom := errors.New("boom")
	ch := make(chan error, 1)
	q.Submit(func(context.Context) error { return boom }, func(err error) { ch <- err })
	if err := <-ch; !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestWriteQueueSubmitRacingCloseNeverPanics(t *testing.T) {
	for round := 0; round < 50; round++ {
		q := NewWriteQueue(4)
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				// Either the write lands before Close or the callback
				// reports the queue closed; a send on the closed channel
				// would panic here.
				q.Submit(func(context.Context) error { return nil }, nil)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			q.Close()
		}()
		close(start)
		wg.Wait()
		q.Close()
	}
}

func TestWriteQueueCloseDrainsAndRejectsLateWrites(t *testing.T) {
	q := NewWriteQueue(4)
	done := make(chan struct{}, 1)
	q.Submit(func(context.Context) error { return nil }, func(error) { done <- struct{}{} })
	q.Close()
	select {
	case <-done:
	default:
		t.Fatalf("expected pending write to drain on close")
	}

	ch := make(chan error, 1)
	q.Submit(func(context.Context) error { return nil }, func(err error) { ch <- err })
	if err := <-ch; err == nil {
		t.Fatalf("expected late submit to report an error")
	}
}
