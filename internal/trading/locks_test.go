package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedLock_TimeoutReportsBusy(t *testing.T) {
	l := newKeyedLock()
	if err := l.Acquire(context.Background(), "u1|AAPL"); err != nil {
		t.Fatal(err)
	}
	defer l.Release("u1|AAPL")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx, "u1|AAPL"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func TestKeyedLock_IndependentKeysDoNotBlock(t *testing.T) {
	l := newKeyedLock()
	if err := l.Acquire(context.Background(), "u1|AAPL"); err != nil {
		t.Fatal(err)
	}
	defer l.Release("u1|AAPL")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Acquire(ctx, "u1|MSFT"); err != nil {
		t.Fatalf("different key blocked: %v", err)
	}
	l.Release("u1|MSFT")
	if err := l.Acquire(ctx, "u2|AAPL"); err != nil {
		t.Fatalf("different user blocked: %v", err)
	}
	l.Release("u2|AAPL")
}

func TestKeyedLock_SerializesWaiters(t *testing.T) {
	l := newKeyedLock()
	const n = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background(), "k"); err != nil {
				t.Error(err)
				return
			}
			counter++
			l.Release("k")
		}()
	}
	wg.Wait()
	if counter != n {
		t.Errorf("counter = %d, want %d", counter, n)
	}
}

func TestKeyedLock_TableShrinksWhenIdle(t *testing.T) {
	l := newKeyedLock()
	if err := l.Acquire(context.Background(), "k"); err != nil {
		t.Fatal(err)
	}
	l.Release("k")

	l.mu.Lock()
	size := len(l.entries)
	l.mu.Unlock()
	if size != 0 {
		t.Errorf("entries = %d after release, want 0", size)
	}
}
