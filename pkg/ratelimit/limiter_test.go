package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquire_PerDomainCeiling(t *testing.T) {
	l := New(Config{Global: 10, PerDomain: 2})

	var inflight, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "https://example.com/page")
			if err != nil {
				t.Errorf("Acquire() failed: %v", err)
				return
			}
			n := atomic.AddInt64(&inflight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inflight, -1)
			release()
		}()
	}
	wg.Wait()

	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Errorf("peak in-flight for one domain = %d, want <= 2", p)
	}
}

func TestAcquire_DistinctDomainsProceed(t *testing.T) {
	// One slot per domain but two domains: both must acquire without
	// waiting on each other.
	l := New(Config{Global: 4, PerDomain: 1})

	r1, err := l.Acquire(context.Background(), "https://a.example.com/")
	if err != nil {
		t.Fatalf("Acquire(a) failed: %v", err)
	}
	defer r1()

	done := make(chan struct{})
	go func() {
		r2, err := l.Acquire(context.Background(), "https://b.example.com/")
		if err == nil {
			r2()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second domain blocked behind the first")
	}
}

func TestAcquire_CanceledContext(t *testing.T) {
	l := New(Config{Global: 1, PerDomain: 1})

	release, err := l.Acquire(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "https://example.com/"); err == nil {
		t.Error("Acquire() with exhausted slots should fail on context timeout")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	l := New(Config{Global: 1, PerDomain: 1})

	release, err := l.Acquire(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	release()
	release() // second call must not free a slot twice

	r2, err := l.Acquire(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	r2()
}
