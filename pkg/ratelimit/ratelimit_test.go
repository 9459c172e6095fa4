package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewLimiterRejectsNonPositiveRate(t *testing.T) {
	_, err := NewLimiter(map[string]ServiceLimit{
		"wikidata": {Rate: 0, Burst: 1},
	})
	if err == nil {
		t.Fatal("expected error for zero rate")
	}

	_, err = NewLimiter(map[string]ServiceLimit{
		"wikidata": {Rate: 1, Burst: 0},
	})
	if err == nil {
		t.Fatal("expected error for zero burst")
	}
}

func TestAcquireUnknownService(t *testing.T) {
	l, err := NewLimiter(map[string]ServiceLimit{
		"wikidata": {Rate: 1, Burst: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Acquire(context.Background(), "wikipedia"); err == nil {
		t.Fatal("expected error for unconfigured service")
	}
}

func TestAcquireEnforcesRate(t *testing.T) {
	const (
		n     = 6
		burst = 2
		rps   = 50.0
	)
	l, err := NewLimiter(map[string]ServiceLimit{
		"svc": {Rate: rps, Burst: burst},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background(), "svc"); err != nil {
				t.Errorf("acquire failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// N acquisitions at rate R with burst B take at least (N-B)/R seconds.
	minimum := time.Duration(float64(n-burst) / rps * float64(time.Second))
	if elapsed := time.Since(start); elapsed < minimum {
		t.Errorf("%d acquisitions finished in %v, want at least %v", n, elapsed, minimum)
	}
}

func TestAcquireIndependentBudgets(t *testing.T) {
	l, err := NewLimiter(map[string]ServiceLimit{
		"slow": {Rate: 0.001, Burst: 1},
		"fast": {Rate: 1000, Burst: 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Drain the slow bucket.
	if err := l.Acquire(context.Background(), "slow"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// The fast service must not be affected.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			if err := l.Acquire(context.Background(), "fast"); err != nil {
				t.Errorf("acquire failed: %v", err)
			}
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fast service blocked by slow service budget")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l, err := NewLimiter(map[string]ServiceLimit{
		"svc": {Rate: 0.001, Burst: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Acquire(context.Background(), "svc"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx, "svc"); err == nil {
		t.Fatal("expected error when context expires while waiting")
	}
}
