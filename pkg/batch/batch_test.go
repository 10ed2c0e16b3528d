package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunCollectsAllOutcomes(t *testing.T) {
	r := New(4, nil)
	boom := errors.New("boom")

	results := r.Run(context.Background(), 5, func(ctx context.Context, i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})

	if len(results) != 5 {
		t.Fatalf("got %d results", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d has index %d", i, res.Index)
		}
		if i == 2 && !errors.Is(res.Err, boom) {
			t.Errorf("item 2 err = %v, want boom", res.Err)
		}
		if i != 2 && res.Err != nil {
			t.Errorf("item %d err = %v, want nil", i, res.Err)
		}
	}

	stats := r.Stats()
	if stats.Succeeded != 4 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	r := New(2, nil)
	var active, peak int64

	r.Run(context.Background(), 20, func(ctx context.Context, i int) error {
		cur := atomic.AddInt64(&active, 1)
		defer atomic.AddInt64(&active, -1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		return nil
	})

	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Errorf("peak concurrency %d exceeds bound", p)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	r := New(0, nil)
	if results := r.Run(context.Background(), 0, nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRunCancelledContext(t *testing.T) {
	r := New(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.Run(ctx, 3, func(ctx context.Context, i int) error {
		return nil
	})

	for _, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("item %d err = %v, want context.Canceled", res.Index, res.Err)
		}
	}
}
