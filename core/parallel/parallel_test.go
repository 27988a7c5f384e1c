package parallel

import (
	"sync/atomic"
	"testing"
)

// TestParallelize_CoversEveryIndexOnce verifies that the chunking visits
// each index in [0, items) exactly once.
func TestParallelize_CoversEveryIndexOnce(t *testing.T) {
	for _, items := range []int{0, 1, 7, 64, 1000} {
		counts := make([]int64, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt64(&counts[i], 1)
			}
		})
		for i, c := range counts {
			if c != 1 {
				t.Errorf("items=%d: index %d visited %d times", items, i, c)
			}
		}
	}
}

// TestParallelizeWithThreshold_SequentialBelowThreshold verifies the small
// workloads run as a single sequential chunk.
func TestParallelizeWithThreshold_SequentialBelowThreshold(t *testing.T) {
	var calls int
	ParallelizeWithThreshold(10, 32, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("expected single chunk [0,10), got [%d,%d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected 1 sequential call, got %d", calls)
	}
}
