package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestIDSetEqual(t *testing.T) {
	a := NewIDSet("1", "2", "3")
	b := NewIDSet("3", "2", "1")
	if !a.Equal(b) {
		t.Error("sets with the same ids should be equal")
	}

	c := NewIDSet("1", "2")
	if a.Equal(c) {
		t.Error("sets of different size should not be equal")
	}

	d := NewIDSet("1", "2", "4")
	if a.Equal(d) {
		t.Error("sets with different ids should not be equal")
	}

	if !NewIDSet().Equal(NewIDSet()) {
		t.Error("two empty sets should be equal")
	}
}

func TestIDSetReplace(t *testing.T) {
	s := NewIDSet("old-1", "old-2")
	s.Replace(NewIDSet("new-1"))

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
	if s.Contains("old-1") {
		t.Error("Replace should drop previous ids")
	}
	if !s.Contains("new-1") {
		t.Error("Replace should add new ids")
	}

	s.Clear()
	if s.Size() != 0 {
		t.Errorf("size after Clear: got %d, want 0", s.Size())
	}
}

func TestIDSetReplaceCopies(t *testing.T) {
	src := NewIDSet("a", "b")
	s := NewIDSet()
	s.Replace(src)

	src.Clear()
	if !s.Equal(NewIDSet("a", "b")) {
		t.Errorf("Replace should copy, got size %d", s.Size())
	}
}

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(3, 0)
	var ran int64
	for i := 0; i < 20; i++ {
		pool.Submit(func() { atomic.AddInt64(&ran, 1) })
	}
	pool.Wait()

	if ran != 20 {
		t.Errorf("ran: got %d, want 20", ran)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var (
		mu         sync.Mutex
		timestamps []time.Time
	)
	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		min := time.Duration(rateLimitMs) * time.Millisecond
		if gap < min-5*time.Millisecond {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}
