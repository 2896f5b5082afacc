package utils

import (
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines, spacing job starts
// by at least minInterval.
type WorkerPool struct {
	maxWorkers  int
	minInterval time.Duration
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastStart   time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		maxWorkers:  maxWorkers,
		minInterval: time.Duration(rateLimitMs) * time.Millisecond,
		semaphore:   make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job for execution in the pool. It blocks while all
// workers are busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.minInterval <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	elapsed := time.Since(wp.lastStart)
	if elapsed < wp.minInterval {
		time.Sleep(wp.minInterval - elapsed)
	}
	wp.lastStart = time.Now()
}

// IDSet is a set of listing identifiers. Its contents are only ever swapped
// out wholesale by Replace. It is not safe for concurrent use; a watcher
// session owns its set and only the watcher loop touches it.
type IDSet struct {
	seen map[string]struct{}
}

// NewIDSet creates an IDSet holding ids.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{seen: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
	return s
}

// Replace swaps the set's contents for a copy of other's.
func (s *IDSet) Replace(other *IDSet) {
	next := make(map[string]struct{}, len(other.seen))
	for id := range other.seen {
		next[id] = struct{}{}
	}
	s.seen = next
}

// Clear empties the set.
func (s *IDSet) Clear() {
	s.seen = make(map[string]struct{})
}

// Contains returns true if id is in the set.
func (s *IDSet) Contains(id string) bool {
	_, exists := s.seen[id]
	return exists
}

// Equal reports whether both sets hold exactly the same ids.
func (s *IDSet) Equal(other *IDSet) bool {
	if len(s.seen) != len(other.seen) {
		return false
	}
	for id := range other.seen {
		if _, ok := s.seen[id]; !ok {
			return false
		}
	}
	return true
}

// IDs returns the ids in no particular order.
func (s *IDSet) IDs() []string {
	ids := make([]string, 0, len(s.seen))
	for id := range s.seen {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of ids tracked.
func (s *IDSet) Size() int {
	return len(s.seen)
}
