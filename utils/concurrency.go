package utils

import (
	"context"
	"sync"
)

// WorkerPool bounds how many jobs run at once.
type WorkerPool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{slots: make(chan struct{}, maxWorkers)}
}

// Go starts job once a slot is free, blocking the caller until then.
func (wp *WorkerPool) Go(job func()) {
	wp.slots <- struct{}{}
	wp.wg.Add(1)

	go func() {
		defer func() {
			<-wp.slots
			wp.wg.Done()
		}()
		job()
	}()
}

// Wait blocks until every started job has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// MapOrdered runs fn over items on a pool of maxWorkers goroutines and
// returns the results in input order, whatever order they finish in.
// Items not yet started when ctx is done are still passed to fn, which is
// expected to observe ctx itself.
func MapOrdered[In, Out any](ctx context.Context, maxWorkers int, items []In, fn func(ctx context.Context, idx int, item In) Out) []Out {
	out := make([]Out, len(items))
	pool := NewWorkerPool(maxWorkers)
	for i, item := range items {
		i, item := i, item
		pool.Go(func() {
			out[i] = fn(ctx, i, item)
		})
	}
	pool.Wait()
	return out
}

// KeySet is a thread-safe set of string keys.
type KeySet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains returns true if the key is tracked.
func (s *KeySet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[key]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *KeySet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
