package utils

import "sync"

// WorkerPool runs submitted jobs on at most maxWorkers goroutines.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool. maxWorkers below 1 is treated as 1.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{semaphore: make(chan struct{}, maxWorkers)}
}

// Submit blocks until a worker slot is free, then runs job on it.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Map applies fn to every input on the pool and returns the results in
// input order. Map waits for every job submitted to wp, so concurrent
// callers need a pool each.
func Map[T, R any](wp *WorkerPool, inputs []T, fn func(T) R) []R {
	out := make([]R, len(inputs))
	for i, in := range inputs {
		wp.Submit(func() { out[i] = fn(in) })
	}
	wp.Wait()
	return out
}
