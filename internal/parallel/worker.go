// Package parallel provides the worker pool used for fanning group
// computations out across CPUs. It implements a simple fan-out/fan-in
// pattern; the dispatcher decides when the group count justifies it.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool. A non-positive size auto-detects
// from the CPU count.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// NumWorkers returns the pool's worker count
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// Close cancels any in-flight work and releases the pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}

type indexedResult[R any] struct {
	index  int
	result R
}

// Process executes work items in parallel, preserving input order in the
// returned slice.
func Process[T, R any](wp *WorkerPool, items []T, worker func(T) R) []R {
	if len(items) == 0 {
		return nil
	}

	itemCh := make(chan indexedResult[T], len(items))
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					resultCh <- indexedResult[R]{index: item.index, result: worker(item.result)}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexedResult[T]{index: i, result: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	for r := range resultCh {
		results[r.index] = r.result
	}

	return results
}
