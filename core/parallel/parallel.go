// Package parallel runs independent units of work on a bounded worker pool.
//
// Hyperparameter search and forest growing are embarrassingly parallel: every
// unit reads immutable inputs and writes its own output slot, so callers only need
// a join barrier, which ForEach provides.
package parallel

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkers returns the number of processing units minus one, reserving one for
// the controlling goroutine, and never less than one.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}

// Resolve maps a configured worker count to an effective one. Non-positive values
// select DefaultWorkers.
func Resolve(workers int) int {
	if workers <= 0 {
		return DefaultWorkers()
	}
	return workers
}

// ForEach calls fn(i) for every i in [0, n) using at most workers goroutines and
// returns after all calls complete. With one worker the calls run in order on the
// calling goroutine. A panic in fn is re-raised by ForEach after the barrier.
func ForEach(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers = Resolve(workers)
	if workers == 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	if workers > n {
		workers = n
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i := 0; i < n; i++ {
		p.Go(func() { fn(i) })
	}
	p.Wait()
}

// ParallelizeWithThreshold splits [0, n) into contiguous chunks processed
// concurrently. Below threshold the whole range runs sequentially.
func ParallelizeWithThreshold(n, threshold int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < threshold {
		fn(0, n)
		return
	}
	workers := DefaultWorkers()
	chunk := (n + workers - 1) / workers
	chunks := (n + chunk - 1) / chunk
	ForEach(chunks, workers, func(c int) {
		start := c * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		fn(start, end)
	})
}
