package cohort

import (
	"context"
	"runtime"
	"sync"
)

// SampleTask holds a sample ready for counting.
type SampleTask struct {
	Seq      int
	SampleID string
	Path     string
}

// SampleResult holds the count for a single sample.
type SampleResult struct {
	Seq      int
	SampleID string
	Count    int
	Cached   bool
	Err      error
}

// ParallelCount counts tasks using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (a *Aggregator) ParallelCount(ctx context.Context, tasks <-chan SampleTask, workers int) <-chan SampleResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan SampleResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for t := range tasks {
				results <- a.countTask(ctx, t)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// Out-of-order results are held in a pending map until the next expected
// sequence number arrives. Blocks until the results channel is closed.
func OrderedCollect(results <-chan SampleResult, fn func(SampleResult) error) error {
	pending := make(map[int]SampleResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
