package cohort

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/hetcount/internal/qc"
)

// cachedAggregator returns an aggregator whose cache already holds a count
// of i*10 for the task with Seq i, so no files are read.
func cachedAggregator(n int) (*Aggregator, <-chan SampleTask) {
	agg := NewAggregator(qc.DefaultPolicy())
	cache := newMemCache()
	agg.SetCache(cache)

	ch := make(chan SampleTask, n)
	for i := range n {
		path := fmt.Sprintf("/data/S%d.gvcf.gz", i)
		cache.counts[path+"|"+agg.cacheKey()] = i * 10
		ch <- SampleTask{Seq: i, SampleID: fmt.Sprintf("S%d", i), Path: path}
	}
	close(ch)
	return agg, ch
}

func TestParallelCount_OrderPreservation(t *testing.T) {
	agg, tasks := cachedAggregator(200)
	results := agg.ParallelCount(context.Background(), tasks, 8)

	var collected []int
	err := OrderedCollect(results, func(r SampleResult) error {
		require.NoError(t, r.Err)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelCount_SingleWorker(t *testing.T) {
	agg, tasks := cachedAggregator(50)
	results := agg.ParallelCount(context.Background(), tasks, 1)

	var collected []int
	err := OrderedCollect(results, func(r SampleResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 50)
	for i, seq := range collected {
		assert.Equal(t, i, seq)
	}
}

func TestParallelCount_CountsAndIDs(t *testing.T) {
	agg, tasks := cachedAggregator(10)
	results := agg.ParallelCount(context.Background(), tasks, 4)

	err := OrderedCollect(results, func(r SampleResult) error {
		assert.Equal(t, fmt.Sprintf("S%d", r.Seq), r.SampleID)
		assert.Equal(t, r.Seq*10, r.Count)
		assert.True(t, r.Cached)
		return nil
	})
	require.NoError(t, err)
}

func TestParallelCount_Empty(t *testing.T) {
	agg, tasks := cachedAggregator(0)
	results := agg.ParallelCount(context.Background(), tasks, 4)

	var count int
	err := OrderedCollect(results, func(r SampleResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestParallelCount_DefaultWorkers(t *testing.T) {
	agg, tasks := cachedAggregator(20)
	results := agg.ParallelCount(context.Background(), tasks, 0)

	var collected []int
	err := OrderedCollect(results, func(r SampleResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, collected, 20)
}

func TestOrderedCollect_StopsOnError(t *testing.T) {
	agg, tasks := cachedAggregator(30)
	results := agg.ParallelCount(context.Background(), tasks, 4)

	var seen int
	err := OrderedCollect(results, func(r SampleResult) error {
		seen++
		if r.Seq == 5 {
			return fmt.Errorf("stop at %d", r.Seq)
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 6, seen)
}
