package cohort

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/hetcount/internal/genotype"
	"github.com/inodb/hetcount/internal/qc"
	"github.com/inodb/hetcount/internal/vcf"
	"github.com/inodb/hetcount/internal/vcf/vcftest"
)

// newCohort writes a cohort directory with the given metadata and sample
// files (sample ID -> genotype values).
func newCohort(t *testing.T, name, metadata string, samples map[string][]string) Cohort {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.Mkdir(dir, 0755))
	c := New(dir)

	require.NoError(t, os.WriteFile(c.MetadataPath(), []byte(metadata), 0644))
	for id, values := range samples {
		rows := make([]string, len(values))
		for i, v := range values {
			rows[i] = vcftest.Row(1000+i, v)
		}
		vcftest.WriteGzip(t, c.SamplePath(id), vcftest.GVCF(id, rows...)...)
	}
	return c
}

const threeSamples = "SampleID\tAncestry\tAge\nS1\tEUR\t30\nS2\tAFR\t40\nS3\tEAS\t50\n"

func TestRun_MissingFileSkipped(t *testing.T) {
	c := newCohort(t, "Cohort_A", threeSamples, map[string][]string{
		"S1": {"0/1:10,5:25:35", "1/1:10,5:25:35", "0|1:10,5:18:40"},
		"S3": {"0/1:10,5:25:35", "1|0:1,30:31:30"},
	})

	res, err := NewAggregator(qc.DefaultPolicy()).Run(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, HetCount{"S1": 1, "S3": 2}, res.Counts)
	assert.Equal(t, []string{"S2"}, res.Skipped)
	assert.Empty(t, res.Failed)

	require.Equal(t, 2, res.Summary.Len())
	assert.Equal(t, "S1", res.Summary.Rows[0].Sample.ID)
	assert.Equal(t, "S3", res.Summary.Rows[1].Sample.ID)
	assert.Equal(t, "A", res.Summary.Cohort)
}

func TestRun_FailingSampleIsolated(t *testing.T) {
	c := newCohort(t, "Cohort_A", threeSamples, map[string][]string{
		"S1": {"0/1:10,5:25:35"},
		"S2": {"0/1:10,5:notanint:35"},
		"S3": {"0/1:10,5:25:35", "0/1:10,5:25:35"},
	})

	res, err := NewAggregator(qc.DefaultPolicy()).Run(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, HetCount{"S1": 1, "S3": 2}, res.Counts)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "S2", res.Failed[0].SampleID)

	var fe *genotype.FieldParseError
	require.True(t, errors.As(res.Failed[0], &fe))
	assert.Equal(t, "chr1:1000", fe.Locus)
	assert.Contains(t, res.Failed[0].Error(), "chr1:1000")
	assert.Equal(t, 2, res.Summary.Len())
}

func TestRun_MissingHeaderIsolated(t *testing.T) {
	c := newCohort(t, "Cohort_A", threeSamples, map[string][]string{
		"S1": {"0/1:10,5:25:35"},
	})
	vcftest.WriteGzip(t, c.SamplePath("S2"), vcftest.Meta...)

	res, err := NewAggregator(qc.DefaultPolicy()).Run(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	var fe *vcf.FormatError
	assert.True(t, errors.As(res.Failed[0].Err, &fe))
	assert.Equal(t, HetCount{"S1": 1}, res.Counts)
	assert.Equal(t, []string{"S3"}, res.Skipped)
}

func TestRun_Idempotent(t *testing.T) {
	c := newCohort(t, "Cohort_A", threeSamples, map[string][]string{
		"S1": {"0/1:10,5:25:35", "1/0:10,5:45:99", "0/0:1,1:50:50"},
		"S2": {"0|1:10,5:21:30"},
		"S3": {"1/1:10,5:25:35"},
	})

	agg := NewAggregator(qc.DefaultPolicy())
	agg.SetWorkers(3)

	first, err := agg.Run(context.Background(), c)
	require.NoError(t, err)
	second, err := agg.Run(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, HetCount{"S1": 2, "S2": 1, "S3": 0}, first.Counts)
}

func TestRun_SummaryFollowsMetadataOrder(t *testing.T) {
	meta := "SampleID\tAncestry\n"
	samples := map[string][]string{}
	var ids []string
	for _, id := range []string{"Z9", "A1", "M5", "B2", "Y8", "C3"} {
		meta += id + "\tEUR\n"
		samples[id] = []string{"0/1:10,5:25:35"}
		ids = append(ids, id)
	}
	c := newCohort(t, "Cohort_A", meta, samples)

	agg := NewAggregator(qc.DefaultPolicy())
	agg.SetWorkers(4)
	res, err := agg.Run(context.Background(), c)
	require.NoError(t, err)

	var got []string
	for _, r := range res.Summary.Rows {
		got = append(got, r.Sample.ID)
	}
	assert.Equal(t, ids, got)
}

func TestRun_MetadataError(t *testing.T) {
	dir := t.TempDir()
	_, err := NewAggregator(qc.DefaultPolicy()).Run(context.Background(), New(dir))
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	c := newCohort(t, "Cohort_A", threeSamples, map[string][]string{
		"S1": {"0/1:10,5:25:35"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(qc.DefaultPolicy()).Run(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_FixedLayout(t *testing.T) {
	c := newCohort(t, "Cohort_A", "SampleID\tAncestry\nS1\tEUR\n", nil)
	vcftest.WriteGzip(t, c.SamplePath("S1"), vcftest.GVCF("S1",
		vcftest.RowFormat(1, "GT:GQ:DP:AD", "0/1:10,5:25:35"),
	)...)

	// FORMAT says GQ=10 (fails); the fixed layout reads DP=25, GQ=35.
	agg := NewAggregator(qc.DefaultPolicy())
	res, err := agg.Run(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)

	agg.SetLayout(genotype.FixedLayout)
	res, err = agg.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, HetCount{"S1": 1}, res.Counts)
}

// memCache is an in-memory CountCache.
type memCache struct {
	mu      sync.Mutex
	counts  map[string]int
	lookups int
	writes  int
}

func newMemCache() *memCache {
	return &memCache{counts: make(map[string]int)}
}

func (m *memCache) LookupCount(path, key string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	n, ok := m.counts[path+"|"+key]
	return n, ok, nil
}

func (m *memCache) WriteCount(path, key string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.counts[path+"|"+key] = count
	return nil
}

func TestRun_UsesCache(t *testing.T) {
	c := newCohort(t, "Cohort_A", threeSamples, map[string][]string{
		"S1": {"0/1:10,5:25:35"},
		"S2": {"0/1:10,5:25:35", "0/1:10,5:25:35"},
	})

	cache := newMemCache()
	agg := NewAggregator(qc.DefaultPolicy())
	agg.SetCache(cache)

	first, err := agg.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cached)
	assert.Equal(t, 2, cache.writes)

	second, err := agg.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Cached)
	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, 2, cache.writes)
}

func TestCountFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "S1.gvcf.gz")
	vcftest.WriteGzip(t, path, vcftest.GVCF("NA12878",
		vcftest.Row(1, "0/1:10,5:25:35"),
		vcftest.Row(2, "0/1:10,5:25:29"),
	)...)

	n, err := CountFile(context.Background(), path, "S1", qc.DefaultPolicy(), genotype.FormatLayout, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountFile_LogsDecodeLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "S1.gvcf.gz")
	vcftest.WriteGzip(t, path, vcftest.GVCF("S1", vcftest.Row(1, "0/1:10,5:25:35"))...)

	core, logs := observer.New(zapcore.DebugLevel)
	_, err := CountFile(context.Background(), path, "S1", qc.DefaultPolicy(), genotype.FixedLayout, zap.New(core))
	require.NoError(t, err)

	decoded := logs.FilterMessage("decoded genotypes").All()
	require.Len(t, decoded, 1)
	assert.Equal(t, "fixed", decoded[0].ContextMap()["layout"])
	assert.Equal(t, "S1", decoded[0].ContextMap()["column"])
}

func TestRun_LogsFailingLocus(t *testing.T) {
	c := newCohort(t, "Cohort_A", "SampleID\tAncestry\nS1\tEUR\n", map[string][]string{
		"S1": {"0/1:10,5:25:35", "0/1:10,5:25:bad"},
	})

	core, logs := observer.New(zapcore.ErrorLevel)
	agg := NewAggregator(qc.DefaultPolicy())
	agg.SetLogger(zap.New(core))

	_, err := agg.Run(context.Background(), c)
	require.NoError(t, err)

	failed := logs.FilterMessage("sample failed, excluding from cohort").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "chr1:1001", failed[0].ContextMap()["locus"])
	assert.Equal(t, "S1", failed[0].ContextMap()["sample"])
}
