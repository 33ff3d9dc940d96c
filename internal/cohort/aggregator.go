package cohort

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/hetcount/internal/genotype"
	"github.com/inodb/hetcount/internal/qc"
)

// DefaultTimeout bounds the processing of a single sample file.
const DefaultTimeout = 10 * time.Minute

// CountCache stores per-file counts so unchanged files are not re-read.
// Implementations decide file identity from path (e.g. size and mtime).
type CountCache interface {
	LookupCount(path, key string) (count int, ok bool, err error)
	WriteCount(path, key string, count int) error
}

// SampleError records a sample excluded from a cohort because it failed.
type SampleError struct {
	SampleID string
	Err      error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %s: %v", e.SampleID, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// Result is the outcome of aggregating one cohort.
type Result struct {
	Cohort   Cohort
	Metadata *Metadata
	Counts   HetCount
	Summary  *Summary
	Skipped  []string // metadata samples with no variant file
	Failed   []*SampleError
	Cached   int // counts served from the cache
}

// Aggregator counts passing heterozygous variants for every sample of a
// cohort and merges the counts with the cohort metadata.
type Aggregator struct {
	policy  qc.Policy
	layout  genotype.Layout
	workers int
	timeout time.Duration
	cache   CountCache
	logger  *zap.Logger
}

// NewAggregator creates an aggregator applying policy.
func NewAggregator(policy qc.Policy) *Aggregator {
	return &Aggregator{
		policy:  policy,
		layout:  genotype.FormatLayout,
		workers: runtime.NumCPU(),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
}

// SetLayout sets the genotype sub-field layout.
func (a *Aggregator) SetLayout(l genotype.Layout) {
	a.layout = l
}

// SetWorkers sets the number of samples processed concurrently.
// Values below 1 mean runtime.NumCPU().
func (a *Aggregator) SetWorkers(n int) {
	a.workers = n
}

// SetTimeout sets the per-file processing timeout. Zero disables it.
func (a *Aggregator) SetTimeout(d time.Duration) {
	a.timeout = d
}

// SetCache enables the count cache.
func (a *Aggregator) SetCache(c CountCache) {
	a.cache = c
}

// SetLogger sets the logger for warning and info messages.
func (a *Aggregator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Policy returns the QC policy in use.
func (a *Aggregator) Policy() qc.Policy {
	return a.policy
}

// cacheKey identifies everything besides file content that affects a count.
func (a *Aggregator) cacheKey() string {
	return a.policy.Key() + ";layout=" + a.layout.String()
}

// Run loads the cohort metadata, counts every sample that has a variant
// file, and merges the counts into a summary. Missing files are skipped
// and failing samples are logged and excluded; neither fails the run.
// Only unreadable metadata or cancellation of ctx return an error.
func (a *Aggregator) Run(ctx context.Context, c Cohort) (*Result, error) {
	meta, err := LoadMetadata(c.MetadataPath())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Cohort:   c,
		Metadata: meta,
		Counts:   make(HetCount, len(meta.Samples)),
	}

	var tasks []SampleTask
	for _, id := range meta.IDs() {
		path, err := c.LocateSample(id)
		if err != nil {
			if errors.Is(err, ErrMissingFile) {
				res.Skipped = append(res.Skipped, id)
				a.logger.Debug("no variant file, skipping sample", zap.String("sample", id))
				continue
			}
			a.logger.Error("cannot access variant file, excluding sample",
				zap.String("sample", id), zap.Error(err))
			res.Failed = append(res.Failed, &SampleError{SampleID: id, Err: err})
			continue
		}
		tasks = append(tasks, SampleTask{Seq: len(tasks), SampleID: id, Path: path})
	}

	items := make(chan SampleTask, len(tasks))
	for _, t := range tasks {
		items <- t
	}
	close(items)

	results := a.ParallelCount(ctx, items, a.workers)
	if err := OrderedCollect(results, func(r SampleResult) error {
		if r.Err != nil {
			fields := []zap.Field{
				zap.String("cohort", c.Name),
				zap.String("sample", r.SampleID),
				zap.Error(r.Err),
			}
			var fe *genotype.FieldParseError
			if errors.As(r.Err, &fe) && fe.Locus != "" {
				fields = append(fields, zap.String("locus", fe.Locus))
			}
			a.logger.Error("sample failed, excluding from cohort", fields...)
			res.Failed = append(res.Failed, &SampleError{SampleID: r.SampleID, Err: r.Err})
			return nil
		}
		res.Counts[r.SampleID] = r.Count
		if r.Cached {
			res.Cached++
		}
		a.logger.Debug("sample counted",
			zap.String("sample", r.SampleID),
			zap.Int("het_count", r.Count),
			zap.Bool("cached", r.Cached))
		return nil
	}); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cohort %s: %w", c.Name, err)
	}

	if len(res.Skipped) > 0 {
		a.logger.Warn("samples without a variant file were skipped",
			zap.String("cohort", c.Name),
			zap.Int("skipped", len(res.Skipped)),
			zap.Strings("samples", res.Skipped))
	}

	res.Summary = Merge(meta, res.Counts, c.Label())
	return res, nil
}

// countTask counts one sample, consulting the cache first.
func (a *Aggregator) countTask(ctx context.Context, t SampleTask) SampleResult {
	r := SampleResult{Seq: t.Seq, SampleID: t.SampleID}
	key := a.cacheKey()

	if a.cache != nil {
		n, ok, err := a.cache.LookupCount(t.Path, key)
		if err != nil {
			a.logger.Warn("count cache lookup failed",
				zap.String("sample", t.SampleID), zap.Error(err))
		} else if ok {
			r.Count, r.Cached = n, true
			return r
		}
	}

	tctx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	r.Count, r.Err = CountFile(tctx, t.Path, t.SampleID, a.policy, a.layout, a.logger)
	if r.Err != nil {
		return r
	}

	if a.cache != nil {
		if err := a.cache.WriteCount(t.Path, key, r.Count); err != nil {
			a.logger.Warn("count cache write failed",
				zap.String("sample", t.SampleID), zap.Error(err))
		}
	}
	return r
}
