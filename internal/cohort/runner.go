package cohort

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SummaryWriter persists a cohort summary and returns the written path.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, c Cohort, s *Summary) (string, error)
}

// ReportRenderer renders a cohort summary chart and returns the written path.
type ReportRenderer interface {
	RenderReport(c Cohort, s *Summary) (string, error)
}

// Outcome is the result of running one cohort end to end.
type Outcome struct {
	Cohort      Cohort
	RunID       string
	Result      *Result
	SummaryPath string
	ChartPath   string
	Err         error
}

// Runner runs the aggregator over cohorts and hands each summary to the
// writer and renderer. Cohorts are isolated: a failing cohort never stops
// the others.
type Runner struct {
	agg      *Aggregator
	writer   SummaryWriter
	renderer ReportRenderer
	parallel int
	logger   *zap.Logger
}

// NewRunner creates a runner. writer and renderer may be nil.
func NewRunner(agg *Aggregator, writer SummaryWriter, renderer ReportRenderer) *Runner {
	return &Runner{
		agg:      agg,
		writer:   writer,
		renderer: renderer,
		parallel: 1,
		logger:   zap.NewNop(),
	}
}

// SetParallelism sets how many cohorts run at once.
func (r *Runner) SetParallelism(n int) {
	r.parallel = max(n, 1)
}

// SetLogger sets the logger for warning and info messages.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// RunAll runs every cohort and returns one outcome per cohort, in input
// order.
func (r *Runner) RunAll(ctx context.Context, cohorts []Cohort) []Outcome {
	outcomes := make([]Outcome, len(cohorts))

	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i, c := range cohorts {
		g.Go(func() error {
			outcomes[i] = r.RunCohort(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// RunCohort aggregates one cohort and writes its outputs.
func (r *Runner) RunCohort(ctx context.Context, c Cohort) Outcome {
	out := Outcome{Cohort: c, RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", out.RunID), zap.String("cohort", c.Name))

	if err := os.MkdirAll(c.OutputDir(), 0755); err != nil {
		out.Err = fmt.Errorf("create output directory: %w", err)
		logger.Error("cohort failed", zap.Error(out.Err))
		return out
	}

	agg := *r.agg
	agg.logger = logger

	res, err := agg.Run(ctx, c)
	if err != nil {
		out.Err = err
		logger.Error("cohort failed", zap.Error(err))
		return out
	}
	out.Result = res

	var errs []error
	if r.writer != nil {
		path, err := r.writer.WriteSummary(ctx, c, res.Summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("write summary: %w", err))
		} else {
			out.SummaryPath = path
		}
	}

	if r.renderer != nil {
		if res.Summary.Len() == 0 {
			logger.Warn("no samples in summary, skipping chart")
		} else {
			path, err := r.renderer.RenderReport(c, res.Summary)
			if err != nil {
				errs = append(errs, fmt.Errorf("render chart: %w", err))
			} else {
				out.ChartPath = path
			}
		}
	}

	out.Err = errors.Join(errs...)
	if out.Err != nil {
		logger.Error("cohort outputs failed", zap.Error(out.Err))
	}

	logger.Info("cohort complete",
		zap.Int("samples", len(res.Metadata.Samples)),
		zap.Int("counted", len(res.Counts)),
		zap.Int("cached", res.Cached),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("failed", len(res.Failed)),
		zap.String("summary", out.SummaryPath),
		zap.String("chart", out.ChartPath))

	return out
}
