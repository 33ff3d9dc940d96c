package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/hetcount/internal/cohort"
	"github.com/inodb/hetcount/internal/genotype"
	"github.com/inodb/hetcount/internal/output"
	"github.com/inodb/hetcount/internal/qc"
	"github.com/inodb/hetcount/internal/report"
	"github.com/inodb/hetcount/internal/store"
)

// errAllFailed is returned when cohorts were found but none completed.
var errAllFailed = errors.New("every cohort failed")

func newRunCmd() *cobra.Command {
	var (
		wd         string
		clearCache bool
	)

	cmd := &cobra.Command{
		Use:   "run --wd <dir>",
		Short: "Count heterozygous variants for every cohort under a directory",
		Long: `Count heterozygous variants for every Cohort_* directory under --wd.

Each cohort directory holds metadata.tsv (SampleID, Ancestry, optional Age)
and one <SampleID>.gvcf.gz per sample. Results are written to
<cohort>/outputs/<cohort>_output.parquet (or .tsv) and
<cohort>/outputs/<cohort>_boxplots.pdf.`,
		Example: `  hetcount run --wd ~/cohorts
  hetcount run --wd ~/cohorts --min-depth 10 --format tsv
  HETCOUNT_QC_MIN_QUALITY=20 hetcount run --wd ~/cohorts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(viper.GetViper())
			if err != nil {
				return err
			}

			logger, err := newLogger(s.LogLevel, s.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			s.ClearCache = clearCache
			return runCohorts(cmd.Context(), cmd.OutOrStdout(), wd, s, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&wd, "wd", "", "Working directory containing Cohort_* directories (required)")
	flags.Int("workers", 0, "Samples processed concurrently per cohort (0 = number of CPUs)")
	flags.Int("cohort-workers", 1, "Cohorts processed concurrently")
	flags.String("timeout", cohort.DefaultTimeout.String(), "Per-file processing timeout (0 disables)")
	flags.Int("min-depth", qc.DefaultMinDepth, "Minimum read depth, exclusive (DP > N)")
	flags.Int("min-quality", qc.DefaultMinQuality, "Minimum genotype quality, inclusive (GQ >= N)")
	flags.StringSlice("genotypes", qc.HeterozygousCalls, "Accepted genotype calls")
	flags.String("layout", genotype.FormatLayout.String(), "Genotype sub-field layout: format or fixed")
	flags.String("format", formatParquet, "Summary output format: parquet or tsv")
	flags.String("cache", "", "DuckDB count cache path (empty disables caching)")
	flags.BoolVar(&clearCache, "clear-cache", false, "Drop all cached counts before counting")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console or json")
	_ = cmd.MarkFlagRequired("wd")

	for flag, key := range map[string]string{
		"workers":        keyWorkers,
		"cohort-workers": keyCohortWorkers,
		"timeout":        keyTimeout,
		"min-depth":      keyMinDepth,
		"min-quality":    keyMinQuality,
		"genotypes":      keyGenotypes,
		"layout":         keyLayout,
		"format":         keyOutputFormat,
		"cache":          keyCachePath,
		"log-level":      keyLogLevel,
		"log-format":     keyLogFormat,
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

// runCohorts processes every cohort under wd. It fails only when wd cannot
// be read or when every discovered cohort failed.
func runCohorts(ctx context.Context, out io.Writer, wd string, s *settings, logger *zap.Logger) error {
	cohorts, err := cohort.Discover(wd)
	if err != nil {
		return &exitError{code: ExitUsage, err: err}
	}
	if len(cohorts) == 0 {
		logger.Warn("no cohort directories found", zap.String("wd", wd))
		return nil
	}

	agg := cohort.NewAggregator(s.Policy)
	agg.SetLayout(s.Layout)
	agg.SetWorkers(s.Workers)
	agg.SetTimeout(s.Timeout)

	logger.Info("starting run",
		zap.String("wd", wd),
		zap.Int("cohorts", len(cohorts)),
		zap.Stringer("policy", agg.Policy()),
		zap.Stringer("layout", s.Layout),
		zap.Int("workers", s.Workers))

	if s.CachePath != "" {
		st, err := openCache(s.CachePath, s.ClearCache, logger)
		if err != nil {
			return &exitError{code: ExitError, err: err}
		}
		defer st.Close()
		agg.SetCache(st)
	}

	var writer cohort.SummaryWriter = store.NewParquetWriter()
	if s.OutputFormat == formatTSV {
		writer = output.NewTSVWriter()
	}

	runner := cohort.NewRunner(agg, writer, report.NewBoxPlotRenderer())
	runner.SetParallelism(s.CohortWorkers)
	runner.SetLogger(logger)

	outcomes := runner.RunAll(ctx, cohorts)

	failed := 0
	tw := output.NewTabWriter(out, []string{"Cohort", "Samples", "Counted", "Skipped", "Failed", "Summary", "Status"})
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			failed++
			status = o.Err.Error()
		}
		var samples, counted, skipped, sampleFailures int
		if o.Result != nil {
			samples = len(o.Result.Metadata.Samples)
			counted = len(o.Result.Counts)
			skipped = len(o.Result.Skipped)
			sampleFailures = len(o.Result.Failed)
		}
		if err := tw.Write([]string{
			o.Cohort.Name,
			strconv.Itoa(samples),
			strconv.Itoa(counted),
			strconv.Itoa(skipped),
			strconv.Itoa(sampleFailures),
			o.SummaryPath,
			status,
		}); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return &exitError{code: ExitError, err: err}
	}
	if failed == len(outcomes) {
		return &exitError{code: ExitError, err: errAllFailed}
	}
	return nil
}

// openCache opens the count cache at path, optionally emptying it first.
func openCache(path string, reset bool, logger *zap.Logger) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open count cache: %w", err)
	}

	if reset {
		if err := st.ClearCounts(); err != nil {
			st.Close()
			return nil, fmt.Errorf("clear count cache: %w", err)
		}
		logger.Info("count cache cleared", zap.String("path", st.Path()))
	}

	n, err := st.CountEntries()
	if err != nil {
		st.Close()
		return nil, err
	}
	logger.Info("count cache opened", zap.String("path", st.Path()), zap.Int("entries", n))
	return st, nil
}
