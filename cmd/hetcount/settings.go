package main

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/inodb/hetcount/internal/cohort"
	"github.com/inodb/hetcount/internal/genotype"
	"github.com/inodb/hetcount/internal/qc"
)

// Config keys.
const (
	keyWorkers       = "workers"
	keyCohortWorkers = "cohort_workers"
	keyTimeout       = "timeout"
	keyMinDepth      = "qc.min_depth"
	keyMinQuality    = "qc.min_quality"
	keyGenotypes     = "qc.genotypes"
	keyLayout        = "genotype.layout"
	keyOutputFormat  = "output.format"
	keyCachePath     = "cache.path"
	keyLogLevel      = "log.level"
	keyLogFormat     = "log.format"
)

// Summary output formats.
const (
	formatParquet = "parquet"
	formatTSV     = "tsv"
)

var knownKeys = []string{
	keyWorkers, keyCohortWorkers, keyTimeout,
	keyMinDepth, keyMinQuality, keyGenotypes,
	keyLayout, keyOutputFormat, keyCachePath,
	keyLogLevel, keyLogFormat,
}

func isKnownKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

// settings is the validated run configuration.
type settings struct {
	Workers       int
	CohortWorkers int
	Timeout       time.Duration
	Policy        qc.Policy
	Layout        genotype.Layout
	OutputFormat  string
	CachePath     string // empty disables the count cache
	ClearCache    bool   // set from --clear-cache, not persisted
	LogLevel      string
	LogFormat     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyWorkers, 0)
	v.SetDefault(keyCohortWorkers, 1)
	v.SetDefault(keyTimeout, cohort.DefaultTimeout.String())
	v.SetDefault(keyMinDepth, qc.DefaultMinDepth)
	v.SetDefault(keyMinQuality, qc.DefaultMinQuality)
	v.SetDefault(keyGenotypes, strings.Join(qc.HeterozygousCalls, ","))
	v.SetDefault(keyLayout, genotype.FormatLayout.String())
	v.SetDefault(keyOutputFormat, formatParquet)
	v.SetDefault(keyCachePath, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "console")
}

// loadSettings reads and validates the run configuration from v.
func loadSettings(v *viper.Viper) (*settings, error) {
	s := &settings{
		Workers:       v.GetInt(keyWorkers),
		CohortWorkers: v.GetInt(keyCohortWorkers),
		OutputFormat:  strings.ToLower(v.GetString(keyOutputFormat)),
		CachePath:     v.GetString(keyCachePath),
		LogLevel:      v.GetString(keyLogLevel),
		LogFormat:     strings.ToLower(v.GetString(keyLogFormat)),
	}

	if s.Workers <= 0 {
		s.Workers = runtime.NumCPU()
	}
	if s.CohortWorkers <= 0 {
		s.CohortWorkers = 1
	}

	timeout, err := parseTimeout(v.GetString(keyTimeout))
	if err != nil {
		return nil, err
	}
	s.Timeout = timeout

	s.Policy = qc.Policy{
		Genotypes:  splitList(v.GetStringSlice(keyGenotypes)),
		MinDepth:   v.GetInt(keyMinDepth),
		MinQuality: v.GetInt(keyMinQuality),
	}
	if err := s.Policy.Validate(); err != nil {
		return nil, err
	}

	if s.Layout, err = genotype.ParseLayout(v.GetString(keyLayout)); err != nil {
		return nil, err
	}

	switch s.OutputFormat {
	case formatParquet, formatTSV:
	default:
		return nil, fmt.Errorf("%s: unknown format %q (want %s or %s)",
			keyOutputFormat, s.OutputFormat, formatParquet, formatTSV)
	}

	switch s.LogFormat {
	case "console", "json":
	default:
		return nil, fmt.Errorf("%s: unknown format %q (want console or json)", keyLogFormat, s.LogFormat)
	}

	return s, nil
}

// parseTimeout accepts a Go duration, or "0"/"" to disable the timeout.
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", keyTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", keyTimeout, d)
	}
	return d, nil
}

// splitList flattens comma- or space-separated entries into one list.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' '
		}) {
			out = append(out, part)
		}
	}
	return out
}
