// Package cohort drives per-sample heterozygous counting across cohort
// directories and merges the counts with sample metadata.
package cohort

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directory and file naming conventions.
const (
	DirPrefix     = "Cohort_"
	MetadataFile  = "metadata.tsv"
	OutputDirName = "outputs"
	SampleSuffix  = ".gvcf.gz"
)

// ErrMissingFile is returned by LocateSample when a sample has no variant
// file. Callers treat it as a skip.
var ErrMissingFile = errors.New("variant file not found")

// Cohort is one Cohort_* directory.
type Cohort struct {
	Name string // directory name, e.g. "Cohort_A"
	Dir  string
}

// New returns the cohort rooted at dir.
func New(dir string) Cohort {
	return Cohort{Name: filepath.Base(dir), Dir: dir}
}

// Label is the display name: everything after the first underscore of the
// directory name ("Cohort_A" -> "A"). A name without an underscore is
// returned unchanged.
func (c Cohort) Label() string {
	if _, after, ok := strings.Cut(c.Name, "_"); ok {
		return after
	}
	return c.Name
}

// MetadataPath returns <dir>/metadata.tsv.
func (c Cohort) MetadataPath() string {
	return filepath.Join(c.Dir, MetadataFile)
}

// SamplePath returns <dir>/<sampleID>.gvcf.gz.
func (c Cohort) SamplePath(sampleID string) string {
	return filepath.Join(c.Dir, sampleID+SampleSuffix)
}

// LocateSample returns the variant file path of sampleID, or an error
// wrapping ErrMissingFile when it does not exist.
func (c Cohort) LocateSample(sampleID string) (string, error) {
	path := c.SamplePath(sampleID)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("sample %s: %w", sampleID, ErrMissingFile)
		}
		return "", fmt.Errorf("stat variant file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("sample %s: %s is a directory: %w", sampleID, path, ErrMissingFile)
	}
	return path, nil
}

// OutputDir returns <dir>/outputs.
func (c Cohort) OutputDir() string {
	return filepath.Join(c.Dir, OutputDirName)
}

// SummaryPath returns <dir>/outputs/<name>_output.<ext>.
func (c Cohort) SummaryPath(ext string) string {
	return filepath.Join(c.OutputDir(), fmt.Sprintf("%s_output.%s", c.Name, ext))
}

// ChartPath returns <dir>/outputs/<name>_boxplots.pdf.
func (c Cohort) ChartPath() string {
	return filepath.Join(c.OutputDir(), c.Name+"_boxplots.pdf")
}

// Discover lists the Cohort_* subdirectories of wd, sorted by name.
func Discover(wd string) ([]Cohort, error) {
	entries, err := os.ReadDir(wd)
	if err != nil {
		return nil, fmt.Errorf("read working directory: %w", err)
	}

	var cohorts []Cohort
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), DirPrefix) {
			continue
		}
		dir := filepath.Join(wd, e.Name())
		if !e.IsDir() {
			// Follow symlinks to directories.
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				continue
			}
		}
		cohorts = append(cohorts, Cohort{Name: e.Name(), Dir: dir})
	}

	sort.Slice(cohorts, func(i, j int) bool { return cohorts[i].Name < cohorts[j].Name })
	return cohorts, nil
}
