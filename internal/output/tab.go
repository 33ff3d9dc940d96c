// Package output writes cohort summaries as tab-delimited text.
package output

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/hetcount/internal/cohort"
)

// TabWriter writes rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer for the given columns.
func NewTabWriter(w io.Writer, columns []string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single row. Tabs and newlines inside values are replaced
// by spaces so each row stays on one line.
func (tw *TabWriter) Write(values []string) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("row has %d values, header has %d", len(values), len(tw.columns))
	}

	clean := make([]string, len(values))
	for i, v := range values {
		clean[i] = sanitize(v)
	}
	_, err := tw.w.WriteString(strings.Join(clean, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

var cellReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func sanitize(v string) string {
	return cellReplacer.Replace(v)
}

// WriteSummary writes every row of s with a header line.
func (tw *TabWriter) WriteSummary(s *cohort.Summary) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for i := range s.Rows {
		if err := tw.Write(s.Record(i)); err != nil {
			return fmt.Errorf("write %s: %w", s.Rows[i].Sample.ID, err)
		}
	}
	return tw.Flush()
}

// TSVWriter writes a cohort summary to <cohort>/outputs/<name>_output.tsv.
type TSVWriter struct{}

// NewTSVWriter creates a TSV summary writer.
func NewTSVWriter() *TSVWriter {
	return &TSVWriter{}
}

// WriteSummary writes s to the cohort's TSV summary path.
func (*TSVWriter) WriteSummary(_ context.Context, c cohort.Cohort, s *cohort.Summary) (string, error) {
	path := c.SummaryPath("tsv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create summary: %w", err)
	}

	if err := NewTabWriter(f, s.Columns).WriteSummary(s); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close summary: %w", err)
	}
	return path, nil
}
