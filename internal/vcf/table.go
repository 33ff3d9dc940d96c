package vcf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Positional VCF columns, in file order.
const (
	ColChrom = iota
	ColPos
	ColID
	ColRef
	ColAlt
	ColQual
	ColFilter
	ColInfo
	ColFormat

	// NumFixedColumns is the number of positional columns before the
	// first sample column.
	NumFixedColumns
)

// ctxCheckInterval is how many lines are read between context checks.
const ctxCheckInterval = 4096

// RecordTable holds the tabular body of one variant file. Columns come from
// the #CHROM header line (with the leading '#' removed); each row holds the
// raw tab-delimited fields of one data line.
//
// GT, DP and GQ are derived columns, empty until SetDerived is called.
type RecordTable struct {
	Columns []string
	Rows    [][]string

	GT []string
	DP []int
	GQ []int

	index map[string]int
	lines []int // 1-based source line of each row
}

// ReadTable reads a variant table from r. The first headerOffset lines are
// skipped and the next line must be the #CHROM header. Blank lines are
// ignored; any row whose field count differs from the header is a
// *FormatError.
func ReadTable(ctx context.Context, r io.Reader, headerOffset int) (*RecordTable, error) {
	if headerOffset < 0 {
		return nil, fmt.Errorf("negative header offset %d", headerOffset)
	}

	br := bufio.NewReader(r)
	lineNumber := 0
	var t *RecordTable

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		atEOF := err == io.EOF
		if atEOF && line == "" {
			break
		}
		lineNumber++

		if lineNumber%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if lineNumber <= headerOffset {
			if atEOF {
				break
			}
			continue
		}

		line = strings.TrimRight(line, "\r\n")

		if t == nil {
			if !strings.HasPrefix(line, HeaderPrefix) {
				return nil, &FormatError{
					Line:    lineNumber,
					Message: fmt.Sprintf("expected #CHROM header line at offset %d", headerOffset),
				}
			}
			t = newRecordTable(strings.Split(strings.TrimPrefix(line, "#"), "\t"))
		} else if line != "" {
			fields := strings.Split(line, "\t")
			if len(fields) != len(t.Columns) {
				return nil, &FormatError{
					Line: lineNumber,
					Message: fmt.Sprintf("row %d has %d fields, header has %d",
						len(t.Rows)+1, len(fields), len(t.Columns)),
				}
			}
			t.Rows = append(t.Rows, fields)
			t.lines = append(t.lines, lineNumber)
		}

		if atEOF {
			break
		}
	}

	if t == nil {
		return nil, &FormatError{
			Line:    lineNumber,
			Message: fmt.Sprintf("no #CHROM header line at offset %d", headerOffset),
		}
	}
	return t, nil
}

// LoadTable opens path and reads its variant table starting at the header
// line index returned by LocateHeader.
func LoadTable(ctx context.Context, path string, headerOffset int) (*RecordTable, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t, err := ReadTable(ctx, r, headerOffset)
	if err != nil {
		return nil, withPath(err, path)
	}
	return t, nil
}

func newRecordTable(columns []string) *RecordTable {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return &RecordTable{Columns: columns, index: index}
}

// Len returns the number of data rows.
func (t *RecordTable) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column.
func (t *RecordTable) Column(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Line returns the 1-based source line of row i.
func (t *RecordTable) Line(i int) int {
	if i < 0 || i >= len(t.lines) {
		return 0
	}
	return t.lines[i]
}

// HasFormat reports whether the table carries a FORMAT column in its
// positional slot.
func (t *RecordTable) HasFormat() bool {
	return len(t.Columns) > ColFormat && t.Columns[ColFormat] == "FORMAT"
}

// SampleColumns returns the names of the columns that follow FORMAT.
func (t *RecordTable) SampleColumns() []string {
	if len(t.Columns) <= NumFixedColumns {
		return nil
	}
	return t.Columns[NumFixedColumns:]
}

// GenotypeColumn picks the genotype column for sampleID. A single column
// after FORMAT is used whatever its name; mismatch reports whether that
// name differs from sampleID. With several sample columns the one named
// sampleID is required.
func (t *RecordTable) GenotypeColumn(sampleID string) (col int, mismatch bool, err error) {
	samples := t.SampleColumns()
	switch len(samples) {
	case 0:
		return 0, false, &FormatError{
			Message: fmt.Sprintf("no sample column after the %d positional columns", NumFixedColumns),
		}
	case 1:
		return NumFixedColumns, samples[0] != sampleID, nil
	}

	for i, name := range samples {
		if name == sampleID {
			return NumFixedColumns + i, false, nil
		}
	}
	return 0, false, &FormatError{
		Message: fmt.Sprintf("%d sample columns and none named %q", len(samples), sampleID),
	}
}

// SetDerived attaches decoded genotype columns. Each slice must have one
// entry per row.
func (t *RecordTable) SetDerived(gt []string, dp, gq []int) error {
	n := len(t.Rows)
	if len(gt) != n || len(dp) != n || len(gq) != n {
		return fmt.Errorf("derived columns have %d/%d/%d entries for %d rows",
			len(gt), len(dp), len(gq), n)
	}
	t.GT, t.DP, t.GQ = gt, dp, gq
	return nil
}

// Decoded reports whether derived genotype columns are attached.
func (t *RecordTable) Decoded() bool {
	return t.GT != nil && len(t.GT) == len(t.Rows)
}
