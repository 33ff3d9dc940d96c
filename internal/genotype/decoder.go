// Package genotype decodes the colon-delimited sample column of a VCF row
// into typed GT, DP and GQ values.
package genotype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/hetcount/internal/vcf"
)

// Sub-field keys read from the sample column.
const (
	KeyGT = "GT"
	KeyDP = "DP"
	KeyGQ = "GQ"
)

// Layout selects how sub-field positions are found.
type Layout int

const (
	// FormatLayout looks positions up by name in each row's FORMAT column.
	FormatLayout Layout = iota
	// FixedLayout assumes GT:AD:DP:GQ on every row.
	FixedLayout
)

// ParseLayout converts a configuration value ("format" or "fixed").
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "format":
		return FormatLayout, nil
	case "fixed":
		return FixedLayout, nil
	default:
		return 0, fmt.Errorf("unknown genotype layout %q (want format or fixed)", s)
	}
}

func (l Layout) String() string {
	if l == FixedLayout {
		return "fixed"
	}
	return "format"
}

// Call holds the decoded sub-fields of one sample column value.
type Call struct {
	GT string
	DP int
	GQ int
}

// positions maps the needed keys to sub-field indices.
type positions struct {
	gt, dp, gq int
	need       int // minimum number of sub-fields
}

// fixedPositions is GT:AD:DP:GQ. AD is unused but must be present.
var fixedPositions = positions{gt: 0, dp: 2, gq: 3, need: 4}

// Decoder decodes sample column values. It memoises the positions of each
// distinct FORMAT string and is not safe for concurrent use.
type Decoder struct {
	layout  Layout
	formats map[string]positions
}

// NewDecoder creates a decoder for the given layout.
func NewDecoder(layout Layout) *Decoder {
	return &Decoder{
		layout:  layout,
		formats: make(map[string]positions),
	}
}

// Layout returns the decoder's layout.
func (d *Decoder) Layout() Layout {
	return d.layout
}

// DecodeValue decodes a single sample value. format is the row's FORMAT
// string and is ignored by FixedLayout. Errors are *FieldParseError with
// Row left at zero.
func (d *Decoder) DecodeValue(format, value string) (Call, error) {
	pos, err := d.positions(format)
	if err != nil {
		return Call{}, err
	}

	parts := strings.Split(value, ":")
	if len(parts) < pos.need {
		return Call{}, &FieldParseError{
			Value:   value,
			Message: fmt.Sprintf("expected at least %d sub-fields, found %d", pos.need, len(parts)),
		}
	}

	dp, err := strconv.Atoi(parts[pos.dp])
	if err != nil {
		return Call{}, &FieldParseError{Field: KeyDP, Value: parts[pos.dp], Message: "not an integer"}
	}
	gq, err := strconv.Atoi(parts[pos.gq])
	if err != nil {
		return Call{}, &FieldParseError{Field: KeyGQ, Value: parts[pos.gq], Message: "not an integer"}
	}

	return Call{GT: parts[pos.gt], DP: dp, GQ: gq}, nil
}

func (d *Decoder) positions(format string) (positions, error) {
	if d.layout == FixedLayout {
		return fixedPositions, nil
	}
	if pos, ok := d.formats[format]; ok {
		return pos, nil
	}

	pos := positions{gt: -1, dp: -1, gq: -1}
	for i, key := range strings.Split(format, ":") {
		switch key {
		case KeyGT:
			pos.gt = i
		case KeyDP:
			pos.dp = i
		case KeyGQ:
			pos.gq = i
		}
	}
	for _, k := range []struct {
		key string
		idx int
	}{{KeyGT, pos.gt}, {KeyDP, pos.dp}, {KeyGQ, pos.gq}} {
		if k.idx < 0 {
			return positions{}, &FieldParseError{
				Field:   k.key,
				Value:   format,
				Message: "missing from FORMAT",
			}
		}
	}
	pos.need = max(pos.gt, pos.dp, pos.gq) + 1

	d.formats[format] = pos
	return pos, nil
}

// Decode decodes column col of every row in t and attaches the results as
// the table's GT, DP and GQ columns. Decoding stops at the first bad row.
func (d *Decoder) Decode(t *vcf.RecordTable, col int) error {
	if col < 0 || col >= len(t.Columns) {
		return fmt.Errorf("genotype column %d out of range for %d columns", col, len(t.Columns))
	}
	if d.layout == FormatLayout && !t.HasFormat() {
		return &vcf.FormatError{Message: "no FORMAT column; the fixed genotype layout is required"}
	}

	n := t.Len()
	gt := make([]string, n)
	dp := make([]int, n)
	gq := make([]int, n)

	for i, row := range t.Rows {
		var format string
		if d.layout == FormatLayout {
			format = row[vcf.ColFormat]
		}
		call, err := d.DecodeValue(format, row[col])
		if err != nil {
			if fe, ok := err.(*FieldParseError); ok {
				fe.Row = i + 1
				fe.Line = t.Line(i)
				fe.Column = t.Columns[col]
				if v, err := t.Record(i); err == nil {
					fe.Locus = v.Locus()
				}
			}
			return err
		}
		gt[i], dp[i], gq[i] = call.GT, call.DP, call.GQ
	}

	return t.SetDerived(gt, dp, gq)
}
