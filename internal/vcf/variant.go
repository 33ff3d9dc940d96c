package vcf

import (
	"fmt"
	"strconv"
)

// Variant is the typed positional view of one table row.
type Variant struct {
	Chrom  string
	Pos    int64 // 1-based
	ID     string
	Ref    string
	Alt    string
	Qual   string
	Filter string
	Info   string
	Format string // empty when the table has no FORMAT column
}

// Record returns the positional fields of row i.
func (t *RecordTable) Record(i int) (*Variant, error) {
	if i < 0 || i >= len(t.Rows) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", i, len(t.Rows))
	}
	fields := t.Rows[i]
	if len(fields) < ColInfo+1 {
		return nil, &FormatError{
			Line:    t.Line(i),
			Message: fmt.Sprintf("expected at least %d columns, found %d", ColInfo+1, len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[ColPos], 10, 64)
	if err != nil {
		return nil, &FormatError{
			Line:    t.Line(i),
			Message: fmt.Sprintf("invalid position: %s", fields[ColPos]),
		}
	}

	v := &Variant{
		Chrom:  fields[ColChrom],
		Pos:    pos,
		ID:     fields[ColID],
		Ref:    fields[ColRef],
		Alt:    fields[ColAlt],
		Qual:   fields[ColQual],
		Filter: fields[ColFilter],
		Info:   fields[ColInfo],
	}
	if t.HasFormat() {
		v.Format = fields[ColFormat]
	}
	return v, nil
}

// Locus formats the variant position as chrom:pos.
func (v *Variant) Locus() string {
	return fmt.Sprintf("%s:%d", v.Chrom, v.Pos)
}
