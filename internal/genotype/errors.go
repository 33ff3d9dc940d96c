package genotype

import "fmt"

// FieldParseError reports a sample column value that cannot be decoded.
type FieldParseError struct {
	Row     int    // 1-based data row, 0 when decoding a lone value
	Line    int    // 1-based source line, 0 when unknown
	Locus   string // chrom:pos of the row, empty when unknown
	Column  string // table column holding the sample value
	Field   string // sub-field key (GT, DP, GQ), empty for structural errors
	Value   string
	Message string
}

func (e *FieldParseError) Error() string {
	loc := "genotype parse error"
	if e.Row > 0 {
		loc = fmt.Sprintf("%s at row %d", loc, e.Row)
		if e.Line > 0 {
			loc = fmt.Sprintf("%s (line %d)", loc, e.Line)
		}
	}
	if e.Locus != "" {
		loc = fmt.Sprintf("%s at %s", loc, e.Locus)
	}
	if e.Column != "" {
		loc = fmt.Sprintf("%s, column %s", loc, e.Column)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s %q: %s", loc, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %q: %s", loc, e.Value, e.Message)
}
