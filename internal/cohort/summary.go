package cohort

import "strconv"

// Columns added to the metadata by Merge.
const (
	ColCohort   = "Cohort"
	ColHetCount = "Het_Count"
)

// HetCount maps SampleID to the number of variants passing QC. Samples
// without a processed variant file have no entry.
type HetCount map[string]int

// SummaryRow is one merged sample.
type SummaryRow struct {
	Sample   Sample
	HetCount int
}

// Summary is the inner merge of a cohort's metadata with its HetCount.
type Summary struct {
	Cohort  string   // cohort label written to the Cohort column
	Columns []string // output column order
	Rows    []SummaryRow
}

// Merge joins meta and counts on SampleID, keeping metadata order. Samples
// missing from either side are dropped. The output columns are the
// metadata columns followed by Cohort and Het_Count; a metadata column of
// the same name is overwritten in place.
func Merge(meta *Metadata, counts HetCount, label string) *Summary {
	s := &Summary{Cohort: label}

	for _, c := range meta.Columns {
		if c == ColHetCount {
			continue
		}
		s.Columns = append(s.Columns, c)
	}
	if !meta.HasColumn(ColCohort) {
		s.Columns = append(s.Columns, ColCohort)
	}
	s.Columns = append(s.Columns, ColHetCount)

	for _, sample := range meta.Samples {
		n, ok := counts[sample.ID]
		if !ok {
			continue
		}
		s.Rows = append(s.Rows, SummaryRow{Sample: sample, HetCount: n})
	}
	return s
}

// Len returns the number of merged samples.
func (s *Summary) Len() int {
	return len(s.Rows)
}

// Value returns the cell of row i in the named column as text.
func (s *Summary) Value(i int, column string) string {
	r := s.Rows[i]
	switch column {
	case ColCohort:
		return s.Cohort
	case ColHetCount:
		return strconv.Itoa(r.HetCount)
	default:
		return r.Sample.Fields[column]
	}
}

// Record returns row i in column order.
func (s *Summary) Record(i int) []string {
	rec := make([]string, len(s.Columns))
	for j, c := range s.Columns {
		rec[j] = s.Value(i, c)
	}
	return rec
}

// Ages returns the ages of merged samples that have one.
func (s *Summary) Ages() []float64 {
	var ages []float64
	for _, r := range s.Rows {
		if r.Sample.HasAge {
			ages = append(ages, r.Sample.Age)
		}
	}
	return ages
}

// HetCounts returns Het_Count for every merged sample.
func (s *Summary) HetCounts() []float64 {
	counts := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		counts[i] = float64(r.HetCount)
	}
	return counts
}
