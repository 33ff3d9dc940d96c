package cohort

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Metadata column names.
const (
	ColSampleID = "SampleID"
	ColAncestry = "Ancestry"
	ColAge      = "Age"
)

// Sample is one metadata row.
type Sample struct {
	ID       string
	Ancestry string
	Age      float64
	HasAge   bool              // false when the Age column is absent or empty
	Fields   map[string]string // every column, raw
}

// Metadata is a cohort's sample table, in file order.
type Metadata struct {
	Columns []string
	Samples []Sample
}

// HasColumn reports whether the metadata table has the named column.
func (m *Metadata) HasColumn(name string) bool {
	for _, c := range m.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// IDs returns the sample IDs in file order.
func (m *Metadata) IDs() []string {
	ids := make([]string, len(m.Samples))
	for i, s := range m.Samples {
		ids[i] = s.ID
	}
	return ids
}

// LoadMetadata loads a tab-delimited metadata file. The header must
// contain SampleID and Ancestry; Age, when present, must be numeric or
// empty.
func LoadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	m, err := ReadMetadata(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadMetadata reads a metadata table from r.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read metadata header: %w", err)
		}
		return nil, fmt.Errorf("metadata: empty file")
	}
	header := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")

	idIdx, ancestryIdx, ageIdx := -1, -1, -1
	for i, col := range header {
		switch col {
		case ColSampleID:
			idIdx = i
		case ColAncestry:
			ancestryIdx = i
		case ColAge:
			ageIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("metadata: missing %q column", ColSampleID)
	}
	if ancestryIdx < 0 {
		return nil, fmt.Errorf("metadata: missing %q column", ColAncestry)
	}

	m := &Metadata{Columns: header}
	seen := make(map[string]int)
	lineNumber := 1

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, fmt.Errorf("metadata line %d: %d fields, header has %d",
				lineNumber, len(fields), len(header))
		}

		s := Sample{
			ID:       fields[idIdx],
			Ancestry: fields[ancestryIdx],
			Fields:   make(map[string]string, len(header)),
		}
		if s.ID == "" {
			return nil, fmt.Errorf("metadata line %d: empty %s", lineNumber, ColSampleID)
		}
		if prev, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("metadata line %d: duplicate %s %q (first on line %d)",
				lineNumber, ColSampleID, s.ID, prev)
		}
		seen[s.ID] = lineNumber

		if ageIdx >= 0 && strings.TrimSpace(fields[ageIdx]) != "" {
			age, err := strconv.ParseFloat(strings.TrimSpace(fields[ageIdx]), 64)
			if err != nil {
				return nil, fmt.Errorf("metadata line %d: invalid %s %q", lineNumber, ColAge, fields[ageIdx])
			}
			s.Age, s.HasAge = age, !math.IsNaN(age)
		}

		for i, col := range header {
			s.Fields[col] = fields[i]
		}
		m.Samples = append(m.Samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	return m, nil
}
