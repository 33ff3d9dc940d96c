// Package vcftest builds small gVCF fixtures for tests.
package vcftest

import (
	"compress/gzip"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Meta is a typical block of ## metadata lines.
var Meta = []string{
	"##fileformat=VCFv4.2",
	"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">",
	"##FORMAT=<ID=AD,Number=R,Type=Integer,Description=\"Allelic depths\">",
	"##FORMAT=<ID=DP,Number=1,Type=Integer,Description=\"Read depth\">",
	"##FORMAT=<ID=GQ,Number=1,Type=Integer,Description=\"Genotype quality\">",
}

// Header returns a #CHROM header line with one sample column.
func Header(sample string) string {
	return "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t" + sample
}

// Row returns a data line with the GT:AD:DP:GQ format and the given
// sample value.
func Row(pos int, sample string) string {
	return RowFormat(pos, "GT:AD:DP:GQ", sample)
}

// RowFormat returns a data line with an explicit FORMAT value.
func RowFormat(pos int, format, sample string) string {
	return strings.Join([]string{
		"chr1", strconv.Itoa(pos), ".", "A", "G", "50", "PASS", ".", format, sample,
	}, "\t")
}

// GVCF assembles metadata, header and rows into file lines.
func GVCF(sample string, rows ...string) []string {
	lines := append([]string{}, Meta...)
	lines = append(lines, Header(sample))
	return append(lines, rows...)
}

// WriteGzip writes lines, newline terminated, as a gzip file at path.
func WriteGzip(t testing.TB, path string, lines ...string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := gzip.NewWriter(f)
	for _, l := range lines {
		_, err := zw.Write([]byte(l + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}
