package cohort

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/hetcount/internal/genotype"
	"github.com/inodb/hetcount/internal/qc"
	"github.com/inodb/hetcount/internal/vcf"
)

// CountFile counts the variants of one sample file that pass policy. The
// file is read twice: once to locate the #CHROM header and once to load
// the table from that offset.
func CountFile(ctx context.Context, path, sampleID string, policy qc.Policy, layout genotype.Layout, logger *zap.Logger) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	offset, err := vcf.LocateHeaderFile(ctx, path)
	if err != nil {
		return 0, err
	}

	tbl, err := vcf.LoadTable(ctx, path, offset)
	if err != nil {
		return 0, err
	}
	logger.Debug("loaded records",
		zap.String("sample", sampleID),
		zap.Int("header_line", offset),
		zap.Int("rows", tbl.Len()),
		zap.Int("columns", len(tbl.Columns)))

	col, mismatch, err := tbl.GenotypeColumn(sampleID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if mismatch {
		logger.Warn("genotype column name differs from sample ID",
			zap.String("sample", sampleID),
			zap.String("column", tbl.Columns[col]))
	}

	dec := genotype.NewDecoder(layout)
	if err := dec.Decode(tbl, col); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("decoded genotypes",
		zap.String("sample", sampleID),
		zap.String("column", tbl.Columns[col]),
		zap.Stringer("layout", dec.Layout()))

	return policy.Count(tbl)
}
