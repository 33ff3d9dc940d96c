package vcf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// HeaderPrefix marks the column header line of a VCF body.
const HeaderPrefix = "#CHROM"

// LocateHeader scans r line by line and returns the zero-based index of the
// first line beginning with #CHROM. Lines before it (normally ## metadata)
// are skipped without validation. A stream with no such line returns a
// *FormatError. ctx is checked every few thousand lines.
func LocateHeader(ctx context.Context, r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	for idx := 0; ; idx++ {
		if idx > 0 && idx%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("read header: %w", err)
		}
		if strings.HasPrefix(line, HeaderPrefix) {
			return idx, nil
		}
		if err == io.EOF {
			return 0, &FormatError{
				Line:    idx,
				Message: "no #CHROM header line found",
			}
		}
	}
}

// LocateHeaderFile opens path and runs LocateHeader on its decompressed
// content.
func LocateHeaderFile(ctx context.Context, path string) (int, error) {
	r, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	idx, err := LocateHeader(ctx, r)
	if err != nil {
		return 0, withPath(err, path)
	}
	return idx, nil
}
