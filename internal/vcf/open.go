// Package vcf locates and loads the tabular section of single-sample
// gVCF files.
package vcf

import (
	"errors"
	"fmt"
	"io"

	"github.com/shenwei356/xopen"
)

// Open opens a variant file for reading. Gzip-compressed and plain text
// files are both accepted; "-" reads from stdin.
func Open(path string) (io.ReadCloser, error) {
	r, err := xopen.Ropen(path)
	if err != nil {
		if errors.Is(err, xopen.ErrNoContent) {
			return nil, &FormatError{Path: path, Message: "empty file, no #CHROM header line found"}
		}
		return nil, fmt.Errorf("open variant file: %w", err)
	}
	return r, nil
}
