package vcf

import "fmt"

// FormatError reports a structural problem in a variant file: a missing
// #CHROM header or a row whose field count disagrees with the header.
type FormatError struct {
	Path    string // file being read, empty for plain readers
	Line    int    // 1-based line number, 0 when not tied to a line
	Message string
}

func (e *FormatError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("vcf format error in %s at line %d: %s", e.Path, e.Line, e.Message)
	case e.Path != "":
		return fmt.Sprintf("vcf format error in %s: %s", e.Path, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("vcf format error at line %d: %s", e.Line, e.Message)
	default:
		return "vcf format error: " + e.Message
	}
}

// withPath returns err with the file path attached when it is a *FormatError.
func withPath(err error, path string) error {
	if fe, ok := err.(*FormatError); ok && fe.Path == "" {
		fe.Path = path
	}
	return err
}
