// Package qc applies the heterozygous-call quality filter to decoded
// variant tables.
package qc

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/inodb/hetcount/internal/genotype"
	"github.com/inodb/hetcount/internal/vcf"
)

// Default thresholds.
const (
	DefaultMinDepth   = 20
	DefaultMinQuality = 30
)

// HeterozygousCalls are the diploid heterozygous genotype strings, phased
// and unphased.
var HeterozygousCalls = []string{"0/1", "1/0", "0|1", "1|0"}

// Policy is the QC predicate. A call passes when its GT is one of
// Genotypes, DP > MinDepth and GQ >= MinQuality.
type Policy struct {
	Genotypes  []string
	MinDepth   int
	MinQuality int
}

// DefaultPolicy returns the standard heterozygous filter:
// GT in {0/1,1/0,0|1,1|0}, DP > 20, GQ >= 30.
func DefaultPolicy() Policy {
	return Policy{
		Genotypes:  slices.Clone(HeterozygousCalls),
		MinDepth:   DefaultMinDepth,
		MinQuality: DefaultMinQuality,
	}
}

// Validate checks that the policy can accept anything at all.
func (p Policy) Validate() error {
	if len(p.Genotypes) == 0 {
		return errors.New("qc policy: no accepted genotypes")
	}
	for _, g := range p.Genotypes {
		if strings.TrimSpace(g) == "" {
			return errors.New("qc policy: empty genotype string")
		}
	}
	if p.MinDepth < 0 {
		return fmt.Errorf("qc policy: negative depth threshold %d", p.MinDepth)
	}
	if p.MinQuality < 0 {
		return fmt.Errorf("qc policy: negative quality threshold %d", p.MinQuality)
	}
	return nil
}

// Passes reports whether a single call satisfies the policy.
func (p Policy) Passes(c genotype.Call) bool {
	return c.DP > p.MinDepth &&
		c.GQ >= p.MinQuality &&
		slices.Contains(p.Genotypes, c.GT)
}

// Count returns the number of rows of a decoded table that pass.
func (p Policy) Count(t *vcf.RecordTable) (int, error) {
	if t.Len() == 0 {
		return 0, nil
	}
	if !t.Decoded() {
		return 0, errors.New("qc: table has no decoded genotype columns")
	}

	n := 0
	for i := range t.Rows {
		if p.Passes(genotype.Call{GT: t.GT[i], DP: t.DP[i], GQ: t.GQ[i]}) {
			n++
		}
	}
	return n, nil
}

// Key identifies the policy. Policies that accept the same calls have the
// same key regardless of genotype order.
func (p Policy) Key() string {
	gts := slices.Clone(p.Genotypes)
	slices.Sort(gts)
	gts = slices.Compact(gts)
	return fmt.Sprintf("gt=%s;dp>%d;gq>=%d", strings.Join(gts, ","), p.MinDepth, p.MinQuality)
}

func (p Policy) String() string {
	return p.Key()
}
