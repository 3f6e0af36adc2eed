// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"
	"os"
)

const minSE = 1e-6

// Harmonize runs the QC / allele-harmonization pass (§4.3) over every
// SNP in reg.Remain: it picks a reference allele pair, flips
// mis-oriented trait records onto it, and drops SNPs that fail the
// finiteness/SE/multi-allelic checks. Bad SNP names are written to
// badsnpsPath (one per line) and removed from Remain. Running this
// twice on the same registry is idempotent: a SNP already harmonized
// against A1Ref has nothing left to flip (Design Note, §8 round-trip
// property).
func Harmonize(reg *Registry, badsnpsPath string) error {
	var bad []string
	keep := map[string]bool{}

	for _, idx := range reg.Remain {
		snp := &reg.SNPs[idx]
		a1ref, a2ref, ok := referenceAlleles(snp)
		if !ok {
			bad = append(bad, snp.Name)
			continue
		}

		alleleSet := map[string]bool{a1ref: true, a2ref: true}
		badSNP := false

		for t := range snp.Traits {
			ts := &snp.Traits[t]
			if !ts.Valid {
				continue
			}
			if ts.A1 != a1ref {
				if ts.A2 != a1ref {
					// Neither allele matches the reference effect
					// allele; this is caught by the cardinality check
					// below once all alleles are collected.
				} else {
					ts.Beta = -ts.Beta
					ts.Freq = 1 - ts.Freq
					ts.A1, ts.A2 = ts.A2, ts.A1
				}
			}
			alleleSet[ts.A1] = true
			alleleSet[ts.A2] = true

			if !finite4(ts.Beta, ts.SE, ts.P, ts.N) || ts.SE < minSE {
				badSNP = true
			}
		}

		if len(alleleSet) != 2 {
			badSNP = true
		}

		if badSNP {
			bad = append(bad, snp.Name)
			continue
		}
		keep[snp.Name] = true
	}

	if badsnpsPath != "" {
		f, err := os.Create(badsnpsPath)
		if err != nil {
			return errf(KindFileNotFound, "cannot create %q: %v", badsnpsPath, err)
		}
		defer f.Close()
		for _, name := range bad {
			if _, err := f.WriteString(name + "\n"); err != nil {
				return errf(KindFileNotFound, "writing %q: %v", badsnpsPath, err)
			}
		}
	}

	reg.IntersectKeep(keep)
	return nil
}

// referenceAlleles implements §4.3 step 1: the reference panel's pair
// if the SNP is genotyped there, otherwise the first valid trait's
// pair in fixed trait order.
func referenceAlleles(snp *SNP) (a1, a2 string, ok bool) {
	if snp.HasRef {
		return snp.A1Ref, snp.A2Ref, true
	}
	for i := range snp.Traits {
		if snp.Traits[i].Valid {
			return snp.Traits[i].A1, snp.Traits[i].A2, true
		}
	}
	return "", "", false
}

func finite4(a, b, c, d float64) bool {
	return isFinite(a) && isFinite(b) && isFinite(c) && isFinite(d)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
