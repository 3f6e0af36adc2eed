// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ReferencePanel is the borrowed view the LD engine (C4) and FastFAM
// scanner (C10) consume: per-individual genotype dosages (0/1/2,
// NaN for missing) indexed [individual][marker], plus the marker's
// allele frequency for mean-imputation. Loading the actual PLINK BED
// bytes is an external concern (internal/plink); this type is the
// interface the core algorithms depend on.
type ReferencePanel struct {
	NumIndividuals int
	NumMarkers     int
	// Dosage(i, m) returns the 0/1/2 genotype dosage of individual i
	// at marker m, or NaN if missing.
	Dosage func(indiv, marker int) float64
	Freq   []float64 // per-marker reference allele frequency
	Chr    []int     // per-marker chromosome
	BP     []int     // per-marker base-pair position
}

// MakeX returns the mean-centered, unit-variance genotype vector for
// marker m (§4.4): missing dosages are imputed to 2*freq before
// centering/scaling.
func (rp *ReferencePanel) MakeX(m int) []float64 {
	n := rp.NumIndividuals
	x := make([]float64, n)
	mean := 2 * rp.Freq[m]
	for i := 0; i < n; i++ {
		d := rp.Dosage(i, m)
		if isFinite(d) {
			x[i] = d
		} else {
			x[i] = mean
		}
	}
	floats.AddConst(-mean, x)
	norm := floats.Norm(x, 2)
	if norm > 0 {
		// dividing by the Euclidean norm gives norm 1; scaling by
		// sqrt(n) gives unit sample variance, the standardized
		// genotype vector §4.4 calls for.
		floats.Scale(math.Sqrt(float64(n))/norm, x)
	}
	return x
}

// LDr returns the LD correlation r between two pre-standardized
// marker vectors (already produced by MakeX), per §4.4: r =
// xi.xj / (||xi|| ||xj||). Since MakeX already gives unit-variance
// vectors of common length n, this reduces to the normalized dot
// product.
func LDr(xi, xj []float64) float64 {
	dot := floats.Dot(xi, xj)
	ni := floats.Norm(xi, 2)
	nj := floats.Norm(xj, 2)
	if ni == 0 || nj == 0 {
		return 0
	}
	return dot / (ni * nj)
}
