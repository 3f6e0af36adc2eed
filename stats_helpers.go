// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

var chisq1 = distuv.ChiSquared{K: 1}

// chi2p returns Pr(chi^2_1 > x), the 1-df chi-square survival
// function used for every p-value in this package (GLOSSARY: chi^2).
func chi2p(x float64) float64 {
	if x < 0 {
		return 1
	}
	return chisq1.Survival(x)
}

// benjaminiHochberg applies BH-FDR control to p, returning the
// adjusted p-value for each entry in the same order as the input.
// Per Design Note 9 / Open Question (b), the reference implementation
// sorts by *descending* raw p before assigning ranks; that ordering is
// kept here. Walking the descending order with rank n-position and a
// running minimum gives the same adjusted values as the standard
// ascending BH step-up procedure.
func benjaminiHochberg(p []float64) []float64 {
	n := len(p)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return p[order[a]] > p[order[b]] })

	adj := make([]float64, n)
	// rank counted from the descending-sorted position, per the
	// reference's stable_sort-by-descending-p then forward BH pass.
	minSoFar := 1.0
	for rank, idx := range order {
		// In standard ascending BH, rank i (1-indexed from the smallest
		// p) gets p*n/i. Position rank in the descending order is
		// ascending rank n-rank, so this is the standard assignment,
		// with the running minimum taken from the largest p down.
		effectiveRank := n - rank
		v := p[idx] * float64(n) / float64(effectiveRank)
		if v < minSoFar {
			minSoFar = v
		}
		adj[idx] = minSoFar
	}
	return adj
}

// quantile returns the value at proportion q (0<=q<=1) of a sorted
// copy of data, using linear interpolation between closest ranks —
// the same convention GCTA's quantile() helper uses for the HEIDI
// [40%,60%] band.
func quantile(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(pos)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
