// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"
	"sort"
)

// ClumpCandidate is one SNP eligible for clumping: its registry
// index, reference-panel position, and association p-value.
type ClumpCandidate struct {
	Index int
	Chr   int
	BP    int
	P     float64
}

// Clump runs p-value-ordered LD clumping in a +-windowKb window at an
// r2 threshold (§4.5). candidates need not be sorted; the result is
// the elected index SNPs' registry indices, in election order.
//
// regIndexToPanel maps a candidate's registry index to its reference
// panel index (for MakeX), so the left/right walk can step through
// physically adjacent markers.
func Clump(candidates []ClumpCandidate, rp *ReferencePanel, regIndexToPanel map[int]int, pThresh float64, windowKb int, r2Thresh float64) []int {
	sorted := append([]ClumpCandidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].P < sorted[j].P })

	windowBP := windowKb * 1000
	clumped := map[int]bool{} // registry index -> already absorbed by an index SNP
	var elected []int

	// panelOrder: the reference-panel indices of every registry SNP in
	// regIndexToPanel, sorted ascending, to let us walk neighbors in
	// physical order exactly like the reference implementation's
	// adjacency walk over _include.
	panelIdxToRegIdx := map[int]int{}
	var panelOrder []int
	for regIdx, panelIdx := range regIndexToPanel {
		panelIdxToRegIdx[panelIdx] = regIdx
		panelOrder = append(panelOrder, panelIdx)
	}
	sort.Ints(panelOrder)
	posInOrder := map[int]int{}
	for i, p := range panelOrder {
		posInOrder[p] = i
	}

	xcache := map[int][]float64{}
	getX := func(panelIdx int) []float64 {
		if v, ok := xcache[panelIdx]; ok {
			return v
		}
		v := rp.MakeX(panelIdx)
		xcache[panelIdx] = v
		return v
	}

	for _, cand := range sorted {
		if cand.P >= pThresh {
			continue
		}
		if clumped[cand.Index] {
			continue
		}
		panelIdx, ok := regIndexToPanel[cand.Index]
		if !ok {
			continue
		}
		center := posInOrder[panelIdx]
		xCenter := getX(panelIdx)

		// walk left
		for j := center - 1; j >= 0; j-- {
			nbPanelIdx := panelOrder[j]
			if rp.Chr[nbPanelIdx] != rp.Chr[panelIdx] || absInt(rp.BP[panelIdx]-rp.BP[nbPanelIdx]) >= windowBP {
				break
			}
			nbRegIdx, hasReg := panelIdxToRegIdx[nbPanelIdx]
			if !hasReg || nbRegIdx == cand.Index {
				continue
			}
			r := LDr(xCenter, getX(nbPanelIdx))
			if r*r >= r2Thresh {
				clumped[nbRegIdx] = true
			}
		}
		// walk right
		for j := center + 1; j < len(panelOrder); j++ {
			nbPanelIdx := panelOrder[j]
			if rp.Chr[nbPanelIdx] != rp.Chr[panelIdx] || absInt(rp.BP[panelIdx]-rp.BP[nbPanelIdx]) >= windowBP {
				break
			}
			nbRegIdx, hasReg := panelIdxToRegIdx[nbPanelIdx]
			if !hasReg || nbRegIdx == cand.Index {
				continue
			}
			r := LDr(xCenter, getX(nbPanelIdx))
			if r*r >= r2Thresh {
				clumped[nbRegIdx] = true
			}
		}

		elected = append(elected, cand.Index)
	}
	return elected
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FDRPruneLD implements the second half of §4.5: BH-FDR zeroing of
// LD entries, followed by a redundancy pruner. n is the reference
// panel sample size used to convert r to a chi-square p-value.
// Returns the set of surviving column/row positions (into ldR) in
// ascending order, and the adjusted matrix: a working copy in which
// every pair whose BH-adjusted p-value is below fdrThresh has r set
// to 0 (see DESIGN.md for the BH ordering question).
func FDRPruneLD(ldR [][]float64, n int, fdrThresh, r2Thresh float64) (keep []int, adjusted [][]float64) {
	k := len(ldR)
	adjusted = make([][]float64, k)
	for i := range adjusted {
		adjusted[i] = append([]float64(nil), ldR[i]...)
	}

	type pair struct{ i, j int }
	var pairs []pair
	var pvals []float64
	for i := 0; i < k-1; i++ {
		for j := i + 1; j < k; j++ {
			p := chi2p(float64(n) * ldR[i][j] * ldR[i][j])
			pairs = append(pairs, pair{i, j})
			pvals = append(pvals, p)
		}
	}
	if len(pvals) > 0 {
		adj := benjaminiHochberg(pvals)
		for idx, pr := range pairs {
			if adj[idx] < fdrThresh {
				adjusted[pr.i][pr.j] = 0
				adjusted[pr.j][pr.i] = 0
			}
		}
	}

	keep = redundancyPrune(adjusted, math.Sqrt(r2Thresh))
	return keep, adjusted
}

// redundancyPrune removes the minimum set of indices such that no
// remaining pair has |r| > rThresh. Conflicting SNPs (those in more
// high-correlation pairs) are removed first, matching rm_cor_elements
// in the reference implementation.
func redundancyPrune(r [][]float64, rThresh float64) []int {
	n := len(r)
	var ida, idb []int
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if math.Abs(r[i][j]) > rThresh {
				ida = append(ida, i)
				idb = append(idb, j)
			}
		}
	}
	if len(ida) == 0 {
		keep := make([]int, n)
		for i := range keep {
			keep[i] = i
		}
		return keep
	}

	count := map[int]int{}
	for _, v := range ida {
		count[v]++
	}
	for _, v := range idb {
		count[v]++
	}
	for i := range ida {
		if count[ida[i]] < count[idb[i]] {
			ida[i], idb[i] = idb[i], ida[i]
		}
	}

	removed := map[int]bool{}
	for _, v := range ida {
		removed[v] = true
	}

	var keep []int
	for i := 0; i < n; i++ {
		if !removed[i] {
			keep = append(keep, i)
		}
	}
	return keep
}
