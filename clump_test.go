// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"gopkg.in/check.v1"
)

type clumpSuite struct{}

var _ = check.Suite(&clumpSuite{})

// dosageFromRows builds a ReferencePanel over a fixed [marker][indiv]
// dosage table, all on one chromosome 100bp apart.
func dosageFromRows(rows [][]float64) *ReferencePanel {
	nMarkers := len(rows)
	nIndiv := len(rows[0])
	freq := make([]float64, nMarkers)
	chr := make([]int, nMarkers)
	bp := make([]int, nMarkers)
	for m := range rows {
		var sum float64
		for _, v := range rows[m] {
			sum += v
		}
		freq[m] = sum / (2 * float64(nIndiv))
		chr[m] = 1
		bp[m] = m * 100
	}
	return &ReferencePanel{
		NumIndividuals: nIndiv,
		NumMarkers:     nMarkers,
		Dosage:         func(i, m int) float64 { return rows[m][i] },
		Freq:           freq,
		Chr:            chr,
		BP:             bp,
	}
}

func (s *clumpSuite) TestClumpElectsLowestPAndAbsorbsCorrelatedNeighbors(c *check.C) {
	// Three markers in perfect LD (identical genotype pattern) plus a
	// fourth marker whose p-value (0.5) is above the election
	// threshold; the lowest-p of the correlated trio should be elected
	// and absorb the other two.
	pattern := []float64{0, 1, 1, 2, 0, 1, 2, 2}
	indep := []float64{2, 0, 1, 0, 2, 1, 0, 1}
	rp := dosageFromRows([][]float64{pattern, pattern, pattern, indep})

	regIndexToPanel := map[int]int{10: 0, 11: 1, 12: 2, 13: 3}
	cands := []ClumpCandidate{
		{Index: 10, Chr: 1, BP: 0, P: 0.01},
		{Index: 11, Chr: 1, BP: 100, P: 1e-8},
		{Index: 12, Chr: 1, BP: 200, P: 0.02},
		{Index: 13, Chr: 1, BP: 300, P: 0.5},
	}
	elected := Clump(cands, rp, regIndexToPanel, 5e-2, 1000, 0.05)
	c.Assert(elected, check.DeepEquals, []int{11})
}

func (s *clumpSuite) TestClumpRespectsWindow(c *check.C) {
	pattern := []float64{0, 1, 1, 2, 0, 1, 2, 2}
	rp := dosageFromRows([][]float64{pattern, pattern})
	rp.BP[1] = 2_000_000 // far outside a 1000kb window

	regIndexToPanel := map[int]int{0: 0, 1: 1}
	cands := []ClumpCandidate{
		{Index: 0, Chr: 1, BP: 0, P: 1e-8},
		{Index: 1, Chr: 1, BP: 2_000_000, P: 0.01},
	}
	elected := Clump(cands, rp, regIndexToPanel, 5e-2, 1000, 0.05)
	c.Assert(elected, check.DeepEquals, []int{0, 1})
}

func (s *clumpSuite) TestFDRPruneLDZeroesSignificantEntries(c *check.C) {
	ldR := [][]float64{
		{1, 0.9, 0.01},
		{0.9, 1, 0.02},
		{0.01, 0.02, 1},
	}
	keep, adjusted := FDRPruneLD(ldR, 10000, 0.05, 0.05)
	// pair (0,1): n*r^2 = 8100, BH-adjusted p ~ 0 < 0.05, so r is zeroed.
	// pairs (0,2) and (1,2): n*r^2 = 1 and 4, BH-adjusted p ~ 0.317 and
	// ~ 0.068, both >= 0.05, so r is kept.
	c.Assert(adjusted[0][1], check.Equals, 0.0)
	c.Assert(adjusted[0][2], check.Equals, 0.01)
	c.Assert(adjusted[1][2], check.Equals, 0.02)
	// no remaining |r| exceeds sqrt(0.05), so redundancy pruning keeps
	// all three.
	c.Assert(keep, check.DeepEquals, []int{0, 1, 2})
}
