// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"

	"golang.org/x/exp/rand"
	"gopkg.in/check.v1"
)

type gsmrSuite struct{}

var _ = check.Suite(&gsmrSuite{})

// syntheticPanel builds nSNP independent markers (1Mb apart, so no two
// ever fall in the same clumping/LD window) over nIndiv individuals,
// each with allele frequency freq, using a seeded RNG so the fixture
// is reproducible run to run.
func syntheticPanel(nSNP, nIndiv int, freq float64, seed uint64) *ReferencePanel {
	src := rand.New(rand.NewSource(seed))
	dosage := make([][]float64, nSNP)
	chr := make([]int, nSNP)
	bp := make([]int, nSNP)
	fr := make([]float64, nSNP)
	for m := 0; m < nSNP; m++ {
		row := make([]float64, nIndiv)
		var sum float64
		for i := range row {
			d := 0.0
			if src.Float64() < freq {
				d++
			}
			if src.Float64() < freq {
				d++
			}
			row[i] = d
			sum += d
		}
		dosage[m] = row
		chr[m] = 1
		bp[m] = m * 1_000_000
		fr[m] = sum / (2 * float64(nIndiv))
	}
	return &ReferencePanel{
		NumIndividuals: nIndiv,
		NumMarkers:     nSNP,
		Dosage:         func(i, m int) float64 { return dosage[m][i] },
		Freq:           fr,
		Chr:            chr,
		BP:             bp,
	}
}

// TestEstimateGSMRRecoversExactCausalEffect builds an instrument set
// where bzy = bxyTrue*bzx exactly for every SNP (no sampling noise),
// so GSMR's generalized-inverse-variance-weighted estimate should
// recover bxyTrue to high precision and every instrument should
// survive the HEIDI-outlier filter.
func (s *gsmrSuite) TestEstimateGSMRRecoversExactCausalEffect(c *check.C) {
	const nSNP = 30
	const bxyTrue = 0.4

	rp := syntheticPanel(nSNP, 3000, 0.3, 42)
	regIndexToPanel := make(map[int]int, nSNP)
	in := &GSMRInput{}
	for m := 0; m < nSNP; m++ {
		regIndexToPanel[m] = m
		bzx := 0.05 + 0.001*float64(m)
		sezx := 0.005
		bzy := bxyTrue * bzx
		sezy := bxyTrue * sezx

		in.RegIndex = append(in.RegIndex, m)
		in.Bzx = append(in.Bzx, bzx)
		in.SEzx = append(in.SEzx, sezx)
		in.Pzx = append(in.Pzx, chi2p(bzx*bzx/(sezx*sezx)))
		in.Bzy = append(in.Bzy, bzy)
		in.SEzy = append(in.SEzy, sezy)
		in.Valid = append(in.Valid, true)
	}

	p := GSMRParams{
		ClumpPThreshold: 5e-8,
		WindowKb:        1000,
		R2Threshold:     0.05,
		HeidiPThreshold: 0.01,
		LDFDRThreshold:  0.05,
		MinSNPGSMR:      10,
		MinSNPHeidi:     10,
		HeidiEnabled:    true,
	}
	res, err := EstimateGSMR(in, rp, regIndexToPanel, p)
	c.Assert(err, check.IsNil)
	c.Assert(math.Abs(res.Bxy-bxyTrue) < 1e-6, check.Equals, true)
	c.Assert(res.NSNPUsed >= p.MinSNPGSMR, check.Equals, true)
}

func (s *gsmrSuite) TestEstimateGSMRRejectsTooFewInstruments(c *check.C) {
	in := &GSMRInput{
		RegIndex: []int{0, 1},
		Bzx:      []float64{0.1, 0.2},
		SEzx:     []float64{0.01, 0.01},
		Pzx:      []float64{1e-10, 1e-10},
		Bzy:      []float64{0.04, 0.08},
		SEzy:     []float64{0.01, 0.01},
		Valid:    []bool{true, true},
	}
	rp := syntheticPanel(2, 500, 0.3, 7)
	regIndexToPanel := map[int]int{0: 0, 1: 1}
	p := GSMRParams{MinSNPGSMR: 10, MinSNPHeidi: 10, HeidiEnabled: true, ClumpPThreshold: 5e-8, WindowKb: 1000, R2Threshold: 0.05, LDFDRThreshold: 0.05}
	_, err := EstimateGSMR(in, rp, regIndexToPanel, p)
	c.Assert(err, check.NotNil)
	c.Assert(err.(*Error).Kind, check.Equals, KindInsufficientSNPs)
}
