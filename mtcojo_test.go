// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"

	"gopkg.in/check.v1"
)

type mtcojoSuite struct{}

var _ = check.Suite(&mtcojoSuite{})

// TestAdjustSingleCovariateScenario1 reproduces the trivial
// two-SNP single-covariate scenario.
func (s *mtcojoSuite) TestAdjustSingleCovariateScenario1(c *check.C) {
	r1 := AdjustSingleCovariate(0.10, 0.01, 0.20, 0.01, 0.5, 0)
	c.Check(math.Abs(r1.B-0.0) < 1e-12, check.Equals, true)
	wantSE := math.Sqrt(0.01*0.01 + 0.25*0.01*0.01)
	gotSE := math.Sqrt(r1.Var)
	c.Check(math.Abs(gotSE-wantSE) < 1e-9, check.Equals, true)

	r2 := AdjustSingleCovariate(-0.05, 0.01, 0.10, 0.01, 0.5, 0)
	c.Check(math.Abs(r2.B-(-0.10)) < 1e-12, check.Equals, true)
}

// TestAdjustSingleCovariateStrandFlip reproduces the scenario-2 strand
// flip: the covariate's beta and freq have already been negated/
// complemented by QC harmonization before this function ever sees
// them, so feeding it the post-harmonization values must reproduce
// scenario 1 exactly.
func (s *mtcojoSuite) TestAdjustSingleCovariateStrandFlip(c *check.C) {
	baseline := AdjustSingleCovariate(0.10, 0.01, 0.20, 0.01, 0.5, 0)
	flipped := AdjustSingleCovariate(0.10, 0.01, -(-0.20), 0.01, 0.5, 0)
	c.Check(flipped.B, check.Equals, baseline.B)
	c.Check(flipped.Var, check.Equals, baseline.Var)
}

func (s *mtcojoSuite) TestSolveConditionalEffectsIdentityRecoversBxy(c *check.C) {
	// With R = identity and D = identity (slope diag 1, vp 1), bjxy
	// must equal bxy unchanged.
	slope := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	vp := []float64{1, 1, 1}
	bxy := []float64{0.3, -0.2}
	bjxy, err := SolveConditionalEffects(bxy, slope, vp)
	c.Assert(err, check.IsNil)
	c.Check(math.Abs(bjxy[0]-0.3) < 1e-9, check.Equals, true)
	c.Check(math.Abs(bjxy[1]-(-0.2)) < 1e-9, check.Equals, true)
}

func (s *mtcojoSuite) TestAdjustMultipleCovariatesMatchesSingleWhenOneCovar(c *check.C) {
	slope := [][]float64{
		{1, 0.4},
		{0.4, 1},
	}
	vp := []float64{1, 1}
	bxy := []float64{0.5}
	bjxy, err := SolveConditionalEffects(bxy, slope, vp)
	c.Assert(err, check.IsNil)

	intercept := [][]float64{
		{1, 0},
		{0, 1},
	}
	multi := AdjustMultipleCovariates(0.10, 0.01, []float64{0.20}, []float64{0.01}, bjxy, intercept)
	single := AdjustSingleCovariate(0.10, 0.01, 0.20, 0.01, bjxy[0], 0)
	c.Check(math.Abs(multi.B-single.B) < 1e-9, check.Equals, true)
	c.Check(math.Abs(multi.Var-single.Var) < 1e-9, check.Equals, true)
}
