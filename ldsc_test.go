// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"

	"gopkg.in/check.v1"
)

type ldscSuite struct{}

var _ = check.Suite(&ldscSuite{})

// makeUnivariateFixture builds a chi2 vector that is exactly
// intercept + trueH2*N*ld/M for every SNP, so a converged
// IRLS fit should recover trueH2 and intercept exactly regardless of
// the weighting scheme.
func makeUnivariateFixture(intercept, trueH2, M float64, n int) *UnivariateLDSCInput {
	ld := make([]float64, n)
	nn := make([]float64, n)
	chi2 := make([]float64, n)
	wld := make([]float64, n)
	for i := 0; i < n; i++ {
		ld[i] = 1 + float64(i%5)
		nn[i] = 10000
		wld[i] = 1 + float64(i%3)
	}
	meanN := meanOf(nn)
	betaReg := trueH2 * meanN / M // so that betaReg*M/meanN recovers trueH2
	for i := 0; i < n; i++ {
		chi2[i] = intercept + betaReg*nn[i]*ld[i]/meanN
	}
	return &UnivariateLDSCInput{Chi2: chi2, N: nn, LD: ld, WLD: wld}
}

func (s *ldscSuite) TestEstimateHeritabilityRecoversExactFit(c *check.C) {
	in := makeUnivariateFixture(1.0, 0.4, 5000, 60)
	res, err := EstimateHeritability(in, 5000)
	c.Assert(err, check.IsNil)
	c.Check(math.Abs(res.Intercept-1.0) < 1e-6, check.Equals, true)
	c.Check(math.Abs(res.Heritability-0.4) < 1e-6, check.Equals, true)
}

func (s *ldscSuite) TestEstimateHeritabilityRejectsNonPositive(c *check.C) {
	in := makeUnivariateFixture(1.0, -0.1, 5000, 60)
	_, err := EstimateHeritability(in, 5000)
	c.Assert(err, check.NotNil)
	c.Check(err.(*Error).Kind, check.Equals, KindNegativeHeritability)
}

func (s *ldscSuite) TestEstimateHeritabilityDeterministic(c *check.C) {
	in := makeUnivariateFixture(1.05, 0.3, 4000, 80)
	r1, err := EstimateHeritability(in, 4000)
	c.Assert(err, check.IsNil)
	r2, err := EstimateHeritability(in, 4000)
	c.Assert(err, check.IsNil)
	c.Check(r1.Heritability, check.Equals, r2.Heritability)
	c.Check(r1.Intercept, check.Equals, r2.Intercept)

	meanN := meanOf(in.N)
	// slope*M/meanN must equal h2 within 1e-9, per the quantified
	// invariant: the fixture's regression slope is 0.3*meanN/M, and the
	// slope implied by the returned h2 (h2*meanN/M) must match it.
	impliedSlope := r1.Heritability * meanN / 4000
	c.Check(math.Abs(impliedSlope-0.3*meanN/4000) < 1e-9, check.Equals, true)
}

func (s *ldscSuite) TestEstimateGeneticCovarianceRecoversExactFit(c *check.C) {
	n := 60
	ld := make([]float64, n)
	n1 := make([]float64, n)
	n2 := make([]float64, n)
	wld := make([]float64, n)
	z1 := make([]float64, n)
	z2 := make([]float64, n)
	trueGcov, trueIntercept := 0.1, 0.05
	M := 5000.0
	for i := 0; i < n; i++ {
		ld[i] = 1 + float64(i%5)
		n1[i] = 10000
		n2[i] = 8000
		wld[i] = 1 + float64(i%3)
	}
	var nGeo []float64
	for i := 0; i < n; i++ {
		nGeo = append(nGeo, math.Sqrt(n1[i]*n2[i]))
	}
	meanNGeo := meanOf(nGeo)
	betaReg := trueGcov * meanNGeo / M // so that betaReg*M/meanNGeo recovers trueGcov
	for i := 0; i < n; i++ {
		z1z2 := trueIntercept + betaReg*nGeo[i]*ld[i]/meanNGeo
		z1[i] = z1z2
		z2[i] = 1
	}
	in := &BivariateLDSCInput{
		Z1: z1, Z2: z2, N1: n1, N2: n2, LD: ld, WLD: wld,
		Intercept1: 1, H1: 0.3, Intercept2: 1, H2: 0.2,
	}
	res, err := EstimateGeneticCovariance(in, M)
	c.Assert(err, check.IsNil)
	c.Check(math.Abs(res.Intercept-trueIntercept) < 1e-6, check.Equals, true)
}
