// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// This file implements the LDSC IRLS weight-update primitive shared
// by the three reweighting paths in §4.7 (univariate step 1,
// univariate step 2, bivariate). Design Note 9.3 calls the reference
// implementation's single helper dispatched by two boolean flags a
// code smell; here the three IRLS loops are written out explicitly in
// ldsc.go (steps 1 and 2 in EstimateHeritability, the bivariate loop
// in EstimateGeneticCovariance), and they share the weight formulas
// and least-squares solves below.

// clampLD enforces the >=1 floor §4.7 requires on LD scores before
// they enter the weight denominator.
func clampLD(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// univariateWeights computes v_i = 2*w_ld_i*(intercept + slope*N_i*ld_i/M)^2,
// returning w_i = 1/v_i (§4.7 "Weight prior").
func univariateWeights(intercept, slope, M float64, ld, wld, n []float64) []float64 {
	slope = clamp01(slope)
	w := make([]float64, len(ld))
	for i := range ld {
		l := clampLD(ld[i])
		wl := clampLD(wld[i])
		d := intercept + slope*n[i]*l/M
		v := 2 * wl * d * d
		if v <= 0 {
			w[i] = 0
			continue
		}
		w[i] = 1 / v
	}
	return w
}

// bivariateWeights computes the analytic variance of z1*z2 under LDSC
// assumptions and returns its reciprocal as the IRLS weight. n1/n2 are
// the two traits' per-SNP sample sizes; the gcov design column uses
// their geometric mean.
func bivariateWeights(intercept1, h1, intercept2, h2, interceptGcov, gcov, M float64, ld, wld, n1, n2 []float64) []float64 {
	h1, h2 = clamp01(h1), clamp01(h2)
	if gcov < -1 {
		gcov = -1
	}
	if gcov > 1 {
		gcov = 1
	}
	w := make([]float64, len(ld))
	for i := range ld {
		l := clampLD(ld[i])
		wl := clampLD(wld[i])
		nGeo := math.Sqrt(n1[i] * n2[i])
		d1 := n1[i]*h1*l/M + intercept1
		d2 := n2[i]*h2*l/M + intercept2
		d3 := nGeo*gcov*l/M + interceptGcov
		v := wl * (d1*d2 + d3*d3)
		if v <= 0 {
			w[i] = 0
			continue
		}
		w[i] = 1 / v
	}
	return w
}

// weightedLeastSquaresIntercept fits y ~ intercept + slope*x with
// per-observation weights wt via ordinary least squares on
// sqrt(wt)-scaled rows, returning (slope, intercept).
func weightedLeastSquaresIntercept(x, y, wt []float64) (slope, intercept float64, err error) {
	n := len(x)
	sw := sqrtNormalizedWeights(wt)

	var xtx00, xtx01, xtx11, xty0, xty1 float64
	for i := 0; i < n; i++ {
		xi := x[i] * sw[i]
		ci := sw[i]
		yi := y[i] * sw[i]
		xtx00 += xi * xi
		xtx01 += xi * ci
		xtx11 += ci * ci
		xty0 += xi * yi
		xty1 += ci * yi
	}
	A := mat.NewSymDense(2, []float64{xtx00, xtx01, xtx01, xtx11})
	var chol mat.Cholesky
	if !chol.Factorize(A) {
		return 0, 0, errf(KindSingularNormalEquations, "2x2 IRLS normal equations are singular")
	}
	b := mat.NewVecDense(2, []float64{xty0, xty1})
	var sol mat.VecDense
	if e := chol.SolveVecTo(&sol, b); e != nil {
		return 0, 0, errf(KindSingularNormalEquations, "cannot solve IRLS normal equations: %v", e)
	}
	return sol.AtVec(0), sol.AtVec(1), nil
}

// weightedLeastSquaresOrigin fits y ~ slope*x (no intercept) with
// per-observation weights wt.
func weightedLeastSquaresOrigin(x, y, wt []float64) (slope float64, err error) {
	n := len(x)
	sw := sqrtNormalizedWeights(wt)

	var xtx, xty float64
	for i := 0; i < n; i++ {
		xi := x[i] * sw[i]
		yi := y[i] * sw[i]
		xtx += xi * xi
		xty += xi * yi
	}
	if xtx == 0 {
		return 0, errf(KindSingularNormalEquations, "IRLS normal equation x'x is zero")
	}
	return xty / xtx, nil
}

func sqrtNormalizedWeights(wt []float64) []float64 {
	sw := make([]float64, len(wt))
	sum := 0.0
	for _, w := range wt {
		if w < 0 {
			w = 0
		}
		sum += sqrtNonNeg(w)
	}
	if sum == 0 {
		sum = 1
	}
	for i, w := range wt {
		if w < 0 {
			w = 0
		}
		sw[i] = sqrtNonNeg(w) / sum
	}
	return sw
}

func sqrtNonNeg(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
