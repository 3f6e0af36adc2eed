// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ConditionalResult is one SNP's conditioned target summary statistic
// (§4.8): the adjusted effect, its variance, and the derived p-value.
type ConditionalResult struct {
	B   float64
	Var float64
	P   float64
}

// AdjustSingleCovariate implements §4.8's single-covariate formula:
// bC = bzy - bzx*bxy, var(bC) = sezy^2 + bxy^2*sezx^2 -
// 2*bxy*I01*sezx*sezy.
func AdjustSingleCovariate(bzy, sezy, bzx, sezx, bxy, ldscIntercept01 float64) ConditionalResult {
	bC := bzy - bzx*bxy
	v := sezy*sezy + bxy*bxy*sezx*sezx - 2*bxy*ldscIntercept01*sezx*sezy
	if v < 0 {
		v = 0
	}
	p := 1.0
	if v > 0 {
		p = chi2p(bC * bC / v)
	}
	return ConditionalResult{B: bC, Var: v, P: p}
}

// SolveConditionalEffects implements the multi-covariate D/R/bjxy
// construction of §4.8. ldscSlope is an (ncov+1) x (ncov+1) matrix
// indexed [target, cov1..covn]; vpTrait[0] is the
// target's variance (unused here) and vpTrait[1:] are the covariates'.
// bxy is the per-covariate GSMR causal estimate (length ncov).
//
// Returns bjxy, the joint-adjusted per-covariate coefficient vector.
func SolveConditionalEffects(bxy []float64, ldscSlope [][]float64, vpTrait []float64) ([]float64, error) {
	ncov := len(bxy)
	if ncov == 0 {
		return nil, nil
	}

	d := make([]float64, ncov)
	for i := 0; i < ncov; i++ {
		diag := ldscSlope[i+1][i+1] * vpTrait[i+1]
		if diag < 0 {
			diag = 0
		}
		d[i] = math.Sqrt(diag)
	}

	r := mat.NewSymDense(ncov, nil)
	for i := 0; i < ncov; i++ {
		r.SetSym(i, i, 1)
		for j := i + 1; j < ncov; j++ {
			r.SetSym(i, j, ldscSlope[i+1][j+1])
		}
	}

	// rhs = D*bxy
	rhs := mat.NewVecDense(ncov, nil)
	for i := 0; i < ncov; i++ {
		rhs.SetVec(i, d[i]*bxy[i])
	}

	// First solve: R*t = rhs.
	var chol mat.Cholesky
	if !chol.Factorize(r) {
		return nil, errf(KindSingularNormalEquations, "multi-covariate LD-score slope matrix R is not positive definite")
	}
	var t mat.VecDense
	if err := chol.SolveVecTo(&t, rhs); err != nil {
		return nil, errf(KindSingularNormalEquations, "cannot solve R*t = D*bxy: %v", err)
	}

	// Second solve: D*bjxy = t. D is diagonal; this is an elementwise
	// division rather than a second full factorization.
	bjxy := make([]float64, ncov)
	for i := 0; i < ncov; i++ {
		if d[i] == 0 {
			return nil, errf(KindSingularNormalEquations, "multi-covariate D matrix has a zero diagonal entry at covariate %d", i)
		}
		bjxy[i] = t.AtVec(i) / d[i]
	}
	return bjxy, nil
}

// AdjustMultipleCovariates implements §4.8's per-SNP multi-covariate
// adjustment given the already-solved bjxy. bzx and sezx are the
// SNP's per-covariate exposure effect/SE vectors (length ncov);
// ldscIntercept is the full (ncov+1)x(ncov+1) intercept matrix.
func AdjustMultipleCovariates(bzy, sezy float64, bzx, sezx []float64, bjxy []float64, ldscIntercept [][]float64) ConditionalResult {
	ncov := len(bjxy)
	adj := 0.0
	for j := 0; j < ncov; j++ {
		adj += bzx[j] * bjxy[j]
	}
	bC := bzy - adj

	quad := 0.0
	for i := 0; i < ncov; i++ {
		for j := 0; j < ncov; j++ {
			rI := ldscIntercept[i+1][j+1]
			if i == j {
				rI = 1
			}
			quad += sezx[i] * rI * sezx[j] * bjxy[i] * bjxy[j]
		}
	}
	cross := 0.0
	for j := 0; j < ncov; j++ {
		cross += sezx[j] * sezy * bjxy[j] * ldscIntercept[0][j+1]
	}

	v := sezy*sezy + quad - 2*cross
	if v < 0 {
		v = 0
	}
	p := 1.0
	if v > 0 {
		p = chi2p(bC * bC / v)
	}
	return ConditionalResult{B: bC, Var: v, P: p}
}
