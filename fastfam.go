// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ResidualizePhenotype implements §4.10 step 1: regress y on
// [1, covariates] by ordinary least squares via a symmetric solve,
// replace y by the residuals, and center them to zero mean.
func ResidualizePhenotype(y []float64, covars [][]float64) ([]float64, error) {
	n := len(y)
	k := 1
	if len(covars) > 0 {
		k += len(covars[0])
	}

	xtx := mat.NewSymDense(k, nil)
	xty := mat.NewVecDense(k, nil)
	for a := 0; a < k; a++ {
		var sumXtY float64
		for i := 0; i < n; i++ {
			sumXtY += designValue(covars, i, a) * y[i]
		}
		xty.SetVec(a, sumXtY)
		for b := a; b < k; b++ {
			var s float64
			for i := 0; i < n; i++ {
				s += designValue(covars, i, a) * designValue(covars, i, b)
			}
			xtx.SetSym(a, b, s)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(xtx) {
		return nil, errf(KindSingularNormalEquations, "phenotype residualization design matrix is singular")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, xty); err != nil {
		return nil, errf(KindSingularNormalEquations, "cannot solve phenotype residualization: %v", err)
	}

	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		fitted := 0.0
		for a := 0; a < k; a++ {
			fitted += designValue(covars, i, a) * beta.AtVec(a)
		}
		resid[i] = y[i] - fitted
	}
	mean := meanOf(resid)
	for i := range resid {
		resid[i] -= mean
	}
	return resid, nil
}

// designValue returns column a (0 = intercept, a>=1 = covars[i][a-1])
// of individual i's design row.
func designValue(covars [][]float64, i, a int) float64 {
	if a == 0 {
		return 1
	}
	return covars[i][a-1]
}

// PhenotypicVariance implements §4.10 step 2: Vp = sum(y^2)/(n-1).
func PhenotypicVariance(y []float64) float64 {
	if len(y) < 2 {
		return 0
	}
	var ss float64
	for _, v := range y {
		ss += v * v
	}
	return ss / float64(len(y)-1)
}

// HERegressionResult is the Haseman-Elston variance-component estimate.
type HERegressionResult struct {
	VG float64
	P  float64
}

// EstimateVG implements §4.10 step 3: collect every nonzero
// off-diagonal (A_ij, y_i*y_j) pair and regress the products on the relatedness
// with an intercept. The slope is VG; callers reject when P >= 0.05
// (KindInsufficientRelatedness).
func EstimateVG(grm *SparseGRM, y []float64) (*HERegressionResult, error) {
	var aVals, zVals []float64
	for i := 1; i < grm.N; i++ {
		for j := 0; j < i; j++ {
			a := grm.At(i, j)
			if a == 0 {
				continue
			}
			aVals = append(aVals, a)
			zVals = append(zVals, y[i]*y[j])
		}
	}
	n := len(aVals)
	if n < 3 {
		return nil, errf(KindInsufficientRelatedness, "only %d nonzero off-diagonal GRM pairs available for HE regression", n)
	}

	meanA := meanOf(aVals)
	meanZ := meanOf(zVals)
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		da := aVals[i] - meanA
		sxx += da * da
		sxy += da * (zVals[i] - meanZ)
	}
	if sxx == 0 {
		return nil, errf(KindSingularNormalEquations, "HE regression design has zero variance")
	}
	slope := sxy / sxx
	intercept := meanZ - slope*meanA

	var sse float64
	for i := 0; i < n; i++ {
		resid := zVals[i] - (intercept + slope*aVals[i])
		sse += resid * resid
	}
	dof := float64(n - 2)
	if dof <= 0 {
		return nil, errf(KindInsufficientRelatedness, "not enough pairs for HE regression degrees of freedom")
	}
	sigma2 := sse / dof
	seSlope := math.Sqrt(sigma2 / sxx)
	p := 1.0
	if seSlope > 0 {
		t := slope / seSlope
		p = chi2p(t * t)
	}

	return &HERegressionResult{VG: slope, P: p}, nil
}

// BuildV implements §4.10 step 5's V = VG*A + VR*I construction as a
// dense matrix, ready for LDLT factorization.
func BuildV(grm *SparseGRM, vg, vr float64) [][]float64 {
	n := grm.N
	v := make([][]float64, n)
	for i := 0; i < n; i++ {
		v[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			v[i][j] = vg * grm.At(i, j)
		}
		v[i][i] += vr
	}
	return v
}

// FastFAMScanResult holds the per-marker GWAS outputs, indexed
// identically to the reference panel's marker order.
type FastFAMScanResult struct {
	Beta []float64
	SE   []float64
	Chi2 []float64
	P    []float64
}

// RunFastFAMScan implements §4.10's scan: for every marker, u =
// x'*Vinv, denom = u.x, beta = (u.y)/denom, se = sqrt(1/denom), chi2 =
// beta^2/se^2. Work is partitioned across a worker pool of size
// threads; each worker's scratch buffers are private, and result
// arrays are write-disjoint by marker index so no locking is needed
// on the hot path (§5).
func RunFastFAMScan(rp *ReferencePanel, vinv [][]float64, y []float64, threads int) (*FastFAMScanResult, error) {
	m := rp.NumMarkers
	res := &FastFAMScanResult{
		Beta: make([]float64, m),
		SE:   make([]float64, m),
		Chi2: make([]float64, m),
		P:    make([]float64, m),
	}
	if threads < 1 {
		threads = 1
	}

	var t throttle
	t.Max = threads
	for marker := 0; marker < m; marker++ {
		t.Acquire()
		go func(marker int) {
			defer t.Release()
			x := rp.MakeX(marker)
			u := matVec(vinv, x)
			denom := dot(u, x)
			if denom <= 0 {
				t.Report(errf(KindSingularNormalEquations, "non-positive quadratic form at marker %d", marker))
				return
			}
			beta := dot(u, y) / denom
			se := math.Sqrt(1 / denom)
			chi2 := beta * beta / (se * se)
			res.Beta[marker] = beta
			res.SE[marker] = se
			res.Chi2[marker] = chi2
			res.P[marker] = chi2p(chi2)
		}(marker)
	}
	if err := t.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func matVec(a [][]float64, x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := a[i]
		s := 0.0
		for j := 0; j < n; j++ {
			s += row[j] * x[j]
		}
		out[i] = s
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
