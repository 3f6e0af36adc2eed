// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// GSMRInput is the per-pair aligned data GSMR needs: exposure
// (covariate) and outcome (target) effect sizes/SEs/p-values, plus a
// joint validity mask, all indexed the same way as the registry's
// Remain slice.
type GSMRInput struct {
	RegIndex []int // registry index per aligned position
	Bzx      []float64
	SEzx     []float64
	Pzx      []float64
	Bzy      []float64
	SEzy     []float64
	Valid    []bool
}

// GSMRResult is the generalized-inverse-variance-weighted causal
// estimate (§4.6 step 6).
type GSMRResult struct {
	Bxy      float64
	SE       float64
	P        float64
	NSNPUsed int
}

// GSMRParams bundles the thresholds §4.6 needs.
type GSMRParams struct {
	ClumpPThreshold float64
	WindowKb        int
	R2Threshold     float64
	HeidiPThreshold float64
	LDFDRThreshold  float64
	MinSNPGSMR      int
	MinSNPHeidi     int
	HeidiEnabled    bool
}

// EstimateGSMR runs the full GSMR pipeline (§4.6) for one
// exposure/outcome pair: clump on pzx, LD-prune the index SNPs,
// compute the bxy covariance matrix, run the HEIDI-outlier filter,
// and return the generalized-inverse-variance-weighted estimate.
func EstimateGSMR(in *GSMRInput, rp *ReferencePanel, regIndexToPanel map[int]int, p GSMRParams) (*GSMRResult, error) {
	n := len(in.RegIndex)
	if n < p.MinSNPGSMR {
		return nil, errf(KindInsufficientSNPs, "only %d SNPs available before clumping, need %d", n, p.MinSNPGSMR)
	}

	var cands []ClumpCandidate
	posOf := map[int]int{} // registry index -> aligned position
	for i, regIdx := range in.RegIndex {
		posOf[regIdx] = i
		if !in.Valid[i] {
			continue
		}
		panelIdx, ok := regIndexToPanel[regIdx]
		if !ok {
			continue
		}
		cands = append(cands, ClumpCandidate{
			Index: regIdx,
			Chr:   rp.Chr[panelIdx],
			BP:    rp.BP[panelIdx],
			P:     in.Pzx[i],
		})
	}

	indexSNPs := Clump(cands, rp, regIndexToPanel, p.ClumpPThreshold, p.WindowKb, p.R2Threshold)
	if len(indexSNPs) < p.MinSNPGSMR {
		return nil, errf(KindInsufficientSNPs, "only %d index SNPs after clumping, need %d", len(indexSNPs), p.MinSNPGSMR)
	}

	k := len(indexSNPs)
	ldR := make([][]float64, k)
	xs := make([][]float64, k)
	for i, regIdx := range indexSNPs {
		xs[i] = rp.MakeX(regIndexToPanel[regIdx])
	}
	for i := range ldR {
		ldR[i] = make([]float64, k)
		ldR[i][i] = 1
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r := LDr(xs[i], xs[j])
			ldR[i][j], ldR[j][i] = r, r
		}
	}

	keep, adjustedLD := FDRPruneLD(ldR, rp.NumIndividuals, p.LDFDRThreshold, p.R2Threshold)
	prunedSNPs := make([]int, len(keep))
	for i, kIdx := range keep {
		prunedSNPs[i] = indexSNPs[kIdx]
	}
	if len(prunedSNPs) < p.MinSNPGSMR {
		return nil, errf(KindInsufficientSNPs, "only %d SNPs after LD pruning, need %d", len(prunedSNPs), p.MinSNPGSMR)
	}

	m := len(prunedSNPs)
	bxy := make([]float64, m)
	for i, regIdx := range prunedSNPs {
		pos := posOf[regIdx]
		bxy[i] = in.Bzy[pos] / in.Bzx[pos]
	}

	sigma := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		posI := posOf[prunedSNPs[i]]
		zInv1I := in.SEzx[posI] / in.Bzx[posI]
		zInv2I := in.SEzy[posI] / in.Bzx[posI]
		for j := i; j < m; j++ {
			posJ := posOf[prunedSNPs[j]]
			r := 1.0
			if i != j {
				r = adjustedLD[keep[i]][keep[j]]
			}
			zInv1J := in.SEzx[posJ] / in.Bzx[posJ]
			zInv2J := in.SEzy[posJ] / in.Bzx[posJ]
			v := r*zInv2I*zInv2J + r*zInv1I*zInv1J*bxy[i]*bxy[j]
			sigma.SetSym(i, j, v)
		}
	}

	retained, retainedCov, err := heidiFilter(bxy, sigma, prunedSNPs, posOf, in.Pzx, p)
	if err != nil {
		return nil, err
	}
	if len(retained) < p.MinSNPGSMR {
		return nil, errf(KindInsufficientSNPs, "only %d SNPs after HEIDI filtering, need %d", len(retained), p.MinSNPGSMR)
	}

	return gsmrEstimate(retained, retainedCov)
}

// heidiFilter implements §4.6 step 5. It returns the retained bxy
// values and the corresponding covariance submatrix.
func heidiFilter(bxy []float64, sigma *mat.SymDense, prunedSNPs []int, posOf map[int]int, pzx []float64, p GSMRParams) ([]float64, *mat.SymDense, error) {
	m := len(bxy)
	if !p.HeidiEnabled {
		return bxy, sigma, nil
	}
	if m < p.MinSNPHeidi {
		return nil, nil, errf(KindInsufficientSNPs, "only %d SNPs available for HEIDI, need %d", m, p.MinSNPHeidi)
	}

	lower := quantile(bxy, 0.4)
	upper := quantile(bxy, 0.6)

	pivot := -1
	minP := 2.0
	for i := 0; i < m; i++ {
		if bxy[i] < lower || bxy[i] > upper {
			continue
		}
		pos := posOf[prunedSNPs[i]]
		if pzx[pos] < minP {
			minP = pzx[pos]
			pivot = i
		}
	}
	if pivot < 0 {
		return nil, nil, errf(KindInsufficientSNPs, "no SNP found in the HEIDI pivot quantile band")
	}

	var keptIdx []int
	for i := 0; i < m; i++ {
		if i == pivot {
			keptIdx = append(keptIdx, i)
			continue
		}
		d := bxy[i] - bxy[pivot]
		varD := sigma.At(i, i) + sigma.At(pivot, pivot) - 2*sigma.At(pivot, i)
		if varD <= 0 {
			continue
		}
		pHeidi := chi2p(d * d / varD)
		if pHeidi >= p.HeidiPThreshold {
			keptIdx = append(keptIdx, i)
		}
	}

	sort.Ints(keptIdx)
	n := len(keptIdx)
	outBxy := make([]float64, n)
	outCov := mat.NewSymDense(n, nil)
	for i, ii := range keptIdx {
		outBxy[i] = bxy[ii]
		for j, jj := range keptIdx {
			if j < i {
				continue
			}
			outCov.SetSym(i, j, sigma.At(ii, jj))
		}
	}
	return outBxy, outCov, nil
}

// gsmrEstimate implements §4.6 step 6: the generalized
// inverse-variance-weighted estimate over the retained set.
func gsmrEstimate(bxy []float64, sigma *mat.SymDense) (*GSMRResult, error) {
	n := sigma.Symmetric()
	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return nil, errf(KindSingularCovariance, "bxy covariance matrix is not positive definite")
	}

	ones := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ones.SetVec(i, 1)
	}
	bxyVec := mat.NewVecDense(n, bxy)

	var invOnes, invBxy mat.VecDense
	if err := chol.SolveVecTo(&invOnes, ones); err != nil {
		return nil, errf(KindSingularCovariance, "cannot solve Sigma^-1 * 1: %v", err)
	}
	if err := chol.SolveVecTo(&invBxy, bxyVec); err != nil {
		return nil, errf(KindSingularCovariance, "cannot solve Sigma^-1 * bxy: %v", err)
	}

	uInvU := mat.Dot(ones, &invOnes)
	if uInvU == 0 {
		return nil, errf(KindSingularCovariance, "1' Sigma^-1 1 is zero")
	}
	variance := 1 / uInvU
	uInvBxy := mat.Dot(ones, &invBxy)
	bxyGSMR := variance * uInvBxy
	p := chi2p(bxyGSMR * bxyGSMR / variance)

	se := 0.0
	if variance > 0 {
		se = math.Sqrt(variance)
	}
	return &GSMRResult{
		Bxy:      bxyGSMR,
		SE:       se,
		P:        p,
		NSNPUsed: n,
	}, nil
}
