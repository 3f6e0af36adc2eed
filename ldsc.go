// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// LDScoreEntry is one row of a tiled LD-score file: SNP name (column
// 2) and score (column 6), per §6's "LD score tiles" layout.
type LDScoreEntry struct {
	SNP   string
	Score float64
}

// ReadLDScoreFile parses a <dir>chr.l2.ldscore[.gz] file. Plain and
// gzip-compressed variants share a reader; pgzip is used for the
// compressed path since the file is read once, start to finish, and
// benefits from its parallel inflate.
func ReadLDScoreFile(path string) ([]LDScoreEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errf(KindFileNotFound, "%v", err).withFile(path, 0)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errf(KindInvalidFormat, "bad gzip header: %v", err).withFile(path, 0)
		}
		defer gz.Close()
		r = gz
	}

	var entries []LDScoreEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo == 1 {
			continue // header
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			return nil, errf(KindInvalidFormat, "expected >=6 columns, got %d", len(fields)).withFile(path, lineNo)
		}
		score, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, errf(KindInvalidFormat, "bad LD score %q: %v", fields[5], err).withFile(path, lineNo)
		}
		entries = append(entries, LDScoreEntry{SNP: fields[1], Score: score})
	}
	if err := sc.Err(); err != nil {
		return nil, errf(KindInvalidFormat, "%v", err).withFile(path, lineNo)
	}
	return entries, nil
}

// ReadMarkerCount parses a <dir>chr.l2.M_5_50 companion file: a
// single float giving the chromosome's marker count.
func ReadMarkerCount(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, errf(KindFileNotFound, "%v", err).withFile(path, 0)
	}
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return 0, errf(KindInvalidFormat, "empty marker count file").withFile(path, 1)
	}
	m, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, errf(KindInvalidFormat, "bad marker count %q: %v", fields[0], err).withFile(path, 1)
	}
	return m, nil
}

// ReadLDScoreBundle loads chromosomes 1..22 of both the reference and
// the regression-weight LD-score tables from dir, summing their
// companion M_5_50 marker counts, and returns SNP-keyed maps plus the
// total marker count M.
func ReadLDScoreBundle(refDir, weightDir string, gz bool) (refLD, wLD map[string]float64, M float64, err error) {
	refLD = map[string]float64{}
	wLD = map[string]float64{}
	ext := ".l2.ldscore"
	if gz {
		ext += ".gz"
	}
	for chr := 1; chr <= 22; chr++ {
		refPath := fmt.Sprintf("%s%d%s", refDir, chr, ext)
		entries, e := ReadLDScoreFile(refPath)
		if e != nil {
			return nil, nil, 0, e
		}
		for _, ent := range entries {
			refLD[ent.SNP] = ent.Score
		}

		wPath := fmt.Sprintf("%s%d%s", weightDir, chr, ext)
		wEntries, e := ReadLDScoreFile(wPath)
		if e != nil {
			return nil, nil, 0, e
		}
		for _, ent := range wEntries {
			wLD[ent.SNP] = ent.Score
		}

		mPath := fmt.Sprintf("%s%d.l2.M_5_50", refDir, chr)
		m, e := ReadMarkerCount(mPath)
		if e != nil {
			return nil, nil, 0, e
		}
		M += m
	}
	return refLD, wLD, M, nil
}

// UnivariateLDSCInput is the per-SNP aligned data §4.7 needs for one
// trait's heritability estimate.
type UnivariateLDSCInput struct {
	Chi2 []float64
	N    []float64
	LD   []float64 // reference LD score l_i
	WLD  []float64 // regression-weight LD score w_i
}

// UnivariateLDSCResult is the two-step estimate.
type UnivariateLDSCResult struct {
	Intercept    float64
	Heritability float64
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

// EstimateHeritability runs the two-step univariate LDSC procedure of
// §4.7: a three-pass IRLS restricted to chi2<30 for the intercept,
// then a three-pass no-intercept IRLS over the full data for the
// slope, converted to h².
func EstimateHeritability(in *UnivariateLDSCInput, M float64) (*UnivariateLDSCResult, error) {
	n := len(in.Chi2)
	if n == 0 {
		return nil, errf(KindInsufficientSNPs, "no SNPs available for LDSC")
	}
	meanN := meanOf(in.N)
	if meanN == 0 {
		return nil, errf(KindInvalidParameter, "mean N is zero")
	}

	// Weight prior: a=1, b clamped to [0,1] from (mean(chi2)-1)*M/mean(N*l).
	var sumNL float64
	for i := range in.N {
		sumNL += in.N[i] * clampLD(in.LD[i])
	}
	meanNL := sumNL / float64(n)
	priorB := 0.0
	if meanNL != 0 {
		priorB = (meanOf(in.Chi2) - 1) * M / meanNL
	}
	priorB = clamp01(priorB)

	// designX is the step1/step2 regression column N*l/mean(N).
	designX := make([]float64, n)
	for i := range designX {
		designX[i] = in.N[i] * clampLD(in.LD[i]) / meanN
	}

	// Step 1: intercept, restricted to chi2 < 30.
	var subIdx []int
	for i, c := range in.Chi2 {
		if c < 30 {
			subIdx = append(subIdx, i)
		}
	}
	if len(subIdx) < 2 {
		return nil, errf(KindInsufficientSNPs, "only %d SNPs with chi2<30 for LDSC intercept", len(subIdx))
	}
	subX := make([]float64, len(subIdx))
	subY := make([]float64, len(subIdx))
	subLD := make([]float64, len(subIdx))
	subWLD := make([]float64, len(subIdx))
	subN := make([]float64, len(subIdx))
	for k, i := range subIdx {
		subX[k] = designX[i]
		subY[k] = in.Chi2[i]
		subLD[k] = in.LD[i]
		subWLD[k] = in.WLD[i]
		subN[k] = in.N[i]
	}

	// The weight formula's "b" is h2-scaled (a+b*N*l/M per §4.7), but
	// the regression itself fits a coefficient against N*l/mean(N)
	// (no /M). Each pass converts the fitted coefficient to h2-scale
	// before it re-enters the weight formula.
	intercept, hEst := 1.0, priorB
	for pass := 0; pass < 3; pass++ {
		w := univariateWeights(intercept, hEst, M, subLD, subWLD, subN)
		betaReg, newIntercept, err := weightedLeastSquaresIntercept(subX, subY, w)
		if err != nil {
			return nil, err
		}
		intercept = newIntercept
		hEst = betaReg * M / meanN
	}
	step1Intercept := intercept

	// Step 2: slope only, through the origin, on all SNPs, with
	// chi2 recentered by the step-1 intercept.
	y2 := make([]float64, n)
	for i, c := range in.Chi2 {
		y2[i] = c - step1Intercept
	}
	hEst = priorB
	for pass := 0; pass < 3; pass++ {
		w := univariateWeights(step1Intercept, hEst, M, in.LD, in.WLD, in.N)
		betaReg, err := weightedLeastSquaresOrigin(designX, y2, w)
		if err != nil {
			return nil, err
		}
		hEst = betaReg * M / meanN
	}

	h2 := hEst
	if h2 <= 0 {
		return nil, errf(KindNegativeHeritability, "heritability estimate %.6g is not positive", h2)
	}
	return &UnivariateLDSCResult{Intercept: step1Intercept, Heritability: h2}, nil
}

// BivariateLDSCInput is the per-SNP aligned data for the one-step
// genetic-covariance estimate between a target and one covariate.
type BivariateLDSCInput struct {
	Z1, Z2         []float64 // per-SNP Z statistics (beta/se) for each trait
	N1, N2         []float64
	LD, WLD        []float64
	Intercept1, H1 float64 // already-estimated univariate results for trait 1
	Intercept2, H2 float64 // and trait 2
}

// BivariateLDSCResult is the one-step estimate.
type BivariateLDSCResult struct {
	Intercept float64
	Gcov      float64
}

// EstimateGeneticCovariance runs the one-step bivariate LDSC procedure
// of §4.7: z1*z2 regressed on an intercept and a slope over
// sqrt(N1*N2)*l/mean(sqrt(N1*N2)), with weights re-derived from the
// current estimate at each of three IRLS passes.
func EstimateGeneticCovariance(in *BivariateLDSCInput, M float64) (*BivariateLDSCResult, error) {
	n := len(in.Z1)
	if n == 0 {
		return nil, errf(KindInsufficientSNPs, "no SNPs available for bivariate LDSC")
	}
	nGeo := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		nGeo[i] = sqrtNonNeg(in.N1[i] * in.N2[i])
		y[i] = in.Z1[i] * in.Z2[i]
	}
	meanNGeo := meanOf(nGeo)
	if meanNGeo == 0 {
		return nil, errf(KindInvalidParameter, "mean sqrt(N1*N2) is zero")
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = nGeo[i] * clampLD(in.LD[i]) / meanNGeo
	}

	// As in the univariate case, the fitted coefficient is against
	// nGeo*l/mean(nGeo) (no /M); gcov itself is M-scaled.
	intercept, gcov := 0.0, 0.0
	for pass := 0; pass < 3; pass++ {
		w := bivariateWeights(in.Intercept1, in.H1, in.Intercept2, in.H2, intercept, gcov, M, in.LD, in.WLD, in.N1, in.N2)
		betaReg, newIntercept, err := weightedLeastSquaresIntercept(x, y, w)
		if err != nil {
			return nil, err
		}
		intercept = newIntercept
		gcov = betaReg * M / meanNGeo
	}
	return &BivariateLDSCResult{Intercept: intercept, Gcov: gcov}, nil
}
