// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"bufio"
	"math"
	"os"
	"strings"

	"github.com/statgen/mtcojo-go/internal/phenofile"
	"github.com/statgen/mtcojo-go/internal/plink"
	"github.com/statgen/mtcojo-go/internal/writer"
)

// readNameColumn scans column 1 of a whitespace-separated file with a
// header row, used to recover the exact SNP set one covariate summary
// file contributed so the registry can be kept-intersected against it
// (§3 "Lifecycle").
func readNameColumn(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errf(KindFileNotFound, "%v", err).withFile(path, 0)
	}
	defer f.Close()
	names := map[string]bool{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		names[fields[0]] = true
	}
	return names, sc.Err()
}

// readIDListFile parses a --keep/--remove style FID IID list into a
// set keyed the same way phenofile.Column and LoadSparseGRM key their
// individuals ("FID\tIID").
func readIDListFile(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errf(KindFileNotFound, "%v", err).withFile(path, 0)
	}
	defer f.Close()
	out := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		out[fields[0]+"\t"+fields[1]] = true
	}
	return out, sc.Err()
}

// buildReferencePanel wraps a plink.BEDReader into the ReferencePanel
// view the LD/clump/FastFAM components consume, and returns the
// name->panel-index map the registry side needs to cross-reference.
func buildReferencePanel(bed *plink.BEDReader) (*ReferencePanel, map[string]int) {
	n := len(bed.Variants)
	freq := make([]float64, n)
	chr := make([]int, n)
	bp := make([]int, n)
	nameToPanel := make(map[string]int, n)
	for i, v := range bed.Variants {
		freq[i] = bed.Freq(i, nil)
		chr[i] = v.Chr
		bp[i] = v.BP
		nameToPanel[v.Name] = i
	}
	rp := &ReferencePanel{
		NumIndividuals: len(bed.Samples),
		NumMarkers:     n,
		Dosage:         bed.Dosage,
		Freq:           freq,
		Chr:            chr,
		BP:             bp,
	}
	return rp, nameToPanel
}

// RunMtcojo drives components C1-C8 end to end: load the metafile
// list, align every trait's summary statistics into the registry,
// harmonize alleles, run GSMR per covariate, run univariate and
// pairwise bivariate LDSC over the full trait set, solve the
// multi-covariate conditional adjustment, and write the output
// tables.
func RunMtcojo(cfg Config) error {
	traits, err := ReadMetafileList(cfg.MtcojoFile)
	if err != nil {
		return err
	}
	ncov := len(traits) - 1
	if ncov < 1 {
		return errf(KindInvalidParameter, "mtCOJO requires at least one covariate trait")
	}

	bed, err := plink.Open(cfg.BFile)
	if err != nil {
		return errf(KindFileNotFound, "%v", err)
	}
	rp, nameToPanel := buildReferencePanel(bed)

	reg := NewRegistry(len(traits))
	vp := make([]float64, len(traits))
	for i, t := range traits {
		v, err := ReadSingleMetafile(t.File, i, reg)
		if err != nil {
			return err.(*Error).withTrait(t.Name)
		}
		vp[i] = v
		if i > 0 {
			names, err := readNameColumn(t.File)
			if err != nil {
				return err
			}
			reg.IntersectKeep(names)
		}
	}

	for idx := range reg.SNPs {
		if panelIdx, ok := nameToPanel[reg.SNPs[idx].Name]; ok {
			reg.SNPs[idx].HasRef = true
			reg.SNPs[idx].A1Ref = bed.Variants[panelIdx].A1
			reg.SNPs[idx].A2Ref = bed.Variants[panelIdx].A2
			reg.SNPs[idx].Chr = bed.Variants[panelIdx].Chr
			reg.SNPs[idx].BP = bed.Variants[panelIdx].BP
		}
	}

	if err := Harmonize(reg, cfg.Out+".badsnps"); err != nil {
		return err
	}

	// Registry-wide pre-filter (mirrors read_mtcojofile's
	// filter_meta_snp_pval): a SNP survives if at least one covariate
	// trait's p-value clears min(gwas_thresh, clump_thresh1). This is
	// an optimization ahead of per-covariate clumping, not a semantic
	// gate - clumping re-applies clump_thresh1 on its own.
	preFilterThresh := cfg.GSMRInstrumentPThreshold
	if cfg.ClumpPThreshold < preFilterThresh {
		preFilterThresh = cfg.ClumpPThreshold
	}
	keptNames := map[string]bool{}
	for _, idx := range reg.Remain {
		snp := &reg.SNPs[idx]
		for cv := 1; cv <= ncov; cv++ {
			if snp.Traits[cv].Valid && snp.Traits[cv].P < preFilterThresh {
				keptNames[snp.Name] = true
				break
			}
		}
	}
	reg.IntersectKeep(keptNames)

	regIndexToPanel := map[int]int{}
	for _, idx := range reg.Remain {
		if panelIdx, ok := nameToPanel[reg.SNPs[idx].Name]; ok {
			regIndexToPanel[idx] = panelIdx
		}
	}

	gp := GSMRParams{
		ClumpPThreshold: cfg.ClumpPThreshold,
		WindowKb:        cfg.ClumpWindowKb,
		R2Threshold:     cfg.ClumpR2Threshold,
		HeidiPThreshold: cfg.HeidiPThreshold,
		LDFDRThreshold:  cfg.LDFDRThreshold,
		MinSNPGSMR:      cfg.MinSNPGSMR,
		MinSNPHeidi:     cfg.MinSNPHeidi,
		HeidiEnabled:    cfg.HeidiOutlierEnabled,
	}

	bxy := make([]float64, ncov)
	gsmrDetail := make([]writer.GSMRDetailRow, ncov)
	for cv := 1; cv <= ncov; cv++ {
		in := &GSMRInput{}
		for _, idx := range reg.Remain {
			snp := &reg.SNPs[idx]
			tx, ty := snp.Traits[cv], snp.Traits[0]
			in.RegIndex = append(in.RegIndex, idx)
			in.Bzx = append(in.Bzx, tx.Beta)
			in.SEzx = append(in.SEzx, tx.SE)
			in.Pzx = append(in.Pzx, tx.P)
			in.Bzy = append(in.Bzy, ty.Beta)
			in.SEzy = append(in.SEzy, ty.SE)
			in.Valid = append(in.Valid, tx.Valid && ty.Valid)
		}
		res, err := EstimateGSMR(in, rp, regIndexToPanel, gp)
		if err != nil {
			return err.(*Error).withTrait(traits[cv].Name)
		}
		bxy[cv-1] = res.Bxy
		gsmrDetail[cv-1] = writer.GSMRDetailRow{Covariate: traits[cv].Name, Bxy: res.Bxy, SE: res.SE, P: res.P, NSNPUsed: res.NSNPUsed}
	}

	refLD, wLD, M, err := ReadLDScoreBundle(cfg.RefLDChr, cfg.WLDChr, strings.HasSuffix(cfg.RefLDChr, ".gz"))
	if err != nil {
		return err
	}

	nT := len(traits)
	interceptMat := make([][]float64, nT)
	slopeMat := make([][]float64, nT)
	for i := range interceptMat {
		interceptMat[i] = make([]float64, nT)
		slopeMat[i] = make([]float64, nT)
	}

	uniResults := make([]*UnivariateLDSCResult, nT)
	for i := 0; i < nT; i++ {
		var chi2, n, ld, w []float64
		for _, idx := range reg.Remain {
			ts := reg.SNPs[idx].Traits[i]
			l, okL := refLD[reg.SNPs[idx].Name]
			wl, okW := wLD[reg.SNPs[idx].Name]
			if !ts.Valid || !okL || !okW || ts.SE <= 0 {
				continue
			}
			z := ts.Beta / ts.SE
			chi2 = append(chi2, z*z)
			n = append(n, ts.N)
			ld = append(ld, l)
			w = append(w, wl)
		}
		r, err := EstimateHeritability(&UnivariateLDSCInput{Chi2: chi2, N: n, LD: ld, WLD: w}, M)
		if err != nil {
			return err.(*Error).withTrait(traits[i].Name)
		}
		uniResults[i] = r
		interceptMat[i][i] = r.Intercept
		slopeMat[i][i] = r.Heritability
	}

	for i := 0; i < nT; i++ {
		for j := i + 1; j < nT; j++ {
			var z1, z2, n1, n2, ld, w []float64
			for _, idx := range reg.Remain {
				t1, t2 := reg.SNPs[idx].Traits[i], reg.SNPs[idx].Traits[j]
				l, okL := refLD[reg.SNPs[idx].Name]
				wl, okW := wLD[reg.SNPs[idx].Name]
				if !t1.Valid || !t2.Valid || !okL || !okW || t1.SE <= 0 || t2.SE <= 0 {
					continue
				}
				z1 = append(z1, t1.Beta/t1.SE)
				z2 = append(z2, t2.Beta/t2.SE)
				n1 = append(n1, t1.N)
				n2 = append(n2, t2.N)
				ld = append(ld, l)
				w = append(w, wl)
			}
			bi := &BivariateLDSCInput{
				Z1: z1, Z2: z2, N1: n1, N2: n2, LD: ld, WLD: w,
				Intercept1: uniResults[i].Intercept, H1: uniResults[i].Heritability,
				Intercept2: uniResults[j].Intercept, H2: uniResults[j].Heritability,
			}
			r, err := EstimateGeneticCovariance(bi, M)
			if err != nil {
				return err
			}
			interceptMat[i][j], interceptMat[j][i] = r.Intercept, r.Intercept
			slopeMat[i][j], slopeMat[j][i] = r.Gcov, r.Gcov
		}
	}

	bjxy, err := SolveConditionalEffects(bxy, slopeMat, vp)
	if err != nil {
		return err
	}

	var rows []writer.MtcojoCMARow
	for _, idx := range reg.Remain {
		snp := &reg.SNPs[idx]
		target := snp.Traits[0]
		if !target.Valid {
			continue
		}
		bzx := make([]float64, ncov)
		sezx := make([]float64, ncov)
		haveAll := true
		for cv := 1; cv <= ncov; cv++ {
			ts := snp.Traits[cv]
			if !ts.Valid {
				haveAll = false
				break
			}
			bzx[cv-1], sezx[cv-1] = ts.Beta, ts.SE
		}
		if !haveAll {
			continue
		}

		var res ConditionalResult
		if ncov == 1 {
			res = AdjustSingleCovariate(target.Beta, target.SE, bzx[0], sezx[0], bjxy[0], interceptMat[0][1])
		} else {
			res = AdjustMultipleCovariates(target.Beta, target.SE, bzx, sezx, bjxy, interceptMat)
		}
		se := 0.0
		if res.Var > 0 {
			se = math.Sqrt(res.Var)
		}
		rows = append(rows, writer.MtcojoCMARow{
			SNP: snp.Name, A1: target.A1, A2: target.A2,
			Freq: target.Freq, B: res.B, SE: se, P: res.P, N: target.N,
		})
	}

	if err := writer.WriteMtcojoCMA(cfg.Out+".mtcojo.cma", rows); err != nil {
		return errf(KindFileNotFound, "%v", err)
	}
	if err := writer.WriteGSMRDetail(cfg.Out+".gsmr_detail", gsmrDetail); err != nil {
		return errf(KindFileNotFound, "%v", err)
	}
	return nil
}

// RunFastFAM drives components C1 (phenotype side), C9, and C10: load
// the sparse GRM and phenotype, intersect IDs, residualize, fit
// variance components, factorize V, and scan every marker.
func RunFastFAM(cfg Config) error {
	bed, err := plink.Open(cfg.BFile)
	if err != nil {
		return errf(KindFileNotFound, "%v", err)
	}

	records, err := phenofile.Read(cfg.PhenoFile)
	if err != nil {
		return errf(KindFileNotFound, "%v", err)
	}
	keys, y, err := phenofile.Column(records, cfg.MPheno)
	if err != nil {
		return errf(KindInvalidFormat, "%v", err)
	}
	keepIDs := make(map[string]bool, len(keys))
	for _, k := range keys {
		keepIDs[k] = true
	}
	if cfg.KeepFile != "" {
		ids, err := readIDListFile(cfg.KeepFile)
		if err != nil {
			return err
		}
		for k := range keepIDs {
			if !ids[k] {
				delete(keepIDs, k)
			}
		}
	}
	if cfg.RemoveFile != "" {
		ids, err := readIDListFile(cfg.RemoveFile)
		if err != nil {
			return err
		}
		for k := range ids {
			delete(keepIDs, k)
		}
	}

	grm, ids, err := LoadSparseGRM(cfg.GRMSparsePrefix, keepIDs)
	if err != nil {
		return err
	}

	keyToY := make(map[string]float64, len(keys))
	for i, k := range keys {
		keyToY[k] = y[i]
	}
	yAligned := make([]float64, len(ids))
	for i, id := range ids {
		yAligned[i] = keyToY[id.FID+"\t"+id.IID]
	}

	var covars [][]float64
	if cfg.QCovarFile != "" {
		covRecords, err := phenofile.Read(cfg.QCovarFile)
		if err != nil {
			return errf(KindFileNotFound, "%v", err)
		}
		covByKey := make(map[string][]float64, len(covRecords))
		for _, r := range covRecords {
			covByKey[r.FID+"\t"+r.IID] = r.Values
		}
		covars = make([][]float64, len(ids))
		for i, id := range ids {
			c, ok := covByKey[id.FID+"\t"+id.IID]
			if !ok {
				return errf(KindInvalidParameter, "individual %s/%s has no quantitative covariate row", id.FID, id.IID)
			}
			covars[i] = c
		}
	}

	resid, err := ResidualizePhenotype(yAligned, covars)
	if err != nil {
		return err
	}

	var vg, vr float64
	if cfg.FixedVarianceComponents != nil {
		vg, vr = cfg.FixedVarianceComponents[0], cfg.FixedVarianceComponents[1]
	} else {
		he, err := EstimateVG(grm, resid)
		if err != nil {
			return err
		}
		if he.P >= 0.05 {
			return errf(KindInsufficientRelatedness, "HE regression p-value %.4g >= 0.05", he.P)
		}
		vp := PhenotypicVariance(resid)
		vg = he.VG
		vr = vp - vg
	}

	v := BuildV(grm, vg, vr)
	ldlt, ok := FactorizeLDLT(v)
	if !ok {
		return errf(KindSingularCovariance, "V = VG*A + VR*I is not positive definite")
	}
	vinv := ldlt.Inverse()

	bedIndexByKey := make(map[string]int, len(bed.Samples))
	for i, s := range bed.Samples {
		bedIndexByKey[s.FID+"\t"+s.IID] = i
	}
	// sampleIdx is in GRM/ids order, matching yAligned and resid, not
	// bed.Samples' own order.
	sampleIdx := make([]int, len(ids))
	for i, id := range ids {
		bi, ok := bedIndexByKey[id.FID+"\t"+id.IID]
		if !ok {
			return errf(KindInvalidParameter, "individual %s/%s is in the sparse GRM but not in the genotype panel", id.FID, id.IID)
		}
		sampleIdx[i] = bi
	}

	rp := &ReferencePanel{
		NumIndividuals: len(sampleIdx),
		NumMarkers:     len(bed.Variants),
		Dosage: func(i, m int) float64 {
			return bed.Dosage(sampleIdx[i], m)
		},
		Freq: make([]float64, len(bed.Variants)),
	}
	for m := range bed.Variants {
		rp.Freq[m] = bed.Freq(m, sampleIdx)
	}

	scan, err := RunFastFAMScan(rp, vinv, resid, cfg.Threads)
	if err != nil {
		return err
	}

	var rows []writer.FastFAMRow
	for m, v := range bed.Variants {
		rows = append(rows, writer.FastFAMRow{
			Chr: v.Chr, SNP: v.Name, BP: v.BP, A1: v.A1, A2: v.A2,
			Freq: rp.Freq[m], N: len(sampleIdx),
			B: scan.Beta[m], SE: scan.SE[m], P: scan.P[m],
		})
	}
	return writer.WriteFastFAM(cfg.Out+".fastfam", rows)
}
