// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// missingTokens are the accepted spellings of "no value" in a COJO
// summary file or a metafile prevalence column.
var missingTokens = map[string]bool{"NA": true, "NAN": true, ".": true}

func isMissing(tok string) bool {
	return missingTokens[strings.ToUpper(tok)]
}

// parseFloatOrMissing returns (value, ok). ok is false both for
// explicit missing tokens and for unparseable numerics; the caller
// decides whether that is fatal.
func parseFloatOrMissing(tok string) (float64, bool) {
	if isMissing(tok) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// MetafileTrait describes one line of an mtCOJO metafile list: a
// trait name, its COJO summary file, and optional sample/population
// prevalences.
type MetafileTrait struct {
	Name         string
	File         string
	SamplePrev   float64
	HasSamplePrev bool
	PopPrev      float64
	HasPopPrev   bool
}

// ReadMetafileList parses the mtCOJO metafile list (§4.2, §6): line 1
// is the target, subsequent lines are covariates, in fixed order.
func ReadMetafileList(path string) ([]MetafileTrait, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errf(KindFileNotFound, "cannot open metafile list %q: %v", path, err)
	}
	defer f.Close()

	var out []MetafileTrait
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 && len(fields) != 4 {
			return nil, errf(KindInvalidFormat, "metafile list line has %d columns, want 2 or 4", len(fields)).withFile(path, lineNo)
		}
		t := MetafileTrait{Name: fields[0], File: fields[1]}
		if len(fields) == 4 {
			if !isMissing(fields[2]) {
				v, ok := parseFloatOrMissing(fields[2])
				if !ok || v < 0 || v > 1 {
					return nil, errf(KindInvalidParameter, "sample prevalence %q out of [0,1]", fields[2]).withFile(path, lineNo)
				}
				t.SamplePrev, t.HasSamplePrev = v, true
			}
			if !isMissing(fields[3]) {
				v, ok := parseFloatOrMissing(fields[3])
				if !ok || v < 0 || v > 1 {
					return nil, errf(KindInvalidParameter, "population prevalence %q out of [0,1]", fields[3]).withFile(path, lineNo)
				}
				t.PopPrev, t.HasPopPrev = v, true
			}
		}
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, errf(KindInvalidFormat, "reading %q: %v", path, err)
	}
	if len(out) == 0 {
		return nil, errf(KindInvalidFormat, "metafile list %q is empty", path)
	}
	return out, nil
}

// ReadSingleMetafile parses one COJO summary file (header + rows `SNP
// A1 A2 freq beta se p N`), filling registry slot traitIdx for every
// SNP it knows, registering new SNPs as needed. It returns vp_t, the
// median phenotypic variance (§4.2). vp_t < 0 is fatal.
func ReadSingleMetafile(path string, traitIdx int, reg *Registry) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errf(KindFileNotFound, "cannot open summary file %q: %v", path, err)
	}
	defer f.Close()
	return readSingleMetafile(f, path, traitIdx, reg)
}

func readSingleMetafile(r io.Reader, path string, traitIdx int, reg *Registry) (float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	var vpTerms []float64
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if lineNo == 1 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 8 {
			return 0, errf(KindInvalidFormat, "summary line has %d columns, want 8", len(fields)).withFile(path, lineNo)
		}
		name := fields[0]
		idx := reg.EnsureIndex(name)
		ts := TraitStats{A1: fields[1], A2: fields[2]}

		freq, okFreq := parseFloatOrMissing(fields[3])
		beta, okBeta := parseFloatOrMissing(fields[4])
		se, okSE := parseFloatOrMissing(fields[5])
		p, okP := parseFloatOrMissing(fields[6])
		n, okN := parseFloatOrMissing(fields[7])

		ts.Freq, ts.Beta, ts.SE, ts.P, ts.N = freq, beta, se, p, n
		ts.Valid = okFreq && okBeta && okSE && okP && okN

		reg.SNPs[idx].Traits[traitIdx] = ts

		if ts.Valid {
			term := 2 * freq * (1 - freq) * (beta*beta + n*se*se)
			vpTerms = append(vpTerms, term)
		}
	}
	if err := sc.Err(); err != nil {
		return 0, errf(KindInvalidFormat, "reading %q: %v", path, err)
	}
	if len(vpTerms) == 0 {
		return 0, errf(KindInvalidParameter, "no SNPs with complete fields in %q; cannot estimate vp", path)
	}
	vp := median(vpTerms)
	if vp < 0 {
		return 0, errf(KindInvalidParameter, "negative phenotypic variance estimate (%.6g) for %q", vp, path)
	}
	return vp, nil
}

// median returns the median of a via the shared quantile() helper
// (quantile(a, 0.5) reduces to the usual middle-value/average-of-two
// rule), the same fallback vp estimator read_mtcojofile uses when a
// trait's own Vp is missing.
func median(a []float64) float64 {
	return quantile(a, 0.5)
}
