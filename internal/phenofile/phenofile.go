// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package phenofile reads GCTA-style phenotype and quantitative
// covariate files (FID IID value...), a thin external collaborator
// per §1/§6.
package phenofile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Record is one individual's FID/IID plus all value columns.
type Record struct {
	FID, IID string
	Values   []float64
}

var missingTokens = map[string]bool{"NA": true, "NAN": true, ".": true, "-9": true}

func parseValue(tok string) (float64, bool) {
	if missingTokens[strings.ToUpper(tok)] {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Read parses a whitespace-separated FID IID value... file with no
// header, same layout GCTA uses for .phen and .qcovar files.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			return nil, fmt.Errorf("phenofile: %s:%d: expected >=3 columns, got %d", path, lineNo, len(fields))
		}
		vals := make([]float64, len(fields)-2)
		for i, tok := range fields[2:] {
			v, ok := parseValue(tok)
			if !ok {
				v = missingValue
			}
			vals[i] = v
		}
		out = append(out, Record{FID: fields[0], IID: fields[1], Values: vals})
	}
	return out, sc.Err()
}

// missingValue marks a missing numeric field; callers filter on
// IsMissing rather than comparing floats directly.
const missingValue = -9.0e300

// IsMissing reports whether v was parsed from a missing token.
func IsMissing(v float64) bool { return v == missingValue }

// Column selects the (1-indexed) mpheno-th value from every record,
// in file order, alongside the matching FID/IID keys.
func Column(records []Record, mpheno int) (keys []string, values []float64, err error) {
	if mpheno < 1 {
		return nil, nil, fmt.Errorf("phenofile: mpheno must be >= 1, got %d", mpheno)
	}
	keys = make([]string, 0, len(records))
	values = make([]float64, 0, len(records))
	for _, r := range records {
		if mpheno > len(r.Values) {
			return nil, nil, fmt.Errorf("phenofile: mpheno=%d but record for %s/%s has only %d value columns", mpheno, r.FID, r.IID, len(r.Values))
		}
		v := r.Values[mpheno-1]
		if IsMissing(v) {
			continue
		}
		keys = append(keys, r.FID+"\t"+r.IID)
		values = append(values, v)
	}
	return keys, values, nil
}
