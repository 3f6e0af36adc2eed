// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/james-bowman/sparse"
)

// SparseGRM is the symmetric genetic relatedness matrix over the
// individuals surviving phenotype/covariate ID intersection (§4.9,
// §3 "SparseGRM"). Off-diagonals are stored both ways; the diagonal
// is always present.
type SparseGRM struct {
	N   int
	mat *sparse.CSC
}

// At returns A(i,j).
func (g *SparseGRM) At(i, j int) float64 {
	return g.mat.At(i, j)
}

// Dims returns the matrix order.
func (g *SparseGRM) Dims() (int, int) {
	return g.mat.Dims()
}

// grmID is one line of a <prefix>.grm.id file.
type grmID struct {
	FID, IID string
}

func readGRMIDFile(path string) ([]grmID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errf(KindFileNotFound, "%v", err).withFile(path, 0)
	}
	defer f.Close()

	var ids []grmID
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errf(KindInvalidFormat, "expected 2 columns (FID IID), got %d", len(fields)).withFile(path, lineNo)
		}
		ids = append(ids, grmID{FID: fields[0], IID: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, errf(KindInvalidFormat, "%v", err).withFile(path, lineNo)
	}
	return ids, nil
}

type grmSparseEntry struct {
	I, J  int
	Value float64
}

func readGRMSparseFile(path string) ([]grmSparseEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errf(KindFileNotFound, "%v", err).withFile(path, 0)
	}
	defer f.Close()

	var entries []grmSparseEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errf(KindInvalidFormat, "expected 3 columns (i j value), got %d", len(fields)).withFile(path, lineNo)
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errf(KindInvalidFormat, "bad index %q: %v", fields[0], err).withFile(path, lineNo)
		}
		j, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errf(KindInvalidFormat, "bad index %q: %v", fields[1], err).withFile(path, lineNo)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errf(KindInvalidFormat, "bad value %q: %v", fields[2], err).withFile(path, lineNo)
		}
		if i < j {
			return nil, errf(KindInvalidFormat, "expected i >= j, got i=%d j=%d", i, j).withFile(path, lineNo)
		}
		entries = append(entries, grmSparseEntry{I: i, J: j, Value: v})
	}
	if err := sc.Err(); err != nil {
		return nil, errf(KindInvalidFormat, "%v", err).withFile(path, lineNo)
	}
	return entries, nil
}

// LoadSparseGRM reads <prefix>.grm.id and <prefix>.grm.sp, intersects
// the ID list with keepIDs (the phenotype+covariate set; nil means
// keep all), and returns the remapped symmetric sparse matrix plus
// the kept IDs in matrix order.
func LoadSparseGRM(prefix string, keepIDs map[string]bool) (*SparseGRM, []grmID, error) {
	ids, err := readGRMIDFile(prefix + ".grm.id")
	if err != nil {
		return nil, nil, err
	}
	entries, err := readGRMSparseFile(prefix + ".grm.sp")
	if err != nil {
		return nil, nil, err
	}

	oldToNew := make([]int, len(ids))
	var kept []grmID
	for i, id := range ids {
		key := id.FID + "\t" + id.IID
		if keepIDs != nil && !keepIDs[key] {
			oldToNew[i] = -1
			continue
		}
		oldToNew[i] = len(kept)
		kept = append(kept, id)
	}

	n := len(kept)
	var rows, cols []int
	var data []float64
	for _, e := range entries {
		ni, nj := oldToNew[e.I], oldToNew[e.J]
		if ni < 0 || nj < 0 {
			continue
		}
		rows = append(rows, ni)
		cols = append(cols, nj)
		data = append(data, e.Value)
		if ni != nj {
			rows = append(rows, nj)
			cols = append(cols, ni)
			data = append(data, e.Value)
		}
	}

	coo := sparse.NewCOO(n, n, rows, cols, data)
	return &SparseGRM{N: n, mat: coo.ToCSC()}, kept, nil
}

// DumpTriples writes the lower-triangular (i>=j) nonzero entries of g
// in the same i/j/value layout LoadSparseGRM reads, letting the
// round-trip invariant in the test suite dump and reload a matrix.
func (g *SparseGRM) DumpTriples() []grmSparseEntry {
	var out []grmSparseEntry
	for i := 0; i < g.N; i++ {
		for j := 0; j <= i; j++ {
			v := g.mat.At(i, j)
			if v != 0 {
				out = append(out, grmSparseEntry{I: i, J: j, Value: v})
			}
		}
	}
	return out
}
