// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package plink reads the standard PLINK 1 binary genotype layout
// (.bed/.bim/.fam), the "thin external collaborator" §1 leaves
// unspecified beyond the interface level. It hands back plain
// accessor data; wrapping it into a reference panel view is the
// caller's job.
package plink

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Variant is one .bim record.
type Variant struct {
	Chr  int
	Name string
	BP   int
	A1   string // minor/effect allele by PLINK convention
	A2   string
}

// Sample is one .fam record.
type Sample struct {
	FID, IID string
}

// BEDReader gives random access to a SNP-major PLINK 1 .bed file's
// genotype dosages.
type BEDReader struct {
	data       []byte
	numSamples int
	bytesPerSNP int
	Variants   []Variant
	Samples    []Sample
}

var bedMagic = [3]byte{0x6c, 0x1b, 0x01}

// code2dosage maps a 2-bit PLINK genotype code to the A1 dosage:
// 0 -> 2 (hom A1), 1 -> missing, 2 -> 1 (het), 3 -> 0 (hom A2).
var code2dosage = [4]float64{2, math.NaN(), 1, 0}

// Open reads prefix.bed/.bim/.fam and returns a reader. The whole .bed
// file is loaded into memory; FastFAM and mtCOJO reference panels are
// typically subsetted to a few thousand individuals, so this is the
// same tradeoff GCTA itself makes.
func Open(prefix string) (*BEDReader, error) {
	variants, err := readBim(prefix + ".bim")
	if err != nil {
		return nil, err
	}
	samples, err := readFam(prefix + ".fam")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(prefix + ".bed")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := os.ReadFile(prefix + ".bed")
	if err != nil {
		return nil, err
	}
	if len(data) < 3 || data[0] != bedMagic[0] || data[1] != bedMagic[1] || data[2] != bedMagic[2] {
		return nil, fmt.Errorf("plink: %s.bed: bad magic bytes", prefix)
	}
	bytesPerSNP := (len(samples) + 3) / 4
	want := 3 + bytesPerSNP*len(variants)
	if len(data) < want {
		return nil, fmt.Errorf("plink: %s.bed: expected %d bytes, got %d", prefix, want, len(data))
	}

	return &BEDReader{
		data:        data[3:],
		numSamples:  len(samples),
		bytesPerSNP: bytesPerSNP,
		Variants:    variants,
		Samples:     samples,
	}, nil
}

// Dosage returns the A1 allele dosage (0/1/2) of sample s at marker
// m, or NaN if the genotype is missing.
func (r *BEDReader) Dosage(s, m int) float64 {
	byteIdx := m*r.bytesPerSNP + s/4
	shift := uint((s % 4) * 2)
	code := (r.data[byteIdx] >> shift) & 0x3
	return code2dosage[code]
}

func readBim(path string) ([]Variant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Variant
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			return nil, fmt.Errorf("plink: %s:%d: expected 6 columns, got %d", path, lineNo, len(fields))
		}
		chr, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("plink: %s:%d: bad chromosome %q: %w", path, lineNo, fields[0], err)
		}
		bp, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("plink: %s:%d: bad position %q: %w", path, lineNo, fields[3], err)
		}
		out = append(out, Variant{Chr: chr, Name: fields[1], BP: bp, A1: fields[4], A2: fields[5]})
	}
	return out, sc.Err()
}

func readFam(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Sample
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		out = append(out, Sample{FID: fields[0], IID: fields[1]})
	}
	return out, sc.Err()
}

// Freq computes the per-marker A1 allele frequency over the provided
// sample subset (nil means all samples), ignoring missing genotypes.
func (r *BEDReader) Freq(m int, keep []int) float64 {
	samples := keep
	if samples == nil {
		samples = make([]int, r.numSamples)
		for i := range samples {
			samples[i] = i
		}
	}
	var sum, n float64
	for _, s := range samples {
		d := r.Dosage(s, m)
		if !math.IsNaN(d) {
			sum += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / (2 * n)
}
