// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package writer formats the three output tables (mtCOJO conditioned
// statistics, the GSMR per-covariate detail, and the FastFAM scan),
// a thin external collaborator per §1/§6.
package writer

import (
	"bufio"
	"fmt"
	"os"
)

// MtcojoCMARow is one conditioned-target-SNP output row.
type MtcojoCMARow struct {
	SNP, A1, A2    string
	Freq, B, SE, P float64
	N              float64
}

// WriteMtcojoCMA writes the <out>.mtcojo.cma table.
func WriteMtcojoCMA(path string, rows []MtcojoCMARow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "SNP\tA1\tA2\tfreq\tb\tse\tp\tN")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%g\t%g\t%g\n", r.SNP, r.A1, r.A2, r.Freq, r.B, r.SE, r.P, r.N)
	}
	return w.Flush()
}

// GSMRDetailRow is one covariate's GSMR causal-estimate summary.
type GSMRDetailRow struct {
	Covariate string
	Bxy, SE, P float64
	NSNPUsed  int
}

// WriteGSMRDetail writes the <out>.gsmr_detail supplemental table.
func WriteGSMRDetail(path string, rows []GSMRDetailRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "Covariate\tbxy\tse\tp\tnsnp")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%d\n", r.Covariate, r.Bxy, r.SE, r.P, r.NSNPUsed)
	}
	return w.Flush()
}

// FastFAMRow is one scanned marker's GWAS summary.
type FastFAMRow struct {
	Chr      int
	SNP      string
	BP       int
	A1, A2   string
	Freq     float64
	N        int
	B, SE, P float64
}

// WriteFastFAM writes the <out>.fastfam table.
func WriteFastFAM(path string, rows []FastFAMRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "CHR\tSNP\tBP\tA1\tA2\tfreq\tN\tb\tse\tp")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%g\t%d\t%g\t%g\t%g\n", r.Chr, r.SNP, r.BP, r.A1, r.A2, r.Freq, r.N, r.B, r.SE, r.P)
	}
	return w.Flush()
}
