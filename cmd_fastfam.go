// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// varianceComponentsFlag parses "-ge VG,VR" into a fixed [2]float64,
// bypassing the HE-regression variance component estimation step.
type varianceComponentsFlag struct {
	cfg *Config
}

func (f varianceComponentsFlag) String() string {
	if f.cfg == nil || f.cfg.FixedVarianceComponents == nil {
		return ""
	}
	vc := f.cfg.FixedVarianceComponents
	return fmt.Sprintf("%g,%g", vc[0], vc[1])
}

func (f varianceComponentsFlag) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return fmt.Errorf("expected VG,VR, got %q", s)
	}
	vg, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return fmt.Errorf("bad VG %q: %v", parts[0], err)
	}
	vr, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return fmt.Errorf("bad VR %q: %v", parts[1], err)
	}
	f.cfg.FixedVarianceComponents = &[2]float64{vg, vr}
	return nil
}

// fastfamCommand is the "fastfam" subcommand: sparse-GRM mixed linear
// model GWAS scanning (components C1, C9, C10).
type fastfamCommand struct {
	cfg Config
}

func (c *fastfamCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c.cfg = DefaultConfig()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&c.cfg.BFile, "bfile", "", "PLINK binary genotype `prefix` (.bed/.bim/.fam)")
	flags.StringVar(&c.cfg.PhenoFile, "pheno", "", "phenotype `file` (FID IID value...)")
	flags.StringVar(&c.cfg.GRMSparsePrefix, "grm-sparse", "", "sparse GRM `prefix` (.grm.id/.grm.sp)")
	flags.StringVar(&c.cfg.QCovarFile, "qcovar", "", "quantitative covariate `file` (FID IID value...)")
	flags.StringVar(&c.cfg.KeepFile, "keep", "", "`file` listing FID IID pairs to retain")
	flags.StringVar(&c.cfg.RemoveFile, "remove", "", "`file` listing FID IID pairs to exclude")
	flags.IntVar(&c.cfg.MPheno, "mpheno", c.cfg.MPheno, "1-based phenotype column to analyze")
	flags.StringVar(&c.cfg.Out, "out", "fastfam", "output file `prefix`")
	flags.IntVar(&c.cfg.Threads, "thread-num", c.cfg.Threads, "number of worker goroutines for the per-marker scan")
	flags.Var(varianceComponentsFlag{cfg: &c.cfg}, "ge", "fixed VG,VR `values`, bypassing HE regression")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")

	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		return 2
	}
	if c.cfg.BFile == "" || c.cfg.PhenoFile == "" || c.cfg.GRMSparsePrefix == "" {
		fmt.Fprintln(stderr, "fastfam: -bfile, -pheno, and -grm-sparse are required")
		flags.Usage()
		return 2
	}

	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	}
	log.SetLevel(lvl)

	if err := RunFastFAM(c.cfg); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}
