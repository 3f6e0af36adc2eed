// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"flag"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// mtcojoCommand is the "mtcojo" subcommand: multi-trait conditional
// joint analysis over GWAS summary statistics (components C1-C8).
type mtcojoCommand struct {
	cfg Config
}

func (c *mtcojoCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c.cfg = DefaultConfig()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&c.cfg.MtcojoFile, "mtcojo-file", "", "metafile list `file`: target trait then covariate traits, one per line")
	flags.StringVar(&c.cfg.BFile, "bfile", "", "PLINK binary reference panel `prefix` (.bed/.bim/.fam)")
	flags.StringVar(&c.cfg.RefLDChr, "ref-ld-chr", "", "reference LD score tile `directory`, chromosome number and suffix appended")
	flags.StringVar(&c.cfg.WLDChr, "w-ld-chr", "", "LD score regression-weight tile `directory`")
	flags.StringVar(&c.cfg.Out, "out", "mtcojo", "output file `prefix`")
	flags.Float64Var(&c.cfg.GSMRInstrumentPThreshold, "gwas-thresh", c.cfg.GSMRInstrumentPThreshold, "GWAS p-value threshold for selecting genetic instruments")
	flags.Float64Var(&c.cfg.ClumpPThreshold, "clump-p1", c.cfg.ClumpPThreshold, "clumping p-value threshold for electing GSMR index SNPs")
	flags.IntVar(&c.cfg.ClumpWindowKb, "clump-wind", c.cfg.ClumpWindowKb, "clumping window, in kb")
	flags.Float64Var(&c.cfg.ClumpR2Threshold, "clump-r2", c.cfg.ClumpR2Threshold, "clumping LD r^2 threshold")
	flags.Float64Var(&c.cfg.HeidiPThreshold, "heidi-thresh", c.cfg.HeidiPThreshold, "HEIDI-outlier p-value threshold")
	flags.BoolVar(&c.cfg.HeidiOutlierEnabled, "heidi-outlier", c.cfg.HeidiOutlierEnabled, "enable the HEIDI-outlier filter")
	flags.IntVar(&c.cfg.MinSNPGSMR, "gsmr-snp-min", c.cfg.MinSNPGSMR, "minimum number of SNPs required for a GSMR estimate")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")

	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		return 2
	}
	if c.cfg.MtcojoFile == "" || c.cfg.BFile == "" || c.cfg.RefLDChr == "" || c.cfg.WLDChr == "" {
		fmt.Fprintln(stderr, "mtcojo: -mtcojo-file, -bfile, -ref-ld-chr, and -w-ld-chr are required")
		flags.Usage()
		return 2
	}

	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	}
	log.SetLevel(lvl)

	if err := RunMtcojo(c.cfg); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}
