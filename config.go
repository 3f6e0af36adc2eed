// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

// Config is the single immutable configuration value built once at
// startup from parsed flags (see cmd_mtcojo.go and cmd_fastfam.go) and threaded by value or
// pointer through every component. Replaces the process-wide
// string-keyed option maps used for this purpose historically (Design
// Note 9.1): no component mutates global state.
type Config struct {
	// mtCOJO inputs
	MtcojoFile string
	RefLDChr   string
	WLDChr     string
	Out        string

	// GSMR/clumping thresholds
	ClumpPThreshold          float64 // clump_thresh1, the sole per-call clumping election threshold
	GSMRInstrumentPThreshold float64 // gwas_thresh, combined with clump_thresh1 as a registry-wide pre-filter
	ClumpWindowKb            int
	ClumpR2Threshold         float64
	HeidiPThreshold          float64
	LDFDRThreshold           float64
	MinSNPGSMR               int
	MinSNPHeidi              int
	HeidiOutlierEnabled      bool

	// FastFAM inputs
	FastFAM                 bool
	BFile                   string
	PhenoFile               string
	GRMSparsePrefix         string
	QCovarFile              string
	MPheno                  int
	KeepFile                string
	RemoveFile              string
	FixedVarianceComponents *[2]float64 // --ge VG VR, bypasses HE regression
	Threads                 int
}

// DefaultConfig mirrors the thresholds GCTA's mtcojo/FastFAM use by
// default; callers override via flags.
func DefaultConfig() Config {
	return Config{
		ClumpPThreshold:          5e-8,
		GSMRInstrumentPThreshold: 5e-8,
		ClumpWindowKb:            1000,
		ClumpR2Threshold:         0.05,
		HeidiPThreshold:          0.01,
		LDFDRThreshold:           0.05,
		MinSNPGSMR:               10,
		MinSNPHeidi:              10,
		HeidiOutlierEnabled:      true,
		MPheno:                   1,
		Threads:                  1,
	}
}
