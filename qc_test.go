// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"os"

	"gopkg.in/check.v1"
)

type qcSuite struct{}

var _ = check.Suite(&qcSuite{})

func makeHarmonizeFixture() *Registry {
	reg := NewRegistry(2)
	reg.Init([]string{"rs1", "rs2", "rs3"})

	// rs1: reference panel says A/G; target trait already matches,
	// covariate trait is strand-flipped (G/A) and needs negating.
	reg.SNPs[0].HasRef = true
	reg.SNPs[0].A1Ref, reg.SNPs[0].A2Ref = "A", "G"
	reg.SNPs[0].Traits[0] = TraitStats{A1: "A", A2: "G", Freq: 0.3, Beta: 0.1, SE: 0.01, P: 0.01, N: 1000, Valid: true}
	reg.SNPs[0].Traits[1] = TraitStats{A1: "G", A2: "A", Freq: 0.7, Beta: -0.2, SE: 0.02, P: 0.02, N: 2000, Valid: true}

	// rs2: no reference panel entry; first valid trait (target) sets
	// the reference pair; covariate already matches.
	reg.SNPs[1].Traits[0] = TraitStats{A1: "C", A2: "T", Freq: 0.4, Beta: 0.05, SE: 0.01, P: 0.03, N: 1500, Valid: true}
	reg.SNPs[1].Traits[1] = TraitStats{A1: "C", A2: "T", Freq: 0.45, Beta: 0.07, SE: 0.01, P: 0.01, N: 1800, Valid: true}

	// rs3: target has SE 0, below the 1e-6 floor, must be dropped.
	reg.SNPs[2].HasRef = true
	reg.SNPs[2].A1Ref, reg.SNPs[2].A2Ref = "A", "C"
	reg.SNPs[2].Traits[0] = TraitStats{A1: "A", A2: "C", Freq: 0.5, Beta: 0.1, SE: 0, P: 0.01, N: 1000, Valid: true}
	reg.SNPs[2].Traits[1] = TraitStats{A1: "A", A2: "C", Freq: 0.5, Beta: 0.1, SE: 0.01, P: 0.01, N: 1000, Valid: true}

	return reg
}

func (s *qcSuite) TestHarmonizeFlipsStrandAndDropsBad(c *check.C) {
	reg := makeHarmonizeFixture()
	badPath := c.MkDir() + "/bad.txt"
	err := Harmonize(reg, badPath)
	c.Assert(err, check.IsNil)

	c.Assert(reg.RemainNames(), check.DeepEquals, []string{"rs1", "rs2"})

	rs1 := reg.SNPs[0]
	c.Assert(rs1.Traits[1].A1, check.Equals, "A")
	c.Assert(rs1.Traits[1].Beta, check.Equals, 0.2)
	covFreq := 0.7 // the fixture's pre-flip covariate frequency
	c.Assert(rs1.Traits[1].Freq, check.Equals, 1-covFreq)

	badContent, err := os.ReadFile(badPath)
	c.Assert(err, check.IsNil)
	c.Assert(string(badContent), check.Equals, "rs3\n")
}

func (s *qcSuite) TestHarmonizeIsIdempotent(c *check.C) {
	reg := makeHarmonizeFixture()
	badPath := c.MkDir() + "/bad.txt"
	c.Assert(Harmonize(reg, badPath), check.IsNil)
	before := reg.RemainNames()
	firstPassBeta := reg.SNPs[0].Traits[1].Beta

	c.Assert(Harmonize(reg, badPath), check.IsNil)
	c.Assert(reg.RemainNames(), check.DeepEquals, before)
	c.Assert(reg.SNPs[0].Traits[1].Beta, check.Equals, firstPassBeta)
}

func (s *qcSuite) TestHarmonizeDropsMultiAllelicMismatch(c *check.C) {
	reg := NewRegistry(1)
	reg.Init([]string{"rsX"})
	reg.SNPs[0].HasRef = true
	reg.SNPs[0].A1Ref, reg.SNPs[0].A2Ref = "A", "G"
	reg.SNPs[0].Traits[0] = TraitStats{A1: "C", A2: "T", Freq: 0.5, Beta: 0.1, SE: 0.01, P: 0.01, N: 1000, Valid: true}

	badPath := c.MkDir() + "/bad.txt"
	c.Assert(Harmonize(reg, badPath), check.IsNil)
	c.Assert(reg.RemainNames(), check.DeepEquals, []string{})
}
