// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/check.v1"
)

type sparseGRMSuite struct{}

var _ = check.Suite(&sparseGRMSuite{})

func writeGRMFixture(c *check.C) string {
	dir := c.MkDir()
	prefix := filepath.Join(dir, "test")

	idFile := prefix + ".grm.id"
	err := os.WriteFile(idFile, []byte("FAM1\tID1\nFAM2\tID2\nFAM3\tID3\n"), 0644)
	c.Assert(err, check.IsNil)

	spFile := prefix + ".grm.sp"
	content := "0 0 1.0\n1 0 0.05\n1 1 1.0\n2 1 0.1\n2 2 1.0\n"
	err = os.WriteFile(spFile, []byte(content), 0644)
	c.Assert(err, check.IsNil)

	return prefix
}

func (s *sparseGRMSuite) TestLoadSparseGRMSymmetric(c *check.C) {
	prefix := writeGRMFixture(c)
	grm, ids, err := LoadSparseGRM(prefix, nil)
	c.Assert(err, check.IsNil)
	c.Check(len(ids), check.Equals, 3)
	c.Check(grm.N, check.Equals, 3)

	c.Check(grm.At(0, 0), check.Equals, 1.0)
	c.Check(grm.At(1, 0), check.Equals, 0.05)
	c.Check(grm.At(0, 1), check.Equals, 0.05)
	c.Check(grm.At(2, 1), check.Equals, 0.1)
	c.Check(grm.At(1, 2), check.Equals, 0.1)
}

func (s *sparseGRMSuite) TestLoadSparseGRMIntersection(c *check.C) {
	prefix := writeGRMFixture(c)
	keep := map[string]bool{"FAM1\tID1": true, "FAM3\tID3": true}
	grm, ids, err := LoadSparseGRM(prefix, keep)
	c.Assert(err, check.IsNil)
	c.Check(len(ids), check.Equals, 2)
	c.Check(grm.N, check.Equals, 2)
	// The retained pair (old indices 0 and 2) had no direct edge in
	// the fixture, so the off-diagonal should be absent (zero).
	c.Check(grm.At(1, 0), check.Equals, 0.0)
}

func (s *sparseGRMSuite) TestDumpTriplesRoundTrip(c *check.C) {
	prefix := writeGRMFixture(c)
	grm, _, err := LoadSparseGRM(prefix, nil)
	c.Assert(err, check.IsNil)

	triples := grm.DumpTriples()
	dir := c.MkDir()
	idOut := filepath.Join(dir, "rt.grm.id")
	spOut := filepath.Join(dir, "rt.grm.sp")
	err = os.WriteFile(idOut, []byte("FAM1\tID1\nFAM2\tID2\nFAM3\tID3\n"), 0644)
	c.Assert(err, check.IsNil)

	var lines string
	for _, t := range triples {
		lines += fmt.Sprintf("%d %d %v\n", t.I, t.J, t.Value)
	}
	err = os.WriteFile(spOut, []byte(lines), 0644)
	c.Assert(err, check.IsNil)

	reloaded, _, err := LoadSparseGRM(filepath.Join(dir, "rt"), nil)
	c.Assert(err, check.IsNil)
	for i := 0; i < grm.N; i++ {
		for j := 0; j < grm.N; j++ {
			c.Check(reloaded.At(i, j), check.Equals, grm.At(i, j))
		}
	}
}
