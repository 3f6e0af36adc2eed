// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	check "gopkg.in/check.v1"
)

type SNPTableSuite struct{}

var _ = check.Suite(&SNPTableSuite{})

func (s *SNPTableSuite) TestInitRejectsDuplicateNames(c *check.C) {
	reg := NewRegistry(1)
	err := reg.Init([]string{"rs1", "rs2", "rs1"})
	c.Assert(err, check.NotNil)
	c.Assert(err.(*Error).Kind, check.Equals, KindDuplicateSNP)
}

func (s *SNPTableSuite) TestEnsureIndexAppendsNewSNPs(c *check.C) {
	reg := NewRegistry(2)
	i1 := reg.EnsureIndex("rs1")
	i2 := reg.EnsureIndex("rs2")
	i1again := reg.EnsureIndex("rs1")
	c.Assert(i1, check.Equals, i1again)
	c.Assert(i2, check.Not(check.Equals), i1)
	c.Assert(len(reg.SNPs), check.Equals, 2)
	c.Assert(len(reg.Remain), check.Equals, 2)
}

func (s *SNPTableSuite) TestIntersectKeepAndRemove(c *check.C) {
	reg := NewRegistry(1)
	c.Assert(reg.Init([]string{"rs1", "rs2", "rs3"}), check.IsNil)

	reg.IntersectKeep(map[string]bool{"rs1": true, "rs3": true})
	c.Assert(reg.RemainNames(), check.DeepEquals, []string{"rs1", "rs3"})

	reg.IntersectRemove(map[string]bool{"rs3": true})
	c.Assert(reg.RemainNames(), check.DeepEquals, []string{"rs1"})
}

func (s *SNPTableSuite) TestCompactRemapsIndices(c *check.C) {
	reg := NewRegistry(1)
	c.Assert(reg.Init([]string{"rs1", "rs2", "rs3"}), check.IsNil)
	reg.IntersectKeep(map[string]bool{"rs2": true})

	perm := reg.Compact()
	c.Assert(perm[0], check.Equals, -1)
	c.Assert(perm[1], check.Equals, 0)
	c.Assert(perm[2], check.Equals, -1)
	c.Assert(reg.RemainNames(), check.DeepEquals, []string{"rs2"})
	idx, ok := reg.Index("rs2")
	c.Assert(ok, check.Equals, true)
	c.Assert(idx, check.Equals, 0)
}
