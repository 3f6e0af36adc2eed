// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import "sort"

// TraitStats holds the per-SNP, per-trait summary statistics fields
// named in the data model (§3): A1/A2 as observed in the trait's own
// summary file, freq/beta/se/p/N, and a validity flag set once all
// fields parse as finite numerics.
type TraitStats struct {
	A1, A2 string
	Freq   float64
	Beta   float64
	SE     float64
	P      float64
	N      float64
	Valid  bool
}

// SNP is the canonical per-marker record: reference-panel identity
// plus one TraitStats slot per trait (target at index 0, covariates
// following in fixed order).
type SNP struct {
	Name string

	// Reference-panel fields, populated only when the SNP is present
	// in the reference genotype panel.
	HasRef bool
	A1Ref  string
	A2Ref  string
	Chr    int
	BP     int

	Traits []TraitStats
}

// Registry is the single owner of the dense SNP array and the
// name->index map; every other component holds borrowed index-keyed
// views rather than cyclic references back into it (Design Note 9.2).
type Registry struct {
	SNPs    []SNP
	byName  map[string]int
	Remain  []int // sorted ascending indices of SNPs still alive
	ntraits int
}

// NewRegistry builds an empty registry sized for ntraits traits
// (target + covariates).
func NewRegistry(ntraits int) *Registry {
	return &Registry{byName: map[string]int{}, ntraits: ntraits}
}

// Init builds name->index and seeds Remain = 0..n-1. Fails with
// DuplicateSNP if any name repeats.
func (r *Registry) Init(names []string) error {
	r.SNPs = make([]SNP, len(names))
	r.byName = make(map[string]int, len(names))
	r.Remain = make([]int, len(names))
	for i, name := range names {
		if _, dup := r.byName[name]; dup {
			return errf(KindDuplicateSNP, "SNP %q appears more than once", name)
		}
		r.byName[name] = i
		r.SNPs[i] = SNP{Name: name, Traits: make([]TraitStats, r.ntraits)}
		r.Remain[i] = i
	}
	return nil
}

// Index returns the dense index for name, and whether it is registered.
func (r *Registry) Index(name string) (int, bool) {
	i, ok := r.byName[name]
	return i, ok
}

// EnsureIndex returns the index for name, registering a new bare SNP
// record (all traits invalid) if it has not been seen before. Used
// when a later covariate file introduces SNPs absent from the first.
func (r *Registry) EnsureIndex(name string) int {
	if i, ok := r.byName[name]; ok {
		return i
	}
	i := len(r.SNPs)
	r.byName[name] = i
	r.SNPs = append(r.SNPs, SNP{Name: name, Traits: make([]TraitStats, r.ntraits)})
	r.Remain = append(r.Remain, i)
	sort.Ints(r.Remain)
	return i
}

// IntersectKeep retains only registry entries whose name is in names.
func (r *Registry) IntersectKeep(names map[string]bool) {
	next := r.Remain[:0:0]
	for _, idx := range r.Remain {
		if names[r.SNPs[idx].Name] {
			next = append(next, idx)
		}
	}
	r.Remain = next
}

// IntersectRemove drops the given names from Remain.
func (r *Registry) IntersectRemove(names map[string]bool) {
	next := r.Remain[:0:0]
	for _, idx := range r.Remain {
		if !names[r.SNPs[idx].Name] {
			next = append(next, idx)
		}
	}
	r.Remain = next
}

// Permutation maps an old dense index to its new compacted index, or
// -1 if the SNP was dropped.
type Permutation []int

// Compact rebuilds contiguous indices for the Remain set and returns
// the permutation from old index to new index (or -1 for dropped
// SNPs). Remain itself becomes 0..len(Remain)-1 after Compact.
func (r *Registry) Compact() Permutation {
	perm := make(Permutation, len(r.SNPs))
	for i := range perm {
		perm[i] = -1
	}
	newSNPs := make([]SNP, len(r.Remain))
	for newIdx, oldIdx := range r.Remain {
		perm[oldIdx] = newIdx
		newSNPs[newIdx] = r.SNPs[oldIdx]
	}
	r.SNPs = newSNPs
	r.byName = make(map[string]int, len(newSNPs))
	r.Remain = make([]int, len(newSNPs))
	for i, s := range newSNPs {
		r.byName[s.Name] = i
		r.Remain[i] = i
	}
	return perm
}

// RemainNames returns the SNP names currently alive, in Remain order.
func (r *Registry) RemainNames() []string {
	out := make([]string, len(r.Remain))
	for i, idx := range r.Remain {
		out[i] = r.SNPs[idx].Name
	}
	return out
}
