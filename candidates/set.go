// elHLA: HLA class I typing from sequencing reads.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package candidates

import (
	"errors"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/exascience/pargo/parallel"
)

// ErrEmptyCatalog is returned when resolution starts without any
// reference alleles.
var ErrEmptyCatalog = errors.New("empty allele catalog")

// A Set is a subset of a fixed catalog. Filtering returns a new Set
// whose members are a subset of the receiver's; the catalog itself is
// shared and never modified.
type Set struct {
	catalog []Allele
	index   map[string]int
	members *bitset.BitSet
}

// NewSet returns a Set containing the whole catalog.
func NewSet(catalog []Allele) (*Set, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	set := &Set{
		catalog: catalog,
		index:   make(map[string]int, len(catalog)),
		members: bitset.New(uint(len(catalog))),
	}
	for i, a := range catalog {
		if _, ok := set.index[a.Name]; !ok {
			set.index[a.Name] = i
		}
		set.members.Set(uint(i))
	}
	return set, nil
}

// Len returns the number of members.
func (s *Set) Len() int {
	return int(s.members.Count())
}

func (s *Set) indices() []int {
	result := make([]int, 0, s.members.Count())
	for i, ok := s.members.NextSet(0); ok; i, ok = s.members.NextSet(i + 1) {
		result = append(result, int(i))
	}
	return result
}

// Members returns the member alleles in catalog order.
func (s *Set) Members() []Allele {
	indices := s.indices()
	result := make([]Allele, len(indices))
	for i, index := range indices {
		result[i] = s.catalog[index]
	}
	return result
}

// Names returns the member names in catalog order.
func (s *Set) Names() []string {
	indices := s.indices()
	result := make([]string, len(indices))
	for i, index := range indices {
		result[i] = s.catalog[index].Name
	}
	return result
}

// Has returns true if an allele with the given name is a member.
func (s *Set) Has(name string) bool {
	i, ok := s.index[name]
	return ok && s.members.Test(uint(i))
}

// CountPresent returns how many of the given names are members.
func (s *Set) CountPresent(names []string) (n int) {
	for _, name := range names {
		if s.Has(name) {
			n++
		}
	}
	return
}

// Genes returns the genes of the members, sorted.
func (s *Set) Genes() []string {
	seen := make(map[string]bool)
	var result []string
	for _, index := range s.indices() {
		if gene := s.catalog[index].Gene; !seen[gene] {
			seen[gene] = true
			result = append(result, gene)
		}
	}
	sort.Strings(result)
	return result
}

// ByGene returns the members grouped by gene, each group in catalog
// order.
func (s *Set) ByGene() map[string][]Allele {
	result := make(map[string][]Allele)
	for _, index := range s.indices() {
		a := s.catalog[index]
		result[a.Gene] = append(result[a.Gene], a)
	}
	return result
}

// Filter returns the members for which keep returns true. keep is
// called concurrently and must not modify the allele.
func (s *Set) Filter(keep func(a *Allele) bool) *Set {
	indices := s.indices()
	flags := make([]bool, len(indices))
	parallel.Range(0, len(indices), 0, func(low, high int) {
		for i := low; i < high; i++ {
			flags[i] = keep(&s.catalog[indices[i]])
		}
	})
	members := bitset.New(uint(len(s.catalog)))
	for i, index := range indices {
		if flags[i] {
			members.Set(uint(index))
		}
	}
	return &Set{catalog: s.catalog, index: s.index, members: members}
}

// Restrict returns the members whose name is in names.
func (s *Set) Restrict(names []string) *Set {
	members := bitset.New(uint(len(s.catalog)))
	for _, name := range names {
		if i, ok := s.index[name]; ok && s.members.Test(uint(i)) {
			members.Set(uint(i))
		}
	}
	return &Set{catalog: s.catalog, index: s.index, members: members}
}
