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
	"bytes"
	"sort"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elhla/count"
	"github.com/exascience/elhla/locus"
	"github.com/exascience/elhla/phase"
)

// WindowPositions returns the positions 0 .. min(window, length)-1
// that are not excluded, in ascending order.
func WindowPositions(window, length int, excluded []int) []int {
	if length < window {
		window = length
	}
	skip := make(map[int]bool, len(excluded))
	for _, p := range excluded {
		skip[p] = true
	}
	var result []int
	for p := 0; p < window; p++ {
		if !skip[p] {
			result = append(result, p)
		}
	}
	return result
}

// FilterPosition keeps the members whose symbol at position is a
// wildcard or one of the allowed symbols.
func FilterPosition(set *Set, position int, allowed []byte) *Set {
	return set.Filter(func(a *Allele) bool {
		symbol := a.SymbolAt(position)
		return locus.IsWildcard(symbol) || bytes.IndexByte(allowed, symbol) >= 0
	})
}

// InitialCandidates folds FilterPosition over every position of the
// window that is not excluded, allowing the symbols observed at least
// minCount times there. The constraints are intersected, so position
// order is irrelevant.
func InitialCandidates(set *Set, counts *count.PositionCount, excluded []int, window, minCount int) *Set {
	for _, p := range WindowPositions(window, counts.Length(), excluded) {
		if set.Len() == 0 {
			break
		}
		set = FilterPosition(set, p, counts.SequenceAt(p, minCount))
	}
	return set
}

// MatchingCandidates keeps the members consistent with the evidence.
func MatchingCandidates(set *Set, e *phase.Evidence) *Set {
	return set.Filter(func(a *Allele) bool {
		return a.ConsistentWith(e)
	})
}

// MatchAll folds MatchingCandidates over the evidence in the given
// order. If step is not nil, it is called after each block with the
// narrowed set.
func MatchAll(set *Set, evidence []*phase.Evidence, step func(i int, e *phase.Evidence, narrowed *Set)) *Set {
	for i, e := range evidence {
		set = MatchingCandidates(set, e)
		if step != nil {
			step(i, e, set)
		}
	}
	return set
}

// Coverage returns, for each member, the number of fragments that
// observe at least one of the positions with minQuality and match the
// allele at all of the positions they observe.
func Coverage(set *Set, fragments []*locus.Fragment, positions []int, minQuality byte) map[string]int {
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	indices := set.indices()
	counts := make([]int, len(indices))
	parallel.Range(0, len(indices), 0, func(low, high int) {
		for i := low; i < high; i++ {
			a := &set.catalog[indices[i]]
		fragmentLoop:
			for _, f := range fragments {
				observed := false
				for _, p := range sorted {
					symbol, ok := f.QualifiedSymbolAt(p, minQuality)
					if !ok {
						continue
					}
					if !locus.Matches(a.SymbolAt(p), symbol) {
						continue fragmentLoop
					}
					observed = true
				}
				if observed {
					counts[i]++
				}
			}
		}
	})
	result := make(map[string]int, len(indices))
	for i, index := range indices {
		result[set.catalog[index].Name] = counts[i]
	}
	return result
}
