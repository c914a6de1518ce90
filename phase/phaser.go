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

package phase

import (
	"context"
	"sort"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elhla/intervals"
	"github.com/exascience/elhla/locus"
)

// Options control how evidence is built from fragments.
type Options struct {
	// MinQuality is the lowest base quality an observation needs to
	// count.
	MinQuality byte

	// MinCount is the lowest number of fragments a haplotype needs to
	// be kept.
	MinCount int

	// Noise lists positions that are never phased.
	Noise []intervals.Interval

	// NearestOnly restricts extension to the closest heterozygous
	// position on either side of the extent.
	NearestOnly bool
}

// An EvidenceSet holds evidence by value, keyed by Evidence.Key.
type EvidenceSet map[string]*Evidence

// Has returns true if an equal evidence value is in the set.
func (set EvidenceSet) Has(e *Evidence) bool {
	_, ok := set[e.key]
	return ok
}

// Add inserts e, returning false if an equal value was present.
func (set EvidenceSet) Add(e *Evidence) bool {
	if _, ok := set[e.key]; ok {
		return false
	}
	set[e.key] = e
	return true
}

// Sorted returns the members in canonical order.
func (set EvidenceSet) Sorted() []*Evidence {
	result := make([]*Evidence, 0, len(set))
	for _, e := range set {
		result = append(result, e)
	}
	Sort(result)
	return result
}

// A Phaser builds evidence over a fixed set of heterozygous positions.
type Phaser struct {
	opts      Options
	positions []int
	fragments []*locus.Fragment

	// fragment indices covering each position with enough quality
	coverage map[int][]int
}

// NewPhaser returns a Phaser over the given heterozygous positions,
// which need not be sorted. Positions in a noise interval are dropped.
func NewPhaser(opts Options, positions []int, fragments []*locus.Fragment) *Phaser {
	opts.Noise = intervals.Normalize(opts.Noise)
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	unique := sorted[:0]
	for i, p := range sorted {
		if (i == 0 || p != sorted[i-1]) && !intervals.Contains(opts.Noise, p) {
			unique = append(unique, p)
		}
	}
	p := &Phaser{
		opts:      opts,
		positions: unique,
		fragments: fragments,
		coverage:  make(map[int][]int, len(unique)),
	}
	for _, position := range unique {
		for i, f := range fragments {
			if _, ok := f.QualifiedSymbolAt(position, opts.MinQuality); ok {
				p.coverage[position] = append(p.coverage[position], i)
			}
		}
	}
	return p
}

// Positions returns the heterozygous positions in ascending order.
func (p *Phaser) Positions() []int {
	return p.positions
}

// evidenceAt counts the haplotypes of all fragments covering every
// given position, drops those seen on fewer than MinCount fragments,
// and returns false unless at least two haplotypes remain.
func (p *Phaser) evidenceAt(positions []int) (*Evidence, bool) {
	smallest := p.coverage[positions[0]]
	for _, position := range positions[1:] {
		if c := p.coverage[position]; len(c) < len(smallest) {
			smallest = c
		}
	}
	if len(smallest) < 2*p.opts.MinCount {
		return nil, false
	}
	counts := make(map[string]int)
	for _, i := range smallest {
		if haplotype, ok := p.fragments[i].HaplotypeAt(positions, p.opts.MinQuality); ok {
			counts[haplotype]++
		}
	}
	for haplotype, n := range counts {
		if n < p.opts.MinCount {
			delete(counts, haplotype)
		}
	}
	if len(counts) < 2 {
		return nil, false
	}
	return mustEvidence(positions, counts), true
}

// InitialEvidence returns, in canonical order, one single-position
// evidence per heterozygous position where at least two symbols are
// each carried by MinCount fragments.
func (p *Phaser) InitialEvidence() []*Evidence {
	var result []*Evidence
	for _, position := range p.positions {
		if e, ok := p.evidenceAt([]int{position}); ok {
			result = append(result, e)
		}
	}
	Sort(result)
	return result
}

func (p *Phaser) extensionCandidates(e *Evidence) []int {
	var result []int
	if p.opts.NearestOnly {
		first, last := e.positions[0], e.positions[len(e.positions)-1]
		left, right := -1, -1
		for _, position := range p.positions {
			if e.indexOf(position) >= 0 {
				continue
			}
			if position < first {
				left = position
			} else if position > last && right < 0 {
				right = position
			}
		}
		if left >= 0 {
			result = append(result, left)
		}
		if right >= 0 {
			result = append(result, right)
		}
		return result
	}
	for _, position := range p.positions {
		if e.indexOf(position) < 0 {
			result = append(result, position)
		}
	}
	return result
}

// ExtendEvidence tries to add each other heterozygous position to the
// extent of e, and returns in canonical order the resulting evidence
// that is not already in seen.
func (p *Phaser) ExtendEvidence(e *Evidence, seen EvidenceSet) []*Evidence {
	candidates := p.extensionCandidates(e)
	if len(candidates) == 0 {
		return nil
	}
	result := parallel.RangeReduce(0, len(candidates), 0, func(low, high int) interface{} {
		var extended []*Evidence
		for _, position := range candidates[low:high] {
			next, ok := p.evidenceAt(unionPositions(e.positions, []int{position}))
			if ok && !seen.Has(next) {
				extended = append(extended, next)
			}
		}
		return extended
	}, func(left, right interface{}) interface{} {
		return append(left.([]*Evidence), right.([]*Evidence)...)
	}).([]*Evidence)
	Sort(result)
	return result
}

// searchState is the accumulator of the evidence search. A step takes
// ownership of the state it is given.
type searchState struct {
	seen  EvidenceSet
	queue []*Evidence
}

func mergeSorted(a, b []*Evidence) []*Evidence {
	result := make([]*Evidence, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if Less(b[j], a[i]) {
			result = append(result, b[j])
			j++
		} else {
			result = append(result, a[i])
			i++
		}
	}
	result = append(result, a[i:]...)
	return append(result, b[j:]...)
}

func (p *Phaser) step(state searchState) searchState {
	head := state.queue[0]
	state.seen.Add(head)
	var fresh []*Evidence
	for _, e := range p.ExtendEvidence(head, state.seen) {
		if state.seen.Add(e) {
			fresh = append(fresh, e)
		}
	}
	return searchState{seen: state.seen, queue: mergeSorted(state.queue[1:], fresh)}
}

// Search grows the initial evidence until no extension yields new
// evidence, and returns everything found. The context is only checked
// between rounds; when it is done, Search returns the evidence found so
// far together with the context error.
func (p *Phaser) Search(ctx context.Context) (EvidenceSet, error) {
	initial := p.InitialEvidence()
	state := searchState{seen: make(EvidenceSet), queue: initial}
	for _, e := range initial {
		state.seen.Add(e)
	}
	for len(state.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return state.seen, err
		}
		state = p.step(state)
	}
	return state.seen, nil
}

// FullEvidence runs Search and keeps only the evidence that is not
// subsumed by other evidence.
func (p *Phaser) FullEvidence(ctx context.Context) ([]*Evidence, error) {
	all, err := p.Search(ctx)
	return LongestFullEvidence(all.Sorted()), err
}

// LongestFullEvidence removes all evidence contained in other evidence
// of the list, and returns the rest sorted by first position.
func LongestFullEvidence(evidence []*Evidence) []*Evidence {
	keep := make([]bool, len(evidence))
	parallel.Range(0, len(evidence), 0, func(low, high int) {
		for i := low; i < high; i++ {
			keep[i] = true
			for j, other := range evidence {
				if i != j && other.Contains(evidence[i]) {
					keep[i] = false
					break
				}
			}
		}
	})
	result := make([]*Evidence, 0, len(evidence))
	unique := make(EvidenceSet)
	for i, e := range evidence {
		if keep[i] && unique.Add(e) {
			result = append(result, e)
		}
	}
	Sort(result)
	return result
}
