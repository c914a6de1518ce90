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

// Package phase builds phased evidence: sets of positions together
// with the symbol combinations that fragments show to co-occur on one
// haplotype there.
package phase

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// ErrInvalidEvidence is returned when evidence would violate its
// structural invariants.
var ErrInvalidEvidence = errors.New("invalid phased evidence")

// Evidence is an immutable claim that, at the positions of its extent,
// each of its haplotype strings was observed on the given number of
// fragments.
type Evidence struct {
	positions  []int
	extent     *bitset.BitSet
	haplotypes map[string]int
	sorted     []string
	key        string
}

// NewEvidence validates and copies its inputs. Positions must be
// strictly ascending and non-negative, there must be at least one
// haplotype, every haplotype must have one symbol per position, and
// every support must be positive.
func NewEvidence(positions []int, haplotypes map[string]int) (*Evidence, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: empty extent", ErrInvalidEvidence)
	}
	if len(haplotypes) == 0 {
		return nil, fmt.Errorf("%w: no haplotypes at %v", ErrInvalidEvidence, positions)
	}
	e := &Evidence{
		positions:  append([]int(nil), positions...),
		extent:     bitset.New(uint(positions[len(positions)-1] + 1)),
		haplotypes: make(map[string]int, len(haplotypes)),
		sorted:     make([]string, 0, len(haplotypes)),
	}
	for i, p := range positions {
		if p < 0 || (i > 0 && p <= positions[i-1]) {
			return nil, fmt.Errorf("%w: positions %v not strictly ascending", ErrInvalidEvidence, positions)
		}
		e.extent.Set(uint(p))
	}
	for haplotype, support := range haplotypes {
		if len(haplotype) != len(positions) {
			return nil, fmt.Errorf("%w: haplotype %v does not match extent %v", ErrInvalidEvidence, haplotype, positions)
		}
		if support <= 0 {
			return nil, fmt.Errorf("%w: haplotype %v has support %v", ErrInvalidEvidence, haplotype, support)
		}
		e.haplotypes[haplotype] = support
		e.sorted = append(e.sorted, haplotype)
	}
	sort.Strings(e.sorted)
	e.key = e.makeKey()
	return e, nil
}

func mustEvidence(positions []int, haplotypes map[string]int) *Evidence {
	e, err := NewEvidence(positions, haplotypes)
	if err != nil {
		log.Panic(err)
	}
	return e
}

func (e *Evidence) makeKey() string {
	var b strings.Builder
	for i, p := range e.positions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p))
	}
	b.WriteByte('|')
	for i, haplotype := range e.sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(haplotype)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(e.haplotypes[haplotype]))
	}
	return b.String()
}

// Key returns a canonical serialization. Two Evidence values are equal
// if and only if their keys are equal.
func (e *Evidence) Key() string {
	return e.key
}

func (e *Evidence) String() string {
	return e.key
}

// Positions returns the extent in ascending order. The result must not
// be modified.
func (e *Evidence) Positions() []int {
	return e.positions
}

// First returns the lowest position of the extent.
func (e *Evidence) First() int {
	return e.positions[0]
}

// Haplotypes returns the haplotype strings in ascending order. The
// result must not be modified.
func (e *Evidence) Haplotypes() []string {
	return e.sorted
}

// Support returns the number of fragments backing haplotype.
func (e *Evidence) Support(haplotype string) int {
	return e.haplotypes[haplotype]
}

// TotalSupport returns the sum of all haplotype supports.
func (e *Evidence) TotalSupport() (total int) {
	for _, support := range e.haplotypes {
		total += support
	}
	return
}

// Len returns the number of distinct haplotypes.
func (e *Evidence) Len() int {
	return len(e.haplotypes)
}

// Less is the canonical order on evidence: by first position, then by
// extent length, then by the sorted haplotype strings, and finally by
// key, which makes the order total.
func Less(a, b *Evidence) bool {
	if a.positions[0] != b.positions[0] {
		return a.positions[0] < b.positions[0]
	}
	if len(a.positions) != len(b.positions) {
		return len(a.positions) < len(b.positions)
	}
	for i := 0; i < len(a.sorted) && i < len(b.sorted); i++ {
		if a.sorted[i] != b.sorted[i] {
			return a.sorted[i] < b.sorted[i]
		}
	}
	if len(a.sorted) != len(b.sorted) {
		return len(a.sorted) < len(b.sorted)
	}
	return a.key < b.key
}

// Sort sorts evidence in canonical order.
func Sort(evidence []*Evidence) {
	sort.Slice(evidence, func(i, j int) bool {
		return Less(evidence[i], evidence[j])
	})
}

// Overlaps returns true if the extents share at least one position.
func (e *Evidence) Overlaps(other *Evidence) bool {
	return e.extent.IntersectionCardinality(other.extent) > 0
}

func (e *Evidence) indexOf(position int) int {
	i := sort.SearchInts(e.positions, position)
	if i < len(e.positions) && e.positions[i] == position {
		return i
	}
	return -1
}

// project returns the haplotypes of e restricted to the given subset of
// its extent.
func (e *Evidence) project(positions []int) map[string]bool {
	indices := make([]int, len(positions))
	for i, p := range positions {
		indices[i] = e.indexOf(p)
	}
	result := make(map[string]bool, len(e.sorted))
	buf := make([]byte, len(indices))
	for _, haplotype := range e.sorted {
		for i, index := range indices {
			buf[i] = haplotype[index]
		}
		result[string(buf)] = true
	}
	return result
}

// Contains returns true if victim adds no information to e: the extent
// of victim is a subset of the extent of e, and every haplotype of
// victim reappears when the haplotypes of e are restricted to that
// subset. For equal extents, only the evidence with more haplotypes,
// or else the canonically first one, contains the other.
func (e *Evidence) Contains(victim *Evidence) bool {
	if e == victim || e.key == victim.key {
		return false
	}
	if len(victim.positions) > len(e.positions) || !e.extent.IsSuperSet(victim.extent) {
		return false
	}
	projected := e.project(victim.positions)
	for _, haplotype := range victim.sorted {
		if !projected[haplotype] {
			return false
		}
	}
	if len(victim.positions) == len(e.positions) && len(victim.sorted) == len(e.sorted) {
		return Less(e, victim)
	}
	return true
}

// A SupportPolicy combines the supports of two haplotypes that agree on
// the overlap of two evidence extents.
type SupportPolicy int

const (
	// SupportMin keeps the lower of the two supports: a merged
	// haplotype is never better supported than its weakest half.
	SupportMin SupportPolicy = iota

	// SupportSum adds both supports.
	SupportSum
)

func (policy SupportPolicy) String() string {
	switch policy {
	case SupportMin:
		return "min"
	case SupportSum:
		return "sum"
	default:
		return "SupportPolicy(" + strconv.Itoa(int(policy)) + ")"
	}
}

// ParseSupportPolicy parses "min" or "sum".
func ParseSupportPolicy(s string) (SupportPolicy, error) {
	switch strings.ToLower(s) {
	case "", "min":
		return SupportMin, nil
	case "sum":
		return SupportSum, nil
	default:
		return SupportMin, fmt.Errorf("unknown support policy %v", s)
	}
}

func (policy SupportPolicy) combine(left, right int) int {
	if policy == SupportSum {
		return left + right
	}
	if left < right {
		return left
	}
	return right
}

func unionPositions(a, b []int) []int {
	result := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			result = append(result, a[i])
			i++
		case a[i] > b[j]:
			result = append(result, b[j])
			j++
		default:
			result = append(result, a[i])
			i++
			j++
		}
	}
	result = append(result, a[i:]...)
	return append(result, b[j:]...)
}

// Combine merges two overlapping evidence values. The extent of the
// result is the union of both extents. Every pair of haplotypes that
// agree on the shared positions yields one combined haplotype, with the
// two supports combined by policy. Combine returns false if no pair of
// haplotypes agrees.
func Combine(left, right *Evidence, policy SupportPolicy) (*Evidence, bool) {
	union := unionPositions(left.positions, right.positions)
	type source struct {
		fromLeft bool
		index    int
	}
	sources := make([]source, len(union))
	var shared [][2]int
	for i, p := range union {
		li, ri := left.indexOf(p), right.indexOf(p)
		switch {
		case li >= 0 && ri >= 0:
			shared = append(shared, [2]int{li, ri})
			sources[i] = source{true, li}
		case li >= 0:
			sources[i] = source{true, li}
		default:
			sources[i] = source{false, ri}
		}
	}
	haplotypes := make(map[string]int)
	buf := make([]byte, len(union))
	for _, lh := range left.sorted {
	rightLoop:
		for _, rh := range right.sorted {
			for _, s := range shared {
				if lh[s[0]] != rh[s[1]] {
					continue rightLoop
				}
			}
			for i, s := range sources {
				if s.fromLeft {
					buf[i] = lh[s.index]
				} else {
					buf[i] = rh[s.index]
				}
			}
			haplotypes[string(buf)] = policy.combine(left.haplotypes[lh], right.haplotypes[rh])
		}
	}
	if len(haplotypes) == 0 {
		return nil, false
	}
	return mustEvidence(union, haplotypes), true
}
