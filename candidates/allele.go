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

// Package candidates resolves a reference allele catalog against
// position counts and phased evidence.
package candidates

import (
	"strings"

	"github.com/exascience/elhla/locus"
	"github.com/exascience/elhla/phase"
)

const (
	// SameAsReference marks, in a deflated catalog, a symbol equal to
	// the symbol of the first sequence.
	SameAsReference byte = '-'

	// Gap marks an alignment gap in catalog sequences.
	Gap byte = '.'
)

// An Allele is a named reference sequence. Positions past the end of
// the sequence are wildcards.
type Allele struct {
	Name     string
	Gene     string
	Sequence []byte
}

// NewAllele returns an allele with its gene derived from the name, as
// in "A" for "A*01:01:01:01" or "HLA-A*01:01".
func NewAllele(name string, sequence []byte) Allele {
	name = strings.TrimPrefix(name, "HLA-")
	gene, _, _ := strings.Cut(name, "*")
	return Allele{Name: name, Gene: gene, Sequence: sequence}
}

// SymbolAt returns the symbol at position, or locus.Wildcard past the
// end of the sequence.
func (a *Allele) SymbolAt(position int) byte {
	return locus.SymbolOf(a.Sequence, position)
}

// FourDigitName returns the first two fields of the allele name, as in
// "A*01:01" for "A*01:01:01:01".
func (a *Allele) FourDigitName() string {
	fields := strings.SplitN(a.Name, ":", 3)
	if len(fields) < 2 {
		return a.Name
	}
	return fields[0] + ":" + fields[1]
}

// MatchesHaplotype returns true if, at every given position, the allele
// has a wildcard or the symbol of haplotype at the same index.
func (a *Allele) MatchesHaplotype(positions []int, haplotype string) bool {
	for i, p := range positions {
		if !locus.Matches(a.SymbolAt(p), haplotype[i]) {
			return false
		}
	}
	return true
}

// ConsistentWith returns true if the allele matches at least one
// haplotype of the evidence. Wildcards match any symbol, so partial
// catalog information never excludes an allele.
func (a *Allele) ConsistentWith(e *phase.Evidence) bool {
	positions := e.Positions()
	for _, haplotype := range e.Haplotypes() {
		if a.MatchesHaplotype(positions, haplotype) {
			return true
		}
	}
	return false
}

// ReduceToFourDigits keeps the first allele of each four digit name,
// in catalog order.
func ReduceToFourDigits(catalog []Allele) []Allele {
	seen := make(map[string]bool, len(catalog))
	var result []Allele
	for _, a := range catalog {
		if name := a.FourDigitName(); !seen[name] {
			seen[name] = true
			result = append(result, a)
		}
	}
	return result
}

// Inflate replaces every SameAsReference symbol by the symbol of the
// first sequence of the catalog at the same position, or a wildcard
// where the first sequence is too short. The first sequence is kept as
// is.
func Inflate(catalog []Allele) []Allele {
	if len(catalog) == 0 {
		return nil
	}
	reference := catalog[0].Sequence
	result := make([]Allele, len(catalog))
	result[0] = catalog[0]
	for i := 1; i < len(catalog); i++ {
		a := catalog[i]
		sequence := make([]byte, len(a.Sequence))
		for p, symbol := range a.Sequence {
			if symbol == SameAsReference {
				symbol = locus.SymbolOf(reference, p)
			}
			sequence[p] = symbol
		}
		a.Sequence = sequence
		result[i] = a
	}
	return result
}

// Deflate is the inverse of Inflate: every symbol equal to the symbol
// of the first sequence becomes SameAsReference. Wildcards and gaps
// are kept.
func Deflate(catalog []Allele) []Allele {
	if len(catalog) == 0 {
		return nil
	}
	reference := catalog[0].Sequence
	result := make([]Allele, len(catalog))
	result[0] = catalog[0]
	for i := 1; i < len(catalog); i++ {
		a := catalog[i]
		sequence := make([]byte, len(a.Sequence))
		for p, symbol := range a.Sequence {
			if symbol != locus.Wildcard && symbol != Gap && p < len(reference) && reference[p] == symbol {
				symbol = SameAsReference
			}
			sequence[p] = symbol
		}
		a.Sequence = sequence
		result[i] = a
	}
	return result
}
