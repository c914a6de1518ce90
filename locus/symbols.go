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

// Package locus models per-locus read observations: symbols,
// qualities, and fragments built from the reads sharing one name.
package locus

const (
	// Wildcard marks a position without information. It matches any
	// symbol during candidate filtering.
	Wildcard byte = '*'

	// Stop is the amino-acid symbol for a stop codon.
	Stop byte = 'X'
)

// IsWildcard returns true if the given catalog symbol carries no
// information.
func IsWildcard(symbol byte) bool {
	return symbol == Wildcard
}

// SymbolOf returns the symbol of sequence at position, or Wildcard if
// the sequence is too short.
func SymbolOf(sequence []byte, position int) byte {
	if position < 0 || position >= len(sequence) {
		return Wildcard
	}
	return sequence[position]
}

// Matches reports whether a catalog symbol accepts an observed symbol.
func Matches(catalogSymbol, observed byte) bool {
	return IsWildcard(catalogSymbol) || catalogSymbol == observed
}

var complementTable = [256]byte{
	'A': 'T', 'a': 't',
	'C': 'G', 'c': 'g',
	'G': 'C', 'g': 'c',
	'T': 'A', 't': 'a',
	'N': 'N', 'n': 'n',
}

// Complement returns the complementary nucleotide. Unknown symbols
// become N.
func Complement(base byte) byte {
	if c := complementTable[base]; c != 0 {
		return c
	}
	return 'N'
}
