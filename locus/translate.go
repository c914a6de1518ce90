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

package locus

var codons = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"TAT": 'Y', "TAC": 'Y', "TAA": Stop, "TAG": Stop,
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"TGT": 'C', "TGC": 'C', "TGA": Stop, "TGG": 'W',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// Codon returns the amino acid encoded by three nucleotides, and false
// for codons containing N or other non-ACGT symbols.
func Codon(b1, b2, b3 byte) (byte, bool) {
	aa, ok := codons[string([]byte{b1, b2, b3})]
	return aa, ok
}

// Translate converts a fragment over nucleotide positions into one over
// amino-acid positions. An amino acid is observed only if all three
// bases of its codon are; its quality is the lowest of the three.
func Translate(f *Fragment) *Fragment {
	result := &Fragment{id: f.id}
	positions, observations := f.positions, f.observations
	for i := 0; i+2 < len(positions); {
		p := positions[i]
		if p%3 != 0 || positions[i+1] != p+1 || positions[i+2] != p+2 {
			i++
			continue
		}
		o1, o2, o3 := observations[i], observations[i+1], observations[i+2]
		if aa, ok := Codon(o1.Symbol, o2.Symbol, o3.Symbol); ok {
			quality := o1.Quality
			if o2.Quality < quality {
				quality = o2.Quality
			}
			if o3.Quality < quality {
				quality = o3.Quality
			}
			result.positions = append(result.positions, p/3)
			result.observations = append(result.observations, Observation{Symbol: aa, Quality: quality})
		}
		i += 3
	}
	return result
}
