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

// DefaultMaxHaplotypes bounds the haplotypes of consolidated evidence:
// two alleles for each of three genes.
const DefaultMaxHaplotypes = 6

// DefaultConsolidationRounds is the number of Consolidate passes after
// which merges have propagated across overlapping evidence.
const DefaultConsolidationRounds = 5

// ConsolidateOptions control evidence consolidation.
type ConsolidateOptions struct {
	MaxHaplotypes int
	Rounds        int
	Policy        SupportPolicy
}

// DefaultConsolidateOptions returns the default consolidation settings.
func DefaultConsolidateOptions() ConsolidateOptions {
	return ConsolidateOptions{
		MaxHaplotypes: DefaultMaxHaplotypes,
		Rounds:        DefaultConsolidationRounds,
		Policy:        SupportMin,
	}
}

// Consolidate merges every pair of overlapping evidence whose
// combination has at most MaxHaplotypes haplotypes. It returns the
// given evidence together with all such merges, without duplicates,
// sorted by first position.
func Consolidate(evidence []*Evidence, opts ConsolidateOptions) []*Evidence {
	unique := make(EvidenceSet, len(evidence))
	var input []*Evidence
	for _, e := range evidence {
		if unique.Add(e) {
			input = append(input, e)
		}
	}
	for i := range input {
		for j := i + 1; j < len(input); j++ {
			if !input[i].Overlaps(input[j]) {
				continue
			}
			if combined, ok := Combine(input[i], input[j], opts.Policy); ok && combined.Len() <= opts.MaxHaplotypes {
				unique.Add(combined)
			}
		}
	}
	return unique.Sorted()
}

// ConsolidateRounds applies Consolidate opts.Rounds times and then
// removes subsumed evidence.
func ConsolidateRounds(evidence []*Evidence, opts ConsolidateOptions) []*Evidence {
	for round := 0; round < opts.Rounds; round++ {
		evidence = Consolidate(evidence, opts)
	}
	return LongestFullEvidence(evidence)
}
