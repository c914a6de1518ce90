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

package genotype

import (
	"context"
	"log"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elhla/candidates"
	"github.com/exascience/elhla/cna"
	"github.com/exascience/elhla/count"
	"github.com/exascience/elhla/fasta"
	"github.com/exascience/elhla/locus"
	"github.com/exascience/elhla/phase"
)

// Result holds everything a typing run computes.
type Result struct {
	AminoAcidFragments []*locus.Fragment
	NucleotideCounts   *count.PositionCount
	AminoAcidCounts    *count.PositionCount

	// heterozygous amino-acid positions used for phasing
	Heterozygous []int

	FullEvidence         []*phase.Evidence
	ConsolidatedEvidence []*phase.Evidence

	InitialCandidates *candidates.Set
	Candidates        *candidates.Set

	// fragments supporting each final candidate at the heterozygous
	// positions
	Coverage map[string]int
}

// LoadCatalog reads a FASTA catalog, inflates it against its first
// sequence, and keeps one allele per four digit name.
func LoadCatalog(filename string) ([]candidates.Allele, error) {
	records, err := fasta.ReadCatalogFile(filename)
	if err != nil {
		return nil, err
	}
	catalog := make([]candidates.Allele, len(records))
	for i, record := range records {
		catalog[i] = candidates.NewAllele(record.Name, record.Sequence)
	}
	return candidates.ReduceToFourDigits(candidates.Inflate(catalog)), nil
}

// TranslateAll translates nucleotide fragments to amino-acid
// fragments, dropping fragments without a complete codon.
func TranslateAll(fragments []*locus.Fragment) []*locus.Fragment {
	translated := make([]*locus.Fragment, len(fragments))
	parallel.Range(0, len(fragments), 0, func(low, high int) {
		for i := low; i < high; i++ {
			translated[i] = locus.Translate(fragments[i])
		}
	})
	result := translated[:0]
	for _, f := range translated {
		if f.Len() > 0 {
			result = append(result, f)
		}
	}
	return result
}

func without(positions, excluded []int) []int {
	skip := make(map[int]bool, len(excluded))
	for _, p := range excluded {
		skip[p] = true
	}
	var result []int
	for _, p := range positions {
		if !skip[p] {
			result = append(result, p)
		}
	}
	return result
}

type run struct {
	params Params
	logger *log.Logger
}

func (r *run) report(step string, set *candidates.Set) {
	if len(r.params.ExpectedAlleles) > 0 {
		r.logger.Printf("%v candidates after %v, %v of %v expected alleles present",
			set.Len(), step, set.CountPresent(r.params.ExpectedAlleles), len(r.params.ExpectedAlleles))
	} else {
		r.logger.Printf("%v candidates after %v", set.Len(), step)
	}
}

func (r *run) initialCandidates(aminoAcidCatalog, nucleotideCatalog []candidates.Allele, result *Result) (*candidates.Set, error) {
	minCount := r.params.MinEvidence
	aminoAcids, err := candidates.NewSet(aminoAcidCatalog)
	if err != nil {
		return nil, err
	}
	if len(r.params.RestrictedAlleles) > 0 {
		aminoAcids = aminoAcids.Restrict(r.params.RestrictedAlleles)
		r.report("restriction", aminoAcids)
	}
	if len(nucleotideCatalog) > 0 {
		nucleotides, err := candidates.NewSet(nucleotideCatalog)
		if err != nil {
			return nil, err
		}
		nucleotides = candidates.InitialCandidates(nucleotides, result.NucleotideCounts, nil, r.params.NucleotideWindow, minCount)
		r.report("nucleotide filtering", nucleotides)
		aminoAcids = aminoAcids.Restrict(nucleotides.Names())
	}
	aminoAcids = candidates.InitialCandidates(aminoAcids, result.AminoAcidCounts, r.params.ExcludedPositions, r.params.AminoAcidWindow, minCount)
	r.report("amino acid filtering", aminoAcids)
	return aminoAcids, nil
}

func (r *run) match(set *candidates.Set, evidence []*phase.Evidence, step string) *candidates.Set {
	set = candidates.MatchAll(set, evidence, func(i int, e *phase.Evidence, narrowed *candidates.Set) {
		r.logger.Printf("%v -> %v candidates -> %v", i, narrowed.Len(), e)
	})
	r.report(step, set)
	return set
}

// Run types the given nucleotide fragments against the amino-acid
// catalog. If the nucleotide catalog is not empty, it pre-filters the
// amino-acid candidates by name. The context is checked between
// rounds of the evidence search; on cancellation, Run returns the
// partial result together with the context error. A nil logger logs to
// log.Default().
func Run(ctx context.Context, params Params, fragments []*locus.Fragment, aminoAcidCatalog, nucleotideCatalog []candidates.Allele, logger *log.Logger) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &run{params: params, logger: logger}
	minQuality := byte(params.MinBaseQuality)

	result := &Result{AminoAcidFragments: TranslateAll(fragments)}
	result.NucleotideCounts = count.Build(fragments, minQuality)
	result.AminoAcidCounts = count.Build(result.AminoAcidFragments, minQuality)
	logger.Printf("%v fragments, %v with amino acids", len(fragments), len(result.AminoAcidFragments))

	set, err := r.initialCandidates(aminoAcidCatalog, nucleotideCatalog, result)
	if err != nil {
		return nil, err
	}
	result.InitialCandidates = set
	result.Candidates = set

	heterozygous := without(result.AminoAcidCounts.HeterozygousIndices(params.MinEvidence), params.PhasingExcluded)
	phaser := phase.NewPhaser(params.PhaseOptions(), heterozygous, result.AminoAcidFragments)
	result.Heterozygous = phaser.Positions()
	logger.Printf("Heterozygous positions %v, phasing %v", heterozygous, result.Heterozygous)

	result.FullEvidence, err = phaser.FullEvidence(ctx)
	if err != nil {
		return result, err
	}
	logger.Printf("Constructed %v fully matched sequences", len(result.FullEvidence))
	set = r.match(set, result.FullEvidence, "full match filtering")

	result.ConsolidatedEvidence = phase.ConsolidateRounds(result.FullEvidence, params.ConsolidateOptions())
	logger.Printf("Consolidated into %v sequences", len(result.ConsolidatedEvidence))
	set = r.match(set, result.ConsolidatedEvidence, "partial match filtering")
	result.Candidates = set

	groups := set.ByGene()
	for _, gene := range set.Genes() {
		if n := len(groups[gene]); n > 2 {
			logger.Printf("Unresolved gene %v: %v candidates", gene, n)
		}
	}
	if set.Len() == 0 {
		logger.Println("No candidates left")
	}

	result.Coverage = candidates.Coverage(set, result.AminoAcidFragments, result.Heterozygous, minQuality)
	return result, nil
}

// AlleleCoverage returns the coverage of the final candidates, in
// catalog order.
func (result *Result) AlleleCoverage() []cna.AlleleCoverage {
	members := result.Candidates.Members()
	coverage := make([]cna.AlleleCoverage, len(members))
	for i, a := range members {
		coverage[i] = cna.AlleleCoverage{Allele: a.Name, Gene: a.Gene, Coverage: result.Coverage[a.Name]}
	}
	return coverage
}

// CopyNumbers attributes the gene copy numbers to the final
// candidates. Without gene copy numbers, all are zero.
func (result *Result) CopyNumbers(genes map[string]cna.GeneCopyNumber) []cna.AlleleCopyNumber {
	return cna.AlleleCopyNumbers(result.AlleleCoverage(), genes)
}
