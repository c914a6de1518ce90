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

// Package cna attributes gene copy numbers to the called alleles of
// each gene.
package cna

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/exascience/elhla/internal"
)

// GeneCopyNumber is the copy number of one gene, as reported by a copy
// number caller.
type GeneCopyNumber struct {
	Gene                     string
	MinCopyNumber            float64
	MinMinorAlleleCopyNumber float64
}

var geneCopyNumberColumns = []string{"gene", "minCopyNumber", "minMinorAlleleCopyNumber"}

// ReadGeneCopyNumbers reads a tab-separated gene copy number table with
// at least the columns gene, minCopyNumber and
// minMinorAlleleCopyNumber. Gene names lose an "HLA-" prefix.
func ReadGeneCopyNumbers(r io.Reader) (map[string]GeneCopyNumber, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, df.Err
	}
	df = df.Select(geneCopyNumberColumns)
	if df.Err != nil {
		return nil, fmt.Errorf("invalid gene copy number table: %w", df.Err)
	}
	genes := df.Col("gene").Records()
	minCopyNumbers := df.Col("minCopyNumber").Float()
	minMinor := df.Col("minMinorAlleleCopyNumber").Float()

	result := make(map[string]GeneCopyNumber, len(genes))
	for i, gene := range genes {
		gene = strings.TrimPrefix(gene, "HLA-")
		if math.IsNaN(minCopyNumbers[i]) || math.IsNaN(minMinor[i]) {
			return nil, fmt.Errorf("missing copy number for gene %v", gene)
		}
		result[gene] = GeneCopyNumber{
			Gene:                     gene,
			MinCopyNumber:            minCopyNumbers[i],
			MinMinorAlleleCopyNumber: minMinor[i],
		}
	}
	return result, nil
}

// ReadGeneCopyNumberFile reads a gene copy number table from a file.
func ReadGeneCopyNumberFile(filename string) (result map[string]GeneCopyNumber, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.CloseInto(f, &err)
	return ReadGeneCopyNumbers(bufio.NewReader(f))
}

// AlleleCoverage is the number of fragments supporting one allele.
type AlleleCoverage struct {
	Allele   string
	Gene     string
	Coverage int
}

// AlleleCopyNumber is the copy number attributed to one allele.
type AlleleCopyNumber struct {
	Allele     string
	Gene       string
	CopyNumber float64
}

// AlleleCopyNumbers attributes copy numbers to alleles, gene by gene,
// in the order of coverage. For a gene with exactly two alleles and a
// known copy number, the allele with the higher coverage, or the first
// one on a tie, receives the major copy number (minCopyNumber minus
// minMinorAlleleCopyNumber) and the other the minor copy number. All
// other alleles receive zero.
func AlleleCopyNumbers(coverage []AlleleCoverage, genes map[string]GeneCopyNumber) []AlleleCopyNumber {
	perGene := make(map[string][]int)
	for i, c := range coverage {
		perGene[c.Gene] = append(perGene[c.Gene], i)
	}
	result := make([]AlleleCopyNumber, len(coverage))
	for i, c := range coverage {
		result[i] = AlleleCopyNumber{Allele: c.Allele, Gene: c.Gene}
	}
	for gene, indices := range perGene {
		cn, ok := genes[gene]
		if !ok || len(indices) != 2 {
			continue
		}
		minor := cn.MinMinorAlleleCopyNumber
		major := cn.MinCopyNumber - minor
		first, second := indices[0], indices[1]
		if coverage[first].Coverage >= coverage[second].Coverage {
			result[first].CopyNumber, result[second].CopyNumber = major, minor
		} else {
			result[first].CopyNumber, result[second].CopyNumber = minor, major
		}
	}
	return result
}
