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

// Package report writes the results of a typing run.
package report

import (
	"bufio"
	"fmt"
	"io"

	linq "github.com/ahmetb/go-linq"

	"github.com/exascience/elhla/candidates"
	"github.com/exascience/elhla/cna"
	"github.com/exascience/elhla/fasta"
	"github.com/exascience/elhla/utils"
)

// WriteHeader writes a comment line identifying the program and run.
func WriteHeader(w io.Writer, runID string) error {
	_, err := fmt.Fprintf(w, "## %v %v run=%v\n", utils.ProgramName, utils.ProgramVersion, runID)
	return err
}

// A CandidateRow describes one surviving allele.
type CandidateRow struct {
	Gene       string
	Allele     string
	Coverage   int
	CopyNumber float64
}

// CandidateRows combines the members of set with their coverage and
// copy number, in catalog order.
func CandidateRows(set *candidates.Set, coverage map[string]int, copyNumbers []cna.AlleleCopyNumber) []CandidateRow {
	cn := make(map[string]float64, len(copyNumbers))
	for _, c := range copyNumbers {
		cn[c.Allele] = c.CopyNumber
	}
	members := set.Members()
	rows := make([]CandidateRow, len(members))
	for i, a := range members {
		rows[i] = CandidateRow{Gene: a.Gene, Allele: a.Name, Coverage: coverage[a.Name], CopyNumber: cn[a.Name]}
	}
	return rows
}

// GroupByGene returns the rows grouped by gene, genes in ascending
// order, rows within a gene in input order.
func GroupByGene(rows []CandidateRow) []linq.Group {
	var groups []linq.Group
	linq.From(rows).GroupByT(
		func(row CandidateRow) string { return row.Gene },
		func(row CandidateRow) CandidateRow { return row },
	).OrderByT(
		func(group linq.Group) string { return group.Key.(string) },
	).ToSlice(&groups)
	return groups
}

// WriteCandidates writes a tab-separated candidate table grouped by
// gene. Each gene starts with a comment line giving its number of
// candidates.
func WriteCandidates(w io.Writer, runID string, rows []CandidateRow) error {
	out := bufio.NewWriter(w)
	if err := WriteHeader(out, runID); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, "gene\tallele\tcoverage\tcopyNumber"); err != nil {
		return err
	}
	for _, group := range GroupByGene(rows) {
		if _, err := fmt.Fprintf(out, "# %v\t%v\n", group.Key, len(group.Group)); err != nil {
			return err
		}
		for _, value := range group.Group {
			row := value.(CandidateRow)
			if _, err := fmt.Fprintf(out, "%v\t%v\t%v\t%.3f\n", row.Gene, row.Allele, row.Coverage, row.CopyNumber); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}

// WriteCopyNumbers writes a tab-separated table of allele copy numbers.
func WriteCopyNumbers(w io.Writer, runID string, copyNumbers []cna.AlleleCopyNumber) error {
	out := bufio.NewWriter(w)
	if err := WriteHeader(out, runID); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, "gene\tallele\tcopyNumber"); err != nil {
		return err
	}
	for _, c := range copyNumbers {
		if _, err := fmt.Fprintf(out, "%v\t%v\t%.3f\n", c.Gene, c.Allele, c.CopyNumber); err != nil {
			return err
		}
	}
	return out.Flush()
}

// WriteCandidateFasta writes the sequences of the given alleles,
// deflated against the first one.
func WriteCandidateFasta(w io.Writer, alleles []candidates.Allele) error {
	deflated := candidates.Deflate(alleles)
	records := make([]fasta.Record, len(deflated))
	for i, a := range deflated {
		records[i] = fasta.Record{Name: a.Name, Sequence: a.Sequence}
	}
	return fasta.WriteCatalog(w, records)
}
