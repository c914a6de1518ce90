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

// Package reads projects aligned reads onto locus coordinates.
package reads

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/elhla/internal"
	"github.com/exascience/elhla/intervals"
	"github.com/exascience/elhla/utils"
)

// A Locus is the coding sequence of one gene: the concatenation of its
// coding regions in transcript order.
type Locus struct {
	Gene   string
	Contig string

	// 0-based inclusive genome coordinates, ascending and disjoint
	Regions []intervals.Interval

	// Reverse is true for genes on the reverse strand, whose
	// transcript order is descending in genome coordinates.
	Reverse bool
}

// Length returns the number of coding nucleotides.
func (l *Locus) Length() int {
	return intervals.Length(l.Regions)
}

// Offset returns the index in the coding sequence of the given genome
// position, or false if the position is not coding.
func (l *Locus) Offset(position int) (int, bool) {
	if !intervals.Contains(l.Regions, position) {
		return 0, false
	}
	if !l.Reverse {
		upTo := intervals.Intersect(l.Regions, math.MinInt, position)
		return intervals.Length(upTo) - (upTo[len(upTo)-1].End - position) - 1, true
	}
	from := intervals.Intersect(l.Regions, position, math.MaxInt)
	return intervals.Length(from) - (position - from[0].Start) - 1, true
}

// Overlaps returns true if the half-open genome range [start, end)
// touches a coding region.
func (l *Locus) Overlaps(contig string, start, end int) bool {
	return contig == l.Contig && end > start && intervals.Overlap(l.Regions, start, end-1)
}

// ParseLoci parses coding regions in BED format: chrom, start, end,
// name, score, strand. The name is the gene, with an optional "HLA-"
// prefix; all regions of one gene form one locus. Loci are returned in
// order of first appearance. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
func ParseLoci(r io.Reader) ([]Locus, error) {
	var loci []Locus
	index := make(map[string]int)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" ||
			strings.HasPrefix(text, "#") ||
			strings.HasPrefix(text, "track") ||
			strings.HasPrefix(text, "browser") {
			continue
		}
		data := strings.Split(text, "\t")
		if len(data) < 6 {
			return nil, fmt.Errorf("line %v: expected at least 6 BED fields, got %v", line, len(data))
		}
		start, err := strconv.Atoi(data[1])
		if err != nil {
			return nil, fmt.Errorf("line %v: invalid start: %w", line, err)
		}
		end, err := strconv.Atoi(data[2])
		if err != nil {
			return nil, fmt.Errorf("line %v: invalid end: %w", line, err)
		}
		if start < 0 || end <= start {
			return nil, fmt.Errorf("line %v: invalid region %v-%v", line, start, end)
		}
		if data[5] != "+" && data[5] != "-" {
			return nil, fmt.Errorf("line %v: invalid strand field: %v", line, data[5])
		}
		gene := strings.TrimPrefix(data[3], "HLA-")
		i, ok := index[gene]
		if !ok {
			i = len(loci)
			index[gene] = i
			loci = append(loci, Locus{Gene: gene, Contig: data[0], Reverse: data[5] == "-"})
		}
		l := &loci[i]
		if l.Contig != data[0] || l.Reverse != (data[5] == "-") {
			return nil, fmt.Errorf("line %v: gene %v spans several contigs or strands", line, gene)
		}
		l.Regions = append(l.Regions, intervals.Interval{Start: start, End: end - 1})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for i := range loci {
		loci[i].Regions = intervals.Normalize(loci[i].Regions)
	}
	return loci, nil
}

// ReadLociFile parses a plain or BGZF-compressed BED file of coding
// regions.
func ReadLociFile(filename string) (loci []Locus, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.CloseInto(f, &err)
	r, err := utils.HandleBGZF(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	return ParseLoci(r)
}
