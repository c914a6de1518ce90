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

package reads

import (
	"bufio"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/exascience/elhla/internal"
	"github.com/exascience/elhla/locus"
)

const skipFlags = sam.Unmapped | sam.Secondary | sam.Supplementary | sam.QCFail | sam.Duplicate

// Project returns the observations of an aligned record on the coding
// sequence of l. Only aligned bases count; insertions, deletions and
// clipped bases are skipped. Bases of reverse-strand loci are
// complemented, and bases other than A, C, G, T are dropped.
func Project(record *sam.Record, l *Locus) locus.Read {
	if record.Ref == nil || !l.Overlaps(record.Ref.Name(), record.Pos, record.End()) {
		return nil
	}
	seq := record.Seq.Expand()
	var read locus.Read
	ref, query := record.Pos, 0
	for _, op := range record.Cigar {
		n := op.Len()
		consumes := op.Type().Consumes()
		if consumes.Query > 0 && consumes.Reference > 0 {
			for i := 0; i < n; i++ {
				offset, ok := l.Offset(ref + i)
				if !ok {
					continue
				}
				base := seq[query+i]
				switch base {
				case 'A', 'C', 'G', 'T':
				default:
					continue
				}
				if l.Reverse {
					base = locus.Complement(base)
				}
				quality := byte(0)
				if query+i < len(record.Qual) && record.Qual[query+i] != 0xff {
					quality = record.Qual[query+i]
				}
				read = append(read, locus.Entry{Position: offset, Observation: locus.Observation{Symbol: base, Quality: quality}})
			}
		}
		ref += n * consumes.Reference
		query += n * consumes.Query
	}
	return read
}

// FromBAM reads all records of a BAM stream and returns one fragment
// per read name, in order of first appearance, holding the
// observations of all its reads on all loci. Unmapped, secondary,
// supplementary, duplicate and QC-failed records, and records with a
// mapping quality below minMapQ, are skipped.
func FromBAM(r io.Reader, loci []Locus, minMapQ byte) (fragments []*locus.Fragment, err error) {
	br, err := bam.NewReader(r, 1)
	if err != nil {
		return nil, err
	}
	defer internal.CloseInto(br, &err)

	var names []string
	grouped := make(map[string][]locus.Read)
	for {
		record, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if record.Flags&skipFlags != 0 || record.MapQ < minMapQ {
			continue
		}
		for i := range loci {
			read := Project(record, &loci[i])
			if len(read) == 0 {
				continue
			}
			if _, ok := grouped[record.Name]; !ok {
				names = append(names, record.Name)
			}
			grouped[record.Name] = append(grouped[record.Name], read)
		}
	}

	fragments = make([]*locus.Fragment, 0, len(names))
	for _, name := range names {
		f, err := locus.NewFragment(name, grouped[name]...)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// ReadBAMFile opens a BAM file and calls FromBAM.
func ReadBAMFile(filename string, loci []Locus, minMapQ byte) (fragments []*locus.Fragment, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.CloseInto(f, &err)
	return FromBAM(bufio.NewReader(f), loci, minMapQ)
}
