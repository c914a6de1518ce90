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

package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/exascience/elhla/phase"
)

// FormatPositions returns the positions as a comma-separated list.
func FormatPositions(positions []int) string {
	fields := make([]string, len(positions))
	for i, p := range positions {
		fields[i] = strconv.Itoa(p)
	}
	return strings.Join(fields, ",")
}

// WriteEvidence writes a tab-separated table with one line per
// evidence block.
func WriteEvidence(w io.Writer, runID string, evidence []*phase.Evidence) error {
	out := bufio.NewWriter(w)
	if err := WriteHeader(out, runID); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, "first\tpositions\thaplotypes\ttotalSupport"); err != nil {
		return err
	}
	for _, e := range evidence {
		haplotypes := make([]string, e.Len())
		for i, haplotype := range e.Haplotypes() {
			haplotypes[i] = haplotype + ":" + strconv.Itoa(e.Support(haplotype))
		}
		if _, err := fmt.Fprintf(out, "%v\t%v\t%v\t%v\n",
			e.First(), FormatPositions(e.Positions()), strings.Join(haplotypes, ","), e.TotalSupport()); err != nil {
			return err
		}
	}
	return out.Flush()
}

// EvidenceSchema is the Arrow schema of evidence files: one row per
// haplotype of each evidence block.
var EvidenceSchema = arrow.NewSchema([]arrow.Field{
	{Name: "block", Type: arrow.PrimitiveTypes.Int64},
	{Name: "first", Type: arrow.PrimitiveTypes.Int64},
	{Name: "positions", Type: arrow.BinaryTypes.String},
	{Name: "haplotype", Type: arrow.BinaryTypes.String},
	{Name: "support", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// An EvidenceArrowWriter writes evidence to an Arrow IPC file, in
// record batches of at most chunkSize rows.
type EvidenceArrowWriter struct {
	writer         *ipc.FileWriter
	block          *array.Int64Builder
	first          *array.Int64Builder
	positions      *array.StringBuilder
	haplotype      *array.StringBuilder
	support        *array.Int64Builder
	chunkSize      int
	numRowsInChunk int
	numBlocks      int64
}

// NewEvidenceArrowWriter returns a writer to w. Close must be called
// to release its builders.
func NewEvidenceArrowWriter(w io.Writer, chunkSize int) (*EvidenceArrowWriter, error) {
	return newEvidenceArrowWriter(w, chunkSize, memory.NewGoAllocator())
}

func newEvidenceArrowWriter(w io.Writer, chunkSize int, pool memory.Allocator) (*EvidenceArrowWriter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %v", chunkSize)
	}
	writer, err := ipc.NewFileWriter(w, ipc.WithSchema(EvidenceSchema), ipc.WithAllocator(pool))
	if err != nil {
		return nil, err
	}
	return &EvidenceArrowWriter{
		writer:    writer,
		block:     array.NewInt64Builder(pool),
		first:     array.NewInt64Builder(pool),
		positions: array.NewStringBuilder(pool),
		haplotype: array.NewStringBuilder(pool),
		support:   array.NewInt64Builder(pool),
		chunkSize: chunkSize,
	}, nil
}

// Write appends the rows of one evidence block.
func (aw *EvidenceArrowWriter) Write(e *phase.Evidence) error {
	positions := FormatPositions(e.Positions())
	for _, haplotype := range e.Haplotypes() {
		aw.block.Append(aw.numBlocks)
		aw.first.Append(int64(e.First()))
		aw.positions.Append(positions)
		aw.haplotype.Append(haplotype)
		aw.support.Append(int64(e.Support(haplotype)))
		aw.numRowsInChunk++
		if aw.numRowsInChunk == aw.chunkSize {
			if err := aw.writeChunk(); err != nil {
				return err
			}
		}
	}
	aw.numBlocks++
	return nil
}

func (aw *EvidenceArrowWriter) writeChunk() error {
	cols := []arrow.Array{
		aw.block.NewArray(),
		aw.first.NewArray(),
		aw.positions.NewArray(),
		aw.haplotype.NewArray(),
		aw.support.NewArray(),
	}
	record := array.NewRecord(EvidenceSchema, cols, int64(aw.numRowsInChunk))
	for _, col := range cols {
		col.Release()
	}
	defer record.Release()
	if err := aw.writer.Write(record); err != nil {
		return err
	}
	aw.numRowsInChunk = 0
	return nil
}

func (aw *EvidenceArrowWriter) release() {
	aw.block.Release()
	aw.first.Release()
	aw.positions.Release()
	aw.haplotype.Release()
	aw.support.Release()
}

// Close writes any remaining rows and the file footer, and releases
// the builders.
func (aw *EvidenceArrowWriter) Close() error {
	defer aw.release()
	if aw.numRowsInChunk > 0 {
		if err := aw.writeChunk(); err != nil {
			return err
		}
	}
	return aw.writer.Close()
}

// WriteEvidenceArrow writes all evidence blocks to w.
func WriteEvidenceArrow(w io.Writer, evidence []*phase.Evidence, chunkSize int) error {
	aw, err := NewEvidenceArrowWriter(w, chunkSize)
	if err != nil {
		return err
	}
	for _, e := range evidence {
		if err := aw.Write(e); err != nil {
			aw.release()
			return err
		}
	}
	return aw.Close()
}
