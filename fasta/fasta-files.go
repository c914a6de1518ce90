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

// Package fasta reads and writes allele catalogs in FASTA format.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/exascience/elhla/internal"
	"github.com/exascience/elhla/utils"
)

// A Record is one named sequence.
type Record struct {
	Name     string
	Sequence []byte
}

func headerFields(b []byte) [][]byte {
	return bytes.FieldsFunc(b[1:], func(r rune) bool {
		return r < '!' || r > '~'
	})
}

// nameFromHeader returns the first token of a header line. IMGT/HLA
// headers such as ">HLA:HLA00001 A*01:01:01:01 1098 bp" carry the
// allele name in the second token.
func nameFromHeader(b []byte) string {
	fields := headerFields(b)
	switch {
	case len(fields) == 0:
		return ""
	case len(fields) > 1 && bytes.HasPrefix(fields[0], []byte("HLA:")):
		return string(fields[1])
	default:
		return string(fields[0])
	}
}

// ParseCatalog sequentially parses FASTA records, in file order.
// Sequence lines are converted to upper case.
func ParseCatalog(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []Record
	var current *Record
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if b[0] == '>' {
			name := nameFromHeader(b)
			if name == "" {
				return nil, fmt.Errorf("invalid fasta input - empty header in line %v", line)
			}
			records = append(records, Record{Name: name})
			current = &records[len(records)-1]
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("invalid fasta input - missing first header")
		}
		for _, c := range b {
			current.Sequence = append(current.Sequence, byte(unicode.ToUpper(rune(c))))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty fasta input")
	}
	return records, nil
}

// ReadCatalogFile parses a plain or BGZF-compressed FASTA file.
func ReadCatalogFile(filename string) (records []Record, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.CloseInto(f, &err)
	r, err := utils.HandleBGZF(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	records, err = ParseCatalog(r)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return records, nil
}

// LineWidth is the number of sequence symbols per line written by
// WriteCatalog.
const LineWidth = 60

// WriteCatalog writes records in FASTA format.
func WriteCatalog(w io.Writer, records []Record) error {
	out := bufio.NewWriter(w)
	for _, record := range records {
		if _, err := fmt.Fprintf(out, ">%v\n", record.Name); err != nil {
			return err
		}
		for seq := record.Sequence; len(seq) > 0; {
			n := LineWidth
			if n > len(seq) {
				n = len(seq)
			}
			if _, err := out.Write(seq[:n]); err != nil {
				return err
			}
			if err := out.WriteByte('\n'); err != nil {
				return err
			}
			seq = seq[n:]
		}
	}
	return out.Flush()
}
