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

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRead is returned for read observations that cannot be
// placed on a locus.
var ErrInvalidRead = errors.New("invalid read")

// An Observation is one symbol seen at one locus position, with its
// base quality.
type Observation struct {
	Symbol  byte
	Quality byte
}

// An Entry places an Observation at a locus position.
type Entry struct {
	Position int
	Observation
}

// A Read is the list of observations contributed by one physical
// read, in any order.
type Read []Entry

// NewRead returns a Read observing symbols at consecutive positions
// from start, all with the same quality.
func NewRead(start int, symbols string, quality byte) Read {
	read := make(Read, len(symbols))
	for i := 0; i < len(symbols); i++ {
		read[i] = Entry{Position: start + i, Observation: Observation{Symbol: symbols[i], Quality: quality}}
	}
	return read
}

// A Fragment is the immutable set of observations of all reads that
// share one read name. Positions are kept in ascending order.
type Fragment struct {
	id           string
	positions    []int
	observations []Observation
}

// NewFragment merges the given reads into a Fragment. When two reads
// observe the same position, the observation with the higher quality
// wins, and ties keep the first one.
func NewFragment(id string, reads ...Read) (*Fragment, error) {
	merged := make(map[int]Observation)
	for _, read := range reads {
		for _, entry := range read {
			if entry.Position < 0 {
				return nil, fmt.Errorf("%w: negative position %v in fragment %v", ErrInvalidRead, entry.Position, id)
			}
			if old, ok := merged[entry.Position]; !ok || entry.Quality > old.Quality {
				merged[entry.Position] = entry.Observation
			}
		}
	}
	f := &Fragment{id: id, positions: make([]int, 0, len(merged))}
	for position := range merged {
		f.positions = append(f.positions, position)
	}
	sort.Ints(f.positions)
	f.observations = make([]Observation, len(f.positions))
	for i, position := range f.positions {
		f.observations[i] = merged[position]
	}
	return f, nil
}

// ID returns the read name shared by the reads of the fragment.
func (f *Fragment) ID() string {
	return f.id
}

// Positions returns the covered positions in ascending order. The
// result must not be modified.
func (f *Fragment) Positions() []int {
	return f.positions
}

// Len returns the number of covered positions.
func (f *Fragment) Len() int {
	return len(f.positions)
}

// Each calls fn for every covered position in ascending order.
func (f *Fragment) Each(fn func(position int, obs Observation)) {
	for i, position := range f.positions {
		fn(position, f.observations[i])
	}
}

// SymbolAt returns the observation at position, and false if the
// fragment does not cover it.
func (f *Fragment) SymbolAt(position int) (Observation, bool) {
	i := sort.SearchInts(f.positions, position)
	if i < len(f.positions) && f.positions[i] == position {
		return f.observations[i], true
	}
	return Observation{}, false
}

// QualifiedSymbolAt returns the symbol at position if it is covered
// with at least minQuality.
func (f *Fragment) QualifiedSymbolAt(position int, minQuality byte) (byte, bool) {
	obs, ok := f.SymbolAt(position)
	if !ok || obs.Quality < minQuality {
		return 0, false
	}
	return obs.Symbol, true
}

// HaplotypeAt returns the symbols at the given positions as one
// string, and false unless every position is covered with at least
// minQuality.
func (f *Fragment) HaplotypeAt(positions []int, minQuality byte) (string, bool) {
	buf := make([]byte, len(positions))
	for i, position := range positions {
		symbol, ok := f.QualifiedSymbolAt(position, minQuality)
		if !ok {
			return "", false
		}
		buf[i] = symbol
	}
	return string(buf), true
}
