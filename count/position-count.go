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

// Package count tallies the symbols observed at each locus position.
package count

import (
	"bufio"
	"io"
	"sort"
	"strconv"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/stat"

	"github.com/exascience/elhla/locus"
	"github.com/exascience/elhla/utils"
)

// PositionCount maps each locus position to the number of fragments
// observing each symbol there. It is immutable after Build.
type PositionCount struct {
	counts []utils.SmallMap
}

func mergeCounts(left, right []utils.SmallMap) []utils.SmallMap {
	if len(left) < len(right) {
		left, right = right, left
	}
	for position, symbols := range right {
		left[position].Merge(symbols)
	}
	return left
}

// Build counts, per position, the symbols of all fragments observed
// with at least minQuality. Observations below minQuality are skipped.
func Build(fragments []*locus.Fragment, minQuality byte) *PositionCount {
	if len(fragments) == 0 {
		return &PositionCount{}
	}
	counts := parallel.RangeReduce(0, len(fragments), 0, func(low, high int) interface{} {
		var counts []utils.SmallMap
		for _, f := range fragments[low:high] {
			f.Each(func(position int, obs locus.Observation) {
				if obs.Quality < minQuality {
					return
				}
				for position >= len(counts) {
					counts = append(counts, nil)
				}
				counts[position].Add(obs.Symbol, 1)
			})
		}
		return counts
	}, func(left, right interface{}) interface{} {
		return mergeCounts(left.([]utils.SmallMap), right.([]utils.SmallMap))
	}).([]utils.SmallMap)
	return &PositionCount{counts: counts}
}

// Length returns one past the highest counted position.
func (pc *PositionCount) Length() int {
	return len(pc.counts)
}

// Count returns how often symbol was observed at position.
func (pc *PositionCount) Count(position int, symbol byte) int {
	if position < 0 || position >= len(pc.counts) {
		return 0
	}
	n, _ := pc.counts[position].Get(symbol)
	return n
}

// Depth returns the number of qualifying observations at position.
func (pc *PositionCount) Depth(position int) int {
	if position < 0 || position >= len(pc.counts) {
		return 0
	}
	return pc.counts[position].Total()
}

// SequenceAt returns, in ascending byte order, the symbols observed at
// position at least minCount times.
func (pc *PositionCount) SequenceAt(position, minCount int) []byte {
	if position < 0 || position >= len(pc.counts) {
		return nil
	}
	kept, _ := append(utils.SmallMap(nil), pc.counts[position]...).DeleteIf(func(_ byte, count int) bool {
		return count < minCount
	})
	if len(kept) == 0 {
		return nil
	}
	result := make([]byte, len(kept))
	for i, entry := range kept {
		result[i] = entry.Key
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// HeterozygousIndices returns, in ascending order, the positions where
// at least two distinct symbols are each observed at least minCount
// times.
func (pc *PositionCount) HeterozygousIndices(minCount int) []int {
	var result []int
	for position := range pc.counts {
		if len(pc.SequenceAt(position, minCount)) > 1 {
			result = append(result, position)
		}
	}
	return result
}

// DepthSummary returns the mean and standard deviation of the depth
// over all positions.
func (pc *PositionCount) DepthSummary() (mean, std float64) {
	if len(pc.counts) == 0 {
		return 0, 0
	}
	depths := make([]float64, len(pc.counts))
	for position := range pc.counts {
		depths[position] = float64(pc.Depth(position))
	}
	return stat.MeanStdDev(depths, nil)
}

func (pc *PositionCount) symbols() []byte {
	var seen [256]bool
	var result []byte
	for _, symbols := range pc.counts {
		for _, entry := range symbols {
			if !seen[entry.Key] {
				seen[entry.Key] = true
				result = append(result, entry.Key)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// WriteVertically writes one tab-separated line per position, with a
// column per symbol observed anywhere on the locus.
func (pc *PositionCount) WriteVertically(w io.Writer) error {
	out := bufio.NewWriter(w)
	symbols := pc.symbols()
	buf := []byte("position")
	for _, symbol := range symbols {
		buf = append(buf, '\t', symbol)
	}
	buf = append(buf, '\n')
	if _, err := out.Write(buf); err != nil {
		return err
	}
	for position := range pc.counts {
		buf = strconv.AppendInt(buf[:0], int64(position), 10)
		for _, symbol := range symbols {
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(pc.Count(position, symbol)), 10)
		}
		buf = append(buf, '\n')
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return out.Flush()
}
