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

// Package intervals handles sets of closed position intervals, such as
// the excluded and noisy stretches of a locus or the coding regions of
// a gene.
package intervals

import (
	"fmt"
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"
)

// An Interval covers the positions Start through End, both inclusive.
type Interval struct {
	Start, End int
}

func (interval Interval) String() string {
	return fmt.Sprintf("%v-%v", interval.Start, interval.End)
}

// SortByStart sorts intervals by their start positions, keeping the
// relative order of intervals with equal starts.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type stableIntervalSorter []Interval

func (s stableIntervalSorter) SequentialSort(i, j int) {
	SortByStart(s[i:j])
}

func (s stableIntervalSorter) NewTemp() psort.StableSorter {
	return stableIntervalSorter(make([]Interval, len(s)))
}

func (s stableIntervalSorter) Len() int {
	return len(s)
}

func (s stableIntervalSorter) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s stableIntervalSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableIntervalSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart is SortByStart using a parallel stable sort.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(stableIntervalSorter(intervals))
}

// Extend grows interval1 to also cover interval2 if interval2 starts
// no later than interval1 ends. It returns false if the intervals are
// disjoint, in which case interval1 is unchanged.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals of a slice sorted by start
// positions. It reuses the storage of the given slice.
func Flatten(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return intervals
	}
	i := 0
	for j := 1; j < len(intervals); j++ {
		if !intervals[i].Extend(intervals[j]) {
			i++
			intervals[i] = intervals[j]
		}
	}
	return intervals[:i+1]
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten is Flatten for large slices, flattening both halves
// in parallel before joining them.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for len(right) > 0 && left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Normalize sorts and flattens a copy of the given intervals, dropping
// intervals with End < Start.
func Normalize(intervals []Interval) []Interval {
	result := make([]Interval, 0, len(intervals))
	for _, interval := range intervals {
		if interval.End >= interval.Start {
			result = append(result, interval)
		}
	}
	ParallelSortByStart(result)
	return ParallelFlatten(result)
}

// Overlap returns true if any interval of a normalized slice shares a
// position with start through end.
func Overlap(intervals []Interval, start, end int) bool {
	for left, right := 0, len(intervals)-1; left <= right; {
		mid := (left + right) / 2
		if intervals[mid].Start > end {
			right = mid - 1
		} else if intervals[mid].End < start {
			left = mid + 1
		} else {
			return true
		}
	}
	return false
}

// Contains returns true if position lies in an interval of a
// normalized slice.
func Contains(intervals []Interval, position int) bool {
	return Overlap(intervals, position, position)
}

// Intersect returns the intervals of a normalized slice that share a
// position with start through end.
func Intersect(intervals []Interval, start, end int) []Interval {
	n := len(intervals)
	return intervals[sort.Search(n, func(i int) bool {
		return intervals[i].End >= start
	}):sort.Search(n, func(i int) bool {
		return intervals[i].Start > end
	})]
}

// FromPositions returns the normalized intervals covering exactly the
// given positions.
func FromPositions(positions []int) []Interval {
	result := make([]Interval, 0, len(positions))
	for _, p := range positions {
		result = append(result, Interval{p, p})
	}
	SortByStart(result)
	if len(result) == 0 {
		return result
	}
	i := 0
	for j := 1; j < len(result); j++ {
		if result[j].Start <= result[i].End+1 {
			if result[j].End > result[i].End {
				result[i].End = result[j].End
			}
			continue
		}
		i++
		result[i] = result[j]
	}
	return result[:i+1]
}

// Length returns the number of positions covered by a normalized
// slice.
func Length(intervals []Interval) (n int) {
	for _, interval := range intervals {
		n += interval.End - interval.Start + 1
	}
	return
}
