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

package utils

// SmallMapEntry is an entry in a SmallMap.
type SmallMapEntry struct {
	Key   byte
	Value int
}

// A SmallMap maps symbols to counts, similar to Go's built-in maps. A
// SmallMap is more efficient in terms of memory and runtime
// performance than a native map if it has only few entries, which is
// the case for the symbols observed at a single locus position.
type SmallMap []SmallMapEntry

// Get returns the value of the entry with the given key.
//
// It returns the found value and true if the key was found, otherwise
// 0 and false.
func (m SmallMap) Get(key byte) (int, bool) {
	for _, entry := range m {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return 0, false
}

// Add adds delta to the value associated with the given key, appending
// a new entry if no entry already has that key.
func (m *SmallMap) Add(key byte, delta int) {
	for index := range *m {
		if (*m)[index].Key == key {
			(*m)[index].Value += delta
			return
		}
	}
	*m = append(*m, SmallMapEntry{key, delta})
}

// Merge adds all entries of other into m.
func (m *SmallMap) Merge(other SmallMap) {
	for _, entry := range other {
		m.Add(entry.Key, entry.Value)
	}
}

// Total returns the sum of all values.
func (m SmallMap) Total() (total int) {
	for _, entry := range m {
		total += entry.Value
	}
	return
}

// DeleteIf returns a SmallMap from which all entries have been
// removed that satisfy the given test.
//
// It also returns true if any entry was removed, and false if no
// entry was removed because no entry matched the given test.
func (m SmallMap) DeleteIf(test func(key byte, val int) bool) (SmallMap, bool) {
	i := 0
	for _, entry := range m {
		if !test(entry.Key, entry.Value) {
			m[i] = entry
			i++
		}
	}
	return m[:i], i < len(m)
}
