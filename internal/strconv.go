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

package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePositions parses a comma-separated list of non-negative
// positions. Entries of the form "330-370" expand to the inclusive
// range.
func ParsePositions(s string) ([]int, error) {
	var result []int
	if strings.TrimSpace(s) == "" {
		return result, nil
	}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if from, to, isRange := strings.Cut(field, "-"); isRange {
			start, err := strconv.Atoi(from)
			if err != nil {
				return nil, err
			}
			end, err := strconv.Atoi(to)
			if err != nil {
				return nil, err
			}
			if start < 0 || end < start {
				return nil, fmt.Errorf("invalid position range %v", field)
			}
			for p := start; p <= end; p++ {
				result = append(result, p)
			}
			continue
		}
		p, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		if p < 0 {
			return nil, fmt.Errorf("invalid position %v", field)
		}
		result = append(result, p)
	}
	return result, nil
}
