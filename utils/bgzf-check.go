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

import (
	"bufio"
	"io"

	"github.com/biogo/hts/bgzf"
)

// HandleBGZF checks if the given reader produces a gzip file by
// looking at the initial bytes. It then either returns a bgzf.Reader,
// or returns the given reader unchanged. HandleBGZF uses Peek.
func HandleBGZF(buf *bufio.Reader) (io.Reader, error) {
	magic, err := buf.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) < 2 || magic[0] != 0x1f || magic[1] != 0x8b {
		return buf, nil
	}
	r, err := bgzf.NewReader(buf, 1)
	if err != nil {
		return nil, err
	}
	return r, nil
}
