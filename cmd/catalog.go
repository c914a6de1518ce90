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

package cmd

import (
	"flag"
	"io"
	"os"

	"github.com/exascience/elhla/candidates"
	"github.com/exascience/elhla/fasta"
)

// InflateCatalogHelp is the help string for this command.
const InflateCatalogHelp = "\ninflate-catalog parameters:\n" +
	"elhla inflate-catalog fasta-file fasta-file\n" +
	"[--log-path path]\n"

// DeflateCatalogHelp is the help string for this command.
const DeflateCatalogHelp = "\ndeflate-catalog parameters:\n" +
	"elhla deflate-catalog fasta-file fasta-file\n" +
	"[--log-path path]\n"

func convertCatalog(input, output string, convert func([]candidates.Allele) []candidates.Allele) error {
	records, err := fasta.ReadCatalogFile(input)
	if err != nil {
		return err
	}
	alleles := make([]candidates.Allele, len(records))
	for i, r := range records {
		alleles[i] = candidates.NewAllele(r.Name, r.Sequence)
	}
	alleles = convert(alleles)
	for i, a := range alleles {
		records[i].Sequence = a.Sequence
	}
	return createFile(output, func(w io.Writer) error {
		return fasta.WriteCatalog(w, records)
	})
}

func catalogCommand(help string, convert func([]candidates.Allele) []candidates.Allele) error {
	var logPath string

	var flags flag.FlagSet
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	parseFlags(&flags, 4, help)

	input := getFilename(os.Args[2], help)
	output := getFilename(os.Args[3], help)

	setLogOutput(logPath)

	return convertCatalog(input, output, convert)
}

// InflateCatalog implements the elhla inflate-catalog command.
func InflateCatalog() error {
	return catalogCommand(InflateCatalogHelp, candidates.Inflate)
}

// DeflateCatalog implements the elhla deflate-catalog command.
func DeflateCatalog() error {
	return catalogCommand(DeflateCatalogHelp, candidates.Deflate)
}
