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
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/exascience/elhla/count"
	"github.com/exascience/elhla/genotype"
	"github.com/exascience/elhla/internal"
	"github.com/exascience/elhla/reads"
)

// CountHelp is the help string for this command.
const CountHelp = "\ncount parameters:\n" +
	"elhla count bam-file output-dir\n" +
	"--loci bed-file\n" +
	"[--config yaml-file]\n" +
	"[--output-prefix name]\n" +
	"[--min-base-quality nr]\n" +
	"[--min-mapping-quality nr]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Count implements the elhla count command.
func Count() error {
	var (
		loci, configFile, outputPrefix, logPath string
		nrOfThreads                             int
		timed                                   bool
		pf                                      paramFlags
	)

	var flags flag.FlagSet

	flags.StringVar(&loci, "loci", "", "BED file(s) with the exon regions of the typed genes")
	flags.StringVar(&configFile, "config", "", "YAML file with typing parameters")
	flags.StringVar(&outputPrefix, "output-prefix", "", "prefix for the output files")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	pf.defineQuality(&flags)

	parseFlags(&flags, 4, CountHelp)

	input := getFilename(os.Args[2], CountHelp)
	outputDir := getFilename(os.Args[3], CountHelp)

	if outputPrefix == "" {
		outputPrefix = outputPrefixFor(input)
	}

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	lociFiles := splitList(loci)
	if len(lociFiles) == 0 {
		log.Println("Error: Missing --loci parameter.")
		sanityChecksFailed = true
	} else if !checkExistAll("--loci", lociFiles) {
		sanityChecksFailed = true
	}
	if configFile != "" && !checkExist("--config", configFile) {
		sanityChecksFailed = true
	}
	if nrOfThreads < 0 {
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
		sanityChecksFailed = true
	}

	params, err := LoadParams(configFile)
	if err == nil {
		err = pf.apply(&flags, &params)
	}
	if err == nil {
		err = params.Validate()
	}
	if err != nil {
		log.Println("Error:", err)
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, CountHelp)
		os.Exit(1)
	}

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " count ", input, " ", outputDir)
	fmt.Fprint(&command, " --loci ", loci)
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	fmt.Fprint(&command, " --output-prefix ", outputPrefix)
	fmt.Fprint(&command, " --min-base-quality ", params.MinBaseQuality)
	fmt.Fprint(&command, " --min-mapping-quality ", params.MinMappingQuality)
	if nrOfThreads > 0 {
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, "", "Counting.", 1, func() error {
		var allLoci []reads.Locus
		for _, filename := range lociFiles {
			l, err := reads.ReadLociFile(filename)
			if err != nil {
				return err
			}
			allLoci = append(allLoci, l...)
		}
		fragments, err := reads.ReadBAMFile(input, allLoci, byte(params.MinMappingQuality))
		if err != nil {
			return err
		}
		minQuality := byte(params.MinBaseQuality)
		nucleotides := count.Build(fragments, minQuality)
		aminoAcids := count.Build(genotype.TranslateAll(fragments), minQuality)
		mean, std := nucleotides.DepthSummary()
		log.Printf("%v fragments, nucleotide depth mean %.2f std %.2f", len(fragments), mean, std)
		log.Printf("Heterozygous amino-acid positions %v", aminoAcids.HeterozygousIndices(params.MinEvidence))

		internal.MkdirAll(outputDir, 0700)
		prefix := filepath.Join(outputDir, outputPrefix+".elhla.")
		if err := createFile(prefix+"nucleotides.tsv", nucleotides.WriteVertically); err != nil {
			return err
		}
		return createFile(prefix+"aminoacids.tsv", aminoAcids.WriteVertically)
	})
}
