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
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/exascience/elhla/candidates"
	"github.com/exascience/elhla/cna"
	"github.com/exascience/elhla/fasta"
	"github.com/exascience/elhla/genotype"
	"github.com/exascience/elhla/internal"
	"github.com/exascience/elhla/locus"
	"github.com/exascience/elhla/reads"
	"github.com/exascience/elhla/report"
)

// TypeHelp is the help string for this command.
const TypeHelp = "\ntype parameters:\n" +
	"elhla type bam-file output-dir\n" +
	"--loci bed-file\n" +
	"--aa-catalog fasta-file[,fasta-file...]\n" +
	"[--nuc-catalog fasta-file[,fasta-file...]]\n" +
	"[--gene-copy-number tsv-file]\n" +
	"[--config yaml-file]\n" +
	"[--output-prefix name]\n" +
	"[--min-base-quality nr]\n" +
	"[--min-mapping-quality nr]\n" +
	"[--min-evidence nr]\n" +
	"[--excluded-positions list]\n" +
	"[--phasing-excluded list]\n" +
	"[--noise from-to]\n" +
	"[--aa-window nr]\n" +
	"[--nuc-window nr]\n" +
	"[--max-haplotypes nr]\n" +
	"[--consolidation-rounds nr]\n" +
	"[--support-policy [min | sum]]\n" +
	"[--nearest-only]\n" +
	"[--expected-alleles list]\n" +
	"[--restricted-alleles list]\n" +
	"[--arrow-chunk-size nr]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

const defaultArrowChunkSize = 1024

func loadCatalogs(filenames []string) ([]candidates.Allele, error) {
	var catalog []candidates.Allele
	for _, filename := range filenames {
		alleles, err := genotype.LoadCatalog(filename)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", filename, err)
		}
		catalog = append(catalog, alleles...)
	}
	return catalog, nil
}

func outputPrefixFor(input string) string {
	base := filepath.Base(input)
	return base[:len(base)-len(filepath.Ext(base))]
}

// typeRun holds the inputs and outputs of one typing run.
type typeRun struct {
	runID          string
	input          string
	outputDir      string
	outputPrefix   string
	loci           []string
	aaCatalog      []string
	nucCatalog     []string
	geneCopyNumber string
	arrowChunkSize int
	params         genotype.Params
	timed          bool
	profile        string
}

func (t *typeRun) output(suffix string) string {
	return filepath.Join(t.outputDir, t.outputPrefix+".elhla."+suffix)
}

func (t *typeRun) writeResult(result *genotype.Result, genes map[string]cna.GeneCopyNumber) error {
	internal.MkdirAll(t.outputDir, 0700)

	copyNumbers := result.CopyNumbers(genes)
	rows := report.CandidateRows(result.Candidates, result.Coverage, copyNumbers)
	if err := createFile(t.output("candidates.tsv"), func(w io.Writer) error {
		return report.WriteCandidates(w, t.runID, rows)
	}); err != nil {
		return err
	}
	if genes != nil {
		if err := createFile(t.output("copynumber.tsv"), func(w io.Writer) error {
			return report.WriteCopyNumbers(w, t.runID, copyNumbers)
		}); err != nil {
			return err
		}
	}

	members := result.Candidates.Members()
	if err := createFile(t.output("candidates.fasta"), func(w io.Writer) error {
		records := make([]fasta.Record, len(members))
		for i, a := range members {
			records[i] = fasta.Record{Name: a.Name, Sequence: a.Sequence}
		}
		return fasta.WriteCatalog(w, records)
	}); err != nil {
		return err
	}
	if err := createFile(t.output("candidates.deflated.fasta"), func(w io.Writer) error {
		return report.WriteCandidateFasta(w, members)
	}); err != nil {
		return err
	}

	if err := createFile(t.output("evidence.full.tsv"), func(w io.Writer) error {
		return report.WriteEvidence(w, t.runID, result.FullEvidence)
	}); err != nil {
		return err
	}
	if err := createFile(t.output("evidence.tsv"), func(w io.Writer) error {
		return report.WriteEvidence(w, t.runID, result.ConsolidatedEvidence)
	}); err != nil {
		return err
	}
	if err := createFile(t.output("evidence.arrow"), func(w io.Writer) error {
		return report.WriteEvidenceArrow(w, result.ConsolidatedEvidence, t.arrowChunkSize)
	}); err != nil {
		return err
	}

	if err := createFile(t.output("nucleotides.tsv"), result.NucleotideCounts.WriteVertically); err != nil {
		return err
	}
	return createFile(t.output("aminoacids.tsv"), result.AminoAcidCounts.WriteVertically)
}

func (t *typeRun) run(ctx context.Context) error {
	var (
		fragments                           []*locus.Fragment
		aminoAcidCatalog, nucleotideCatalog []candidates.Allele
		genes                               map[string]cna.GeneCopyNumber
		result                              *genotype.Result
	)

	phase := int64(1)
	if err := timedRun(t.timed, t.profile, "Loading loci, allele catalogs, and reads.", phase, func() (err error) {
		var loci []reads.Locus
		for _, filename := range t.loci {
			l, err := reads.ReadLociFile(filename)
			if err != nil {
				return err
			}
			loci = append(loci, l...)
		}
		if aminoAcidCatalog, err = loadCatalogs(t.aaCatalog); err != nil {
			return err
		}
		if nucleotideCatalog, err = loadCatalogs(t.nucCatalog); err != nil {
			return err
		}
		if t.geneCopyNumber != "" {
			if genes, err = cna.ReadGeneCopyNumberFile(t.geneCopyNumber); err != nil {
				return err
			}
		}
		fragments, err = reads.ReadBAMFile(t.input, loci, byte(t.params.MinMappingQuality))
		return err
	}); err != nil {
		return err
	}
	log.Printf("%v amino-acid alleles, %v nucleotide alleles, %v fragments", len(aminoAcidCatalog), len(nucleotideCatalog), len(fragments))

	phase++
	if err := timedRun(t.timed, t.profile, "Typing.", phase, func() (err error) {
		result, err = genotype.Run(ctx, t.params, fragments, aminoAcidCatalog, nucleotideCatalog, nil)
		return err
	}); err != nil {
		return err
	}
	mean, std := result.NucleotideCounts.DepthSummary()
	log.Printf("Nucleotide depth mean %.2f std %.2f", mean, std)
	log.Println("Candidates:", strings.Join(result.Candidates.Names(), " "))

	if dir, err := internal.FullPathname(t.outputDir); err == nil {
		log.Println("Writing reports to", dir)
	}
	phase++
	return timedRun(t.timed, t.profile, "Writing reports.", phase, func() error {
		return t.writeResult(result, genes)
	})
}

// Type implements the elhla type command.
func Type() error {
	var (
		loci, aaCatalog, nucCatalog, geneCopyNumber, configFile string
		outputPrefix, profile, logPath                          string
		arrowChunkSize, nrOfThreads                             int
		timed                                                   bool
		pf                                                      paramFlags
	)

	var flags flag.FlagSet

	flags.StringVar(&loci, "loci", "", "BED file(s) with the exon regions of the typed genes")
	flags.StringVar(&aaCatalog, "aa-catalog", "", "FASTA file(s) with the amino-acid allele catalog")
	flags.StringVar(&nucCatalog, "nuc-catalog", "", "FASTA file(s) with the nucleotide allele catalog")
	flags.StringVar(&geneCopyNumber, "gene-copy-number", "", "TSV file with gene copy numbers")
	flags.StringVar(&configFile, "config", "", "YAML file with typing parameters")
	flags.StringVar(&outputPrefix, "output-prefix", "", "prefix for the output files")
	flags.IntVar(&arrowChunkSize, "arrow-chunk-size", defaultArrowChunkSize, "number of evidence rows per Arrow record batch")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a CPU profile")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	pf.define(&flags)

	parseFlags(&flags, 4, TypeHelp)

	input := getFilename(os.Args[2], TypeHelp)
	outputDir := getFilename(os.Args[3], TypeHelp)

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
	aaFiles := splitList(aaCatalog)
	if len(aaFiles) == 0 {
		log.Println("Error: Missing --aa-catalog parameter.")
		sanityChecksFailed = true
	} else if !checkExistAll("--aa-catalog", aaFiles) {
		sanityChecksFailed = true
	}
	nucFiles := splitList(nucCatalog)
	if !checkExistAll("--nuc-catalog", nucFiles) {
		sanityChecksFailed = true
	}
	if geneCopyNumber != "" && !checkExist("--gene-copy-number", geneCopyNumber) {
		sanityChecksFailed = true
	}
	if configFile != "" && !checkExist("--config", configFile) {
		sanityChecksFailed = true
	}
	if !checkCreate("", filepath.Join(outputDir, outputPrefix+".elhla.candidates.tsv")) {
		sanityChecksFailed = true
	}
	if arrowChunkSize <= 0 {
		log.Println("Error: Invalid arrow-chunk-size: ", arrowChunkSize)
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
		fmt.Fprint(os.Stderr, TypeHelp)
		os.Exit(1)
	}

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " type ", input, " ", outputDir)
	fmt.Fprint(&command, " --loci ", loci)
	fmt.Fprint(&command, " --aa-catalog ", aaCatalog)
	if nucCatalog != "" {
		fmt.Fprint(&command, " --nuc-catalog ", nucCatalog)
	}
	if geneCopyNumber != "" {
		fmt.Fprint(&command, " --gene-copy-number ", geneCopyNumber)
	}
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	fmt.Fprint(&command, " --output-prefix ", outputPrefix)
	fmt.Fprint(&command, " --min-base-quality ", params.MinBaseQuality)
	fmt.Fprint(&command, " --min-mapping-quality ", params.MinMappingQuality)
	fmt.Fprint(&command, " --min-evidence ", params.MinEvidence)
	fmt.Fprint(&command, " --excluded-positions ", formatPositions(params.ExcludedPositions))
	fmt.Fprint(&command, " --phasing-excluded ", formatPositions(params.PhasingExcluded))
	fmt.Fprintf(&command, " --noise %v-%v", params.NoiseStart, params.NoiseEnd)
	fmt.Fprint(&command, " --aa-window ", params.AminoAcidWindow)
	fmt.Fprint(&command, " --nuc-window ", params.NucleotideWindow)
	fmt.Fprint(&command, " --max-haplotypes ", params.MaxHaplotypes)
	fmt.Fprint(&command, " --consolidation-rounds ", params.ConsolidationRounds)
	fmt.Fprint(&command, " --support-policy ", params.SupportPolicy)
	if params.NearestOnly {
		fmt.Fprint(&command, " --nearest-only")
	}
	if len(params.ExpectedAlleles) > 0 {
		fmt.Fprint(&command, " --expected-alleles ", strings.Join(params.ExpectedAlleles, ","))
	}
	if len(params.RestrictedAlleles) > 0 {
		fmt.Fprint(&command, " --restricted-alleles ", strings.Join(params.RestrictedAlleles, ","))
	}
	fmt.Fprint(&command, " --arrow-chunk-size ", arrowChunkSize)
	if nrOfThreads > 0 {
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if profile != "" {
		fmt.Fprint(&command, " --profile ", profile)
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	t := &typeRun{
		runID:          uuid.New().String(),
		input:          input,
		outputDir:      outputDir,
		outputPrefix:   outputPrefix,
		loci:           lociFiles,
		aaCatalog:      aaFiles,
		nucCatalog:     nucFiles,
		geneCopyNumber: geneCopyNumber,
		arrowChunkSize: arrowChunkSize,
		params:         params,
		timed:          timed,
		profile:        profile,
	}
	log.Println("Run", t.runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return t.run(ctx)
}
