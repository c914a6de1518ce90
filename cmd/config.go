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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/exascience/elhla/genotype"
	"github.com/exascience/elhla/internal"
	"github.com/exascience/elhla/intervals"
)

// EnvPrefix is the prefix of environment variables that override
// typing parameters, for example ELHLA_MIN_BASE_QUALITY.
const EnvPrefix = "elhla"

// DecodeParams overrides params with the YAML document read from r.
// Unknown keys are rejected. An empty document changes nothing.
func DecodeParams(r io.Reader, params *genotype.Params) error {
	decoder := yaml.NewDecoder(r)
	decoder.SetStrict(true)
	if err := decoder.Decode(params); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadParams returns the default typing parameters, overridden by the
// YAML file filename if it is not empty, overridden in turn by
// environment variables.
func LoadParams(filename string) (params genotype.Params, err error) {
	params = genotype.DefaultParams()
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return params, err
		}
		err = DecodeParams(f, &params)
		_ = f.Close()
		if err != nil {
			return params, fmt.Errorf("%v: %w", filename, err)
		}
	}
	if err = envconfig.Process(EnvPrefix, &params); err != nil {
		return params, err
	}
	return params, nil
}

// paramFlags holds the command line flags for typing parameters. Only
// flags that are explicitly set override the configuration.
type paramFlags struct {
	values            genotype.Params
	excludedPositions string
	phasingExcluded   string
	noise             string
	expected          string
	restricted        string
}

// formatPositions is the inverse of internal.ParsePositions, with
// consecutive positions collapsed into ranges.
func formatPositions(positions []int) string {
	ranges := intervals.FromPositions(positions)
	s := make([]string, len(ranges))
	for i, r := range ranges {
		if r.Start == r.End {
			s[i] = strconv.Itoa(r.Start)
		} else {
			s[i] = r.String()
		}
	}
	return strings.Join(s, ",")
}

func (pf *paramFlags) defineQuality(flags *flag.FlagSet) {
	defaults := genotype.DefaultParams()
	flags.IntVar(&pf.values.MinBaseQuality, "min-base-quality", defaults.MinBaseQuality, "minimum base quality")
	flags.IntVar(&pf.values.MinMappingQuality, "min-mapping-quality", defaults.MinMappingQuality, "minimum mapping quality")
}

func (pf *paramFlags) define(flags *flag.FlagSet) {
	pf.defineQuality(flags)
	defaults := genotype.DefaultParams()
	flags.IntVar(&pf.values.MinEvidence, "min-evidence", defaults.MinEvidence, "minimum number of supporting fragments")
	flags.StringVar(&pf.excludedPositions, "excluded-positions", formatPositions(defaults.ExcludedPositions), "amino-acid positions ignored by the initial candidate filter")
	flags.StringVar(&pf.phasingExcluded, "phasing-excluded", formatPositions(defaults.PhasingExcluded), "amino-acid positions never phased")
	flags.StringVar(&pf.noise, "noise", fmt.Sprintf("%v-%v", defaults.NoiseStart, defaults.NoiseEnd), "amino-acid position range never used to extend evidence")
	flags.IntVar(&pf.values.AminoAcidWindow, "aa-window", defaults.AminoAcidWindow, "amino-acid positions used by the initial candidate filter")
	flags.IntVar(&pf.values.NucleotideWindow, "nuc-window", defaults.NucleotideWindow, "nucleotide positions used by the initial candidate filter")
	flags.IntVar(&pf.values.MaxHaplotypes, "max-haplotypes", defaults.MaxHaplotypes, "maximum number of haplotypes in combined evidence")
	flags.IntVar(&pf.values.ConsolidationRounds, "consolidation-rounds", defaults.ConsolidationRounds, "number of consolidation rounds")
	flags.StringVar(&pf.values.SupportPolicy, "support-policy", defaults.SupportPolicy, "support of combined haplotypes: min or sum")
	flags.BoolVar(&pf.values.NearestOnly, "nearest-only", defaults.NearestOnly, "extend evidence only by the nearest heterozygous position")
	flags.StringVar(&pf.expected, "expected-alleles", "", "alleles whose presence is reported after each filtering step")
	flags.StringVar(&pf.restricted, "restricted-alleles", "", "the only alleles considered")
}

func parseNoise(s string) (start, end int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, -1, nil
	}
	from, to, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, fmt.Errorf("invalid noise range %v", s)
	}
	if start, err = strconv.Atoi(strings.TrimSpace(from)); err != nil {
		return 0, 0, err
	}
	if end, err = strconv.Atoi(strings.TrimSpace(to)); err != nil {
		return 0, 0, err
	}
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("invalid noise range %v", s)
	}
	return start, end, nil
}

// apply overrides params with the flags that were set on the command
// line.
func (pf *paramFlags) apply(flags *flag.FlagSet, params *genotype.Params) (err error) {
	flags.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "min-base-quality":
			params.MinBaseQuality = pf.values.MinBaseQuality
		case "min-mapping-quality":
			params.MinMappingQuality = pf.values.MinMappingQuality
		case "min-evidence":
			params.MinEvidence = pf.values.MinEvidence
		case "excluded-positions":
			params.ExcludedPositions, err = internal.ParsePositions(pf.excludedPositions)
		case "phasing-excluded":
			params.PhasingExcluded, err = internal.ParsePositions(pf.phasingExcluded)
		case "noise":
			params.NoiseStart, params.NoiseEnd, err = parseNoise(pf.noise)
		case "aa-window":
			params.AminoAcidWindow = pf.values.AminoAcidWindow
		case "nuc-window":
			params.NucleotideWindow = pf.values.NucleotideWindow
		case "max-haplotypes":
			params.MaxHaplotypes = pf.values.MaxHaplotypes
		case "consolidation-rounds":
			params.ConsolidationRounds = pf.values.ConsolidationRounds
		case "support-policy":
			params.SupportPolicy = pf.values.SupportPolicy
		case "nearest-only":
			params.NearestOnly = pf.values.NearestOnly
		case "expected-alleles":
			params.ExpectedAlleles = splitList(pf.expected)
		case "restricted-alleles":
			params.RestrictedAlleles = splitList(pf.restricted)
		}
		if err != nil {
			err = fmt.Errorf("--%v: %w", f.Name, err)
		}
	})
	return err
}
