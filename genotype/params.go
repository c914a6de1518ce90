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

// Package genotype runs the typing pipeline: counting, candidate
// pre-filtering, evidence phasing, consolidation, and evidence-based
// candidate resolution.
package genotype

import (
	"errors"
	"fmt"

	"github.com/exascience/elhla/intervals"
	"github.com/exascience/elhla/phase"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid typing parameters")

// Params holds the thresholds and constants of a typing run.
type Params struct {
	MinBaseQuality    int `yaml:"minBaseQuality" split_words:"true"`
	MinEvidence       int `yaml:"minEvidence" split_words:"true"`
	MinMappingQuality int `yaml:"minMappingQuality" split_words:"true"`

	// amino-acid positions ignored by the initial candidate filter
	ExcludedPositions []int `yaml:"excludedPositions" split_words:"true"`

	// amino-acid positions never phased
	PhasingExcluded []int `yaml:"phasingExcluded" split_words:"true"`

	// amino-acid positions never used to extend evidence
	NoiseStart int `yaml:"noiseStart" split_words:"true"`
	NoiseEnd   int `yaml:"noiseEnd" split_words:"true"`

	AminoAcidWindow     int    `yaml:"aminoAcidWindow" split_words:"true"`
	NucleotideWindow    int    `yaml:"nucleotideWindow" split_words:"true"`
	MaxHaplotypes       int    `yaml:"maxHaplotypes" split_words:"true"`
	ConsolidationRounds int    `yaml:"consolidationRounds" split_words:"true"`
	SupportPolicy       string `yaml:"supportPolicy" split_words:"true"`
	NearestOnly         bool   `yaml:"nearestOnly" split_words:"true"`

	// alleles whose presence is reported after each filtering step
	ExpectedAlleles []string `yaml:"expectedAlleles" split_words:"true"`

	// if not empty, the only alleles considered
	RestrictedAlleles []string `yaml:"restrictedAlleles" split_words:"true"`
}

// DefaultParams returns the default parameters for HLA class I typing.
func DefaultParams() Params {
	return Params{
		MinBaseQuality:      30,
		MinEvidence:         2,
		MinMappingQuality:   1,
		ExcludedPositions:   []int{24, 114, 206, 298, 337, 348, 349, 362, 364, 365, 366},
		PhasingExcluded:     []int{364, 365, 366},
		NoiseStart:          330,
		NoiseEnd:            370,
		AminoAcidWindow:     360,
		NucleotideWindow:    1080,
		MaxHaplotypes:       phase.DefaultMaxHaplotypes,
		ConsolidationRounds: phase.DefaultConsolidationRounds,
		SupportPolicy:       phase.SupportMin.String(),
	}
}

// Validate checks that all thresholds are in range.
func (p *Params) Validate() error {
	switch {
	case p.MinBaseQuality < 0 || p.MinBaseQuality > 255:
		return fmt.Errorf("%w: min base quality %v", ErrInvalidParams, p.MinBaseQuality)
	case p.MinMappingQuality < 0 || p.MinMappingQuality > 255:
		return fmt.Errorf("%w: min mapping quality %v", ErrInvalidParams, p.MinMappingQuality)
	case p.MinEvidence < 1:
		return fmt.Errorf("%w: min evidence %v", ErrInvalidParams, p.MinEvidence)
	case p.AminoAcidWindow < 0 || p.NucleotideWindow < 0:
		return fmt.Errorf("%w: negative window", ErrInvalidParams)
	case p.MaxHaplotypes < 1:
		return fmt.Errorf("%w: max haplotypes %v", ErrInvalidParams, p.MaxHaplotypes)
	case p.ConsolidationRounds < 0:
		return fmt.Errorf("%w: consolidation rounds %v", ErrInvalidParams, p.ConsolidationRounds)
	}
	if _, err := phase.ParseSupportPolicy(p.SupportPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Noise returns the noise window, or nil if it is empty.
func (p *Params) Noise() []intervals.Interval {
	if p.NoiseEnd < p.NoiseStart {
		return nil
	}
	return []intervals.Interval{{Start: p.NoiseStart, End: p.NoiseEnd}}
}

// PhaseOptions returns the options for evidence phasing.
func (p *Params) PhaseOptions() phase.Options {
	return phase.Options{
		MinQuality:  byte(p.MinBaseQuality),
		MinCount:    p.MinEvidence,
		Noise:       p.Noise(),
		NearestOnly: p.NearestOnly,
	}
}

// ConsolidateOptions returns the options for evidence consolidation.
// Params must be valid.
func (p *Params) ConsolidateOptions() phase.ConsolidateOptions {
	policy, _ := phase.ParseSupportPolicy(p.SupportPolicy)
	return phase.ConsolidateOptions{
		MaxHaplotypes: p.MaxHaplotypes,
		Rounds:        p.ConsolidationRounds,
		Policy:        policy,
	}
}
