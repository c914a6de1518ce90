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

package candidates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elhla/count"
	"github.com/exascience/elhla/locus"
	"github.com/exascience/elhla/phase"
)

func scenarioCatalog() []Allele {
	return []Allele{
		NewAllele("A*01:01:01:01", []byte("QQQQQAQQ")),
		NewAllele("A*02:01:01:01", []byte("QQQQQTQQ")),
		NewAllele("B*07:02:01", []byte("QQQQQ*QQ")),
		NewAllele("B*08:01", []byte("QQQ")),
		NewAllele("C*01:02:01", []byte("QQRQQGQQ")),
	}
}

func scenarioSet(t *testing.T) *Set {
	set, err := NewSet(scenarioCatalog())
	require.NoError(t, err)
	return set
}

func evidence(t *testing.T, positions []int, haplotypes map[string]int) *phase.Evidence {
	e, err := phase.NewEvidence(positions, haplotypes)
	require.NoError(t, err)
	return e
}

func fragment(t *testing.T, id, symbols string) *locus.Fragment {
	f, err := locus.NewFragment(id, locus.NewRead(0, symbols, 30))
	require.NoError(t, err)
	return f
}

func TestNewAllele(t *testing.T) {
	a := NewAllele("HLA-B*07:02:01:03", nil)
	assert.Equal(t, "B", a.Gene)
	assert.Equal(t, "B*07:02:01:03", a.Name)
	assert.Equal(t, "B*07:02", a.FourDigitName())
	assert.Equal(t, "C*01", (&Allele{Name: "C*01"}).FourDigitName())
}

func TestNewSetRejectsEmptyCatalog(t *testing.T) {
	_, err := NewSet(nil)
	assert.True(t, errors.Is(err, ErrEmptyCatalog))
}

func TestCandidateNarrowingScenario(t *testing.T) {
	set := scenarioSet(t)
	e := evidence(t, []int{5}, map[string]int{"A": 10, "T": 4})
	narrowed := MatchingCandidates(set, e)
	assert.Equal(t, []string{"A*01:01:01:01", "A*02:01:01:01", "B*07:02:01", "B*08:01"}, narrowed.Names())
	assert.Equal(t, 5, set.Len())
	assert.False(t, narrowed.Has("C*01:02:01"))
	assert.True(t, set.Has("C*01:02:01"))
}

func TestFilterMonotonicity(t *testing.T) {
	set := scenarioSet(t)
	e1 := evidence(t, []int{5}, map[string]int{"A": 10, "T": 4})
	e2 := evidence(t, []int{2, 5}, map[string]int{"QA": 3, "RT": 3})

	forward := MatchAll(set, []*phase.Evidence{e1, e2}, nil)
	backward := MatchAll(set, []*phase.Evidence{e2, e1}, nil)
	first := MatchAll(set, []*phase.Evidence{e1}, nil)

	assert.Equal(t, forward.Names(), backward.Names())
	assert.Equal(t, []string{"A*01:01:01:01", "B*07:02:01", "B*08:01"}, forward.Names())
	for _, name := range forward.Names() {
		assert.True(t, first.Has(name))
	}
}

func TestMatchAllReportsSteps(t *testing.T) {
	set := scenarioSet(t)
	e1 := evidence(t, []int{5}, map[string]int{"A": 10, "T": 4})
	e2 := evidence(t, []int{2, 5}, map[string]int{"QA": 3, "RT": 3})
	var sizes []int
	MatchAll(set, []*phase.Evidence{e1, e2}, func(i int, e *phase.Evidence, narrowed *Set) {
		sizes = append(sizes, narrowed.Len())
	})
	assert.Equal(t, []int{4, 3}, sizes)
}

func scenarioCounts(t *testing.T) *count.PositionCount {
	var fragments []*locus.Fragment
	for i, symbols := range []string{"QQQQQA", "QQQQQA", "QQQQQA", "QQQQQT", "QQQQQT", "QQRQQG"} {
		fragments = append(fragments, fragment(t, string(rune('a'+i)), symbols))
	}
	return count.Build(fragments, 30)
}

func TestInitialCandidates(t *testing.T) {
	set := scenarioSet(t)
	counts := scenarioCounts(t)

	result := InitialCandidates(set, counts, nil, 360, 2)
	assert.Equal(t, []string{"A*01:01:01:01", "A*02:01:01:01", "B*07:02:01", "B*08:01"}, result.Names())

	result = InitialCandidates(set, counts, []int{2, 5}, 360, 2)
	assert.Equal(t, 5, result.Len())

	result = InitialCandidates(set, counts, nil, 5, 2)
	assert.Equal(t, []string{"A*01:01:01:01", "A*02:01:01:01", "B*07:02:01", "B*08:01"}, result.Names())

	result = InitialCandidates(set, counts, nil, 360, 1)
	assert.Equal(t, 5, result.Len())
}

func TestFilterPosition(t *testing.T) {
	set, err := NewSet([]Allele{
		NewAllele("A*01:01", []byte("MAV")),
		NewAllele("A*02:01", []byte("MTV")),
		NewAllele("A*03:01", []byte("M*V")),
		NewAllele("A*04:01", []byte("M")),
		NewAllele("A*05:01", []byte("MGV")),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A*01:01", "A*03:01", "A*04:01"}, FilterPosition(set, 1, []byte("A")).Names())
	assert.Equal(t, []string{"A*03:01", "A*04:01"}, FilterPosition(set, 1, nil).Names())
	assert.Equal(t, 5, set.Len())
}

func TestInitialCandidatesOrderIndependent(t *testing.T) {
	set := scenarioSet(t)
	counts := scenarioCounts(t)
	positions := WindowPositions(360, counts.Length(), []int{1})
	assert.Equal(t, []int{0, 2, 3, 4, 5}, positions)

	reversed := set
	for i := len(positions) - 1; i >= 0; i-- {
		reversed = FilterPosition(reversed, positions[i], counts.SequenceAt(positions[i], 2))
	}
	assert.Equal(t, InitialCandidates(set, counts, []int{1}, 360, 2).Names(), reversed.Names())
}

func TestRestrictAndGroup(t *testing.T) {
	set := scenarioSet(t)
	restricted := set.Restrict([]string{"B*08:01", "A*02:01:01:01", "X*99:99"})
	assert.Equal(t, []string{"A*02:01:01:01", "B*08:01"}, restricted.Names())
	assert.Equal(t, 0, set.Restrict(nil).Len())
	assert.Equal(t, 2, set.CountPresent([]string{"B*08:01", "A*02:01:01:01", "X*99:99"}))

	assert.Equal(t, []string{"A", "B", "C"}, set.Genes())
	groups := restricted.ByGene()
	require.Len(t, groups, 2)
	assert.Equal(t, "A*02:01:01:01", groups["A"][0].Name)
	assert.Equal(t, "B*08:01", groups["B"][0].Name)
}

func TestCoverage(t *testing.T) {
	set := scenarioSet(t)
	fragments := []*locus.Fragment{
		fragment(t, "a", "QQQQQA"),
		fragment(t, "b", "QQQQQA"),
		fragment(t, "c", "QQQQQT"),
		fragment(t, "d", "QQQ"),
		fragment(t, "e", "QQ"),
	}
	coverage := Coverage(set, fragments, []int{5, 2}, 30)
	assert.Equal(t, map[string]int{
		"A*01:01:01:01": 3,
		"A*02:01:01:01": 2,
		"B*07:02:01":    4,
		"B*08:01":       4,
		"C*01:02:01":    0,
	}, coverage)
}

func TestReduceToFourDigits(t *testing.T) {
	catalog := []Allele{
		NewAllele("A*01:01:01:01", []byte("AA")),
		NewAllele("A*01:01:01:02N", []byte("AC")),
		NewAllele("A*01:02", []byte("AG")),
		NewAllele("A*01:01:38L", []byte("AT")),
	}
	reduced := ReduceToFourDigits(catalog)
	require.Len(t, reduced, 2)
	assert.Equal(t, "A*01:01:01:01", reduced[0].Name)
	assert.Equal(t, "A*01:02", reduced[1].Name)
}

func TestInflateDeflate(t *testing.T) {
	deflated := []Allele{
		NewAllele("A*01:01", []byte("MAVMP*")),
		NewAllele("A*02:01", []byte("--T-..*")),
		NewAllele("A*03:01", []byte("---*")),
		NewAllele("A*11:01", []byte("-------")),
	}
	inflated := Inflate(deflated)
	assert.Equal(t, "MAVMP*", string(inflated[0].Sequence))
	assert.Equal(t, "MATM..*", string(inflated[1].Sequence))
	assert.Equal(t, "MAV*", string(inflated[2].Sequence))
	assert.Equal(t, "MAVMP**", string(inflated[3].Sequence))
	assert.Equal(t, "--T-..*", string(deflated[1].Sequence))

	again := Deflate(inflated)
	assert.Equal(t, "--T-..*", string(again[1].Sequence))
	assert.Equal(t, "---*", string(again[2].Sequence))
	assert.Equal(t, "-----**", string(again[3].Sequence))
	assert.Equal(t, string(inflated[3].Sequence), string(Inflate(again)[3].Sequence))
	assert.Nil(t, Inflate(nil))
}
