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

package phase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elhla/intervals"
	"github.com/exascience/elhla/locus"
)

func fragmentAt(t *testing.T, id string, positions []int, symbols string) *locus.Fragment {
	require.Equal(t, len(positions), len(symbols))
	read := make(locus.Read, len(positions))
	for i, p := range positions {
		read[i] = locus.Entry{Position: p, Observation: locus.Observation{Symbol: symbols[i], Quality: 30}}
	}
	f, err := locus.NewFragment(id, read)
	require.NoError(t, err)
	return f
}

func repeat(t *testing.T, n int, positions []int, symbols string) []*locus.Fragment {
	var result []*locus.Fragment
	for i := 0; i < n; i++ {
		result = append(result, fragmentAt(t, fmt.Sprint(symbols, positions, i), positions, symbols))
	}
	return result
}

var hetPositions = []int{10, 20, 30, 40, 50}

const (
	haplotype1 = "ACGTA"
	haplotype2 = "TGCAT"
)

// twoHaplotypes returns fragments of two haplotypes over hetPositions,
// each fragment spanning three consecutive heterozygous positions.
func twoHaplotypes(t *testing.T) []*locus.Fragment {
	var result []*locus.Fragment
	for start := 0; start+3 <= len(hetPositions); start++ {
		window := hetPositions[start : start+3]
		result = append(result, repeat(t, 4, window, haplotype1[start:start+3])...)
		result = append(result, repeat(t, 4, window, haplotype2[start:start+3])...)
	}
	return result
}

func keys(evidence []*Evidence) []string {
	result := make([]string, len(evidence))
	for i, e := range evidence {
		result[i] = e.Key()
	}
	return result
}

func TestNewEvidenceValidation(t *testing.T) {
	cases := []struct {
		name       string
		positions  []int
		haplotypes map[string]int
	}{
		{"empty extent", nil, map[string]int{"": 1}},
		{"no haplotypes", []int{1}, map[string]int{}},
		{"descending", []int{3, 1}, map[string]int{"AC": 2}},
		{"duplicate", []int{1, 1}, map[string]int{"AC": 2}},
		{"negative", []int{-1, 2}, map[string]int{"AC": 2}},
		{"length mismatch", []int{1, 2}, map[string]int{"ACG": 2}},
		{"zero support", []int{1}, map[string]int{"A": 0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewEvidence(c.positions, c.haplotypes)
			assert.True(t, errors.Is(err, ErrInvalidEvidence), "got %v", err)
		})
	}
}

func TestEvidenceValueSemantics(t *testing.T) {
	haplotypes := map[string]int{"TG": 3, "AC": 4}
	e, err := NewEvidence([]int{2, 9}, haplotypes)
	require.NoError(t, err)
	haplotypes["GG"] = 5

	assert.Equal(t, "2,9|AC:4,TG:3", e.Key())
	assert.Equal(t, []string{"AC", "TG"}, e.Haplotypes())
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, 7, e.TotalSupport())
	assert.Equal(t, 2, e.First())

	same := mustEvidence([]int{2, 9}, map[string]int{"AC": 4, "TG": 3})
	assert.Equal(t, e.Key(), same.Key())
	set := make(EvidenceSet)
	assert.True(t, set.Add(e))
	assert.False(t, set.Add(same))
	assert.True(t, set.Has(same))
}

func TestCanonicalOrder(t *testing.T) {
	a := mustEvidence([]int{1, 5}, map[string]int{"AC": 3, "TG": 3})
	b := mustEvidence([]int{1}, map[string]int{"A": 3, "T": 3})
	c := mustEvidence([]int{0, 8, 9}, map[string]int{"AAA": 3, "CCC": 3})
	d := mustEvidence([]int{1, 6}, map[string]int{"AA": 3, "TG": 3})
	e := mustEvidence([]int{1, 6}, map[string]int{"AA": 4, "TG": 3})
	list := []*Evidence{e, a, d, c, b}
	Sort(list)
	assert.Equal(t, keys([]*Evidence{c, b, d, e, a}), keys(list))
}

func TestInitialEvidenceScenario(t *testing.T) {
	fragments := repeat(t, 5, []int{5, 7}, "AG")
	fragments = append(fragments, repeat(t, 5, []int{5, 7}, "AG")...)
	fragments = append(fragments, repeat(t, 4, []int{5, 7}, "TG")...)

	p := NewPhaser(Options{MinQuality: 30, MinCount: 3}, []int{7, 5}, fragments)
	initial := p.InitialEvidence()
	require.Len(t, initial, 1)
	assert.Equal(t, []int{5}, initial[0].Positions())
	assert.Equal(t, 10, initial[0].Support("A"))
	assert.Equal(t, 4, initial[0].Support("T"))
	assert.Equal(t, []int{5, 7}, p.Positions())
}

func TestInitialEvidenceThresholds(t *testing.T) {
	fragments := repeat(t, 5, []int{5}, "A")
	fragments = append(fragments, repeat(t, 2, []int{5}, "T")...)
	low, err := locus.NewFragment("low", locus.NewRead(5, "T", 10))
	require.NoError(t, err)
	fragments = append(fragments, low)

	p := NewPhaser(Options{MinQuality: 30, MinCount: 3}, []int{5}, fragments)
	assert.Empty(t, p.InitialEvidence())

	p = NewPhaser(Options{MinQuality: 10, MinCount: 3}, []int{5}, fragments)
	require.Len(t, p.InitialEvidence(), 1)
}

func TestExtendEvidence(t *testing.T) {
	fragments := twoHaplotypes(t)
	start := mustEvidence([]int{10}, map[string]int{"A": 4, "T": 4})

	p := NewPhaser(Options{MinQuality: 30, MinCount: 3}, hetPositions, fragments)
	extended := p.ExtendEvidence(start, EvidenceSet{})
	require.Len(t, extended, 2)
	assert.Equal(t, "10,20|AC:4,TG:4", extended[0].Key())
	assert.Equal(t, "10,30|AG:4,TC:4", extended[1].Key())

	seen := EvidenceSet{}
	seen.Add(extended[0])
	again := p.ExtendEvidence(start, seen)
	assert.Equal(t, keys(extended[1:]), keys(again))

	nearest := NewPhaser(Options{MinQuality: 30, MinCount: 3, NearestOnly: true}, hetPositions, fragments)
	extended = nearest.ExtendEvidence(start, EvidenceSet{})
	require.Len(t, extended, 1)
	assert.Equal(t, []int{10, 20}, extended[0].Positions())
}

func TestFullEvidence(t *testing.T) {
	p := NewPhaser(Options{MinQuality: 30, MinCount: 3}, hetPositions, twoHaplotypes(t))
	full, err := p.FullEvidence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"10,20,30|ACG:4,TGC:4",
		"20,30,40|CGT:4,GCA:4",
		"30,40,50|CAT:4,GTA:4",
	}, keys(full))
}

func TestNoiseIsNeverPhased(t *testing.T) {
	noise := []intervals.Interval{{Start: 20, End: 20}}
	p := NewPhaser(Options{MinQuality: 30, MinCount: 3, Noise: noise}, hetPositions, twoHaplotypes(t))
	assert.Equal(t, []int{10, 30, 40, 50}, p.Positions())

	start := mustEvidence([]int{10}, map[string]int{"A": 4, "T": 4})
	extended := p.ExtendEvidence(start, EvidenceSet{})
	assert.Equal(t, []string{"10,30|AG:4,TC:4"}, keys(extended))

	all, err := p.Search(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for _, e := range all.Sorted() {
		assert.NotContains(t, e.Positions(), 20, e.Key())
	}
	assert.False(t, all.Has(mustEvidence([]int{20}, map[string]int{"C": 8, "G": 8})))
}

func TestStepAdvancesSearch(t *testing.T) {
	p := NewPhaser(Options{MinQuality: 30, MinCount: 3}, hetPositions, twoHaplotypes(t))
	initial := p.InitialEvidence()
	state := searchState{seen: make(EvidenceSet), queue: initial}
	for _, e := range initial {
		state.seen.Add(e)
	}
	head := initial[0]
	extended := p.ExtendEvidence(head, state.seen)
	require.NotEmpty(t, extended)

	next := p.step(state)
	assert.Len(t, next.queue, len(initial)-1+len(extended))
	assert.Len(t, next.seen, len(initial)+len(extended))
	for i, e := range next.queue {
		assert.True(t, next.seen.Has(e), e.Key())
		if i > 0 {
			assert.False(t, Less(e, next.queue[i-1]), e.Key())
		}
	}
	for _, e := range extended {
		assert.True(t, next.seen.Has(e), e.Key())
	}
}

func TestSearchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPhaser(Options{MinQuality: 30, MinCount: 3}, hetPositions, twoHaplotypes(t))
	all, err := p.Search(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, all, len(p.InitialEvidence()))
}

func TestSearchIsDeterministic(t *testing.T) {
	fragments := twoHaplotypes(t)
	first, err := NewPhaser(Options{MinQuality: 30, MinCount: 3}, hetPositions, fragments).FullEvidence(context.Background())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := NewPhaser(Options{MinQuality: 30, MinCount: 3}, hetPositions, fragments).FullEvidence(context.Background())
		require.NoError(t, err)
		assert.Equal(t, keys(first), keys(next))
	}
}

func TestContains(t *testing.T) {
	wide := mustEvidence([]int{1, 2, 3}, map[string]int{"ACG": 4, "TGC": 4})
	narrow := mustEvidence([]int{2, 3}, map[string]int{"CG": 8, "GC": 8})
	novel := mustEvidence([]int{2, 3}, map[string]int{"CG": 8, "GG": 8})
	twin := mustEvidence([]int{1, 2, 3}, map[string]int{"ACG": 5, "TGC": 4})

	assert.True(t, wide.Contains(narrow))
	assert.False(t, narrow.Contains(wide))
	assert.False(t, wide.Contains(novel))
	assert.False(t, wide.Contains(wide))
	assert.NotEqual(t, wide.Contains(twin), twin.Contains(wide))
}

func TestLongestFullEvidence(t *testing.T) {
	wide := mustEvidence([]int{1, 2, 3}, map[string]int{"ACG": 4, "TGC": 4})
	narrow := mustEvidence([]int{2, 3}, map[string]int{"CG": 8, "GC": 8})
	novel := mustEvidence([]int{2, 3}, map[string]int{"CG": 8, "GG": 8})
	other := mustEvidence([]int{7}, map[string]int{"A": 8, "T": 8})
	twin := mustEvidence([]int{1, 2, 3}, map[string]int{"ACG": 5, "TGC": 4})

	result := LongestFullEvidence([]*Evidence{other, narrow, twin, novel, wide, wide})
	require.Len(t, result, 3)
	assert.Equal(t, []int{1, 2, 3}, result[0].Positions())
	assert.Equal(t, novel.Key(), result[1].Key())
	assert.Equal(t, other.Key(), result[2].Key())

	for i, a := range result {
		for j, b := range result {
			if i != j {
				assert.False(t, a.Contains(b), "%v contains %v", a, b)
			}
		}
	}
}

func TestCombine(t *testing.T) {
	a := mustEvidence([]int{1, 2, 3}, map[string]int{"ACG": 4, "TGC": 6})
	b := mustEvidence([]int{2, 3, 4}, map[string]int{"CGT": 5, "GCA": 3, "GGA": 9})

	combined, ok := Combine(a, b, SupportMin)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3, 4}, combined.Positions())
	assert.Equal(t, "1,2,3,4|ACGT:4,TGCA:3", combined.Key())

	summed, ok := Combine(a, b, SupportSum)
	require.True(t, ok)
	assert.Equal(t, "1,2,3,4|ACGT:9,TGCA:9", summed.Key())

	c := mustEvidence([]int{3, 9}, map[string]int{"AA": 3})
	_, ok = Combine(a, c, SupportMin)
	assert.False(t, ok)

	d := mustEvidence([]int{0, 3, 8}, map[string]int{"TGA": 3, "AGC": 3})
	combined, ok = Combine(a, d, SupportMin)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3, 8}, combined.Positions())
	assert.Equal(t, []string{"AACGC", "TACGA"}, combined.Haplotypes())
}

func TestConsolidate(t *testing.T) {
	p := NewPhaser(Options{MinQuality: 30, MinCount: 3}, hetPositions, twoHaplotypes(t))
	full, err := p.FullEvidence(context.Background())
	require.NoError(t, err)

	once := Consolidate(full, DefaultConsolidateOptions())
	twice := Consolidate(append(append([]*Evidence(nil), full...), full...), DefaultConsolidateOptions())
	assert.Equal(t, keys(once), keys(twice))
	assert.Contains(t, keys(once), "10,20,30,40|ACGT:4,TGCA:4")
	for i := 1; i < len(once); i++ {
		assert.LessOrEqual(t, once[i-1].First(), once[i].First())
	}

	consolidated := ConsolidateRounds(full, DefaultConsolidateOptions())
	assert.Equal(t, []string{"10,20,30,40,50|ACGTA:4,TGCAT:4"}, keys(consolidated))
}

func TestConsolidateCap(t *testing.T) {
	a := mustEvidence([]int{1, 2}, map[string]int{"AA": 3, "AC": 3, "AG": 3})
	b := mustEvidence([]int{1, 3}, map[string]int{"AA": 3, "AC": 3, "AG": 3})

	capped := Consolidate([]*Evidence{a, b}, ConsolidateOptions{MaxHaplotypes: 6, Rounds: 1})
	assert.Equal(t, keys([]*Evidence{a, b}), keys(capped))

	uncapped := Consolidate([]*Evidence{a, b}, ConsolidateOptions{MaxHaplotypes: 9, Rounds: 1})
	require.Len(t, uncapped, 3)
	assert.Equal(t, []int{1, 2, 3}, uncapped[2].Positions())
	assert.Equal(t, 9, uncapped[2].Len())
}

func TestConsolidateUnionExtent(t *testing.T) {
	a := mustEvidence([]int{4, 8, 15}, map[string]int{"ACG": 3, "TGC": 3})
	b := mustEvidence([]int{8, 16, 23}, map[string]int{"CAA": 3, "GTT": 3})
	result := Consolidate([]*Evidence{a, b}, DefaultConsolidateOptions())
	require.Len(t, result, 3)
	var merged *Evidence
	for _, e := range result {
		if len(e.Positions()) > 3 {
			merged = e
		}
	}
	require.NotNil(t, merged)
	assert.Equal(t, []int{4, 8, 15, 16, 23}, merged.Positions())
}
