package pipeline

import (
	"bytes"
	"sort"

	"github.com/wasmlab/typecorpus/wasm"
)

// DupGroup reports one structural signature shared by several binaries,
// identified by its surviving representative.
type DupGroup struct {
	Path  string
	Count int
}

// Totals aggregates binary stats before or after deduplication.
type Totals struct {
	Binaries          int
	FunctionBodies    int
	FunctionBodyBytes int
	Instructions      int
}

func sumTotals(stats []*wasm.BinaryStats) Totals {
	t := Totals{Binaries: len(stats)}
	for _, s := range stats {
		t.FunctionBodies += s.FunctionBodies
		t.FunctionBodyBytes += s.FunctionBodyBytes
		t.Instructions += s.InstructionCount
	}
	return t
}

// dedupStats groups binaries by structural signature and keeps one
// representative per group: after sorting by (signature, path) the first
// of each run survives, so ties always resolve to the lexically smallest
// path. Returns the survivors and the duplicate groups with more than
// one member, largest first, capped at topN.
func dedupStats(stats []*wasm.BinaryStats, topN int) ([]*wasm.BinaryStats, []DupGroup) {
	sorted := make([]*wasm.BinaryStats, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool {
		if c := bytes.Compare(sorted[i].Signature[:], sorted[j].Signature[:]); c != 0 {
			return c < 0
		}
		return sorted[i].Path < sorted[j].Path
	})

	var unique []*wasm.BinaryStats
	var groups []DupGroup
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Signature == sorted[i].Signature {
			j++
		}
		unique = append(unique, sorted[i])
		if n := j - i; n > 1 {
			groups = append(groups, DupGroup{Path: sorted[i].Path, Count: n})
		}
		i = j
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Path < groups[j].Path
	})
	if topN > 0 && len(groups) > topN {
		groups = groups[:topN]
	}
	return unique, groups
}
