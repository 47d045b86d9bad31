package block

import (
	"sort"

	"github.com/sumatoshi-tech/probe/pkg/query"
)

// DefaultGapThreshold is the default merge gap: blocks must overlap or
// touch to merge (spec 4.F: "default gap = 0 lines").
const DefaultGapThreshold = 0

// Merge groups blocks by path, sorts each group by start line, and merges
// a block into its predecessor when it starts within gapThreshold lines of
// the predecessor's end (spec 4.F). The merged kind is the broader of the
// two (lang.Kind.Rank), variant sets are unioned, and contains_test is set
// if either constituent has it.
func Merge(blocks []*Block, gapThreshold int) []*Block {
	byPath := make(map[string][]*Block)

	for _, b := range blocks {
		byPath[b.Path] = append(byPath[b.Path], b)
	}

	var out []*Block

	for _, group := range byPath {
		out = append(out, mergeGroup(group, gapThreshold)...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}

		return out[i].StartLine < out[j].StartLine
	})

	return out
}

func mergeGroup(group []*Block, gapThreshold int) []*Block {
	sort.Slice(group, func(i, j int) bool { return group[i].StartLine < group[j].StartLine })

	merged := make([]*Block, 0, len(group))

	for _, b := range group {
		if len(merged) == 0 {
			merged = append(merged, b)

			continue
		}

		last := merged[len(merged)-1]
		if b.StartLine <= last.EndLine+gapThreshold {
			merged[len(merged)-1] = combine(last, b)

			continue
		}

		merged = append(merged, b)
	}

	return merged
}

func combine(a, b *Block) *Block {
	winner, loser := a, b
	if b.Kind.Rank() > a.Kind.Rank() {
		winner, loser = b, a
	}

	out := &Block{
		Path:         winner.Path,
		Language:     winner.Language,
		Kind:         winner.Kind,
		StartLine:    min(a.StartLine, b.StartLine),
		EndLine:      max(a.EndLine, b.EndLine),
		ByteStart:    winner.ByteStart,
		ByteEnd:      winner.ByteEnd,
		ContainsTest: a.ContainsTest || b.ContainsTest,
		SymbolName:   winner.SymbolName,
		Node:         winner.Node,
		Variants:     unionVariants(a, b),
	}

	return out
}

func unionVariants(a, b *Block) map[*query.Term]struct{} {
	out := make(map[*query.Term]struct{}, len(a.Variants)+len(b.Variants))

	for t := range a.Variants {
		out[t] = struct{}{}
	}

	for t := range b.Variants {
		out[t] = struct{}{}
	}

	return out
}
