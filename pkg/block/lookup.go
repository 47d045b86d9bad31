package block

import (
	"context"

	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/query"
	"github.com/sumatoshi-tech/probe/pkg/safeconv"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

// FromLine returns the smallest block containing line (spec 4.K:
// "find the smallest block containing line L"), by driving the same
// Expand path a search request uses with a single synthetic matched
// line. Returns nil if line is out of range for content.
func FromLine(ctx context.Context, registry *lang.Registry, path string, content []byte, line int, opts Options) (*Block, error) {
	if line < 1 || line > countLines(content) {
		return nil, nil
	}

	return FromRange(ctx, registry, path, content, line, line, opts)
}

// FromRange returns the smallest block covering [startLine, endLine]
// (spec 4.K: "...or the range"). When the range spans more than one AST
// block, every touched block is enveloped into one (spec 4.F's "pick the
// broader kind" rule, reused via combine rather than duplicated) — a
// range request always wants one block covering the whole span, unlike
// the merger's gap-threshold semantics for independently discovered
// matches.
func FromRange(ctx context.Context, registry *lang.Registry, path string, content []byte, startLine, endLine int, opts Options) (*Block, error) {
	term := &query.Term{Literal: "__extract__"}

	lines := make([]int, 0, endLine-startLine+1)
	for l := startLine; l <= endLine; l++ {
		lines = append(lines, l)
	}

	fm := walker.FileMatches{
		Path:      path,
		TermLines: map[*query.Term][]int{term: lines},
	}

	blocks, err := Expand(ctx, registry, fm, content, opts)
	if err != nil || len(blocks) == 0 {
		return nil, err
	}

	envelope := blocks[0]
	for _, b := range blocks[1:] {
		envelope = combine(envelope, b)
	}

	return envelope, nil
}

// FromNode builds a Block directly from an AST node already located by
// some other means (spec 4.K's `path#SymbolName` form, where the node
// comes from lang.FindSymbol rather than a matched line).
func FromNode(path, language string, n *node.Node) *Block {
	if n == nil || n.Pos == nil {
		return nil
	}

	kind, ok := lang.BlockKind(n)
	if !ok {
		kind = lang.KindStatement
	}

	return &Block{
		Path:         path,
		Language:     language,
		Kind:         kind,
		StartLine:    safeconv.MustUintToInt(n.Pos.StartLine),
		EndLine:      safeconv.MustUintToInt(n.Pos.EndLine),
		ByteStart:    safeconv.MustUintToInt(n.Pos.StartOffset),
		ByteEnd:      safeconv.MustUintToInt(n.Pos.EndOffset),
		ContainsTest: lang.IsTest(path, n),
		SymbolName:   lang.SymbolName(n),
		Variants:     make(map[*query.Term]struct{}),
		Node:         n,
	}
}
