// Package block implements spec 4.E/4.F: it expands a file's matched lines
// into AST-bounded (or window-bounded) blocks, then merges overlapping or
// touching blocks per file.
package block

import (
	"bytes"
	"context"

	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/mathutil"
	"github.com/sumatoshi-tech/probe/pkg/query"
	"github.com/sumatoshi-tech/probe/pkg/safeconv"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

// DefaultWindowLines is the fixed window size for plain-text / unsupported
// language files (spec 4.C).
const DefaultWindowLines = 20

// DefaultFallbackPadding is the ±N line padding used when an AST exists but
// no ancestor qualifies as a block (spec 4.E step 3).
const DefaultFallbackPadding = 10

// Block is a contiguous line range within one file, carrying the kind tag,
// its originating AST node's byte span (when known), whether it contains
// test code, and the set of query terms whose matched lines fall inside it.
type Block struct {
	Path         string
	Language     string
	Kind         lang.Kind
	StartLine    int
	EndLine      int
	ByteStart    int
	ByteEnd      int
	ContainsTest bool
	SymbolName   string
	Variants     map[*query.Term]struct{}
	Node         *node.Node
}

// Options configures the expander.
type Options struct {
	NoComments      bool
	WindowLines     int
	FallbackPadding int
}

func (o Options) windowLines() int {
	if o.WindowLines > 0 {
		return o.WindowLines
	}

	return DefaultWindowLines
}

func (o Options) fallbackPadding() int {
	if o.FallbackPadding > 0 {
		return o.FallbackPadding
	}

	return DefaultFallbackPadding
}

// Text extracts b's source text from content, the same bytes it was
// expanded or looked up from. AST-bounded blocks slice by byte offset;
// window blocks (no byte range) slice by line instead.
func (b *Block) Text(content []byte) string {
	if b.ByteEnd > b.ByteStart && b.ByteEnd <= len(content) {
		return string(content[b.ByteStart:b.ByteEnd])
	}

	lines := bytes.Split(content, []byte("\n"))

	start := mathutil.Max(1, b.StartLine) - 1
	end := mathutil.Min(len(lines), b.EndLine)

	if start >= end {
		return ""
	}

	return string(bytes.Join(lines[start:end], []byte("\n")))
}

// Expand turns a file's matched lines into blocks (spec 4.E). content must
// be the same bytes the walker scanned. A parse failure or unsupported
// language falls back to fixed-size line windows, per spec's failure
// semantics table ("Unparseable file -> Fall back to text-window blocks").
func Expand(ctx context.Context, registry *lang.Registry, fm walker.FileMatches, content []byte, opts Options) ([]*Block, error) {
	lines := unionLines(fm.TermLines)
	if len(lines) == 0 {
		return nil, nil
	}

	totalLines := countLines(content)

	if !registry.Supported(fm.Path) {
		return windowBlocks(fm, lines, totalLines, opts.windowLines()), nil
	}

	root, err := registry.Parse(ctx, fm.Path, content)
	if err != nil || root == nil {
		return windowBlocks(fm, lines, totalLines, opts.windowLines()), nil
	}

	language := registry.Detect(fm.Path)

	blocks := expandAST(ctx, fm, root, lines, totalLines, language, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return blocks, nil
}

func unionLines(termLines map[*query.Term][]int) []int {
	seen := make(map[int]struct{})

	for _, ls := range termLines {
		for _, l := range ls {
			seen[l] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}

	sortInts(out)

	return out
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func countLines(content []byte) int {
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}

	return n
}

func windowBlocks(fm walker.FileMatches, lines []int, totalLines, windowLines int) []*Block {
	half := windowLines / 2

	merged := make(map[[2]int]*Block)

	for _, line := range lines {
		start := mathutil.Max(1, line-half)
		end := mathutil.Min(totalLines, start+windowLines-1)

		key := [2]int{start, end}

		b, ok := merged[key]
		if !ok {
			b = &Block{
				Path:      fm.Path,
				Kind:      lang.KindWindow,
				StartLine: start,
				EndLine:   end,
				Variants:  make(map[*query.Term]struct{}),
			}
			merged[key] = b
		}

		attachVariantsOnLine(b, fm.TermLines, line)
	}

	return sortedBlocks(merged)
}

func attachVariantsOnLine(b *Block, termLines map[*query.Term][]int, line int) {
	for t, ls := range termLines {
		if containsLine(ls, line) {
			b.Variants[t] = struct{}{}
		}
	}
}

func containsLine(ls []int, line int) bool {
	for _, l := range ls {
		if l == line {
			return true
		}
	}

	return false
}

func sortedBlocks(m map[[2]int]*Block) []*Block {
	out := make([]*Block, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].StartLine > out[j].StartLine; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}

	return out
}

func expandAST(
	ctx context.Context, fm walker.FileMatches, root *node.Node, lines []int, totalLines int, language string, opts Options,
) []*Block {
	merged := make(map[[2]int]*Block)

	for _, line := range lines {
		if ctx.Err() != nil {
			break
		}

		target := deepestContaining(root, line)
		if target == nil {
			continue
		}

		blockNode, kind, ok := nearestBlockKind(root, target)

		var (
			start, end int
			n          *node.Node
		)

		switch {
		case ok:
			if lang.IsComment(target) && opts.NoComments {
				continue
			}

			start, end = int(blockNode.Pos.StartLine), int(blockNode.Pos.EndLine)
			n = blockNode
		case target.Pos != nil:
			start, end = int(target.Pos.StartLine), int(target.Pos.EndLine)
			kind = lang.KindStatement
			n = target
		default:
			pad := opts.fallbackPadding()
			start = mathutil.Max(1, line-pad)
			end = mathutil.Min(totalLines, line+pad)
			kind = lang.KindWindow
		}

		key := [2]int{start, end}

		b, exists := merged[key]
		if !exists {
			b = &Block{
				Path:      fm.Path,
				Language:  language,
				Kind:      kind,
				StartLine: start,
				EndLine:   end,
				Variants:  make(map[*query.Term]struct{}),
				Node:      n,
			}

			if n != nil && n.Pos != nil {
				b.ByteStart = safeconv.MustUintToInt(n.Pos.StartOffset)
				b.ByteEnd = safeconv.MustUintToInt(n.Pos.EndOffset)
			}

			if n != nil {
				b.ContainsTest = lang.IsTest(fm.Path, n)
				b.SymbolName = lang.SymbolName(n)
			}

			merged[key] = b
		}

		attachVariantsOnLine(b, fm.TermLines, line)
	}

	return sortedBlocks(merged)
}

// deepestContaining returns the most deeply nested node whose line span
// contains line, using line bounds rather than byte offsets (spec 4.E:
// "blocks spanning CR/LF boundaries use line, not byte, boundaries").
func deepestContaining(n *node.Node, line int) *node.Node {
	if n == nil || n.Pos == nil {
		return nil
	}

	if line < int(n.Pos.StartLine) || line > int(n.Pos.EndLine) {
		return nil
	}

	for _, child := range n.Children {
		if d := deepestContaining(child, line); d != nil {
			return d
		}
	}

	return n
}

// nearestBlockKind walks from target up through its ancestors (target
// itself first) for the nearest node whose type is an emittable block
// kind (spec 4.E step 2). ok is false if neither target nor any ancestor
// qualifies.
func nearestBlockKind(root, target *node.Node) (*node.Node, lang.Kind, bool) {
	if k, ok := lang.BlockKind(target); ok {
		return target, k, true
	}

	ancestors := root.Ancestors(target)

	for i := len(ancestors) - 1; i >= 0; i-- {
		if k, ok := lang.BlockKind(ancestors[i]); ok {
			return ancestors[i], k, true
		}
	}

	return nil, "", false
}
