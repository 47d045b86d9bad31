package block_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumatoshi-tech/probe/pkg/block"
	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/query"
	"github.com/sumatoshi-tech/probe/pkg/uast"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

func TestExpand_UnsupportedLanguageProducesWindow(t *testing.T) {
	t.Parallel()

	content := make([]byte, 0)
	for i := 1; i <= 40; i++ {
		content = append(content, []byte("line\n")...)
	}

	term := &query.Term{Literal: "foo", Variants: []string{"foo"}}
	fm := walker.FileMatches{
		Path:      "notes.txt",
		TermLines: map[*query.Term][]int{term: {20}},
	}

	parser, err := uast.NewParser()
	require.NoError(t, err)

	registry := lang.NewRegistry(parser)

	blocks, err := block.Expand(context.Background(), registry, fm, content, block.Options{})
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, lang.KindWindow, b.Kind)
	assert.LessOrEqual(t, b.StartLine, 20)
	assert.GreaterOrEqual(t, b.EndLine, 20)
	assert.Contains(t, b.Variants, term)
}

func TestExpand_NoMatchedLinesReturnsNil(t *testing.T) {
	t.Parallel()

	parser, err := uast.NewParser()
	require.NoError(t, err)

	registry := lang.NewRegistry(parser)
	fm := walker.FileMatches{Path: "notes.txt", TermLines: map[*query.Term][]int{}}

	blocks, err := block.Expand(context.Background(), registry, fm, []byte("hello\n"), block.Options{})
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestMerge_OverlappingBlocksCombine(t *testing.T) {
	t.Parallel()

	t1 := &query.Term{Literal: "a", Variants: []string{"a"}}
	t2 := &query.Term{Literal: "b", Variants: []string{"b"}}

	a := &block.Block{
		Path: "f.go", Kind: lang.KindStatement, StartLine: 1, EndLine: 10,
		Variants: map[*query.Term]struct{}{t1: {}},
	}
	b := &block.Block{
		Path: "f.go", Kind: lang.KindFunction, StartLine: 8, EndLine: 20,
		Variants: map[*query.Term]struct{}{t2: {}},
	}

	merged := block.Merge([]*block.Block{a, b}, block.DefaultGapThreshold)
	require.Len(t, merged, 1)

	m := merged[0]
	assert.Equal(t, 1, m.StartLine)
	assert.Equal(t, 20, m.EndLine)
	assert.Equal(t, lang.KindFunction, m.Kind, "broader kind wins")
	assert.Contains(t, m.Variants, t1)
	assert.Contains(t, m.Variants, t2)
}

func TestMerge_NonTouchingBlocksStaySeparate(t *testing.T) {
	t.Parallel()

	a := &block.Block{Path: "f.go", Kind: lang.KindFunction, StartLine: 1, EndLine: 5, Variants: map[*query.Term]struct{}{}}
	b := &block.Block{Path: "f.go", Kind: lang.KindFunction, StartLine: 10, EndLine: 15, Variants: map[*query.Term]struct{}{}}

	merged := block.Merge([]*block.Block{a, b}, block.DefaultGapThreshold)
	assert.Len(t, merged, 2)
}

func TestMerge_ContainsTestPropagates(t *testing.T) {
	t.Parallel()

	a := &block.Block{Path: "f.go", Kind: lang.KindFunction, StartLine: 1, EndLine: 10, ContainsTest: true, Variants: map[*query.Term]struct{}{}}
	b := &block.Block{Path: "f.go", Kind: lang.KindFunction, StartLine: 5, EndLine: 15, ContainsTest: false, Variants: map[*query.Term]struct{}{}}

	merged := block.Merge([]*block.Block{a, b}, block.DefaultGapThreshold)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].ContainsTest)
}

func TestMerge_GroupsByPathIndependently(t *testing.T) {
	t.Parallel()

	a := &block.Block{Path: "a.go", Kind: lang.KindFunction, StartLine: 1, EndLine: 5, Variants: map[*query.Term]struct{}{}}
	b := &block.Block{Path: "b.go", Kind: lang.KindFunction, StartLine: 1, EndLine: 5, Variants: map[*query.Term]struct{}{}}

	merged := block.Merge([]*block.Block{a, b}, block.DefaultGapThreshold)
	assert.Len(t, merged, 2)
}

func TestBlockText_UsesByteRangeWhenPresent(t *testing.T) {
	t.Parallel()

	content := []byte("package p\n\nfunc Greet() {}\n")
	b := &block.Block{StartLine: 3, EndLine: 3, ByteStart: 11, ByteEnd: 26}

	assert.Equal(t, "func Greet() {}", b.Text(content))
}

func TestBlockText_FallsBackToLineRangeForWindowBlocks(t *testing.T) {
	t.Parallel()

	content := []byte("one\ntwo\nthree\nfour\n")
	b := &block.Block{Kind: lang.KindWindow, StartLine: 2, EndLine: 3}

	assert.Equal(t, "two\nthree", b.Text(content))
}
