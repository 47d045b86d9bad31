package structural

import (
	"context"
	"fmt"
	"sort"

	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/safeconv"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
)

// Binding records what a metavariable captured: exactly one of Node (for
// "$NAME") or Nodes (for "$$$NAME") is set.
type Binding struct {
	Node  *node.Node
	Nodes []*node.Node
}

// Match is one structural hit: the matched node, its location, and the
// metavariable bindings that made the pattern unify against it.
type Match struct {
	Path      string
	Kind      lang.Kind
	StartLine int
	EndLine   int
	ByteStart int
	ByteEnd   int
	Node      *node.Node
	Bindings  map[string]Binding
}

// MatchFile parses path's content and matches pattern against it. It
// returns (nil, nil) if path's detected language doesn't match the
// pattern's language (spec 4.J: candidate files are "restricted to the
// pattern's language").
func MatchFile(ctx context.Context, registry *lang.Registry, pattern *Pattern, path string, content []byte) ([]Match, error) {
	if registry.Detect(path) != pattern.Language {
		return nil, nil
	}

	root, err := registry.Parse(ctx, path, content)
	if err != nil {
		return nil, fmt.Errorf("structural: parsing %s: %w", path, err)
	}

	return MatchTree(pattern, root, path), nil
}

// MatchTree matches pattern against every node of root, returning one
// Match per node whose subtree unifies with the pattern (spec 4.J:
// "traverse, and match nodes whose structure unifies with the pattern").
// Matches that are themselves inside an already-matched subtree are still
// reported; callers that want only outermost matches should post-filter.
func MatchTree(pattern *Pattern, root *node.Node, path string) []Match {
	if root == nil || pattern == nil {
		return nil
	}

	var matches []Match

	root.VisitPreOrder(func(n *node.Node) {
		bindings := map[string]Binding{}
		if !unify(pattern.root, n, bindings) {
			return
		}

		matches = append(matches, toMatch(path, n, bindings))
	})

	sortMatches(matches)

	return matches
}

func toMatch(path string, n *node.Node, bindings map[string]Binding) Match {
	kind, ok := lang.BlockKind(n)
	if !ok {
		kind = lang.KindStatement
	}

	m := Match{Path: path, Kind: kind, Node: n, Bindings: bindings}

	if n.Pos != nil {
		m.StartLine = safeconv.MustUintToInt(n.Pos.StartLine)
		m.EndLine = safeconv.MustUintToInt(n.Pos.EndLine)
		m.ByteStart = safeconv.MustUintToInt(n.Pos.StartOffset)
		m.ByteEnd = safeconv.MustUintToInt(n.Pos.EndOffset)
	}

	return m
}

// sortMatches orders matches by file path then start line, per spec 4.J
// ("Rank by file path then start line (no relevance scoring)").
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}

		return matches[i].StartLine < matches[j].StartLine
	})
}

// unify attempts to match pat against cand, recording metavariable
// captures into bindings. A metavariable that's already bound must
// re-match the same subtree structurally (linear pattern semantics).
func unify(pat, cand *node.Node, bindings map[string]Binding) bool {
	if pat == nil || cand == nil {
		return pat == cand
	}

	if name, isList, ok := metavariable(pat.Token); ok && !isList && len(pat.Children) == 0 {
		return bindSingle(name, cand, bindings)
	}

	if pat.Type != cand.Type {
		return false
	}

	if name, isList, ok := metavariable(pat.Token); ok && !isList {
		if !bindSingle(name, cand, bindings) {
			return false
		}
	} else if pat.Token != "" && pat.Token != cand.Token {
		return false
	}

	return matchChildren(pat.Children, cand.Children, bindings)
}

func bindSingle(name string, cand *node.Node, bindings map[string]Binding) bool {
	if existing, ok := bindings[name]; ok {
		return sameSubtree(existing.Node, cand)
	}

	bindings[name] = Binding{Node: cand}

	return true
}

// matchChildren pairs pat's children against cand's children. A single
// list metavariable ("$$$NAME") among pat's children consumes a
// contiguous run of cand's children; at most one is supported per level.
func matchChildren(pat, cand []*node.Node, bindings map[string]Binding) bool {
	spreadIdx, spreadName, hasSpread := findSpread(pat)
	if !hasSpread {
		if len(pat) != len(cand) {
			return false
		}

		for i := range pat {
			if !unify(pat[i], cand[i], bindings) {
				return false
			}
		}

		return true
	}

	before := pat[:spreadIdx]
	after := pat[spreadIdx+1:]

	if len(before)+len(after) > len(cand) {
		return false
	}

	for i, p := range before {
		if !unify(p, cand[i], bindings) {
			return false
		}
	}

	for i, p := range after {
		if !unify(p, cand[len(cand)-len(after)+i], bindings) {
			return false
		}
	}

	captured := cand[len(before) : len(cand)-len(after)]
	if existing, ok := bindings[spreadName]; ok {
		return sameSubtreeList(existing.Nodes, captured)
	}

	bindings[spreadName] = Binding{Nodes: captured}

	return true
}

func findSpread(pat []*node.Node) (index int, name string, ok bool) {
	for i, p := range pat {
		if n, isList, matched := metavariable(p.Token); matched && isList {
			return i, n, true
		}
	}

	return 0, "", false
}

// sameSubtree is a coarse structural-equality check used to enforce that
// a repeated metavariable captures the same thing each time: same type
// and token, recursively, ignoring positions.
func sameSubtree(a, b *node.Node) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.Type != b.Type || a.Token != b.Token || len(a.Children) != len(b.Children) {
		return false
	}

	for i := range a.Children {
		if !sameSubtree(a.Children[i], b.Children[i]) {
			return false
		}
	}

	return true
}

func sameSubtreeList(a, b []*node.Node) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !sameSubtree(a[i], b[i]) {
			return false
		}
	}

	return true
}
