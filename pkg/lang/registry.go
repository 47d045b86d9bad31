// Package lang is the language registry: a thin layer over pkg/uast's
// grammar bindings adding the block-kind, test, comment, and symbol
// predicates spec 4.C requires. Because pkg/uast already normalizes every
// grammar's concrete syntax tree into the same generic UAST* node
// vocabulary, these predicates are written once against that vocabulary
// rather than once per language.
package lang

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sumatoshi-tech/probe/pkg/uast"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
)

// Kind tags the syntactic category of an emitted block, per spec 4.D's
// data model ("the kind tag (function, method, class, struct, interface,
// impl, trait, block-statement, module, top-level)").
type Kind string

// Block kind tags.
const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindStatement Kind = "statement"
	KindModule    Kind = "module"
	KindTopLevel  Kind = "toplevel"
	KindWindow    Kind = "window"
)

// blockKindOrder maps a generic UAST node type to its Kind, ordered
// smallest-first as spec 4.C requires ("ordered by preference
// smallest-first"): the block expander walks ancestors outward and takes
// the first match, so methods must precede classes, classes precede
// modules.
//
//nolint:gochecknoglobals // immutable lookup table, mirrors the registry's closed language enumeration
var blockKindOrder = []struct {
	nodeType node.Type
	kind     Kind
}{
	{node.UASTIf, KindStatement},
	{node.UASTLoop, KindStatement},
	{node.UASTSwitch, KindStatement},
	{node.UASTAssignment, KindStatement},
	{node.UASTBlock, KindStatement},
	{node.UASTMethod, KindMethod},
	{node.UASTFunctionDecl, KindFunction},
	{node.UASTFunction, KindFunction},
	{node.UASTLambda, KindFunction},
	{node.UASTGetter, KindMethod},
	{node.UASTSetter, KindMethod},
	{node.UASTStruct, KindStruct},
	{node.UASTInterface, KindInterface},
	{node.UASTEnum, KindEnum},
	{node.UASTClass, KindClass},
	{node.UASTNamespace, KindModule},
	{node.UASTModule, KindModule},
	{node.UASTFile, KindTopLevel},
}

// blockKindRank indexes blockKindOrder by node type for O(1) lookup.
//
//nolint:gochecknoglobals // derived once from blockKindOrder at init
var blockKindRank = buildBlockKindRank()

func buildBlockKindRank() map[node.Type]Kind {
	m := make(map[node.Type]Kind, len(blockKindOrder))
	for _, e := range blockKindOrder {
		m[e.nodeType] = e.kind
	}

	return m
}

// BlockKind reports the Kind of n if n's type is an emittable block kind.
func BlockKind(n *node.Node) (Kind, bool) {
	if n == nil {
		return "", false
	}

	k, ok := blockKindRank[n.Type]

	return k, ok
}

// Rank gives the broader-is-larger ordering used by the block merger (spec
// 4.F: "Merge kinds by picking the broader kind (function > statement)").
func (k Kind) Rank() int {
	switch k {
	case KindWindow:
		return 0
	case KindStatement:
		return 1
	case KindFunction, KindMethod:
		return 2
	case KindStruct, KindInterface, KindEnum:
		return 3
	case KindClass:
		return 4
	case KindModule, KindTopLevel:
		return 5
	default:
		return 0
	}
}

// ParseCache memoizes parsed trees by (path, content), consulted by Parse
// when set (spec 4.E: "parse the file once, cached per-request").
// *cache.ASTCache satisfies this implicitly.
type ParseCache interface {
	Get(path string, content []byte) (*node.Node, bool)
	Put(path string, content []byte, root *node.Node)
}

// Registry resolves a filename to a language and exposes predicates over
// its parsed tree. It wraps a single immutable *uast.Parser, shared
// without locking across requests per spec 5 ("The language registry is
// immutable, shared without locking").
type Registry struct {
	parser *uast.Parser
	cache  ParseCache
}

// NewRegistry builds a Registry around parser.
func NewRegistry(parser *uast.Parser) *Registry {
	return &Registry{parser: parser}
}

// WithCache returns a copy of r that consults cache before reparsing.
func (r *Registry) WithCache(cache ParseCache) *Registry {
	return &Registry{parser: r.parser, cache: cache}
}

// Detect returns the language name for filename, or "" if the extension is
// unsupported (spec 4.C: "Unknown extensions -> treated as plain text").
func (r *Registry) Detect(filename string) string {
	return r.parser.GetLanguage(filename)
}

// Supported reports whether filename has a known grammar.
func (r *Registry) Supported(filename string) bool {
	return r.parser.IsSupported(filename)
}

// Parse parses filename's content into a UAST, or an error if unsupported.
// When r has a ParseCache, a hit returns the cached tree without reparsing.
func (r *Registry) Parse(ctx context.Context, filename string, content []byte) (*node.Node, error) {
	if r.cache != nil {
		if root, ok := r.cache.Get(filename, content); ok {
			return root, nil
		}
	}

	root, err := r.parser.Parse(ctx, filename, content)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Put(filename, content, root)
	}

	return root, nil
}

// SyntheticFilename returns a placeholder filename ("pattern.<ext>") whose
// extension maps to language, for parsing source that has no file of its
// own (structural query patterns, spec 4.J).
func (r *Registry) SyntheticFilename(language string) (string, bool) {
	mapping, err := r.parser.GetMapping(language)
	if err != nil || len(mapping.Extensions) == 0 {
		return "", false
	}

	ext := strings.TrimPrefix(mapping.Extensions[0], ".")

	return "pattern." + ext, true
}

// IsComment reports whether n is a comment or documentation node (spec
// 4.C's comment predicate, "skip comment text from indexing").
func IsComment(n *node.Node) bool {
	if n == nil {
		return false
	}

	return n.Type == node.UASTComment || n.Type == node.UASTDocString ||
		n.HasAnyRole(node.RoleComment, node.RoleDoc)
}

// IsTest reports whether n (or filename) marks test code, per spec 4.C's
// test predicate. Detection is filename-based (the common convention
// across every supported language: `_test.go`, `*_test.py`/`test_*.py`,
// `*.test.ts`/`*.spec.ts`, `*_test.rs`, `Test*.java`) and name-based (a
// function/method whose identifier starts with "test"/"Test").
func IsTest(filename string, n *node.Node) bool {
	if isTestFilename(filename) {
		return true
	}

	return n != nil && isTestIdentifier(symbolName(n))
}

func isTestFilename(filename string) bool {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	switch {
	case strings.HasSuffix(stem, "_test"):
		return true
	case strings.HasPrefix(stem, "test_"):
		return true
	case strings.HasSuffix(base, ".test.ts") || strings.HasSuffix(base, ".test.tsx"):
		return true
	case strings.HasSuffix(base, ".spec.ts") || strings.HasSuffix(base, ".spec.tsx"):
		return true
	case strings.HasPrefix(stem, "Test") && strings.HasSuffix(base, ".java"):
		return true
	default:
		return false
	}
}

func isTestIdentifier(name string) bool {
	if name == "" {
		return false
	}

	return strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "test")
}

// SymbolName extracts the identifying name from a declaration-like node:
// its "name" property if set, else the token of a child carrying RoleName.
// Used by the ranker's symbol-match boost (spec 4.G) and the extractor's
// `path#Symbol` lookup.
func SymbolName(n *node.Node) string {
	return symbolName(n)
}

func symbolName(n *node.Node) string {
	if n == nil {
		return ""
	}

	if name, ok := n.Props["name"]; ok {
		return name
	}

	for _, child := range n.Children {
		if child.HasAnyRole(node.RoleName) {
			return child.Token
		}
	}

	return ""
}

// FindSymbol locates the declaration node named name within root (spec
// 4.C's symbol predicate). It returns the first match in pre-order, so an
// earlier declaration wins even when it is nested deeper than a later one.
func FindSymbol(root *node.Node, name string) *node.Node {
	if root == nil || name == "" {
		return nil
	}

	matches := root.Find(func(n *node.Node) bool {
		if _, ok := BlockKind(n); !ok {
			return false
		}

		return symbolName(n) == name
	})

	if len(matches) == 0 {
		return nil
	}

	return matches[0]
}
