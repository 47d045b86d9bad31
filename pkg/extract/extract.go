package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sumatoshi-tech/probe/pkg/alg/levenshtein"
	"github.com/sumatoshi-tech/probe/pkg/block"
	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/textutil"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
)

// ErrPathNotFound is returned when a target's path does not exist (spec
// 4.x failure-semantics table: "Path does not exist -> PathNotFound").
var ErrPathNotFound = errors.New("extract: path not found")

// ErrLineOutOfRange is returned when a `path:L[-L2]` target names a line
// past the end of the file.
var ErrLineOutOfRange = errors.New("extract: line out of range")

// maxSuggestions bounds how many "did you mean" candidates ErrSymbolNotFound carries.
const maxSuggestions = 3

// ErrSymbolNotFound is returned when a `path#Symbol` target has no
// matching declaration in the file (spec 4.x: "Symbol not found in
// extract -> SymbolNotFound for that input, others proceed").
type ErrSymbolNotFound struct {
	Symbol      string
	Suggestions []string
}

func (e *ErrSymbolNotFound) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("extract: symbol %q not found", e.Symbol)
	}

	return fmt.Sprintf("extract: symbol %q not found (did you mean: %s?)", e.Symbol, e.Suggestions[0])
}

// Options configures Resolve's AST-block fallback.
type Options struct {
	// ContextLines pads the fallback window when a line or range target
	// has no qualifying AST block (spec 4.K: "return the requested window
	// with context_lines padding").
	ContextLines int
	NoComments   bool
}

func (o Options) blockOptions() block.Options {
	return block.Options{NoComments: o.NoComments, FallbackPadding: o.ContextLines}
}

// Resolve reads target.Path from disk and resolves target into a single
// block (spec 4.K).
func Resolve(ctx context.Context, registry *lang.Registry, target Target, opts Options) (*block.Block, error) {
	content, err := os.ReadFile(target.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, target.Path)
		}

		return nil, fmt.Errorf("extract: reading %s: %w", target.Path, err)
	}

	switch target.Kind {
	case KindFile:
		return wholeFile(target.Path, content), nil
	case KindLine:
		if target.Line > textutil.CountLines(content) {
			return nil, fmt.Errorf("%w: %s:%d", ErrLineOutOfRange, target.Path, target.Line)
		}

		return block.FromLine(ctx, registry, target.Path, content, target.Line, opts.blockOptions())
	case KindRange:
		if total := textutil.CountLines(content); target.Line > total || target.EndLine > total {
			return nil, fmt.Errorf("%w: %s:%d-%d", ErrLineOutOfRange, target.Path, target.Line, target.EndLine)
		}

		return block.FromRange(ctx, registry, target.Path, content, target.Line, target.EndLine, opts.blockOptions())
	case KindSymbol:
		return resolveSymbol(ctx, registry, target, content)
	default:
		return nil, ErrMalformedTarget
	}
}

func wholeFile(path string, content []byte) *block.Block {
	return &block.Block{
		Path:      path,
		Kind:      lang.KindTopLevel,
		StartLine: 1,
		EndLine:   textutil.CountLines(content),
		ByteStart: 0,
		ByteEnd:   len(content),
	}
}

func resolveSymbol(ctx context.Context, registry *lang.Registry, target Target, content []byte) (*block.Block, error) {
	if !registry.Supported(target.Path) {
		return nil, &ErrSymbolNotFound{Symbol: target.Symbol}
	}

	root, err := registry.Parse(ctx, target.Path, content)
	if err != nil || root == nil {
		return nil, &ErrSymbolNotFound{Symbol: target.Symbol}
	}

	found := lang.FindSymbol(root, target.Symbol)
	if found == nil {
		return nil, &ErrSymbolNotFound{
			Symbol:      target.Symbol,
			Suggestions: suggestSymbols(root, target.Symbol),
		}
	}

	return block.FromNode(target.Path, registry.Detect(target.Path), found), nil
}

// suggestSymbols ranks every declared symbol in root by edit distance to
// name, closest first, for ErrSymbolNotFound's "did you mean" hint.
func suggestSymbols(root *node.Node, name string) []string {
	candidates := root.Find(func(n *node.Node) bool {
		if _, ok := lang.BlockKind(n); !ok {
			return false
		}

		return lang.SymbolName(n) != ""
	})

	type scored struct {
		name     string
		distance int
	}

	var ctx levenshtein.Context

	ranked := make([]scored, 0, len(candidates))

	for _, c := range candidates {
		symbol := lang.SymbolName(c)
		ranked = append(ranked, scored{name: symbol, distance: ctx.Distance(name, symbol)})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].distance < ranked[j].distance })

	out := make([]string, 0, maxSuggestions)
	seen := make(map[string]struct{}, maxSuggestions)

	for _, r := range ranked {
		if _, dup := seen[r.name]; dup {
			continue
		}

		seen[r.name] = struct{}{}
		out = append(out, r.name)

		if len(out) == maxSuggestions {
			break
		}
	}

	return out
}
