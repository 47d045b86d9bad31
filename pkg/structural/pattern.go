// Package structural implements spec 4.J: an AST pattern matcher.
// Patterns are source text of the target language with metavariables
// ($NAME matches a single node, $$$NAME matches a run of sibling nodes),
// compiled once and matched against candidate files' UASTs.
package structural

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
)

// ErrEmptyPattern is returned when the pattern source compiles to an
// empty tree.
var ErrEmptyPattern = errors.New("structural: pattern compiled to an empty tree")

// Pattern is a compiled structural pattern, ready to be matched against
// any number of candidate trees in the same language.
type Pattern struct {
	Language string
	Source   string
	root     *node.Node
}

// Compile parses source as language and builds a Pattern from it. The
// registry must have a grammar registered for language (spec 4.J: "For
// each candidate file... restricted to the pattern's language").
func Compile(ctx context.Context, registry *lang.Registry, language, source string) (*Pattern, error) {
	filename, ok := registry.SyntheticFilename(language)
	if !ok {
		return nil, fmt.Errorf("structural: unknown language %q", language)
	}

	root, err := registry.Parse(ctx, filename, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("structural: compiling pattern: %w", err)
	}

	if root == nil {
		return nil, ErrEmptyPattern
	}

	return &Pattern{Language: language, Source: source, root: root}, nil
}

// metavariable classifies a leaf token as a single-node or list
// metavariable capture. Single: "$NAME". List: "$$$NAME". Matches spec
// 4.J's stated syntax exactly; a bare "$" or "$$" is not a metavariable.
func metavariable(token string) (name string, isList bool, ok bool) {
	switch {
	case strings.HasPrefix(token, "$$$") && len(token) > 3:
		return token[3:], true, isValidMetavarName(token[3:])
	case strings.HasPrefix(token, "$") && !strings.HasPrefix(token, "$$") && len(token) > 1:
		return token[1:], false, isValidMetavarName(token[1:])
	default:
		return "", false, false
	}
}

func isValidMetavarName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}

	return true
}
