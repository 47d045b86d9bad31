// Package extract implements spec 4.K: resolving `path:L[-L2]`,
// `path#SymbolName`, and bare `path` references — including ones
// embedded in free-form text — into blocks.
package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a parsed extract Target.
type Kind int

// Target kinds, per spec 4.K's input-form union.
const (
	KindFile Kind = iota
	KindLine
	KindRange
	KindSymbol
)

// ErrMalformedTarget is returned when input matches none of spec 4.K's
// accepted forms.
var ErrMalformedTarget = errors.New("extract: malformed target")

// Target is one resolved `path:L`, `path:L-L2`, `path#Symbol`, or bare
// `path` reference.
type Target struct {
	Kind    Kind
	Path    string
	Line    int
	EndLine int
	Symbol  string
	Raw     string
}

// ParseTarget parses a single target expression (spec 4.K's three
// explicit input forms).
func ParseTarget(input string) (Target, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Target{}, ErrMalformedTarget
	}

	if path, symbol, ok := strings.Cut(input, "#"); ok {
		if path == "" || symbol == "" {
			return Target{}, ErrMalformedTarget
		}

		return Target{Kind: KindSymbol, Path: path, Symbol: symbol, Raw: input}, nil
	}

	if path, lineSpec, ok := cutLastColon(input); ok {
		start, end, err := parseLineSpec(lineSpec)
		if err != nil {
			return Target{}, err
		}

		if start == end {
			return Target{Kind: KindLine, Path: path, Line: start, EndLine: start, Raw: input}, nil
		}

		return Target{Kind: KindRange, Path: path, Line: start, EndLine: end, Raw: input}, nil
	}

	return Target{Kind: KindFile, Path: input, Raw: input}, nil
}

// cutLastColon splits input on its final ':', but only when what follows
// looks like a line spec ("N" or "N-M") — otherwise the colon is probably
// part of a Windows drive letter or URI-like path, not a line reference.
func cutLastColon(input string) (path, spec string, ok bool) {
	idx := strings.LastIndex(input, ":")
	if idx < 0 {
		return "", "", false
	}

	path, spec = input[:idx], input[idx+1:]
	if path == "" || !lineSpecPattern.MatchString(spec) {
		return "", "", false
	}

	return path, spec, true
}

var lineSpecPattern = regexp.MustCompile(`^\d+(-\d+)?$`)

func parseLineSpec(spec string) (start, end int, err error) {
	parts := strings.SplitN(spec, "-", 2)

	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, ErrMalformedTarget
	}

	if len(parts) == 1 {
		return start, start, nil
	}

	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrMalformedTarget
	}

	if end < start {
		start, end = end, start
	}

	return start, end, nil
}

// referencePattern finds `path:L` or `path:L-L2` substrings embedded in
// free-form text (spec 4.K: "a permissive extractor (line-anchored regex
// over the input)"). Paths are taken to be runs of word characters, '.',
// '/', '\' and '-' that end in a dot-extension (".go", ".py", ...),
// immediately followed by ":<digits>"; a path without an extension is
// not matched.
var referencePattern = regexp.MustCompile(`([.\w/\\-]+\.[A-Za-z0-9]+):(\d+)(-(\d+))?`)

// ParseReferences extracts every `path:L[-L2]` reference found anywhere
// in text (spec 4.K: "Also accepts free-form text input containing
// `path:L` references").
func ParseReferences(text string) []Target {
	matches := referencePattern.FindAllStringSubmatch(text, -1)

	targets := make([]Target, 0, len(matches))

	for _, m := range matches {
		path, startStr, endStr := m[1], m[2], m[4]

		start, err := strconv.Atoi(startStr)
		if err != nil {
			continue
		}

		end := start
		if endStr != "" {
			if e, convErr := strconv.Atoi(endStr); convErr == nil {
				end = e
			}
		}

		kind := KindLine
		if end != start {
			kind = KindRange
		}

		targets = append(targets, Target{Kind: kind, Path: path, Line: start, EndLine: end, Raw: m[0]})
	}

	return targets
}
