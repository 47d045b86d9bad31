// Package walker implements spec 4.D: it walks a root directory honoring
// ignore rules, and for every candidate file reports, per query term, the
// 1-indexed line numbers where any of the term's variants occurs.
package walker

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sumatoshi-tech/probe/pkg/query"
	"github.com/sumatoshi-tech/probe/pkg/textutil"
)

// ErrPathNotFound reports a root directory that does not exist.
var ErrPathNotFound = errors.New("probe: path not found")

// Warning records a per-file problem that does not fail the whole walk
// (spec 7: "Per-file errors... are recovered").
type Warning struct {
	Path    string
	Message string
}

// FileMatches is the per-file scan result: for each term, the sorted list
// of 1-indexed lines on which any of its variants occurred.
type FileMatches struct {
	Path      string
	Language  string
	TermLines map[*query.Term][]int
}

// Options configures the walk.
type Options struct {
	IgnoreFiles   []string // e.g. [".gitignore", ".ignore"]
	BuiltinIgnore []string // directory names or glob patterns to always skip
	MaxFileSize   int64
	Exact         bool
	// LanguageFilter, if set, skips files the registry does not resolve to
	// this language name.
	LanguageFilter string
	DetectLanguage func(filename string) string
}

// TermSet is the flattened set of term leaves a Walk call scans for.
type TermSet struct {
	All       []*query.Term
	Required  []*query.Term
	Forbidden []*query.Term
}

// NewTermSet flattens a compiled query expression into the scan set Walk
// needs.
func NewTermSet(expr *query.Expr) TermSet {
	return TermSet{
		All:       expr.Terms(),
		Required:  expr.RequiredTerms(),
		Forbidden: expr.ForbiddenTerms(),
	}
}

// Walk scans root for files matching terms, honoring ignore rules. Results
// are returned in a deterministic, path-sorted order (spec 5: "results are
// collected into a deterministic order before ranking"). A cancelled
// context aborts remaining work and returns context.Canceled.
func Walk(ctx context.Context, root string, terms TermSet, opts Options) ([]FileMatches, []Warning, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, ErrPathNotFound
	}

	if !info.IsDir() {
		return scanSingleFile(ctx, root, terms, opts)
	}

	ignoreMatchers := loadIgnoreMatchers(root, opts.IgnoreFiles)

	paths, walkWarnings, err := collectCandidatePaths(root, opts, ignoreMatchers)
	if err != nil {
		return nil, nil, err
	}

	results, scanWarnings := scanFilesParallel(ctx, paths, terms, opts)

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	warnings := append(walkWarnings, scanWarnings...) //nolint:gocritic // intentional combined return, not reused

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	return results, warnings, nil
}

func scanSingleFile(ctx context.Context, path string, terms TermSet, opts Options) ([]FileMatches, []Warning, error) {
	results, warnings := scanFilesParallel(ctx, []string{path}, terms, opts)

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	return results, warnings, nil
}

func collectCandidatePaths(root string, opts Options, matchers []ignoreMatcher) ([]string, []Warning, error) {
	var (
		paths    []string
		warnings []Warning
	)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Message: err.Error()})

			return nil
		}

		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if shouldSkipDir(d.Name(), rel, opts.BuiltinIgnore) || isIgnored(rel, matchers) {
				return filepath.SkipDir
			}

			return nil
		}

		if isHidden(d.Name()) || isIgnored(rel, matchers) || matchesBuiltinIgnore(rel, opts.BuiltinIgnore) {
			return nil
		}

		if opts.LanguageFilter != "" && opts.DetectLanguage != nil {
			if opts.DetectLanguage(path) != opts.LanguageFilter {
				return nil
			}
		}

		paths = append(paths, path)

		return nil
	})

	return paths, warnings, walkErr
}

func shouldSkipDir(name, rel string, builtinIgnore []string) bool {
	if isHidden(name) {
		return true
	}

	return matchesBuiltinIgnore(rel, builtinIgnore)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func matchesBuiltinIgnore(rel string, patterns []string) bool {
	base := filepath.Base(rel)

	for _, p := range patterns {
		if p == base {
			return true
		}

		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}

	return false
}

// scanFilesParallel runs the line scanner across files on a worker pool
// bounded by available cores (spec 5: "Parallel worker pool bounded by
// available cores... each worker handles one file's scan"). Per-file work
// remains sequential.
func scanFilesParallel(ctx context.Context, paths []string, terms TermSet, opts Options) ([]FileMatches, []Warning) {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)

	var (
		mu       sync.Mutex
		results  []FileMatches
		warnings []Warning
		wg       sync.WaitGroup
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for path := range jobs {
				if ctx.Err() != nil {
					continue
				}

				fm, warn, ok := scanFile(path, terms, opts)

				mu.Lock()

				if warn != nil {
					warnings = append(warnings, *warn)
				}

				if ok {
					results = append(results, fm)
				}

				mu.Unlock()
			}
		}()
	}

feed:
	for _, p := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p:
		}
	}

	close(jobs)
	wg.Wait()

	return results, warnings
}

func scanFile(path string, terms TermSet, opts Options) (FileMatches, *Warning, bool) {
	content, err := os.ReadFile(path) //nolint:gosec // path is produced by our own directory walk
	if err != nil {
		return FileMatches{}, &Warning{Path: path, Message: "unreadable: " + err.Error()}, false
	}

	if opts.MaxFileSize > 0 && int64(len(content)) > opts.MaxFileSize {
		return FileMatches{}, &Warning{Path: path, Message: "skipped: exceeds max file size"}, false
	}

	if textutil.IsBinary(content) {
		return FileMatches{}, nil, false
	}

	termLines := scanContent(content, terms.All, opts.Exact)

	if !satisfiesRequired(termLines, terms.Required) || matchesForbidden(termLines, terms.Forbidden) {
		return FileMatches{}, nil, false
	}

	lang := ""
	if opts.DetectLanguage != nil {
		lang = opts.DetectLanguage(path)
	}

	return FileMatches{Path: path, Language: lang, TermLines: termLines}, nil, true
}

func satisfiesRequired(termLines map[*query.Term][]int, required []*query.Term) bool {
	for _, t := range required {
		if len(termLines[t]) == 0 {
			return false
		}
	}

	return true
}

func matchesForbidden(termLines map[*query.Term][]int, forbidden []*query.Term) bool {
	for _, t := range forbidden {
		if len(termLines[t]) > 0 {
			return true
		}
	}

	return false
}

func scanContent(content []byte, terms []*query.Term, exact bool) map[*query.Term][]int {
	out := make(map[*query.Term][]int, len(terms))
	lines := bytes.Split(content, []byte{'\n'})

	for i, raw := range lines {
		line := bytes.TrimSuffix(raw, []byte{'\r'})
		lineNo := i + 1

		for _, t := range terms {
			if lineMatchesTerm(line, t, exact) {
				out[t] = append(out[t], lineNo)
			}
		}
	}

	return out
}

func lineMatchesTerm(line []byte, t *query.Term, exact bool) bool {
	for _, v := range t.Variants {
		if v == "" {
			continue
		}

		if exact || t.Phrase {
			if bytes.Contains(line, []byte(v)) {
				return true
			}

			continue
		}

		if containsWholeWordFold(line, v) {
			return true
		}
	}

	return false
}

// containsWholeWordFold reports whether variant occurs in line as a
// case-insensitive whole identifier: the bytes surrounding the match are
// neither alphanumeric nor underscore.
func containsWholeWordFold(line []byte, variant string) bool {
	if variant == "" {
		return false
	}

	lower := bytes.ToLower(line)
	needle := []byte(strings.ToLower(variant))

	start := 0

	for {
		idx := bytes.Index(lower[start:], needle)
		if idx < 0 {
			return false
		}

		abs := start + idx
		if isWordBoundary(lower, abs-1) && isWordBoundary(lower, abs+len(needle)) {
			return true
		}

		start = abs + 1
	}
}

func isWordBoundary(b []byte, i int) bool {
	if i < 0 || i >= len(b) {
		return true
	}

	c := b[i]

	return !(c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'))
}
