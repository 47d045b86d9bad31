package walker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumatoshi-tech/probe/pkg/query"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func defaultOptions() walker.Options {
	return walker.Options{
		IgnoreFiles:   []string{".gitignore", ".ignore"},
		BuiltinIgnore: []string{".git", "node_modules", "vendor"},
	}
}

func termSet(required, forbidden []string) walker.TermSet {
	set := walker.TermSet{}

	for _, lit := range required {
		t := &query.Term{Literal: lit, Variants: []string{lit}, Required: true}
		set.All = append(set.All, t)
		set.Required = append(set.Required, t)
	}

	for _, lit := range forbidden {
		t := &query.Term{Literal: lit, Variants: []string{lit}}
		set.All = append(set.All, t)
		set.Forbidden = append(set.Forbidden, t)
	}

	return set
}

func TestWalk_FindsRequiredTermAndReportsLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc authenticate() {}\n")

	results, warnings, err := walker.Walk(context.Background(), dir, termSet([]string{"authenticate"}, nil), defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, results, 1)

	for term, ls := range results[0].TermLines {
		if term.Literal == "authenticate" {
			assert.Equal(t, []int{3}, ls)
		}
	}
}

func TestWalk_DropsFileMissingRequiredTerm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc login() {}\n")

	results, _, err := walker.Walk(context.Background(), dir, termSet([]string{"authenticate"}, nil), defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWalk_DropsFileWithForbiddenTerm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc authenticate() { mock() }\n")

	terms := termSet([]string{"authenticate"}, []string{"mock"})

	results, _, err := walker.Walk(context.Background(), dir, terms, defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWalk_WholeWordBoundaryExcludesSubstringMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc authenticateUser() {}\n")

	results, _, err := walker.Walk(context.Background(), dir, termSet([]string{"auth"}, nil), defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results, "auth should not match inside authenticateUser as a whole word")
}

func TestWalk_ExactModeIsCaseSensitiveSubstring(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Authenticate() {}\n")

	opts := defaultOptions()
	opts.Exact = true

	results, _, err := walker.Walk(context.Background(), dir, termSet([]string{"authenticate"}, nil), opts)
	require.NoError(t, err)
	assert.Empty(t, results, "exact mode is case-sensitive, lowercase variant should not match Authenticate")

	results, _, err = walker.Walk(context.Background(), dir, termSet([]string{"Authenticate"}, nil), opts)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestWalk_RespectsGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "ignored/\n")
	writeFile(t, dir, "ignored/a.go", "package a\n\nfunc authenticate() {}\n")
	writeFile(t, dir, "kept/b.go", "package a\n\nfunc authenticate() {}\n")

	results, _, err := walker.Walk(context.Background(), dir, termSet([]string{"authenticate"}, nil), defaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Path, "kept")
}

func TestWalk_SkipsBuiltinIgnoreDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "vendor/a.go", "package a\n\nfunc authenticate() {}\n")

	results, _, err := walker.Walk(context.Background(), dir, termSet([]string{"authenticate"}, nil), defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWalk_SkipsBinaryFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.bin", "authenticate\x00\x01\x02binary")

	results, _, err := walker.Walk(context.Background(), dir, termSet([]string{"authenticate"}, nil), defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWalk_PathNotFound(t *testing.T) {
	t.Parallel()

	_, _, err := walker.Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), termSet(nil, nil), defaultOptions())
	require.ErrorIs(t, err, walker.ErrPathNotFound)
}

func TestWalk_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc authenticate() {}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := walker.Walk(ctx, dir, termSet([]string{"authenticate"}, nil), defaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}
