package walker

import (
	"io/fs"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreMatcher pairs a compiled .gitignore/.ignore file with the
// slash-separated directory (relative to the walk root) it was found in,
// so patterns are only applied within their own subtree.
type ignoreMatcher struct {
	baseRel string
	gi      *ignore.GitIgnore
}

// loadIgnoreMatchers finds every file under root named one of names and
// compiles it, in a separate pass ahead of the main walk (spec 4.D:
// "ignore files are discovered and merged before files are scanned").
func loadIgnoreMatchers(root string, names []string) []ignoreMatcher {
	if len(names) == 0 {
		return nil
	}

	var matchers []ignoreMatcher

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if !containsName(names, base) {
			return nil
		}

		gi, compileErr := ignore.CompileIgnoreFile(path)
		if compileErr != nil {
			return nil
		}

		rel, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			rel = ""
		}

		if rel == "." {
			rel = ""
		}

		matchers = append(matchers, ignoreMatcher{baseRel: filepath.ToSlash(rel), gi: gi})

		return nil
	})

	return matchers
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}

// isIgnored reports whether rel (slash-separated, relative to the walk
// root) is matched by any ignore file whose own directory is an ancestor
// of (or equal to) rel's directory.
func isIgnored(rel string, matchers []ignoreMatcher) bool {
	for _, m := range matchers {
		sub, ok := relativeTo(rel, m.baseRel)
		if !ok {
			continue
		}

		if m.gi.MatchesPath(sub) {
			return true
		}
	}

	return false
}

func relativeTo(rel, base string) (string, bool) {
	if base == "" {
		return rel, true
	}

	if rel == base {
		return "", true
	}

	prefix := base + "/"
	if strings.HasPrefix(rel, prefix) {
		return strings.TrimPrefix(rel, prefix), true
	}

	return "", false
}
