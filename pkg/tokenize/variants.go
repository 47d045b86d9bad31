package tokenize

import "strings"

// Variants returns the set of normalized forms under which word may appear
// in source text: its full splitting/stemming pipeline output. A simple
// identifier normally yields one variant (its stem); a compound identifier
// yields one variant per decomposed part, any of which is a match per spec
// 4.B ("a term matches a line when ANY of its variants occurs on that
// line").
func Variants(word string, opts Options) []string {
	tokens := Tokenize(word, opts)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))

	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}

		seen[t] = struct{}{}

		out = append(out, t)
	}

	return out
}

// ExactVariants returns the verbatim and lowercased forms of word, per
// spec 4.B's exact mode: no stemming, no compound splitting.
func ExactVariants(word string) []string {
	lower := strings.ToLower(word)
	if lower == word {
		return []string{word}
	}

	return []string{word, lower}
}
