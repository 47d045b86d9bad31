// Package tokenize splits identifiers and prose into stemmed search tokens.
package tokenize

import (
	"bufio"
	"os"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// minCompoundPartLen is the shortest dictionary word tokenize will accept
// when decomposing a compound identifier.
const minCompoundPartLen = 3

// stemmerLanguage is passed straight through to snowball.Stem.
const stemmerLanguage = "english"

// Options controls how Tokenize normalizes a string.
type Options struct {
	// Stem enables snowball stemming. Exact-match mode disables it.
	Stem bool
	// Dictionary, if non-nil, enables compound-word decomposition.
	Dictionary *Dictionary
}

// Tokenize splits s per the identifier-splitting pipeline: non-alphanumeric
// boundaries, camelCase boundaries, letter/digit boundaries, optional
// compound-dictionary decomposition, lowercasing, stemming, and stopword
// removal.
func Tokenize(s string, opts Options) []string {
	var out []string

	for _, word := range splitNonWord(s) {
		for _, camelPart := range splitCamelAndDigits(word) {
			out = append(out, normalizePart(camelPart, opts)...)
		}
	}

	return out
}

func normalizePart(part string, opts Options) []string {
	lower := strings.ToLower(part)
	if lower == "" {
		return nil
	}

	parts := []string{lower}
	if opts.Dictionary != nil {
		if split, ok := opts.Dictionary.Split(lower); ok {
			parts = split
		}
	}

	out := make([]string, 0, len(parts))

	for _, p := range parts {
		stemmed := p
		if opts.Stem {
			stemmed = stem(p)
		}

		if stemmed == "" || isStopword(stemmed) {
			continue
		}

		out = append(out, stemmed)
	}

	return out
}

func stem(word string) string {
	stemmed, err := snowball.Stem(word, stemmerLanguage, false)
	if err != nil {
		return word
	}

	return stemmed
}

// splitNonWord splits on runs of characters that are not letters or
// digits (spec 4.A steps 1-2), so underscore, hyphen, and dot all act as
// separators.
func splitNonWord(s string) []string {
	var (
		parts []string
		cur   strings.Builder
	)

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}

	flush()

	return parts
}

// splitCamelAndDigits splits camelCase/PascalCase boundaries and
// letter-digit boundaries (spec 4.A steps 3-4).
func splitCamelAndDigits(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var (
		parts []string
		cur   strings.Builder
	)

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for i, r := range runes {
		if i > 0 && isBoundary(runes, i) {
			flush()
		}

		cur.WriteRune(r)
	}

	flush()

	return parts
}

func isBoundary(runes []rune, i int) bool {
	prev, cur := runes[i-1], runes[i]

	switch {
	case unicode.IsDigit(cur) != unicode.IsDigit(prev) && (unicode.IsLetter(prev) || unicode.IsLetter(cur)):
		return true
	case unicode.IsUpper(cur) && unicode.IsLower(prev):
		return true
	case unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(prev):
		// Acronym boundary: "JSONToHTML" -> "JSON", "To", "HTML".
		return true
	default:
		return false
	}
}

//nolint:gochecknoglobals // immutable stopword table, mirrors probe's own tokenizer stopword set
var stopwords = buildStopwords()

func isStopword(word string) bool {
	_, ok := stopwords[word]

	return ok
}

func buildStopwords() map[string]struct{} {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "as", "is", "was", "are", "be", "have",
		"has", "had", "do", "does", "did", "will", "would", "could", "should",
		"i", "me", "my", "we", "us", "our", "you", "your", "he", "him", "his",
		"she", "her", "it", "its", "they", "them", "their",
		"how", "what", "when", "where", "who", "why", "which", "can", "may",
		"must", "shall", "might", "am", "been", "being",
		"very", "too", "also", "just", "only", "so", "than", "such", "both",
	}

	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}

	return m
}

// Dictionary is a set of known whole words used to decompose long compound
// identifiers that are not themselves dictionary entries.
type Dictionary struct {
	words map[string]struct{}
}

// LoadDictionary reads a newline-delimited word list. An empty path is not
// an error: it yields a nil *Dictionary, meaning "no compound splitting".
func LoadDictionary(path string) (*Dictionary, error) {
	if path == "" {
		return nil, nil //nolint:nilnil // absent path means "feature disabled", not a failure
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word != "" {
			words[word] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Dictionary{words: words}, nil
}

// Contains reports whether word is a known dictionary entry.
func (d *Dictionary) Contains(word string) bool {
	if d == nil {
		return false
	}

	_, ok := d.words[word]

	return ok
}

// Split decomposes token into dictionary words of length >= 3 covering the
// whole token, left to right, greedily preferring the longest match at each
// position. Returns ok=false when token is itself a dictionary word or no
// full decomposition exists, in which case the caller should keep token
// whole.
func (d *Dictionary) Split(token string) ([]string, bool) {
	if d == nil || d.Contains(token) || len(token) < minCompoundPartLen*2 {
		return nil, false
	}

	var parts []string

	remaining := token
	for len(remaining) > 0 {
		matched := longestPrefixMatch(d, remaining)
		if matched == "" {
			return nil, false
		}

		parts = append(parts, matched)
		remaining = remaining[len(matched):]
	}

	if len(parts) < 2 {
		return nil, false
	}

	return parts, true
}

func longestPrefixMatch(d *Dictionary, s string) string {
	for length := len(s); length >= minCompoundPartLen; length-- {
		candidate := s[:length]
		if d.Contains(candidate) {
			return candidate
		}
	}

	return ""
}
