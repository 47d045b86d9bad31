// Package selector implements spec 4.H: it filters a ranked block list,
// deduplicates against a session's previously-seen blocks, and drains the
// list into a token budget.
package selector

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sumatoshi-tech/probe/pkg/block"
	"github.com/sumatoshi-tech/probe/pkg/rank"
	"github.com/sumatoshi-tech/probe/pkg/tokencount"
)

// DefaultMaxTokens is the selector's token budget when none is given
// (spec 4.H: "default 10,000").
const DefaultMaxTokens = 10000

// SeenKey identifies a block for session-dedup purposes.
type SeenKey struct {
	Path  string
	Start int
	End   int
}

func keyOf(b *block.Block) SeenKey {
	return SeenKey{Path: b.Path, Start: b.StartLine, End: b.EndLine}
}

// SessionStore tracks, per session, the set of blocks already returned.
// Implementations must serialize concurrent access internally (spec 3:
// "the session cache... uses per-session locking").
type SessionStore interface {
	Seen(sessionID string, key SeenKey) bool
	MarkSeen(sessionID string, keys []SeenKey)
}

// Filters are the hard pass/fail conditions applied before token-budget
// draining (spec 4.H step 1).
type Filters struct {
	Language   string
	PathFilter string
	AllowTests bool
	MaxResults int
	MaxTokens  int
	SessionID  string
}

// Selected is the drained result set.
type Selected struct {
	Results     []rank.Result
	Truncated   bool
	TotalTokens int
}

// Select filters results, drops session-seen blocks, then drains into the
// token/result budget (spec 4.H). renderFn renders a block to the text
// whose token count is charged against the budget.
func Select(results []rank.Result, counter *tokencount.Counter, renderFn func(*block.Block) string, filters Filters, store SessionStore) Selected {
	candidates := applyFilters(results, filters, store)

	maxTokens := filters.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var (
		selected  []rank.Result
		total     int
		truncated bool
	)

	for _, r := range candidates {
		if filters.MaxResults > 0 && len(selected) >= filters.MaxResults {
			break
		}

		tokens := counter.Count(renderFn(r.Block))

		if len(selected) == 0 && tokens > maxTokens {
			selected = append(selected, r)
			total = tokens
			truncated = true

			break
		}

		if total+tokens > maxTokens {
			break
		}

		selected = append(selected, r)
		total += tokens
	}

	if filters.SessionID != "" && store != nil {
		keys := make([]SeenKey, len(selected))
		for i, r := range selected {
			keys[i] = keyOf(r.Block)
		}

		store.MarkSeen(filters.SessionID, keys)
	}

	return Selected{Results: selected, Truncated: truncated, TotalTokens: total}
}

func applyFilters(results []rank.Result, filters Filters, store SessionStore) []rank.Result {
	out := make([]rank.Result, 0, len(results))

	for _, r := range results {
		if !passesFilters(r.Block, filters) {
			continue
		}

		if filters.SessionID != "" && store != nil && store.Seen(filters.SessionID, keyOf(r.Block)) {
			continue
		}

		out = append(out, r)
	}

	return out
}

func passesFilters(b *block.Block, filters Filters) bool {
	if filters.Language != "" && b.Language != filters.Language {
		return false
	}

	if !filters.AllowTests && b.ContainsTest {
		return false
	}

	if filters.PathFilter != "" && !matchesPathFilter(b.Path, filters.PathFilter) {
		return false
	}

	return true
}

func matchesPathFilter(path, pattern string) bool {
	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}

	return strings.Contains(path, pattern)
}
