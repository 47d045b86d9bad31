package probe

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/structural"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

// QueryOptions configures Query, mirroring spec.md §6's `query` options.
type QueryOptions struct {
	Pattern    string
	Path       string
	Language   string
	AllowTests bool
}

// QueryResult is Query's return value: spec.md §6's `list<Block>`, plus
// the warnings channel every entry point surfaces (SPEC_FULL §3).
type QueryResult struct {
	Results  []ResultBlock
	Warnings []walker.Warning
}

// Query runs the structural pattern matcher (spec 4.J), substituting for
// the query-compiler/expand/merge/rank stages of Search (spec 2: "Query
// shares A/C/D/I but substitutes J for B/E/F/G").
func (p *Probe) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	stop := p.red.TrackInflight(ctx, "query")
	defer stop()

	start := time.Now()

	result, err := p.query(ctx, opts)

	status := "ok"
	if err != nil {
		status = "error"
	}

	p.red.RecordRequest(ctx, "query", status, time.Since(start))

	return result, err
}

func (p *Probe) query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	pattern, err := structural.Compile(ctx, p.registry, opts.Language, opts.Pattern)
	if err != nil {
		return nil, err
	}

	matches, warnings, err := walker.Walk(ctx, opts.Path, walker.TermSet{}, p.walkerOptions(pattern.Language, false))
	if err != nil {
		return nil, err
	}

	content, readWarnings := readFiles(ctx, matches)
	warnings = append(warnings, readWarnings...)

	hits, matchWarnings := p.matchAll(ctx, pattern, matches, content, opts.AllowTests)
	warnings = append(warnings, matchWarnings...)

	return &QueryResult{Results: toResultBlocksFromMatches(hits, content), Warnings: warnings}, nil
}

func (p *Probe) matchAll(
	ctx context.Context, pattern *structural.Pattern, matches []walker.FileMatches, content map[string][]byte, allowTests bool,
) ([]structural.Match, []walker.Warning) {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan walker.FileMatches)

	var (
		mu       sync.Mutex
		hits     []structural.Match
		warnings []walker.Warning
		wg       sync.WaitGroup
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for fm := range jobs {
				if ctx.Err() != nil {
					continue
				}

				found, err := structural.MatchFile(ctx, p.registry, pattern, fm.Path, content[fm.Path])

				mu.Lock()

				if err != nil {
					warnings = append(warnings, walker.Warning{Path: fm.Path, Message: err.Error()})
				} else {
					hits = append(hits, filterTestMatches(found, fm.Path, allowTests)...)
				}

				mu.Unlock()
			}
		}()
	}

feed:
	for _, fm := range matches {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- fm:
		}
	}

	close(jobs)
	wg.Wait()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}

		return hits[i].StartLine < hits[j].StartLine
	})

	return hits, warnings
}

func filterTestMatches(matches []structural.Match, path string, allowTests bool) []structural.Match {
	if allowTests {
		return matches
	}

	out := make([]structural.Match, 0, len(matches))

	for _, m := range matches {
		if lang.IsTest(path, m.Node) {
			continue
		}

		out = append(out, m)
	}

	return out
}

func toResultBlocksFromMatches(matches []structural.Match, content map[string][]byte) []ResultBlock {
	out := make([]ResultBlock, 0, len(matches))

	for _, m := range matches {
		out = append(out, ResultBlock{
			Path:      m.Path,
			StartLine: m.StartLine,
			EndLine:   m.EndLine,
			Kind:      m.Kind,
			Code:      byteRangeText(content[m.Path], m.ByteStart, m.ByteEnd),
		})
	}

	return out
}

func byteRangeText(content []byte, start, end int) string {
	if start < 0 || end > len(content) || start > end {
		return ""
	}

	return string(content[start:end])
}
