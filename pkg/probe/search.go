package probe

import (
	"context"
	"time"

	"github.com/sumatoshi-tech/probe/pkg/block"
	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/observability"
	"github.com/sumatoshi-tech/probe/pkg/query"
	"github.com/sumatoshi-tech/probe/pkg/rank"
	"github.com/sumatoshi-tech/probe/pkg/selector"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

// SearchOptions configures Search, mirroring spec.md §6's search options.
type SearchOptions struct {
	Query      string
	Path       string
	AllowTests bool
	Exact      bool
	AnyTerm    bool
	NoComments bool
	MaxResults int
	MaxTokens  int
	Language   string
	SessionID  string
	Mode       rank.Mode
}

// ResultBlock is one returned block of a SearchResult.
type ResultBlock struct {
	Path         string
	StartLine    int
	EndLine      int
	Kind         lang.Kind
	Code         string
	Score        float64
	MatchedTerms []string
}

// SearchResult is Search's return value (spec.md §6's SearchResult).
type SearchResult struct {
	Results         []ResultBlock
	TotalCandidates int
	TotalConsidered int
	Truncated       bool
	Warnings        []walker.Warning
}

// Search runs the query -> scan -> expand -> merge -> rank -> select
// pipeline (spec 2's "data flow for search").
func (p *Probe) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	stop := p.red.TrackInflight(ctx, "search")
	defer stop()

	start := time.Now()

	result, err := p.search(ctx, opts)

	status := "ok"
	if err != nil {
		status = "error"
	}

	p.red.RecordRequest(ctx, "search", status, time.Since(start))

	return result, err
}

func (p *Probe) search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	stages := make(map[string]time.Duration)

	expr, err := query.Compile(opts.Query, query.Options{AnyTerm: opts.AnyTerm, Exact: opts.Exact, Dictionary: p.dict})
	if err != nil {
		return nil, err
	}

	terms := walker.NewTermSet(expr)

	walkStart := time.Now()

	matches, warnings, err := walker.Walk(ctx, opts.Path, terms, p.walkerOptions(opts.Language, opts.Exact))

	stages["walk"] = time.Since(walkStart)

	if err != nil {
		return nil, err
	}

	content, readWarnings := readFiles(ctx, matches)
	warnings = append(warnings, readWarnings...)

	expandStart := time.Now()

	blocks, expandWarnings := p.expandBlocks(ctx, matches, content, block.Options{NoComments: opts.NoComments})
	warnings = append(warnings, expandWarnings...)

	merged := block.Merge(blocks, block.DefaultGapThreshold)

	stages["expand"] = time.Since(expandStart)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rankStart := time.Now()

	positive := rank.PositiveTerms(expr)
	required := expr.RequiredTerms()

	ranked := rank.Rank(merged, content, positive, required, rank.Options{
		Mode: p.rankMode(opts.Mode), AllowTests: opts.AllowTests, Dictionary: p.dict,
	})

	stages["rank"] = time.Since(rankStart)

	selectStart := time.Now()

	filters := selector.Filters{
		Language:   opts.Language,
		AllowTests: opts.AllowTests,
		MaxResults: p.maxResults(opts.MaxResults),
		MaxTokens:  p.maxTokens(opts.MaxTokens),
		SessionID:  opts.SessionID,
	}

	selected := selector.Select(ranked, p.counter, renderBlock(content), filters, p.sessions)

	stages["select"] = time.Since(selectStart)

	p.pipeline.RecordRun(ctx, observability.PipelineStats{
		FilesWalked: int64(len(matches)), Blocks: len(merged), StageDurations: stages,
	})

	return &SearchResult{
		Results:         toResultBlocks(selected.Results, content),
		TotalCandidates: len(blocks),
		TotalConsidered: len(merged),
		Truncated:       selected.Truncated,
		Warnings:        warnings,
	}, nil
}

func (p *Probe) walkerOptions(language string, exact bool) walker.Options {
	return walker.Options{
		IgnoreFiles:    p.cfg.Walker.IgnoreFiles,
		BuiltinIgnore:  p.cfg.Walker.BuiltinIgnore,
		MaxFileSize:    p.cfg.Walker.MaxFileSizeByte,
		Exact:          exact,
		LanguageFilter: language,
		DetectLanguage: p.registry.Detect,
	}
}

func (p *Probe) rankMode(mode rank.Mode) rank.Mode {
	if mode != "" {
		return mode
	}

	return rank.Mode(p.cfg.Search.DefaultMode)
}

func (p *Probe) maxResults(n int) int {
	if n > 0 {
		return n
	}

	return p.cfg.Search.MaxResults
}

func (p *Probe) maxTokens(n int) int {
	if n > 0 {
		return n
	}

	if p.cfg.Search.MaxTokens > 0 {
		return p.cfg.Search.MaxTokens
	}

	return selector.DefaultMaxTokens
}

func renderBlock(content map[string][]byte) func(*block.Block) string {
	return func(b *block.Block) string {
		return b.Text(content[b.Path])
	}
}

func toResultBlocks(results []rank.Result, content map[string][]byte) []ResultBlock {
	out := make([]ResultBlock, 0, len(results))

	for _, r := range results {
		out = append(out, ResultBlock{
			Path:         r.Block.Path,
			StartLine:    r.Block.StartLine,
			EndLine:      r.Block.EndLine,
			Kind:         r.Block.Kind,
			Code:         r.Block.Text(content[r.Block.Path]),
			Score:        r.Score,
			MatchedTerms: matchedTerms(r.Block),
		})
	}

	return out
}

func matchedTerms(b *block.Block) []string {
	out := make([]string, 0, len(b.Variants))
	for t := range b.Variants {
		out = append(out, t.Literal)
	}

	return out
}
