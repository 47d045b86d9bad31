package probe

import (
	"context"
	"os"
	"time"

	"github.com/sumatoshi-tech/probe/pkg/extract"
)

// ExtractOptions configures Extract, mirroring spec.md §6's `extract`
// options.
type ExtractOptions struct {
	// Files is one or more "path[:L[-L2]]" or "path#symbol" references.
	Files []string
	// InputContent, when set, is scanned for embedded references instead
	// of (or in addition to) Files (SPEC_FULL §3's "permissive extractor").
	InputContent string
	AllowTests   bool
	ContextLines int
	NoComments   bool
}

// ExtractedBlock pairs a resolved target with its block, or the error
// that target alone produced (spec 7: "SymbolNotFound... is per-target;
// other targets proceed").
type ExtractedBlock struct {
	Target string
	Block  *ResultBlock
	Err    error
}

// Extract resolves each of opts.Files (plus any references embedded in
// opts.InputContent) into its enclosing block (spec 4.K).
func (p *Probe) Extract(ctx context.Context, opts ExtractOptions) ([]ExtractedBlock, error) {
	stop := p.red.TrackInflight(ctx, "extract")
	defer stop()

	start := time.Now()

	result, err := p.extract(ctx, opts)

	status := "ok"
	if err != nil {
		status = "error"
	}

	p.red.RecordRequest(ctx, "extract", status, time.Since(start))

	return result, err
}

func (p *Probe) extract(ctx context.Context, opts ExtractOptions) ([]ExtractedBlock, error) {
	raws := opts.Files

	if opts.InputContent != "" {
		for _, t := range extract.ParseReferences(opts.InputContent) {
			raws = append(raws, t.Raw)
		}
	}

	extractOpts := extract.Options{ContextLines: opts.ContextLines, NoComments: opts.NoComments}

	out := make([]ExtractedBlock, 0, len(raws))

	for _, raw := range raws {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		out = append(out, p.extractOne(ctx, raw, extractOpts, opts.AllowTests))
	}

	return out, nil
}

// extractOne resolves a single target. allowTests is accepted for parity
// with spec.md §6's extract options but does not filter a directly
// addressed target: the caller named this exact location, so it is
// returned regardless of test status (DESIGN.md records this choice).
func (p *Probe) extractOne(ctx context.Context, raw string, opts extract.Options, _ bool) ExtractedBlock {
	target, err := extract.ParseTarget(raw)
	if err != nil {
		return ExtractedBlock{Target: raw, Err: err}
	}

	b, err := extract.Resolve(ctx, p.registry, target, opts)
	if err != nil {
		return ExtractedBlock{Target: raw, Err: err}
	}

	if b == nil {
		return ExtractedBlock{Target: raw, Err: extract.ErrMalformedTarget}
	}

	content, _ := os.ReadFile(target.Path)

	return ExtractedBlock{Target: raw, Block: &ResultBlock{
		Path: b.Path, StartLine: b.StartLine, EndLine: b.EndLine, Kind: b.Kind, Code: b.Text(content),
	}}
}
