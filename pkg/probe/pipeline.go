package probe

import (
	"context"
	"os"
	"runtime"
	"sync"

	"github.com/sumatoshi-tech/probe/pkg/block"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

// readFiles reads every matched file's content in parallel, bounded by
// available cores (spec 5: "Parallel worker pool bounded by available
// cores"). An unreadable file is skipped with a warning, not fatal (spec
// 7's "Unreadable file -> Skip, emit warning entry; not fatal").
func readFiles(ctx context.Context, matches []walker.FileMatches) (map[string][]byte, []walker.Warning) {
	workers := workerCount()

	jobs := make(chan walker.FileMatches)

	var (
		mu       sync.Mutex
		content  = make(map[string][]byte, len(matches))
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

				data, err := os.ReadFile(fm.Path)

				mu.Lock()

				if err != nil {
					warnings = append(warnings, walker.Warning{Path: fm.Path, Message: err.Error()})
				} else {
					content[fm.Path] = data
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

	return content, warnings
}

// expandBlocks expands every matched file's lines into blocks in parallel
// (spec 5: "file-granular parallelism... each worker handles one file's
// scan->expand->rank-input production").
func (p *Probe) expandBlocks(
	ctx context.Context, matches []walker.FileMatches, content map[string][]byte, opts block.Options,
) ([]*block.Block, []walker.Warning) {
	workers := workerCount()

	jobs := make(chan walker.FileMatches)

	var (
		mu       sync.Mutex
		blocks   []*block.Block
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

				bs, err := block.Expand(ctx, p.registry, fm, content[fm.Path], opts)

				mu.Lock()

				if err != nil {
					warnings = append(warnings, walker.Warning{Path: fm.Path, Message: err.Error()})
				} else {
					blocks = append(blocks, bs...)
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

	return blocks, warnings
}

func workerCount() int {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	return workers
}
