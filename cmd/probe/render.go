package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sumatoshi-tech/probe/pkg/probe"
	"github.com/sumatoshi-tech/probe/pkg/walker"
)

func init() { //nolint:gochecknoinits // library global, mirrors the teacher's validate.go NO_COLOR wiring
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}
}

// renderSearchResults writes result to w as a go-pretty table (format
// "plain"/"markdown") or as indented JSON (format "json"), mirroring the
// teacher's render.go dual-mode output.
func renderSearchResults(w io.Writer, result *probe.SearchResult, format string, verbose bool) error {
	if format == formatJSON {
		return encodeJSON(w, result)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(tableStyle(format))
	tbl.AppendHeader(table.Row{"score", "path", "lines", "kind", "code"})

	for _, r := range result.Results {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("%.3f", r.Score),
			highlightPath(r.Path),
			fmt.Sprintf("%d-%d", r.StartLine, r.EndLine),
			r.Kind,
			truncateCode(r.Code),
		})
	}

	tbl.Render()

	if verbose {
		printSearchSummary(w, result)
	}

	printWarnings(w, result.Warnings)

	return nil
}

// renderQueryResults writes structural match results the same way
// renderSearchResults does, minus the ranking-specific columns.
func renderQueryResults(w io.Writer, result *probe.QueryResult, format string) error {
	if format == formatJSON {
		return encodeJSON(w, result)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(tableStyle(format))
	tbl.AppendHeader(table.Row{"path", "lines", "kind", "code"})

	for _, r := range result.Results {
		tbl.AppendRow(table.Row{
			highlightPath(r.Path),
			fmt.Sprintf("%d-%d", r.StartLine, r.EndLine),
			r.Kind,
			truncateCode(r.Code),
		})
	}

	tbl.Render()

	printWarnings(w, result.Warnings)

	return nil
}

// renderExtractResults writes one row per resolved (or failed) target.
func renderExtractResults(w io.Writer, results []probe.ExtractedBlock, format string) error {
	if format == formatJSON {
		return encodeJSON(w, results)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(tableStyle(format))
	tbl.AppendHeader(table.Row{"target", "result"})

	for _, r := range results {
		if r.Err != nil {
			tbl.AppendRow(table.Row{r.Target, color.New(color.FgRed).Sprintf("error: %v", r.Err)})

			continue
		}

		tbl.AppendRow(table.Row{highlightPath(r.Target), truncateCode(r.Block.Code)})
	}

	tbl.Render()

	return nil
}

func tableStyle(format string) table.Style {
	if format == "markdown" {
		return table.StyleLight
	}

	style := table.StyleLight
	style.Options.SeparateColumns = false
	style.Options.DrawBorder = false

	return style
}

func printSearchSummary(w io.Writer, result *probe.SearchResult) {
	fmt.Fprintf(w, "\n%s candidate blocks, %s considered after merge, %s returned",
		humanize.Comma(int64(result.TotalCandidates)),
		humanize.Comma(int64(result.TotalConsidered)),
		humanize.Comma(int64(len(result.Results))))

	if result.Truncated {
		color.New(color.FgYellow).Fprint(w, " (truncated to token budget)")
	}

	fmt.Fprintln(w)
}

// printWarnings echoes per-file scan warnings (unreadable/oversized/binary
// files skipped by the walker), sanitized since a warning's Message and
// Path are derived from filesystem entries we did not author.
func printWarnings(w io.Writer, warnings []walker.Warning) {
	if quiet {
		return
	}

	for _, warn := range warnings {
		writeTerminalLine(w, color.New(color.FgYellow).Sprintf(
			"warning: %s: %s", sanitizeForTerminal(warn.Path), sanitizeForTerminal(warn.Message)))
	}
}

func highlightPath(path string) string {
	return color.New(color.FgCyan).Sprint(path)
}

const codePreviewLines = 6

// truncateCode previews code for the terminal table, sanitized against
// control-character injection from file content we did not author.
func truncateCode(code string) string {
	lines := strings.Split(code, "\n")
	if len(lines) > codePreviewLines {
		lines = lines[:codePreviewLines]
	}

	preview := sanitizeForTerminal(strings.Join(lines, " "))

	if len(strings.Split(code, "\n")) > codePreviewLines {
		preview += " …"
	}

	return preview
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	return nil
}
