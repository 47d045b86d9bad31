package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sumatoshi-tech/probe/pkg/config"
	"github.com/sumatoshi-tech/probe/pkg/extract"
	"github.com/sumatoshi-tech/probe/pkg/probe"
)

func extractCmd() *cobra.Command {
	var (
		format       string
		contextLines int
		allowTests   bool
		noComments   bool
		fromStdin    bool
	)

	cmd := &cobra.Command{
		Use:   "extract [target...]",
		Short: "Extract exact blocks by file, line, range, or symbol",
		Long: `Extract resolves one or more "path", "path:line", "path:start-end", or
"path#Symbol" targets into their enclosing block. With --stdin, targets are
instead parsed out of arbitrary piped text (the permissive extractor).
A failure on one target does not stop the others.

Examples:
  probe extract internal/auth/login.go:42
  probe extract internal/auth/login.go#AuthenticateUser
  git diff | probe extract --stdin`,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return runExtractCmd(cobraCmd.Context(), args, cobraCmd.OutOrStdout(), extractParams{
				format: format, contextLines: contextLines, allowTests: allowTests,
				noComments: noComments, fromStdin: fromStdin,
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "plain", "output format: plain, markdown, or json")
	cmd.Flags().IntVar(&contextLines, "context-lines", 0, "fallback context padding when no AST block covers the target")
	cmd.Flags().BoolVar(&allowTests, "allow-tests", true, "include test-file targets (always true: a named target is always returned)")
	cmd.Flags().BoolVar(&noComments, "no-comments", false, "strip comments from rendered code")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "scan stdin for embedded path:line / path#symbol references")

	return cmd
}

type extractParams struct {
	format               string
	contextLines         int
	allowTests           bool
	noComments, fromStdin bool
}

func runExtractCmd(ctx context.Context, targets []string, out io.Writer, p extractParams) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, err := probe.New(cfg)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	defer eng.Close(ctx) //nolint:errcheck // best-effort telemetry flush on CLI exit

	invalid := validateTargetPaths(targets)

	valid := make([]string, 0, len(targets))

	for _, raw := range targets {
		if !targetIsInvalid(invalid, raw) {
			valid = append(valid, raw)
		}
	}

	opts := probe.ExtractOptions{
		Files: valid, AllowTests: p.allowTests, ContextLines: p.contextLines, NoComments: p.noComments,
	}

	if p.fromStdin {
		input, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			return fmt.Errorf("read stdin: %w", readErr)
		}

		opts.InputContent = string(input)
	}

	results, err := eng.Extract(ctx, opts)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	return renderExtractResults(out, append(invalid, results...), p.format)
}

func targetIsInvalid(invalid []probe.ExtractedBlock, raw string) bool {
	for _, b := range invalid {
		if b.Target == raw {
			return true
		}
	}

	return false
}

// validateTargetPaths resolves each CLI-supplied target's file portion
// through the teacher's safe-path checks before the request ever reaches
// the engine, so an empty, NUL-containing, or directory path is reported
// as that target's own error instead of a generic engine failure.
func validateTargetPaths(targets []string) []probe.ExtractedBlock {
	var invalid []probe.ExtractedBlock

	for _, raw := range targets {
		target, err := extract.ParseTarget(raw)
		if err != nil {
			continue
		}

		if _, err := resolveUserFilePath(target.Path); err != nil {
			invalid = append(invalid, probe.ExtractedBlock{Target: raw, Err: err})
		}
	}

	return invalid
}
