package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sumatoshi-tech/probe/pkg/config"
	"github.com/sumatoshi-tech/probe/pkg/probe"
)

// ErrLanguageRequired is returned when `probe query` is run without --language.
var ErrLanguageRequired = errors.New("--language is required for structural queries")

func queryCmd() *cobra.Command {
	var (
		path       string
		language   string
		format     string
		allowTests bool
	)

	cmd := &cobra.Command{
		Use:   "query <pattern>",
		Short: "Match a structural pattern against parsed syntax trees",
		Long: `Query compiles pattern (source with $NAME/$$$NAME metavariables) into a
structural matcher and reports every AST node it matches, in file then line
order, with no relevance scoring.

Examples:
  probe query --language go 'func $NAME($$$ARGS) error { $$$BODY }'
  probe query --language go --path ./pkg 'for $$$INIT; $COND; $$$POST { $$$BODY }'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			if language == "" {
				return ErrLanguageRequired
			}

			return runQueryCmd(cobraCmd.Context(), args[0], cobraCmd.OutOrStdout(), queryParams{
				path: path, language: language, format: format, allowTests: allowTests,
			})
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "root directory to search")
	cmd.Flags().StringVar(&language, "language", "", "pattern language (required)")
	cmd.Flags().StringVar(&format, "format", "plain", "output format: plain, markdown, or json")
	cmd.Flags().BoolVar(&allowTests, "allow-tests", false, "include matches from test files")

	return cmd
}

type queryParams struct {
	path, language, format string
	allowTests             bool
}

func runQueryCmd(ctx context.Context, pattern string, out io.Writer, p queryParams) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, err := probe.New(cfg)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	defer eng.Close(ctx) //nolint:errcheck // best-effort telemetry flush on CLI exit

	result, err := eng.Query(ctx, probe.QueryOptions{
		Pattern: pattern, Path: p.path, Language: p.language, AllowTests: p.allowTests,
	})
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	return renderQueryResults(out, result, p.format)
}
