package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sumatoshi-tech/probe/pkg/config"
	"github.com/sumatoshi-tech/probe/pkg/probe"
	"github.com/sumatoshi-tech/probe/pkg/rank"
)

func searchCmd() *cobra.Command {
	var (
		path       string
		language   string
		mode       string
		sessionID  string
		format     string
		maxResults int
		maxTokens  int
		allowTests bool
		exact      bool
		anyTerm    bool
		noComments bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a codebase for relevant code blocks",
		Long: `Search scans source files under --path for a query's terms, expands
matched lines to their enclosing AST blocks, ranks the result, and prints
the highest scoring blocks within the token budget.

Examples:
  probe search "authenticate user"
  probe search --path ./internal --language go --mode bm25 "retry backoff"
  probe search --exact --any "parseConfig|loadConfig" --max-tokens 4000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return runSearch(cobraCmd.Context(), args[0], cobraCmd.OutOrStdout(), searchParams{
				path: path, language: language, mode: mode, sessionID: sessionID, format: format,
				maxResults: maxResults, maxTokens: maxTokens, allowTests: allowTests,
				exact: exact, anyTerm: anyTerm, noComments: noComments,
			})
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "root directory to search")
	cmd.Flags().StringVar(&language, "language", "", "restrict results to one language")
	cmd.Flags().StringVar(&mode, "mode", "", "ranking mode: tfidf, bm25, or hybrid (default from config)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id for cross-call deduplication")
	cmd.Flags().StringVar(&format, "format", "plain", "output format: plain, markdown, or json")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum number of blocks to return (0 = config default)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "token budget for the returned blocks (0 = config default)")
	cmd.Flags().BoolVar(&allowTests, "allow-tests", false, "include blocks from test files")
	cmd.Flags().BoolVar(&exact, "exact", false, "match terms literally instead of via the compound dictionary")
	cmd.Flags().BoolVar(&anyTerm, "any", false, "match any term instead of requiring all")
	cmd.Flags().BoolVar(&noComments, "no-comments", false, "strip comments from rendered code")

	return cmd
}

type searchParams struct {
	path, language, mode, sessionID, format string
	maxResults, maxTokens                   int
	allowTests, exact, anyTerm, noComments  bool
}

func runSearch(ctx context.Context, query string, out io.Writer, p searchParams) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, err := probe.New(cfg)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	defer eng.Close(ctx) //nolint:errcheck // best-effort telemetry flush on CLI exit
	result, err := eng.Search(ctx, probe.SearchOptions{
		Query: query, Path: p.path, Language: p.language, Mode: rank.Mode(p.mode),
		SessionID: p.sessionID, MaxResults: p.maxResults, MaxTokens: p.maxTokens,
		AllowTests: p.allowTests, Exact: p.exact, AnyTerm: p.anyTerm, NoComments: p.noComments,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	return renderSearchResults(out, result, p.format, verbose && !quiet)
}
