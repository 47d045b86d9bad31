// Package probe is the facade of spec.md §6's library API surface: it
// wires the tokenizer, query compiler, language registry, walker, block
// expander/merger, ranker, selector, token counter, structural matcher,
// and extractor into three entry points, Search, Query, and Extract.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/sumatoshi-tech/probe/pkg/cache"
	"github.com/sumatoshi-tech/probe/pkg/config"
	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/observability"
	"github.com/sumatoshi-tech/probe/pkg/tokenize"
	"github.com/sumatoshi-tech/probe/pkg/tokencount"
	"github.com/sumatoshi-tech/probe/pkg/uast"
)

// Probe holds the process-wide, request-independent state shared across
// calls: the immutable language registry, the AST and session caches, the
// token counter, and the observability providers (spec 5: "the language
// registry is immutable, shared without locking... the session cache is
// a keyed map with per-key fine-grained locking").
type Probe struct {
	cfg      *config.Config
	registry *lang.Registry
	astCache *cache.ASTCache
	sessions *cache.SessionCache
	dict     *tokenize.Dictionary
	counter  *tokencount.Counter

	logger   *slog.Logger
	tracer   trace.Tracer
	red      *observability.REDMetrics
	pipeline *observability.PipelineMetrics
	shutdown func(ctx context.Context) error
}

// New builds a Probe from cfg. A nil cfg falls back to config.Defaults().
func New(cfg *config.Config) (*Probe, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}

	parser, err := uast.NewParser()
	if err != nil {
		return nil, fmt.Errorf("probe: build parser: %w", err)
	}

	astCache := cache.NewASTCache(cache.DefaultASTCacheEntries)
	registry := lang.NewRegistry(parser).WithCache(astCache)

	sessions := cache.NewSessionCache(cfg.Cache.MaxSessions, secondsToDuration(cfg.Cache.SessionTTL))

	dict, err := tokenize.LoadDictionary(cfg.Tokenizer.CompoundDictionary)
	if err != nil {
		return nil, fmt.Errorf("probe: load compound dictionary: %w", err)
	}

	counter, err := tokencount.Default()
	if err != nil {
		return nil, fmt.Errorf("probe: build token counter: %w", err)
	}

	providers, err := observability.Init(observabilityConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("probe: init observability: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("probe: build RED metrics: %w", err)
	}

	pipeline, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("probe: build pipeline metrics: %w", err)
	}

	if err := observability.RegisterCacheMetrics(providers.Meter, astCache, sessions); err != nil {
		return nil, fmt.Errorf("probe: register cache metrics: %w", err)
	}

	return &Probe{
		cfg:      cfg,
		registry: registry,
		astCache: astCache,
		sessions: sessions,
		dict:     dict,
		counter:  counter,
		logger:   providers.Logger,
		tracer:   providers.Tracer,
		red:      red,
		pipeline: pipeline,
		shutdown: providers.Shutdown,
	}, nil
}

// Close flushes pending telemetry. Safe to call once after the Probe is no
// longer needed.
func (p *Probe) Close(ctx context.Context) error {
	return p.shutdown(ctx)
}

// NewSessionID generates a session id for callers that did not supply one,
// e.g. the CLI's `--session` auto-generation.
func NewSessionID() string {
	return uuid.NewString()
}

func secondsToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

// observabilityConfig translates cfg.Logging into the observability.Config
// Init expects, so a Probe reports itself under the configured service name
// and log level/format instead of observability's own package defaults.
func observabilityConfig(cfg *config.Config) observability.Config {
	out := observability.DefaultConfig()

	out.ServiceName = cfg.Logging.ServiceName
	if out.ServiceName == "" {
		out.ServiceName = config.DefaultLoggingServiceName
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err == nil {
		out.LogLevel = level
	}

	out.LogJSON = cfg.Logging.Format == "json"

	if cfg.Logging.Output == "stdout" {
		out.LogOutput = os.Stdout
	} else {
		out.LogOutput = os.Stderr
	}

	return out
}
