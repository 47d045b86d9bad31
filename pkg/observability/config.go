package observability

import (
	"io"
	"log/slog"
)

// defaultShutdownTimeoutSec bounds how long Shutdown waits for pending
// telemetry to flush before giving up.
const defaultShutdownTimeoutSec = 5

// AppMode identifies which collaborator surface a process is running as, so
// logs and traces can be attributed to the right entry point.
type AppMode string

const (
	// ModeCLI marks a process running as the command-line collaborator.
	ModeCLI AppMode = "cli"

	// ModeMCP marks a process running as an MCP/HTTP server collaborator.
	ModeMCP AppMode = "mcp"
)

// Config configures Init. Fields left at their zero value fall back to
// no-op tracing/metrics (OTLPEndpoint empty) and text logging at info level.
type Config struct {
	// ServiceName is the otel resource service.name attribute.
	ServiceName string

	// ServiceVersion is the otel resource service.version attribute, omitted
	// from the resource when empty.
	ServiceVersion string

	// Environment is the otel resource deployment.environment attribute,
	// omitted from the resource when empty.
	Environment string

	// Mode identifies the collaborator surface; recorded as app.mode.
	Mode AppMode

	// LogLevel is the minimum slog level emitted.
	LogLevel slog.Level

	// LogJSON selects the JSON slog handler over the text handler.
	LogJSON bool

	// LogOutput is the destination slog writes to. Nil falls back to
	// os.Stderr.
	LogOutput io.Writer

	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty disables
	// export and falls back to no-op tracer/meter providers.
	OTLPEndpoint string

	// OTLPInsecure disables TLS on the OTLP gRPC connection.
	OTLPInsecure bool

	// OTLPHeaders are additional headers sent with every OTLP export.
	OTLPHeaders map[string]string

	// SampleRatio is the trace sampling ratio used when no
	// OTEL_TRACES_SAMPLER environment override is set. Zero falls back to
	// always-on, parent-based sampling.
	SampleRatio float64

	// DebugTrace forces always-on sampling and enables verbose span-filter
	// logging, bypassing SampleRatio and the environment sampler.
	DebugTrace bool

	// TraceVerbose disables the attribute-filtering span processor, passing
	// spans to the exporter unredacted.
	TraceVerbose bool

	// ShutdownTimeoutSec bounds Providers.Shutdown; zero or negative falls
	// back to defaultShutdownTimeoutSec.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with no-op telemetry export and
// info-level text logging, suitable for CLI invocations that have not
// configured an OTLP collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "probe",
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
