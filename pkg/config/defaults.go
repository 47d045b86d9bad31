// Package config provides YAML-based project configuration for probe.
package config

// Search default values.
const (
	DefaultSearchMode        = "hybrid"
	DefaultSearchMaxTokens   = 10000
	DefaultSearchMaxResults  = 0 // 0 means unbounded.
	DefaultSearchHybridAlpha = 0.7
)

// Walker default values.
const (
	DefaultWalkerMaxFileSize = 5 << 20 // 5 MiB.
)

// DefaultWalkerIgnoreFiles names the ignore-file flavors the walker reads,
// in precedence order.
//
//nolint:gochecknoglobals // immutable default slice, mirrors viper's own default style
var DefaultWalkerIgnoreFiles = []string{".gitignore", ".ignore"}

// DefaultWalkerBuiltinIgnore names directories skipped regardless of any
// ignore file.
//
//nolint:gochecknoglobals // immutable default slice
var DefaultWalkerBuiltinIgnore = []string{".git", "node_modules", "vendor", "dist", "build"}

// Tokenizer default values.
const (
	DefaultTokenizerCompoundDictionary = ""
	DefaultTokenizerStemmerLanguage    = "english"
)

// Logging default values.
const (
	DefaultLoggingServiceName = "probe"
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultLoggingOutput      = "stderr"
)

// Cache default values.
const (
	DefaultCacheSessionTTLSec = 1800
	DefaultCacheMaxSessions   = 256
)

// Defaults returns a Config populated with the package defaults, useful
// for callers that do not want to read a file or the environment.
func Defaults() *Config {
	return &Config{
		Search: SearchConfig{
			DefaultMode: DefaultSearchMode,
			MaxTokens:   DefaultSearchMaxTokens,
			MaxResults:  DefaultSearchMaxResults,
			HybridAlpha: DefaultSearchHybridAlpha,
		},
		Walker: WalkerConfig{
			IgnoreFiles:     append([]string(nil), DefaultWalkerIgnoreFiles...),
			BuiltinIgnore:   append([]string(nil), DefaultWalkerBuiltinIgnore...),
			MaxFileSizeByte: DefaultWalkerMaxFileSize,
		},
		Tokenizer: TokenizerConfig{
			CompoundDictionary: DefaultTokenizerCompoundDictionary,
			StemmerLanguage:    DefaultTokenizerStemmerLanguage,
		},
		Logging: LoggingConfig{
			ServiceName: DefaultLoggingServiceName,
			Level:       DefaultLoggingLevel,
			Format:      DefaultLoggingFormat,
			Output:      DefaultLoggingOutput,
		},
		Cache: CacheConfig{
			SessionTTL:  DefaultCacheSessionTTLSec,
			MaxSessions: DefaultCacheMaxSessions,
		},
	}
}
