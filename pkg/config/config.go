// Package config provides configuration loading and validation for Probe.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidMaxTokens   = errors.New("search max_tokens must be positive")
	ErrInvalidAlpha       = errors.New("search hybrid alpha must be in [0, 1]")
	ErrInvalidRankMode    = errors.New("search default_mode must be one of tfidf, bm25, hybrid")
	ErrInvalidMaxFileSize = errors.New("walker max_file_size must be positive")
	ErrInvalidCacheTTL    = errors.New("cache session_ttl must be positive")
	ErrInvalidMaxSessions = errors.New("cache max_sessions must be positive")
)

// rankModes are the ranking modes accepted by Search.DefaultMode.
var rankModes = map[string]bool{"tfidf": true, "bm25": true, "hybrid": true}

// Config holds all configuration for Probe.
type Config struct {
	Search    SearchConfig    `mapstructure:"search"`
	Walker    WalkerConfig    `mapstructure:"walker"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// SearchConfig holds ranking and result-shaping defaults.
type SearchConfig struct {
	DefaultMode string  `mapstructure:"default_mode"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	MaxResults  int     `mapstructure:"max_results"`
	HybridAlpha float64 `mapstructure:"hybrid_alpha"`
}

// WalkerConfig holds file-discovery defaults.
type WalkerConfig struct {
	IgnoreFiles     []string `mapstructure:"ignore_files"`
	BuiltinIgnore   []string `mapstructure:"builtin_ignore"`
	MaxFileSizeByte int64    `mapstructure:"max_file_size"`
}

// TokenizerConfig holds tokenizer/stemmer defaults.
type TokenizerConfig struct {
	CompoundDictionary string `mapstructure:"compound_dictionary"`
	StemmerLanguage    string `mapstructure:"stemmer_language"`
}

// LoggingConfig holds logging-specific configuration, plus the service
// identity reported on every log line, span, and metric Probe emits.
type LoggingConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Output      string `mapstructure:"output"`
}

// CacheConfig holds the session-cache defaults.
type CacheConfig struct {
	SessionTTL  int `mapstructure:"session_ttl_sec"`
	MaxSessions int `mapstructure:"max_sessions"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath falls back to the search paths below; an explicit
// path that does not exist is reported as an error rather than silently
// ignored.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("probe")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/probe")
	}

	viperCfg.SetEnvPrefix("PROBE")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	if validateErr := validateConfig(&cfg); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values, mirroring Defaults().
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("search.default_mode", DefaultSearchMode)
	viperCfg.SetDefault("search.max_tokens", DefaultSearchMaxTokens)
	viperCfg.SetDefault("search.max_results", DefaultSearchMaxResults)
	viperCfg.SetDefault("search.hybrid_alpha", DefaultSearchHybridAlpha)

	viperCfg.SetDefault("walker.ignore_files", DefaultWalkerIgnoreFiles)
	viperCfg.SetDefault("walker.builtin_ignore", DefaultWalkerBuiltinIgnore)
	viperCfg.SetDefault("walker.max_file_size", DefaultWalkerMaxFileSize)

	viperCfg.SetDefault("tokenizer.compound_dictionary", DefaultTokenizerCompoundDictionary)
	viperCfg.SetDefault("tokenizer.stemmer_language", DefaultTokenizerStemmerLanguage)

	viperCfg.SetDefault("logging.service_name", DefaultLoggingServiceName)
	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.format", DefaultLoggingFormat)
	viperCfg.SetDefault("logging.output", DefaultLoggingOutput)

	viperCfg.SetDefault("cache.session_ttl_sec", DefaultCacheSessionTTLSec)
	viperCfg.SetDefault("cache.max_sessions", DefaultCacheMaxSessions)
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	if cfg.Search.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, cfg.Search.MaxTokens)
	}

	if cfg.Search.HybridAlpha < 0 || cfg.Search.HybridAlpha > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidAlpha, cfg.Search.HybridAlpha)
	}

	if !rankModes[cfg.Search.DefaultMode] {
		return fmt.Errorf("%w: %s", ErrInvalidRankMode, cfg.Search.DefaultMode)
	}

	if cfg.Walker.MaxFileSizeByte <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFileSize, cfg.Walker.MaxFileSizeByte)
	}

	if cfg.Cache.SessionTTL <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheTTL, cfg.Cache.SessionTTL)
	}

	if cfg.Cache.MaxSessions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxSessions, cfg.Cache.MaxSessions)
	}

	return nil
}
