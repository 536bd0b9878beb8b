// Package config handles configuration loading for the stock analyzer.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. STOCKANALYZER_API_PORT.
const EnvPrefix = "STOCKANALYZER"

// Synthesis failure policies.
const (
	SynthesisFatal   = "fatal"
	SynthesisIsolate = "isolate"
)

// Config represents the complete application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"`
	DataSource DataSourceConfig `mapstructure:"datasource" yaml:"datasource"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"   yaml:"analysis"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Report     ReportConfig     `mapstructure:"report"     yaml:"report"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider   string        `mapstructure:"provider"    yaml:"provider"` // "azure" or "openai"
	APIKey     string        `mapstructure:"api_key"     yaml:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"    yaml:"endpoint"`
	APIVersion string        `mapstructure:"api_version" yaml:"api_version"`
	Model      string        `mapstructure:"model"       yaml:"model"` // deployment name on Azure
	BaseURL    string        `mapstructure:"base_url"    yaml:"base_url"`
	TimeoutSec int           `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	Breaker    BreakerConfig `mapstructure:"breaker"     yaml:"breaker"`
}

// BreakerConfig tunes the circuit breakers around upstreams.
type BreakerConfig struct {
	MinRequests  uint32  `mapstructure:"min_requests"  yaml:"min_requests"`
	FailureRatio float64 `mapstructure:"failure_ratio" yaml:"failure_ratio"`
	OpenSec      int     `mapstructure:"open_sec"      yaml:"open_sec"`
}

// DataSourceConfig holds scraper settings. The URLs are overridable so tests
// can point fetchers at an httptest server.
type DataSourceConfig struct {
	TimeoutSec        int           `mapstructure:"timeout_sec"         yaml:"timeout_sec"`
	UserAgent         string        `mapstructure:"user_agent"          yaml:"user_agent"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	HistoryDays       int           `mapstructure:"history_days"        yaml:"history_days"`
	MaxNews           int           `mapstructure:"max_news"            yaml:"max_news"`
	ArticleDelayMs    int           `mapstructure:"article_delay_ms"    yaml:"article_delay_ms"`
	GoogleFinanceURL  string        `mapstructure:"google_finance_url"  yaml:"google_finance_url"`
	StockAnalysisURL  string        `mapstructure:"stockanalysis_url"   yaml:"stockanalysis_url"`
	RSSURL            string        `mapstructure:"rss_url"             yaml:"rss_url"`
	Breaker           BreakerConfig `mapstructure:"breaker"             yaml:"breaker"`
}

// AnalysisConfig holds orchestrator settings.
type AnalysisConfig struct {
	ConcurrentFetches int    `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
	SynthesisFailure  string `mapstructure:"synthesis_failure"  yaml:"synthesis_failure"` // "fatal" or "isolate"
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host              string   `mapstructure:"host"                yaml:"host"`
	Port              int      `mapstructure:"port"                yaml:"port"`
	CORSOrigins       []string `mapstructure:"cors_origins"        yaml:"cors_origins"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// ReportConfig holds report rendering defaults.
type ReportConfig struct {
	Title      string `mapstructure:"title"       yaml:"title"`
	Author     string `mapstructure:"author"      yaml:"author"`
	FetchLogos bool   `mapstructure:"fetch_logos" yaml:"fetch_logos"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockanalyzer/config.yaml (home directory)
//  3. /etc/stockanalyzer/config.yaml (system)
//
// A .env file in the working directory is loaded first when present.
// Environment variables override config file values.
// Format: STOCKANALYZER_<SECTION>_<KEY>, e.g., STOCKANALYZER_API_PORT
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockanalyzer"))
	v.AddConfigPath("/etc/stockanalyzer")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the built-in defaults with env overrides, ignoring config files.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", "azure")
	v.SetDefault("llm.api_version", "2025-01-01-preview")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout_sec", 120)
	v.SetDefault("llm.breaker.min_requests", 5)
	v.SetDefault("llm.breaker.failure_ratio", 0.5)
	v.SetDefault("llm.breaker.open_sec", 30)

	// Data source defaults
	v.SetDefault("datasource.timeout_sec", 15)
	v.SetDefault("datasource.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("datasource.requests_per_minute", 60)
	v.SetDefault("datasource.history_days", 30)
	v.SetDefault("datasource.max_news", 10)
	v.SetDefault("datasource.article_delay_ms", 500)
	v.SetDefault("datasource.google_finance_url", "https://www.google.com/finance")
	v.SetDefault("datasource.stockanalysis_url", "https://stockanalysis.com")
	v.SetDefault("datasource.rss_url", "https://feeds.finance.yahoo.com/rss/2.0/headline")
	v.SetDefault("datasource.breaker.min_requests", 5)
	v.SetDefault("datasource.breaker.failure_ratio", 0.5)
	v.SetDefault("datasource.breaker.open_sec", 30)

	// Analysis defaults
	v.SetDefault("analysis.concurrent_fetches", 5)
	v.SetDefault("analysis.synthesis_failure", SynthesisFatal)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.request_timeout_sec", 300)

	// Report defaults
	v.SetDefault("report.title", "Stock Analysis Report")
	v.SetDefault("report.author", "Multi-Agent Stock Analyzer")
	v.SetDefault("report.fetch_logos", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from their conventional
// environment variables when the prefixed form is not set.
func overrideFromEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		for _, name := range []string{"AZURE_OPENAI_API_KEY2", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"} {
			if key := os.Getenv(name); key != "" {
				cfg.LLM.APIKey = key
				break
			}
		}
	}
	if cfg.LLM.Endpoint == "" {
		for _, name := range []string{"AZURE_OPENAI_ENDPOINT2", "AZURE_OPENAI_ENDPOINT"} {
			if ep := os.Getenv(name); ep != "" {
				cfg.LLM.Endpoint = ep
				break
			}
		}
	}
	if dep := os.Getenv("AZURE_OPENAI_DEPLOYMENT2_NAME"); dep != "" && os.Getenv(EnvPrefix+"_LLM_MODEL") == "" {
		cfg.LLM.Model = dep
	}
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "azure", "openai":
	default:
		return fmt.Errorf("llm.provider: unsupported %q (want azure or openai)", c.LLM.Provider)
	}
	switch c.Analysis.SynthesisFailure {
	case SynthesisFatal, SynthesisIsolate:
	default:
		return fmt.Errorf("analysis.synthesis_failure: unsupported %q (want fatal or isolate)", c.Analysis.SynthesisFailure)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port: %d out of range", c.API.Port)
	}
	if c.DataSource.HistoryDays < 20 {
		return fmt.Errorf("datasource.history_days: %d is below the 20 bars the fraud heuristic needs", c.DataSource.HistoryDays)
	}
	return nil
}

// Addr returns the listen address of the API server.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RequestTimeout returns the per-request deadline for the API server.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Timeout returns the HTTP timeout for scrapers.
func (c DataSourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ArticleDelay returns the politeness delay between article fetches.
func (c DataSourceConfig) ArticleDelay() time.Duration {
	return time.Duration(c.ArticleDelayMs) * time.Millisecond
}

// Timeout returns the per-completion deadline.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// OpenDuration returns how long a tripped breaker stays open.
func (c BreakerConfig) OpenDuration() time.Duration {
	return time.Duration(c.OpenSec) * time.Second
}

// loadDotEnv loads .env from the working directory; a missing file is fine.
func loadDotEnv() {
	_ = godotenv.Load()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
