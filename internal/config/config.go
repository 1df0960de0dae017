// Package config handles configuration loading for EquityPilot.
// It supports YAML config files with environment variable overrides and,
// for local development, a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	News     NewsConfig     `mapstructure:"news"     yaml:"news"`
	Market   MarketConfig   `mapstructure:"market"   yaml:"market"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds language-model provider configuration.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"     yaml:"provider"` // "openai" or "groq"
	OpenAIKey   string  `mapstructure:"openai_key"   yaml:"openai_key"`
	GroqKey     string  `mapstructure:"groq_key"     yaml:"groq_key"`
	Model       string  `mapstructure:"model"        yaml:"model"` // empty uses the provider default
	Temperature float64 `mapstructure:"temperature"  yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"   yaml:"max_tokens"`
	TimeoutSec  int     `mapstructure:"timeout_sec"  yaml:"timeout_sec"`
	MaxRetries  int     `mapstructure:"max_retries"  yaml:"max_retries"`
}

// NewsConfig holds news source configuration.
type NewsConfig struct {
	Provider     string `mapstructure:"provider"      yaml:"provider"` // "newsapi" or "rss"
	NewsAPIKey   string `mapstructure:"newsapi_key"   yaml:"newsapi_key"`
	MaxResults   int    `mapstructure:"max_results"   yaml:"max_results"`
	LookbackDays int    `mapstructure:"lookback_days" yaml:"lookback_days"`
}

// MarketConfig holds market-data fetch settings.
type MarketConfig struct {
	CacheTTL int    `mapstructure:"cache_ttl" yaml:"cache_ttl"` // seconds
	Period   string `mapstructure:"period"    yaml:"period"`    // e.g. "1y"
}

// PipelineConfig holds analysis pipeline settings.
type PipelineConfig struct {
	Parallel bool `mapstructure:"parallel" yaml:"parallel"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.equitypilot/config.yaml (home directory)
//  3. /etc/equitypilot/config.yaml (system)
//
// A .env file in the working directory is loaded first, if present.
// Environment variables override config file values.
// Format: EQUITYPILOT_<SECTION>_<KEY>, e.g., EQUITYPILOT_LLM_GROQ_KEY
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".equitypilot"))
	v.AddConfigPath("/etc/equitypilot")

	v.SetEnvPrefix("EQUITYPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("EQUITYPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout_sec", 60)
	v.SetDefault("llm.max_retries", 2)

	// News defaults
	v.SetDefault("news.provider", "newsapi")
	v.SetDefault("news.max_results", 50)
	v.SetDefault("news.lookback_days", 30)

	// Market defaults
	v.SetDefault("market.cache_ttl", 300) // 5 minutes
	v.SetDefault("market.period", "1y")

	// Pipeline defaults
	v.SetDefault("pipeline.parallel", true)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// AutomaticEnv alone cannot surface these because Unmarshal only visits keys
// that exist in the file or defaults.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("EQUITYPILOT_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("EQUITYPILOT_LLM_GROQ_KEY"); key != "" {
		cfg.LLM.GroqKey = key
	}
	if key := os.Getenv("EQUITYPILOT_NEWS_NEWSAPI_KEY"); key != "" {
		cfg.News.NewsAPIKey = key
	}
	// Bare names are honored too, matching what the upstream services
	// document.
	if cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.GroqKey == "" {
		cfg.LLM.GroqKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.News.NewsAPIKey == "" {
		cfg.News.NewsAPIKey = os.Getenv("NEWS_API_KEY")
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
