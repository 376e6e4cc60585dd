// Package config loads server configuration with viper and initializes the
// global zap logger.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Algolia    AlgoliaConfig    `yaml:"algolia" mapstructure:"algolia"`
	Learning   LearningConfig   `yaml:"learning" mapstructure:"learning"`
	Drafts     DraftsConfig     `yaml:"drafts" mapstructure:"drafts"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // memory, firestore or postgres
	ProjectID   string `yaml:"project_id" mapstructure:"project_id"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	Skip            bool   `yaml:"skip" mapstructure:"skip"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	DevUser         string `yaml:"dev_user" mapstructure:"dev_user"`
}

// OCRConfig selects the receipt recognizer chain.
type OCRConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"` // remote, gemini or anthropic
	Fallback     string `yaml:"fallback" mapstructure:"fallback"` // optional second provider
	RemoteURL    string `yaml:"remote_url" mapstructure:"remote_url"`
	RemoteAPIKey string `yaml:"remote_api_key" mapstructure:"remote_api_key"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeminiConfig holds Gemini API settings shared by vision and enrichment.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// EnrichmentConfig configures AI product name enrichment.
type EnrichmentConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	Model             string  `yaml:"model" mapstructure:"model"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// StorageConfig configures receipt image storage.
type StorageConfig struct {
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
}

// AlgoliaConfig configures the product catalogue index.
type AlgoliaConfig struct {
	AppID     string `yaml:"app_id" mapstructure:"app_id"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	IndexName string `yaml:"index_name" mapstructure:"index_name"`
}

// LearningConfig configures the verified product writer.
type LearningConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// DraftsConfig configures the review draft cache.
type DraftsConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL returns the draft lifetime.
func (d DraftsConfig) TTL() time.Duration {
	return time.Duration(d.TTLMinutes) * time.Minute
}

// Timeout returns the recognizer call timeout.
func (o OCRConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSecs) * time.Second
}

var (
	storeDrivers = []string{"memory", "firestore", "postgres"}
	ocrProviders = []string{"remote", "gemini", "anthropic"}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GROCERYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Cloud Run injects PORT.
	if err := v.BindEnv("server.port", "GROCERYLENS_SERVER_PORT", "PORT"); err != nil {
		return nil, eris.Wrap(err, "config: bind port")
	}

	// Defaults. Secrets default to empty so AutomaticEnv can see the keys.
	v.SetDefault("server.port", 8111)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:1234", "http://127.0.0.1:1234"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("auth.skip", false)
	v.SetDefault("auth.credentials_file", "")
	v.SetDefault("auth.dev_user", "local-dev-user")
	v.SetDefault("ocr.provider", "gemini")
	v.SetDefault("ocr.fallback", "")
	v.SetDefault("ocr.remote_url", "")
	v.SetDefault("ocr.remote_api_key", "")
	v.SetDefault("ocr.timeout_secs", 120)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.model", "gemini-2.0-flash")
	v.SetDefault("enrichment.requests_per_second", 1.0)
	v.SetDefault("enrichment.burst", 5)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("algolia.app_id", "")
	v.SetDefault("algolia.api_key", "")
	v.SetDefault("algolia.index_name", "grocerylens_products")
	v.SetDefault("learning.concurrency", 4)
	v.SetDefault("drafts.ttl_minutes", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if !slices.Contains(storeDrivers, c.Store.Driver) {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for postgres")
	}
	if !slices.Contains(ocrProviders, c.OCR.Provider) {
		return eris.Errorf("config: unknown ocr provider %q", c.OCR.Provider)
	}
	if c.OCR.Fallback != "" && !slices.Contains(ocrProviders, c.OCR.Fallback) {
		return eris.Errorf("config: unknown ocr fallback %q", c.OCR.Fallback)
	}
	if c.OCR.Provider == "remote" && c.OCR.RemoteURL == "" {
		return eris.New("config: ocr.remote_url is required for the remote provider")
	}
	if c.Server.Port <= 0 {
		return eris.Errorf("config: invalid server port %d", c.Server.Port)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
