package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Dataset   DatasetConfig
	Analytics AnalyticsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// DatasetConfig holds the dataset file settings
type DatasetConfig struct {
	Path         string
	Delimiter    string
	MaxRowErrors int
}

// AnalyticsConfig holds defaults for ranked aggregates
type AnalyticsConfig struct {
	TopCities         int
	TopCustomers      int
	SlowestCategories int
	HistogramBins     int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DASH_ prefix (e.g., DASH_DATASET_PATH)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Dataset: DatasetConfig{
			Path:         v.GetString("dataset.path"),
			Delimiter:    v.GetString("dataset.delimiter"),
			MaxRowErrors: v.GetInt("dataset.max_row_errors"),
		},
		Analytics: AnalyticsConfig{
			TopCities:         v.GetInt("analytics.top_cities"),
			TopCustomers:      v.GetInt("analytics.top_customers"),
			SlowestCategories: v.GetInt("analytics.slowest_categories"),
			HistogramBins:     v.GetInt("analytics.histogram_bins"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ecommerce-dashboard"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	// NOTE: CORS origins get no wildcard fallback. An empty list means no
	// cross-origin requests are allowed until explicitly configured.
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = "data/cleaned_data.csv"
	}
	if cfg.Dataset.Delimiter == "" {
		cfg.Dataset.Delimiter = ","
	}
	if cfg.Dataset.MaxRowErrors == 0 {
		cfg.Dataset.MaxRowErrors = 100
	}
	if cfg.Analytics.TopCities == 0 {
		cfg.Analytics.TopCities = 10
	}
	if cfg.Analytics.TopCustomers == 0 {
		cfg.Analytics.TopCustomers = 5
	}
	if cfg.Analytics.SlowestCategories == 0 {
		cfg.Analytics.SlowestCategories = 10
	}
	if cfg.Analytics.HistogramBins == 0 {
		cfg.Analytics.HistogramBins = 50
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("log.level %q is not a valid level", c.Log.Level)
	}

	if len(c.Dataset.Delimiter) != 1 {
		return fmt.Errorf("dataset.delimiter must be a single character, got %q", c.Dataset.Delimiter)
	}
	if c.Dataset.MaxRowErrors < 0 {
		return fmt.Errorf("dataset.max_row_errors cannot be negative")
	}

	if c.Analytics.HistogramBins < 1 || c.Analytics.HistogramBins > 500 {
		return fmt.Errorf("analytics.histogram_bins must be between 1 and 500, got %d", c.Analytics.HistogramBins)
	}
	if c.Analytics.TopCities < 1 || c.Analytics.TopCustomers < 1 || c.Analytics.SlowestCategories < 1 {
		return fmt.Errorf("analytics ranking sizes must be positive")
	}

	if c.App.Env == "production" {
		if c.Log.Format != "json" {
			return fmt.Errorf("log.format must be 'json' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DelimiterRune returns the configured delimiter as a rune.
func (d *DatasetConfig) DelimiterRune() rune {
	return []rune(d.Delimiter)[0]
}
