package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Local database paths
	DBPath     string `mapstructure:"db-path"`
	FlowDBPath string `mapstructure:"flow-db-path"`

	// Working directory for downloads and extraction
	WorkDir string `mapstructure:"work-dir"`

	// Online search API
	APIBaseURL        string        `mapstructure:"api-base-url"`
	APIKey            string        `mapstructure:"api-key"`
	PageSize          int           `mapstructure:"page-size"`
	MaxRetries        int           `mapstructure:"max-retries"`
	InitialBackoff    time.Duration `mapstructure:"initial-backoff"`
	RateLimitWait     time.Duration `mapstructure:"rate-limit-wait"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute"`

	// Bulk ETL
	ArtifactPath    string `mapstructure:"artifact-path"`
	ArtifactVersion int    `mapstructure:"artifact-version"`
	BulkBaseURL     string `mapstructure:"bulk-base-url"`
	MirrorBucket    string `mapstructure:"mirror-bucket"`
	MirrorRegion    string `mapstructure:"mirror-region"`

	// Extraction limits
	MaxFileSize         int64   `mapstructure:"max-file-size"`
	MaxTotalSize        int64   `mapstructure:"max-total-size"`
	MaxCompressionRatio float64 `mapstructure:"max-compression-ratio"`

	// Workflow configuration
	FlowMaxRetries int `mapstructure:"flow-max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("db-path", ".data/foods.db")
	viper.SetDefault("flow-db-path", ".data/flow")
	viper.SetDefault("work-dir", "/tmp/fdcsync")
	viper.SetDefault("api-base-url", "https://api.nal.usda.gov/fdc")
	viper.SetDefault("api-key", "")
	viper.SetDefault("page-size", 200)
	viper.SetDefault("max-retries", 5)
	viper.SetDefault("initial-backoff", 2*time.Second)
	viper.SetDefault("rate-limit-wait", 61*time.Second)
	viper.SetDefault("requests-per-minute", 16)
	viper.SetDefault("artifact-path", "dist/usda-foods.json")
	viper.SetDefault("artifact-version", 1)
	viper.SetDefault("bulk-base-url", "https://fdc.nal.usda.gov/fdc-datasets")
	viper.SetDefault("mirror-bucket", "")
	viper.SetDefault("mirror-region", "us-east-1")
	viper.SetDefault("max-file-size", int64(32)*1024*1024*1024)
	viper.SetDefault("max-total-size", int64(64)*1024*1024*1024)
	viper.SetDefault("max-compression-ratio", 200.0)
	viper.SetDefault("flow-max-retries", 3)

	// Environment variables (FDCSYNC_DB_PATH, FDCSYNC_API_KEY, ...)
	viper.SetEnvPrefix("FDCSYNC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.fdcsync")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db-path cannot be empty")
	}
	if c.FlowDBPath == "" {
		return fmt.Errorf("flow-db-path cannot be empty")
	}
	if c.PageSize < 1 || c.PageSize > 200 {
		return fmt.Errorf("page-size must be between 1 and 200")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial-backoff must be positive")
	}
	if c.RateLimitWait <= 0 {
		return fmt.Errorf("rate-limit-wait must be positive")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests-per-minute must be positive")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max-file-size must be positive")
	}
	if c.MaxTotalSize <= 0 {
		return fmt.Errorf("max-total-size must be positive")
	}
	if c.MaxCompressionRatio <= 0 {
		return fmt.Errorf("max-compression-ratio must be positive")
	}
	if c.FlowMaxRetries < 0 {
		return fmt.Errorf("flow-max-retries must be non-negative")
	}
	return nil
}

// ValidateForSync additionally requires the online API credentials.
func (c *Config) ValidateForSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("api-key is required for sync (set FDCSYNC_API_KEY or --api-key)")
	}
	return nil
}
