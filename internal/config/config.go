package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the daemon
type Config struct {
	DBPath         string
	AirportCSVPath string
	Tracker        TrackerConfig
	Routes         RouteConfig
	WatchInterval  int // seconds between watch monitor sweeps
	Log            LogConfig
}

// TrackerConfig holds upstream tracking service configuration
type TrackerConfig struct {
	APIKey     string // premium tier credential, blank disables the premium tier
	PremiumURL string
	PublicURL  string
	ChunkSize  int // identifiers per request before splitting
}

// RouteConfig holds route resolution configuration
type RouteConfig struct {
	PrimaryURL       string
	SecondaryURL     string
	FreshnessMinutes int // cached route age before a re-fetch
	RetentionDays    int // cached route age before the cleanup sweep deletes it
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("db_path", "skywatch.db")
	v.SetDefault("airport_csv_path", "")
	v.SetDefault("tracker.api_key", "")
	v.SetDefault("tracker.premium_url", "https://adsbexchange-com1.p.rapidapi.com/v2")
	v.SetDefault("tracker.public_url", "https://api.adsb.lol/v2")
	v.SetDefault("tracker.chunk_size", 1000)
	v.SetDefault("routes.primary_url", "https://api.adsbdb.com/v0")
	v.SetDefault("routes.secondary_url", "https://hexdb.io/api/v1")
	v.SetDefault("routes.freshness_minutes", 60)
	v.SetDefault("routes.retention_days", 30)
	v.SetDefault("watch_interval", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/skywatch")
	v.AddConfigPath(".")

	// Check for config file path from environment variable
	if configPath := os.Getenv("SKYWATCH_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Read config file (if it exists)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults + env vars
	}

	v.SetEnvPrefix("SKYWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		DBPath:         v.GetString("db_path"),
		AirportCSVPath: v.GetString("airport_csv_path"),
		Tracker: TrackerConfig{
			APIKey:     v.GetString("tracker.api_key"),
			PremiumURL: v.GetString("tracker.premium_url"),
			PublicURL:  v.GetString("tracker.public_url"),
			ChunkSize:  v.GetInt("tracker.chunk_size"),
		},
		Routes: RouteConfig{
			PrimaryURL:       v.GetString("routes.primary_url"),
			SecondaryURL:     v.GetString("routes.secondary_url"),
			FreshnessMinutes: v.GetInt("routes.freshness_minutes"),
			RetentionDays:    v.GetInt("routes.retention_days"),
		},
		WatchInterval: v.GetInt("watch_interval"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if cfg.Tracker.PublicURL == "" {
		return fmt.Errorf("tracker.public_url is required")
	}

	if cfg.Tracker.ChunkSize <= 0 {
		return fmt.Errorf("tracker.chunk_size must be greater than 0")
	}

	if cfg.Routes.FreshnessMinutes <= 0 {
		return fmt.Errorf("routes.freshness_minutes must be greater than 0")
	}

	if cfg.Routes.RetentionDays <= 0 {
		return fmt.Errorf("routes.retention_days must be greater than 0")
	}

	if cfg.WatchInterval <= 0 {
		return fmt.Errorf("watch_interval must be greater than 0")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
