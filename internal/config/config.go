package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Matching MatchingConfig `toml:"matching"`
	Session  SessionConfig  `toml:"session"`
	Discogs  DiscogsConfig  `toml:"discogs"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

// MatchingConfig controls how detections are matched to owned albums
type MatchingConfig struct {
	Algorithm    string  `toml:"algorithm"` // wagner-fischer, jaro-winkler or levenshtein
	Threshold    float64 `toml:"threshold"` // best score above this is rejected
	Epsilon      float64 `toml:"epsilon"`   // scores this close count as ties
	TitleWeight  float64 `toml:"title_weight"`
	ArtistWeight float64 `toml:"artist_weight"`
}

// SessionConfig controls listening-time attribution
type SessionConfig struct {
	MaxGapMinutes int `toml:"max_gap_minutes"` // cap on time credited between detections
}

// DiscogsConfig contains collection fetch configuration. The access token
// itself comes from the DISCOGS_TOKEN environment variable, not this file.
type DiscogsConfig struct {
	Username       string `toml:"username"`
	PerPage        int    `toml:"per_page"`
	RequestsPerMin int    `toml:"requests_per_minute"`
	FetchTracks    bool   `toml:"fetch_tracks"`
}

// DatabaseConfig contains local store configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Matching: MatchingConfig{
			Algorithm:    "wagner-fischer",
			Threshold:    0.35,
			Epsilon:      0.01,
			TitleWeight:  0.6,
			ArtistWeight: 0.4,
		},
		Session: SessionConfig{
			MaxGapMinutes: 30,
		},
		Discogs: DiscogsConfig{
			Username:       "",
			PerPage:        50,
			RequestsPerMin: 60,
			FetchTracks:    true,
		},
		Database: DatabaseConfig{
			Path: "./spindle.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Spindle Configuration
# Listening-session aggregation for your vinyl collection.
# Edit the values below to tune matching and attribution.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("matching threshold must be in (0,1]")
	}
	if c.Matching.Epsilon < 0 || c.Matching.Epsilon >= 1 {
		return fmt.Errorf("matching epsilon must be in [0,1)")
	}
	if c.Matching.TitleWeight < c.Matching.ArtistWeight {
		return fmt.Errorf("title weight must be at least the artist weight")
	}
	if c.Matching.TitleWeight+c.Matching.ArtistWeight <= 0 {
		return fmt.Errorf("matching weights must sum to a positive value")
	}

	if c.Session.MaxGapMinutes < 1 {
		return fmt.Errorf("session max gap must be at least one minute")
	}

	if c.Discogs.PerPage < 1 || c.Discogs.PerPage > 100 {
		return fmt.Errorf("discogs per_page must be between 1 and 100")
	}
	if c.Discogs.RequestsPerMin < 1 {
		return fmt.Errorf("discogs requests_per_minute must be at least 1")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	return nil
}
