package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// MinSyncIntervalMinutes is the floor applied to the sync interval wherever
// it is read; shorter intervals hammer the provider API for no benefit.
const MinSyncIntervalMinutes = 5

// Config holds the bootstrap settings read once at process start. The
// mutable sync settings (token, source, interval) live in the settings
// store and are re-read on every run; the values here only seed that
// store on first boot.
type Config struct {
	DatabaseURL      string `json:"database_url"`
	ProviderEndpoint string `json:"provider_endpoint"`
	MediaDir         string `json:"media_dir"`
	ListenAddr       string `json:"listen_addr"`

	APIToken        string `json:"api_token"`
	SourceID        string `json:"source_id"`
	AutoSync        bool   `json:"auto_sync"`
	IntervalMinutes int    `json:"sync_interval_minutes"`
}

// Validate checks that the database URL is set, the provider endpoint is a
// valid URL and the sync interval is not below the floor.
func (cfg *Config) Validate() error {
	if cfg.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if _, err := url.ParseRequestURI(cfg.ProviderEndpoint); err != nil {
		return fmt.Errorf("invalid provider endpoint: %s", cfg.ProviderEndpoint)
	}
	if cfg.IntervalMinutes < MinSyncIntervalMinutes {
		return fmt.Errorf("sync interval must be ≥ %d minutes", MinSyncIntervalMinutes)
	}
	return nil
}

// LoadConfig reads the JSON file at path and decodes it into a Config.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "media"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	return &cfg, nil
}
