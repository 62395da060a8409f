// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Provider types
const (
	ProviderDatabase = "database"
	ProviderSpotify  = "spotify"
	ProviderLastFm   = "lastfm"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Admin    AdminConfig             `yaml:"admin"`
	Playback PlaybackConfig          `yaml:"playback"`
	Trends   TrendsConfig            `yaml:"trends"`
	Sources  SourcesConfig           `yaml:"sources"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Database DatabaseConfig          `yaml:"database"`
	Cache    CacheConfig             `yaml:"cache"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents playback coordinator configuration.
// Durations are pointers so that an explicit 0 survives defaulting.
type PlaybackConfig struct {
	Backend        string `yaml:"backend" default:"simulated" validate:"oneof=simulated mpv"`
	LoadTimeoutMs  *int   `yaml:"load_timeout_ms" default:"10000" validate:"omitempty,gte=0,lte=120000"` // 0 disables the timeout
	PrepareDelayMs *int   `yaml:"prepare_delay_ms" default:"200" validate:"omitempty,gte=0,lte=10000"`
	EventBuffer    int    `yaml:"event_buffer" default:"16" validate:"gte=1,lte=1024"`
}

// LoadTimeout returns the backend load timeout.
func (p PlaybackConfig) LoadTimeout() time.Duration {
	return duration(p.LoadTimeoutMs, time.Millisecond)
}

// PrepareDelay returns the simulated backend prepare delay.
func (p PlaybackConfig) PrepareDelay() time.Duration {
	return duration(p.PrepareDelayMs, time.Millisecond)
}

// TrendsConfig represents trend cache configuration.
type TrendsConfig struct {
	StaleAfterSec  *int   `yaml:"stale_after_sec" default:"300" validate:"omitempty,gte=0"`    // 0 treats every entry as stale
	FetchTimeoutMs *int   `yaml:"fetch_timeout_ms" default:"15000" validate:"omitempty,gte=0"` // 0 disables the timeout
	OnFetchError   string `yaml:"on_fetch_error" default:"serve_stale" validate:"oneof=serve_stale fail"`
	RankingLimit   int    `yaml:"ranking_limit" default:"50" validate:"gte=1,lte=500"`
	ContextLimit   int    `yaml:"context_limit" default:"50" validate:"gte=1,lte=500"`
}

// StaleAfter returns the staleness threshold.
func (t TrendsConfig) StaleAfter() time.Duration {
	return duration(t.StaleAfterSec, time.Second)
}

// FetchTimeout returns the upper bound for a single fetch.
func (t TrendsConfig) FetchTimeout() time.Duration {
	return duration(t.FetchTimeoutMs, time.Millisecond)
}

func duration(v *int, unit time.Duration) time.Duration {
	if v == nil {
		return 0
	}
	return time.Duration(*v) * unit
}

// SourcesConfig lists the providers tried, in order, for each list kind.
type SourcesConfig struct {
	Ranking []ProviderConfig `yaml:"ranking" validate:"required,min=1,dive"`
	Context []ProviderConfig `yaml:"context" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single track provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=database spotify lastfm"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// DatabaseConfig represents the songs database configuration.
type DatabaseConfig struct {
	Driver string `yaml:"driver" default:"sqlite3" validate:"oneof=sqlite3 postgres"`
	DSN    string `yaml:"dsn"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

// CacheConfig represents ranking persistence configuration.
type CacheConfig struct {
	Dir string `yaml:"dir"` // Empty keeps rankings in memory only
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Enabled reports whether Spotify credentials are complete.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		for _, providers := range [][]ProviderConfig{c.Sources.Ranking, c.Sources.Context} {
			for i := range providers {
				if providers[i].Type != ProviderLastFm {
					continue
				}
				if providers[i].Settings == nil {
					providers[i].Settings = make(map[string]any)
				}
				providers[i].Settings["api_key"] = v
			}
		}
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateProviders(); err != nil {
		return err
	}

	return nil
}

// validateProviders checks that every configured provider has its backing service.
func (c *Config) validateProviders() error {
	for _, providers := range [][]ProviderConfig{c.Sources.Ranking, c.Sources.Context} {
		for i, p := range providers {
			switch p.Type {
			case ProviderDatabase:
				if !c.Database.Enabled() {
					return errors.Newf("provider %d (%s) requires database.dsn", i, p.DisplayName)
				}
			case ProviderSpotify:
				if !c.Spotify.Enabled() {
					return errors.Newf("provider %d (%s) requires spotify credentials", i, p.DisplayName)
				}
			}
		}
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
