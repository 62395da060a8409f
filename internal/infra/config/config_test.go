package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":9090"
admin:
  token: "file-token"
playback:
  load_timeout_ms: 5000
trends:
  stale_after_sec: 60
  on_fetch_error: fail
sources:
  ranking:
    - type: database
      display_name: Songs DB
    - type: lastfm
      display_name: Last.fm charts
      settings:
        api_key: "file-key"
  context:
    - type: database
      display_name: Songs DB
filters:
  duplicate_track_filter:
    enabled: true
  duration_limit_filter:
    enabled: true
    settings:
      max_duration_ms: 600000
database:
  driver: sqlite3
  dsn: "file:songs.db"
`

func validConfig(t *testing.T) Config {
	t.Helper()
	cfg := Config{
		Admin: AdminConfig{Token: "test-admin-token"},
		Sources: SourcesConfig{
			Ranking: []ProviderConfig{{Type: ProviderDatabase, DisplayName: "DB"}},
			Context: []ProviderConfig{{Type: ProviderDatabase, DisplayName: "DB"}},
		},
		Database: DatabaseConfig{DSN: ":memory:"},
	}
	require.NoError(t, defaults.Set(&cfg))
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing admin token",
			mutate:  func(c *Config) { c.Admin.Token = "" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name:    "no ranking providers",
			mutate:  func(c *Config) { c.Sources.Ranking = nil },
			wantErr: true,
			errMsg:  "Ranking",
		},
		{
			name: "unknown provider type",
			mutate: func(c *Config) {
				c.Sources.Context = []ProviderConfig{{Type: "youtube", DisplayName: "YT"}}
			},
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "database provider without dsn",
			mutate:  func(c *Config) { c.Database.DSN = "" },
			wantErr: true,
			errMsg:  "database.dsn",
		},
		{
			name: "spotify provider without credentials",
			mutate: func(c *Config) {
				c.Sources.Ranking = []ProviderConfig{{Type: ProviderSpotify, DisplayName: "Spotify"}}
			},
			wantErr: true,
			errMsg:  "spotify credentials",
		},
		{
			name: "spotify provider with credentials",
			mutate: func(c *Config) {
				c.Sources.Ranking = []ProviderConfig{{Type: ProviderSpotify, DisplayName: "Spotify"}}
				c.Spotify = SpotifyConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "token", Market: "US"}
			},
			wantErr: false,
		},
		{
			name:    "invalid market length",
			mutate:  func(c *Config) { c.Spotify.Market = "JAPAN" },
			wantErr: true,
			errMsg:  "Market",
		},
		{
			name:    "invalid fetch error policy",
			mutate:  func(c *Config) { c.Trends.OnFetchError = "retry" },
			wantErr: true,
			errMsg:  "OnFetchError",
		},
		{
			name:    "invalid backend",
			mutate:  func(c *Config) { c.Playback.Backend = "alsa" },
			wantErr: true,
			errMsg:  "Backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestParse_DefaultsAndValues(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "simulated", cfg.Playback.Backend)
	assert.Equal(t, 5*time.Second, cfg.Playback.LoadTimeout())
	assert.Equal(t, 200*time.Millisecond, cfg.Playback.PrepareDelay())
	assert.Equal(t, time.Minute, cfg.Trends.StaleAfter())
	assert.Equal(t, 15*time.Second, cfg.Trends.FetchTimeout())
	assert.Equal(t, "fail", cfg.Trends.OnFetchError)
	assert.Equal(t, 50, cfg.Trends.RankingLimit)
	assert.Equal(t, "JP", cfg.Spotify.Market)
	assert.False(t, cfg.Spotify.Enabled())
	assert.True(t, cfg.Database.Enabled())

	assert.True(t, cfg.IsFilterEnabled("duplicate_track_filter"))
	assert.False(t, cfg.IsFilterEnabled("unknown_filter"))
	assert.Equal(t, 600000, cfg.GetFilterSettings("duration_limit_filter")["max_duration_ms"])
	assert.Len(t, cfg.Sources.Ranking, 2)
}

func TestParse_ExplicitZeroDurations(t *testing.T) {
	yamlData := `
admin:
  token: "t"
playback:
  load_timeout_ms: 0
  prepare_delay_ms: 0
trends:
  stale_after_sec: 0
  fetch_timeout_ms: 0
sources:
  ranking:
    - type: database
      display_name: Songs DB
  context:
    - type: database
      display_name: Songs DB
database:
  dsn: ":memory:"
`
	cfg, err := Parse([]byte(yamlData))
	require.NoError(t, err)

	assert.Zero(t, cfg.Playback.LoadTimeout())
	assert.Zero(t, cfg.Playback.PrepareDelay())
	assert.Zero(t, cfg.Trends.StaleAfter())
	assert.Zero(t, cfg.Trends.FetchTimeout())

	// Omitted values still get their defaults
	cfg, err = Parse([]byte("admin:\n  token: t\nsources:\n  ranking: [{type: database, display_name: DB}]\n  context: [{type: database, display_name: DB}]\ndatabase:\n  dsn: x\n"))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Playback.LoadTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Trends.StaleAfter())
}

func TestConfig_ValidateRejectsNegativeDuration(t *testing.T) {
	cfg := validConfig(t)
	negative := -1
	cfg.Trends.FetchTimeoutMs = &negative

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FetchTimeoutMs")
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "env-token")
	t.Setenv("LASTFM_API_KEY", "env-key")
	t.Setenv("DATABASE_DSN", "postgres://localhost/songs")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Admin.Token)
	assert.Equal(t, "postgres://localhost/songs", cfg.Database.DSN)
	assert.Equal(t, "env-key", cfg.Sources.Ranking[1].Settings["api_key"])
	// Non lastfm providers are untouched
	assert.Nil(t, cfg.Sources.Ranking[0].Settings)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("admin:\n  token: x\n"))
	assert.Error(t, err, "sources are required")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
