package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Store       StoreConfig       `toml:"store"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map converts the Spotify credentials to the map form used by service constructors.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// StoreConfig selects and configures the session store backend.
//
// Backend is one of "redis", "sqlite" or "memory".
type StoreConfig struct {
	Backend string       `toml:"backend"`
	Redis   RedisConfig  `toml:"redis"`
	SQLite  SQLiteConfig `toml:"sqlite"`
}

// RedisConfig contains connection settings for the Redis session store.
//
// URL takes precedence over the discrete fields when set.
type RedisConfig struct {
	URL        string `toml:"url"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	MaxRetries int    `toml:"max_retries"`
}

// SQLiteConfig contains settings for the SQLite-backed session store.
type SQLiteConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	SecureCookies bool   `toml:"secure_cookies"`
	PostLoginURL  string `toml:"post_login_url"`
}

// SessionConfig contains session lifecycle settings.
type SessionConfig struct {
	TTLHours             int  `toml:"ttl_hours"`
	LoginTTLMinutes      int  `toml:"login_ttl_minutes"`
	RefreshMarginSeconds int  `toml:"refresh_margin_seconds"`
	RevokeOnLogout       bool `toml:"revoke_on_logout"`
}

// TTL returns the session time-to-live as a [time.Duration].
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// LoginTTL returns the pending-login record time-to-live as a [time.Duration].
func (s SessionConfig) LoginTTL() time.Duration {
	return time.Duration(s.LoginTTLMinutes) * time.Minute
}

// RefreshMargin returns the safety margin subtracted from token expiry as a [time.Duration].
func (s SessionConfig) RefreshMargin() time.Duration {
	return time.Duration(s.RefreshMarginSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
