package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values set in the environment (MCX_*) take precedence over the file.
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	Launcher LauncherConfig `toml:"launcher"`
	Download DownloadConfig `toml:"download"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// PathsConfig contains the application directory layout root.
type PathsConfig struct {
	Root string `toml:"root" env:"MCX_ROOT"`
}

// LauncherConfig identifies the launcher to the game through launcher_name and launcher_version.
type LauncherConfig struct {
	Name    string `toml:"name" env:"MCX_LAUNCHER_NAME"`
	Version string `toml:"version" env:"MCX_LAUNCHER_VERSION"`
}

// DownloadConfig contains download service tuning.
type DownloadConfig struct {
	Retries        int      `toml:"retries" env:"MCX_DOWNLOAD_RETRIES"`
	RateLimit      float64  `toml:"rate_limit" env:"MCX_DOWNLOAD_RATE_LIMIT"`
	ParallelChunk  int      `toml:"parallel_chunk" env:"MCX_DOWNLOAD_PARALLEL_CHUNK"`
	UserAgent      string   `toml:"user_agent" env:"MCX_DOWNLOAD_USER_AGENT"`
	TimeoutSeconds int      `toml:"timeout_seconds" env:"MCX_DOWNLOAD_TIMEOUT"`
	Mirrors        []string `toml:"mirrors" env:"MCX_DOWNLOAD_MIRRORS" envSeparator:","`
}

// CatalogConfig contains remote mod catalog settings.
type CatalogConfig struct {
	CurseForge CurseForgeConfig `toml:"curseforge"`
}

// CurseForgeConfig contains CurseForge API credentials.
type CurseForgeConfig struct {
	APIKey  string `toml:"api_key" env:"MCX_CURSEFORGE_API_KEY"`
	BaseURL string `toml:"base_url" env:"MCX_CURSEFORGE_BASE_URL"`
}

// AuthConfig contains account session settings.
type AuthConfig struct {
	ClientID       string `toml:"client_id" env:"MCX_AUTH_CLIENT_ID"`
	TokenURL       string `toml:"token_url" env:"MCX_AUTH_TOKEN_URL"`
	KeyringService string `toml:"keyring_service" env:"MCX_AUTH_KEYRING_SERVICE"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"MCX_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" env:"MCX_LOG_LEVEL"`
	File  string `toml:"file" env:"MCX_LOG_FILE"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides config values with MCX_* environment variables.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a download or launch.
func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return fmt.Errorf("%w: paths.root is empty", ErrInvalidConfig)
	}
	if c.Download.Retries <= 0 {
		return fmt.Errorf("%w: download.retries must be positive", ErrInvalidConfig)
	}
	if c.Download.ParallelChunk <= 0 {
		return fmt.Errorf("%w: download.parallel_chunk must be positive", ErrInvalidConfig)
	}
	return nil
}

// RootDir returns the absolute application directory.
func (c *Config) RootDir() string {
	return ExpandPath(c.Paths.Root)
}

// ExpandPath expands a leading "~/" to the user's home directory and makes the path absolute.
func ExpandPath(p string) string {
	if p == "" || p == ":memory:" {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
