package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Paths.Root != "~/.mcx" {
			t.Errorf("expected root ~/.mcx, got %s", config.Paths.Root)
		}

		if config.Download.Retries != 3 {
			t.Errorf("expected 3 download retries, got %d", config.Download.Retries)
		}

		if config.Download.ParallelChunk != 20 {
			t.Errorf("expected parallel chunk 20, got %d", config.Download.ParallelChunk)
		}

		if config.Catalog.CurseForge.BaseURL != "https://api.curseforge.com" {
			t.Errorf("expected curseforge base URL, got %s", config.Catalog.CurseForge.BaseURL)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[paths]
root = "/srv/mcx"

[launcher]
name = "custom"
version = "9.9.9"

[download]
retries = 5
parallel_chunk = 8
mirrors = ["https://mirror.example.com"]

[catalog.curseforge]
api_key = "test_api_key"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.RootDir() != "/srv/mcx" {
			t.Errorf("expected root /srv/mcx, got %s", config.RootDir())
		}

		if config.Download.Retries != 5 {
			t.Errorf("expected 5 retries, got %d", config.Download.Retries)
		}

		if len(config.Download.Mirrors) != 1 {
			t.Errorf("expected one mirror, got %v", config.Download.Mirrors)
		}

		if config.Catalog.CurseForge.BaseURL != "https://api.curseforge.com" {
			t.Errorf("unset keys should keep defaults, got %s", config.Catalog.CurseForge.BaseURL)
		}

		if config.Launcher.Name != "custom" {
			t.Errorf("expected launcher name custom, got %s", config.Launcher.Name)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("MCX_ROOT", "/env/root")
		t.Setenv("MCX_CURSEFORGE_API_KEY", "from-env")

		config := DefaultConfig()
		if err := ApplyEnv(config); err != nil {
			t.Fatalf("ApplyEnv failed: %v", err)
		}

		if config.Paths.Root != "/env/root" {
			t.Errorf("expected root from env, got %s", config.Paths.Root)
		}
		if config.Catalog.CurseForge.APIKey != "from-env" {
			t.Errorf("expected api key from env, got %s", config.Catalog.CurseForge.APIKey)
		}
		if config.Download.Retries != 3 {
			t.Errorf("unset variables should keep values, got %d", config.Download.Retries)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		config.Download.Retries = 0
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
