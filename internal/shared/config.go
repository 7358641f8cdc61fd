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
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Sync     SyncConfig     `toml:"sync"`
}

// APIConfig contains deck service connection settings.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Retries uint   `toml:"retries"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig tunes the synchronizer: debounce window for local edits,
// poll pacing, and the transport failure bound before a poller gives up.
type SyncConfig struct {
	DebounceMs               int `toml:"debounce_ms"`
	PollIntervalMs           int `toml:"poll_interval_ms"`
	PollMaxTransportFailures int `toml:"poll_max_transport_failures"`
}

// DebounceWindow returns the debounce window as a [time.Duration].
func (s SyncConfig) DebounceWindow() time.Duration {
	if s.DebounceMs <= 0 {
		return time.Second
	}
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// PollInterval returns the poll tick delay as a [time.Duration].
func (s SyncConfig) PollInterval() time.Duration {
	if s.PollIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(s.PollIntervalMs) * time.Millisecond
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
