// Package config loads the pipeline's on-disk YAML configuration,
// merged with an environment override for the data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultDataBase = "/var/lib/transcoder"
	appDirName      = "transcoder"
	configFileName  = "config.yaml"
)

// TrackerConfig holds the Gazelle-family tracker API settings.
type TrackerConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	AnnounceURL string `yaml:"announce_url"`
	Source      string `yaml:"source"` // e.g. "RED"
}

// BinariesConfig names the external programs the Process Runner invokes.
// Empty fields fall back to looking the bare name up on PATH.
type BinariesConfig struct {
	Flac    string `yaml:"flac"`
	Sox     string `yaml:"sox"`
	Lame    string `yaml:"lame"`
	Imdl    string `yaml:"imdl"`
	Convert string `yaml:"convert"`
}

// ImagesConfig bounds the Additional-file Job's resize behaviour.
type ImagesConfig struct {
	MaxPixelSize int `yaml:"max_pixel_size"`
	Quality      int `yaml:"quality"`
}

// Config holds application configuration.
type Config struct {
	OutputBase  string         `yaml:"output_base"`
	TorrentBase string         `yaml:"torrent_base"`
	CPUs        int            `yaml:"cpus"`
	Repeatable  bool           `yaml:"repeatable"`
	Targets     []string       `yaml:"targets"` // "FLAC", "320", "V0"
	Tracker     TrackerConfig  `yaml:"tracker"`
	Binaries    BinariesConfig `yaml:"binaries"`
	Images      ImagesConfig   `yaml:"images"`

	// Derived from environment, not stored in YAML.
	dataBase string
}

// DataBase returns the DATA_BASE path: the cached value set by
// LoadFromDataBase, else the environment override, else the package
// default.
func (c *Config) DataBase() string {
	if c.dataBase != "" {
		return c.dataBase
	}
	if base := os.Getenv("DATA_BASE"); base != "" {
		return base
	}
	return defaultDataBase
}

// QueueDatabasePath returns the path to the work queue's SQLite database.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.DataBase(), "queue.db")
}

// LogDir returns the directory for a release's log files.
func (c *Config) LogDir(releaseID string) string {
	return filepath.Join(c.DataBase(), "logs", "releases", releaseID)
}

// EnsureLogDir creates the log directory for a specific release.
func (c *Config) EnsureLogDir(releaseID string) error {
	return os.MkdirAll(c.LogDir(releaseID), 0755)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads config from the default location: $XDG_CONFIG_HOME
// first, falling back to ~/.config.
func LoadDefault() (*Config, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		path := filepath.Join(xdg, appDirName, configFileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	path := filepath.Join(home, ".config", appDirName, configFileName)
	return Load(path)
}

// LoadFromDataBase loads config from $DATA_BASE/config.yaml.
func LoadFromDataBase() (*Config, error) {
	dataBase := os.Getenv("DATA_BASE")
	if dataBase == "" {
		dataBase = defaultDataBase
	}

	configPath := filepath.Join(dataBase, configFileName)
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	cfg.dataBase = dataBase
	return cfg, nil
}
