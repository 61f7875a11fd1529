package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
output_base: /mnt/transcodes/output
torrent_base: /mnt/transcodes/torrents
cpus: 4
targets:
  - FLAC
  - V0
tracker:
  base_url: https://redacted.sh
  api_key: secret
  announce_url: https://redacted.sh/announce
  source: RED
binaries:
  sox: /usr/bin/sox
  imdl: /usr/local/bin/imdl
`
	os.WriteFile(configPath, []byte(content), 0644)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputBase != "/mnt/transcodes/output" {
		t.Errorf("OutputBase = %q, want /mnt/transcodes/output", cfg.OutputBase)
	}
	if cfg.CPUs != 4 {
		t.Errorf("CPUs = %d, want 4", cfg.CPUs)
	}
	if len(cfg.Targets) != 2 || cfg.Targets[0] != "FLAC" || cfg.Targets[1] != "V0" {
		t.Errorf("Targets = %v, want [FLAC V0]", cfg.Targets)
	}
	if cfg.Tracker.Source != "RED" {
		t.Errorf("Tracker.Source = %q, want RED", cfg.Tracker.Source)
	}
	if cfg.Binaries.Sox != "/usr/bin/sox" {
		t.Errorf("Binaries.Sox = %q, want /usr/bin/sox", cfg.Binaries.Sox)
	}
}

func TestConfig_DataBase_EnvOverride(t *testing.T) {
	t.Setenv("DATA_BASE", "/mnt/custom-data")
	cfg := &Config{}

	if got := cfg.DataBase(); got != "/mnt/custom-data" {
		t.Errorf("DataBase() = %q, want /mnt/custom-data", got)
	}
}

func TestConfig_DataBase_Default(t *testing.T) {
	t.Setenv("DATA_BASE", "")
	cfg := &Config{}

	if got := cfg.DataBase(); got != defaultDataBase {
		t.Errorf("DataBase() = %q, want %q", got, defaultDataBase)
	}
}

func TestConfig_DataBase_Cached(t *testing.T) {
	t.Setenv("DATA_BASE", "/env/data")
	cfg := &Config{}
	cfg.dataBase = "/cached/data"

	if got := cfg.DataBase(); got != "/cached/data" {
		t.Errorf("DataBase() = %q, want /cached/data (cached)", got)
	}
}

func TestConfig_QueueDatabasePath(t *testing.T) {
	cfg := &Config{}
	cfg.dataBase = "/mnt/data"

	got := cfg.QueueDatabasePath()
	want := "/mnt/data/queue.db"
	if got != want {
		t.Errorf("QueueDatabasePath() = %q, want %q", got, want)
	}
}

func TestConfig_LogDir(t *testing.T) {
	cfg := &Config{}
	cfg.dataBase = "/mnt/data"

	got := cfg.LogDir("release-42")
	want := "/mnt/data/logs/releases/release-42"
	if got != want {
		t.Errorf("LogDir(release-42) = %q, want %q", got, want)
	}
}

func TestConfig_EnsureLogDir(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{}
	cfg.dataBase = tmpDir

	err := cfg.EnsureLogDir("release-7")
	if err != nil {
		t.Fatalf("EnsureLogDir(release-7) error = %v", err)
	}

	expectedDir := filepath.Join(tmpDir, "logs/releases/release-7")
	info, err := os.Stat(expectedDir)
	if err != nil {
		t.Fatalf("expected directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected path to be a directory")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
this is not
  valid: yaml syntax [
`
	os.WriteFile(configPath, []byte(content), 0644)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestLoadDefault_XDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, appDirName, configFileName)

	os.MkdirAll(filepath.Dir(configPath), 0755)
	content := `
output_base: /test/output
cpus: 2
`
	os.WriteFile(configPath, []byte(content), 0644)

	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", dir)
	defer os.Setenv("XDG_CONFIG_HOME", oldXDG)

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}

	if cfg.OutputBase != "/test/output" {
		t.Errorf("OutputBase = %q, want /test/output", cfg.OutputBase)
	}
}

func TestLoadDefault_HomeConfigFallback(t *testing.T) {
	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Unsetenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", oldXDG)

	tmpHome := t.TempDir()
	configPath := filepath.Join(tmpHome, ".config", appDirName, configFileName)

	os.MkdirAll(filepath.Dir(configPath), 0755)
	content := `
output_base: /test/output
`
	os.WriteFile(configPath, []byte(content), 0644)

	// os.UserHomeDir reads $HOME on Unix.
	t.Setenv("HOME", tmpHome)
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}

	if cfg.OutputBase != "/test/output" {
		t.Errorf("OutputBase = %q, want /test/output", cfg.OutputBase)
	}
}

func TestLoadFromDataBase(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
output_base: /mnt/transcodes/output
cpus: 8
`
	os.WriteFile(filepath.Join(tmpDir, configFileName), []byte(configContent), 0644)

	t.Setenv("DATA_BASE", tmpDir)

	cfg, err := LoadFromDataBase()
	if err != nil {
		t.Fatalf("LoadFromDataBase() error = %v", err)
	}

	if cfg.CPUs != 8 {
		t.Errorf("CPUs = %d, want 8", cfg.CPUs)
	}
	if cfg.DataBase() != tmpDir {
		t.Errorf("DataBase() = %q, want %q", cfg.DataBase(), tmpDir)
	}
}

func TestLoadFromDataBase_DefaultPath(t *testing.T) {
	t.Setenv("DATA_BASE", "")

	_, err := LoadFromDataBase()
	// Fails unless /var/lib/transcoder/config.yaml happens to exist, which
	// is expected in a test environment; this just exercises the default
	// path logic without asserting on the filesystem's state.
	if err == nil {
		t.Skip("LoadFromDataBase() succeeded - default config.yaml exists")
	}
}
