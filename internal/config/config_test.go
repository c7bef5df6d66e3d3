package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pstuifzand/dtsedit/internal/diff"
)

func TestSet(t *testing.T) {
	cfg := &Config{
		sessionSettings: make(map[string]string),
	}

	cfg.Set("chip", "kona")
	if cfg.Get("chip") != "kona" {
		t.Errorf("Expected 'kona', got '%s'", cfg.Get("chip"))
	}
}

func TestGet(t *testing.T) {
	cfg := &Config{
		Settings:        map[string]string{"test": "persisted", "other": "kept"},
		sessionSettings: make(map[string]string),
	}

	// Test getting a value that doesn't exist
	if cfg.Get("nonexistent") != "" {
		t.Errorf("Expected empty string for nonexistent key, got '%s'", cfg.Get("nonexistent"))
	}

	// Session settings override persisted settings
	cfg.Set("test", "value")
	if cfg.Get("test") != "value" {
		t.Errorf("Expected 'value', got '%s'", cfg.Get("test"))
	}
	if cfg.Get("other") != "kept" {
		t.Errorf("Expected 'kept', got '%s'", cfg.Get("other"))
	}
}

func TestGetAllReturnsACopy(t *testing.T) {
	cfg := &Config{
		Settings: map[string]string{"key1": "old"},
	}

	cfg.Set("key1", "value1")
	cfg.Set("key2", "value2")

	all := cfg.GetAll()
	if len(all) != 2 {
		t.Errorf("Expected 2 settings, got %d", len(all))
	}
	if all["key1"] != "value1" {
		t.Errorf("Expected 'value1', got '%s'", all["key1"])
	}

	// Modify the returned map
	all["key2"] = "modified"
	if cfg.Get("key2") != "value2" {
		t.Errorf("GetAll() should return a copy, not a reference")
	}
}

func TestNilSessionSettings(t *testing.T) {
	cfg := &Config{}
	if cfg.Get("key") != "" {
		t.Errorf("Get should return empty string for nil sessionSettings")
	}

	cfg.Set("key", "value")
	if cfg.Get("key") != "value" {
		t.Errorf("Set should initialize nil sessionSettings")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Theme != "tokyo-night" {
		t.Errorf("Expected default theme 'tokyo-night', got '%s'", cfg.Theme)
	}
	if cfg.History.MaxEntries != 200 {
		t.Errorf("Expected 200 history entries, got %d", cfg.History.MaxEntries)
	}
	if cfg.Diff.Alignment != diff.AlignAuto {
		t.Errorf("Expected auto alignment, got %s", cfg.Diff.Alignment)
	}
	if cfg.sessionSettings == nil {
		t.Errorf("defaultConfig should initialize sessionSettings")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `log_level = "debug"
chip = "lahaina"

[codec]
hex_properties = ["qcom,acd-level"]

[diff]
alignment = "lcs"
include_unchanged = true

[history]
max_entries = 50

[backup]
dir = "/var/tmp/dts-backups"
keep = 5

[colors]
added = "#00ff00"

[settings]
editor = "vi"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Chip != "lahaina" {
		t.Errorf("Unexpected top-level values: %+v", cfg)
	}
	if len(cfg.Codec.HexProperties) != 1 || cfg.Codec.HexProperties[0] != "qcom,acd-level" {
		t.Errorf("Unexpected hex properties: %v", cfg.Codec.HexProperties)
	}
	if cfg.Diff.Alignment != diff.AlignLCS || !cfg.Diff.IncludeUnchanged {
		t.Errorf("Unexpected diff config: %+v", cfg.Diff)
	}
	if cfg.History.MaxEntries != 50 {
		t.Errorf("Expected 50 history entries, got %d", cfg.History.MaxEntries)
	}
	if cfg.Backup.Dir != "/var/tmp/dts-backups" || cfg.Backup.Keep != 5 {
		t.Errorf("Unexpected backup config: %+v", cfg.Backup)
	}
	if cfg.Colors["added"] != "#00ff00" {
		t.Errorf("Unexpected colors: %v", cfg.Colors)
	}
	if cfg.Get("editor") != "vi" {
		t.Errorf("Expected setting 'vi', got '%s'", cfg.Get("editor"))
	}
	// Unset keys keep their defaults
	if cfg.Theme != "tokyo-night" {
		t.Errorf("Expected default theme, got '%s'", cfg.Theme)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("A missing file should load defaults: %v", err)
	}
	if cfg.Backup.Keep != 20 {
		t.Errorf("Expected default keep 20, got %d", cfg.Backup.Keep)
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad level":     "log_level = \"loud\"\n",
		"bad alignment": "[diff]\nalignment = \"sideways\"\n",
		"negative keep": "[backup]\nkeep = -1\n",
		"unknown color": "[colors]\nbackground = \"#000000\"\n",
		"not toml":      "log_level = \n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromFile(path); err == nil {
				t.Errorf("Expected an error for %q", content)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := defaultConfig()
	cfg.Chip = "kona"
	cfg.Diff.Alignment = diff.AlignIdentity
	cfg.Settings["persisted"] = "yes"
	cfg.Set("session", "only")

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Chip != "kona" || loaded.Diff.Alignment != diff.AlignIdentity {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
	if loaded.Get("persisted") != "yes" {
		t.Errorf("Persisted setting was not saved")
	}
	if loaded.Get("session") != "" {
		t.Errorf("Session settings must not be saved")
	}
}
