// Package config loads the dtsedit TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/pstuifzand/dtsedit/internal/diff"
)

// Config holds application configuration
type Config struct {
	LogLevel        string `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFile         string `toml:"log_file"`
	Chip            string `toml:"chip"`
	ChipDefinitions string `toml:"chip_definitions"`
	Theme           string `toml:"theme"`
	// TimeFormat is a strftime pattern for timestamps in listings
	TimeFormat string `toml:"time_format"`

	Codec   CodecConfig   `toml:"codec"`
	Diff    DiffConfig    `toml:"diff"`
	History HistoryConfig `toml:"history"`
	Backup  BackupConfig  `toml:"backup"`

	// Colors overrides single theme colors by key
	Colors   map[string]string `toml:"colors" validate:"omitempty,dive,keys,oneof=header added removed modified unchanged detail summary,endkeys,required"`
	Settings map[string]string `toml:"settings"`

	// Session settings (not persisted to TOML, overrides persisted settings)
	sessionSettings map[string]string
}

// CodecConfig extends the property classification table
type CodecConfig struct {
	HexProperties []string `toml:"hex_properties" validate:"dive,required"`
}

type DiffConfig struct {
	Alignment        diff.Alignment `toml:"alignment"`
	IncludeUnchanged bool           `toml:"include_unchanged"`
}

type HistoryConfig struct {
	MaxEntries int `toml:"max_entries" validate:"gte=0"`
}

type BackupConfig struct {
	Dir  string `toml:"dir"`
	Keep int    `toml:"keep" validate:"gte=0"`
}

// DefaultTimeFormat prints local date and time to the second
const DefaultTimeFormat = "%Y-%m-%d %H:%M:%S"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load loads the config file from the standard location
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return defaultConfig(), nil // Return default if can't find config path
	}

	return LoadFromFile(configPath)
}

// LoadFromFile loads config from a specific file
func LoadFromFile(filePath string) (*Config, error) {
	// If file doesn't exist, return default config
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return defaultConfig(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Initialize persisted settings if not present
	if config.Settings == nil {
		config.Settings = make(map[string]string)
	}
	if config.Colors == nil {
		config.Colors = make(map[string]string)
	}

	return config, nil
}

// Validate checks the value ranges of the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// defaultConfig returns the default configuration
func defaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		Theme:           "tokyo-night",
		TimeFormat:      DefaultTimeFormat,
		History:         HistoryConfig{MaxEntries: 200},
		Backup:          BackupConfig{Keep: 20},
		Colors:          make(map[string]string),
		Settings:        make(map[string]string),
		sessionSettings: make(map[string]string),
	}
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return defaultConfig()
}

// GetConfigDir returns the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "dtsedit"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	return os.MkdirAll(configDir, 0o755)
}

// Set sets a session configuration value
func (c *Config) Set(key, value string) {
	if c.sessionSettings == nil {
		c.sessionSettings = make(map[string]string)
	}
	c.sessionSettings[key] = value
}

// Get retrieves a configuration value, checking session settings first (which override persisted settings)
// Returns empty string if not found in either source
func (c *Config) Get(key string) string {
	if val, ok := c.sessionSettings[key]; ok {
		return val
	}
	if val, ok := c.Settings[key]; ok {
		return val
	}
	return ""
}

// GetAll returns all configuration values (both persisted and session)
// Session settings override persisted settings with the same key
func (c *Config) GetAll() map[string]string {
	result := make(map[string]string)

	for k, v := range c.Settings {
		result[k] = v
	}
	for k, v := range c.sessionSettings {
		result[k] = v
	}

	return result
}

// SaveTo persists the configuration to filePath. Session settings are not
// written.
func (c *Config) SaveTo(filePath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Save persists the configuration to the standard location
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return c.SaveTo(configPath)
}
