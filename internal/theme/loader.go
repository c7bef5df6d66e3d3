package theme

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ThemeConfig represents the raw TOML theme configuration
type ThemeConfig struct {
	Name   string            `toml:"name"`
	Colors map[string]string `toml:"colors"`
}

// Keys lists the color names a theme file or the [colors] config table may set
var Keys = []string{"header", "added", "removed", "modified", "unchanged", "detail", "summary"}

// getThemePaths returns the search paths for theme files
func getThemePaths() []string {
	paths := []string{}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "dtsedit", "themes"),
			filepath.Join(home, ".local", "share", "dtsedit", "themes"))
	}

	return paths
}

// findThemeFile searches for a theme file in standard locations
func findThemeFile(themeName string) (string, error) {
	filename := themeName + ".toml"

	for _, dir := range getThemePaths() {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("theme file not found: %s", filename)
}

// LoadThemeFromFile loads a theme from a TOML file
func LoadThemeFromFile(filePath string) (*Theme, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var config ThemeConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}

	t := TokyoNight()
	if config.Name != "" {
		t.Name = config.Name
	}
	t.Apply(config.Colors)
	return t, nil
}

// LoadTheme loads a theme by name, searching standard theme directories
func LoadTheme(themeName string) (*Theme, error) {
	filePath, err := findThemeFile(themeName)
	if err != nil {
		return nil, err
	}

	return LoadThemeFromFile(filePath)
}

// LoadThemeOrDefault loads a theme by name, or returns Tokyo Night if not found
func LoadThemeOrDefault(themeName string) *Theme {
	switch themeName {
	case "default", "none":
		return Default()
	case "", "tokyo-night":
		return TokyoNight()
	}

	theme, err := LoadTheme(themeName)
	if err != nil {
		return TokyoNight()
	}
	return theme
}

// Apply overrides colors by key. Unknown keys and unparsable values are
// ignored.
func (t *Theme) Apply(colors map[string]string) {
	for key, value := range colors {
		c := ParseColorString(value)
		if c.IsDefault() {
			continue
		}
		switch key {
		case "header":
			t.Colors.Header = c
		case "added":
			t.Colors.Added = c
		case "removed":
			t.Colors.Removed = c
		case "modified":
			t.Colors.Modified = c
		case "unchanged":
			t.Colors.Unchanged = c
		case "detail":
			t.Colors.Detail = c
		case "summary":
			t.Colors.Summary = c
		}
	}
}
