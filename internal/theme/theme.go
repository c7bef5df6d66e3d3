// Package theme holds the terminal palette used to color diff output.
package theme

import (
	"strings"

	"github.com/pstuifzand/dtsedit/internal/diff"
)

// Colors holds all the color definitions for the theme
type Colors struct {
	// Diff entry colors
	Header    Color
	Added     Color
	Removed   Color
	Modified  Color
	Unchanged Color

	// Secondary lines
	Detail  Color
	Summary Color
}

// Theme represents a complete color theme
type Theme struct {
	Name   string
	Colors Colors
}

// Default returns a default theme using terminal defaults
func Default() *Theme {
	return &Theme{Name: "default"}
}

// TokyoNight returns the Tokyo Night theme
func TokyoNight() *Theme {
	return &Theme{
		Name: "tokyo-night",
		Colors: Colors{
			Header:    HexToColor("#bb9af7"), // Magenta
			Added:     HexToColor("#9ece6a"), // Green
			Removed:   HexToColor("#f7768e"), // Red
			Modified:  HexToColor("#e0af68"), // Yellow
			Unchanged: HexToColor("#565f89"), // Comment gray
			Detail:    HexToColor("#7dcfff"), // Cyan
			Summary:   HexToColor("#7aa2f7"), // Blue
		},
	}
}

// ColorFor returns the color of a rendered diff line
func (t *Theme) ColorFor(lineType diff.DiffLineType) Color {
	switch lineType {
	case diff.DiffTypeHeader:
		return t.Colors.Header
	case diff.DiffTypeNewItem:
		return t.Colors.Added
	case diff.DiffTypeDeletedItem:
		return t.Colors.Removed
	case diff.DiffTypeModifiedItem:
		return t.Colors.Modified
	case diff.DiffTypeUnchangedItem:
		return t.Colors.Unchanged
	case diff.DiffTypeItemDetail:
		return t.Colors.Detail
	case diff.DiffTypeSummary:
		return t.Colors.Summary
	default:
		return ColorDefault
	}
}

// UnifiedColor returns the color of one line of a unified diff
func (t *Theme) UnifiedColor(line string) Color {
	switch {
	case len(line) >= 3 && (line[:3] == "---" || line[:3] == "+++"):
		return t.Colors.Header
	case len(line) >= 2 && line[:2] == "@@":
		return t.Colors.Detail
	case len(line) > 0 && line[0] == '+':
		return t.Colors.Added
	case len(line) > 0 && line[0] == '-':
		return t.Colors.Removed
	default:
		return ColorDefault
	}
}

// Render writes diff lines as text, colored when color is set
func (t *Theme) Render(lines []diff.DiffLine, color bool) string {
	var sb strings.Builder
	for _, line := range lines {
		text := strings.Repeat("  ", line.Indent) + line.Content
		if color {
			text = t.ColorFor(line.Type).Paint(text)
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// RenderUnified colors each line of a unified diff
func (t *Theme) RenderUnified(text string, color bool) string {
	if !color || text == "" {
		return text
	}
	lines := strings.SplitAfter(text, "\n")
	var sb strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		sb.WriteString(t.UnifiedColor(body).Paint(body))
		if len(body) < len(line) {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
